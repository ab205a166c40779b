package rollout

import (
	"encoding/json"
	"math"
	"sort"
	"testing"

	"pgregory.net/rapid"
)

// rewardGen 生成普通浮点数,并按一定比例混入 NaN 与 ±Inf
// (rapid.Float64 只产生有限值,特殊值需显式混入)
func rewardGen() *rapid.Generator[float64] {
	return rapid.OneOf(
		rapid.Float64(),
		rapid.Just(math.NaN()),
		rapid.Just(math.Inf(1)),
		rapid.Just(math.Inf(-1)),
	)
}

// 任意奖励值(含 NaN)经 JSON 往返后数值不变
func TestReward_JSONRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := rewardGen().Draw(t, "value")
		original := Reward(value)

		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("marshal %v: %v", value, err)
		}

		var restored Reward
		if err := json.Unmarshal(data, &restored); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}

		if original.IsNaN() {
			if !restored.IsNaN() {
				t.Fatalf("NaN lost in round trip: got %v", restored)
			}
			return
		}
		if float64(restored) != value {
			t.Fatalf("round trip changed %v to %v", value, restored)
		}
	})
}

// 任意奖励序列排序后,NaN 全部排在末尾,其余保持升序
func TestReward_SortPlacesNaNLastProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOf(rewardGen()).Draw(t, "rewards")
		rewards := make([]Reward, len(values))
		for i, v := range values {
			rewards[i] = Reward(v)
		}

		sort.SliceStable(rewards, func(i, j int) bool {
			return lessRewardNaNLast(rewards[i], rewards[j])
		})

		seenNaN := false
		for i, r := range rewards {
			if r.IsNaN() {
				seenNaN = true
				continue
			}
			if seenNaN {
				t.Fatalf("non-NaN reward %v at index %d after a NaN", r, i)
			}
			if i > 0 && !rewards[i-1].IsNaN() && float64(rewards[i-1]) > float64(r) {
				t.Fatalf("rewards out of order at index %d: %v > %v", i, rewards[i-1], r)
			}
		}
	})
}
