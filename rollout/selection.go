package rollout

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// Select 从一个批次中挑出最差、最好和一条随机 rollout。
//
// 返回至多 3 条带 SelectionType 的副本:
//  1. worst: 最低 total_reward
//  2. best: 最高 total_reward
//  3. random: 其余中的随机一条
//
// NaN 奖励排到末尾,不参与 best/worst 的选取;单条批次标记为 only。
func Select(logger *zap.Logger, rollouts []Record) []Record {
	if len(rollouts) == 0 {
		return nil
	}
	if len(rollouts) == 1 {
		only := rollouts[0]
		only.SelectionType = SelectionOnly
		return []Record{only}
	}

	sorted := make([]Record, len(rollouts))
	copy(sorted, rollouts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessRewardNaNLast(sorted[i].TotalReward, sorted[j].TotalReward)
	})

	nanCount := 0
	for _, r := range rollouts {
		if r.TotalReward.IsNaN() {
			nanCount++
		}
	}
	if nanCount > 0 {
		logger.Warn("rollouts with NaN rewards",
			zap.Int("nan_count", nanCount),
			zap.Int("batch_size", len(rollouts)),
		)
	}

	worst := sorted[0]
	worst.SelectionType = SelectionWorst

	// NaN 排在末尾,best 取最后一条非 NaN;全 NaN 时退回末尾
	bestIdx := len(sorted) - 1
	for bestIdx > 0 && sorted[bestIdx].TotalReward.IsNaN() {
		bestIdx--
	}
	best := sorted[bestIdx]
	best.SelectionType = SelectionBest

	selected := []Record{worst, best}

	// 随机项取自中段,不与 best/worst 重复
	if len(sorted) > 2 {
		idx := 1 + rand.Intn(len(sorted)-2)
		random := sorted[idx]
		random.SelectionType = SelectionRandom
		selected = append(selected, random)
	}

	return selected
}

// lessRewardNaNLast 比较奖励,NaN 视为最大使其排到末尾
func lessRewardNaNLast(a, b Reward) bool {
	aNaN, bNaN := a.IsNaN(), b.IsNaN()
	if aNaN != bNaN {
		return bNaN
	}
	if aNaN {
		return false
	}
	return a < b
}
