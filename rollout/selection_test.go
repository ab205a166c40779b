package rollout

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func batchWithRewards(rewards ...float64) []Record {
	out := make([]Record, len(rewards))
	for i, r := range rewards {
		out[i] = Record{TotalReward: Reward(r)}
	}
	return out
}

func TestSelect_EmptyBatch(t *testing.T) {
	assert.Nil(t, Select(zap.NewNop(), nil))
}

func TestSelect_SingleRolloutMarkedOnly(t *testing.T) {
	selected := Select(zap.NewNop(), batchWithRewards(1.5))
	require.Len(t, selected, 1)
	assert.Equal(t, SelectionOnly, selected[0].SelectionType)
	assert.Equal(t, Reward(1.5), selected[0].TotalReward)
}

func TestSelect_TwoRolloutsBestAndWorst(t *testing.T) {
	selected := Select(zap.NewNop(), batchWithRewards(3.0, -1.0))
	require.Len(t, selected, 2)

	assert.Equal(t, SelectionWorst, selected[0].SelectionType)
	assert.Equal(t, Reward(-1.0), selected[0].TotalReward)
	assert.Equal(t, SelectionBest, selected[1].SelectionType)
	assert.Equal(t, Reward(3.0), selected[1].TotalReward)
}

func TestSelect_LargeBatchIncludesRandom(t *testing.T) {
	selected := Select(zap.NewNop(), batchWithRewards(0.5, 2.0, -3.0, 1.0, 0.0))
	require.Len(t, selected, 3)

	assert.Equal(t, SelectionWorst, selected[0].SelectionType)
	assert.Equal(t, Reward(-3.0), selected[0].TotalReward)
	assert.Equal(t, SelectionBest, selected[1].SelectionType)
	assert.Equal(t, Reward(2.0), selected[1].TotalReward)
	assert.Equal(t, SelectionRandom, selected[2].SelectionType)

	// random 来自中段,不会是 best 或 worst
	r := float64(selected[2].TotalReward)
	assert.Greater(t, r, -3.0)
	assert.Less(t, r, 2.0)
}

func TestSelect_NaNRewardsExcludedFromBest(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	selected := Select(logger, batchWithRewards(1.0, math.NaN(), 2.0, math.NaN()))
	require.Len(t, selected, 3)

	assert.Equal(t, Reward(1.0), selected[0].TotalReward)
	assert.Equal(t, Reward(2.0), selected[1].TotalReward)
	assert.False(t, selected[1].TotalReward.IsNaN())

	warnings := logs.FilterMessage("rollouts with NaN rewards").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(2), warnings[0].ContextMap()["nan_count"])
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	batch := batchWithRewards(2.0, 1.0, 3.0)
	Select(zap.NewNop(), batch)

	// 原批次顺序与标记不变
	assert.Equal(t, Reward(2.0), batch[0].TotalReward)
	assert.Empty(t, batch[0].SelectionType)
}

func TestReward_NaNMarshalsAsNull(t *testing.T) {
	data, err := Reward(math.NaN()).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var r Reward
	require.NoError(t, r.UnmarshalJSON([]byte("null")))
	assert.True(t, r.IsNaN())

	require.NoError(t, r.UnmarshalJSON([]byte("1.25")))
	assert.Equal(t, Reward(1.25), r)
}

// 无穷奖励必须产出合法 JSON,否则整批保存都会失败
func TestReward_InfinityRoundTrips(t *testing.T) {
	record := Record{
		TotalReward: Reward(math.Inf(1)),
		IndividualRewards: map[string]Reward{
			"format": Reward(math.Inf(-1)),
			"answer": 1.0,
		},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var restored Record
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.True(t, math.IsInf(float64(restored.TotalReward), 1))
	assert.True(t, math.IsInf(float64(restored.IndividualRewards["format"]), -1))
	assert.Equal(t, Reward(1.0), restored.IndividualRewards["answer"])
}

type fixedTokenizer struct{}

func (fixedTokenizer) CountTokens(text string) int { return len([]rune(text)) }

func TestCountConversationTokens(t *testing.T) {
	conversation := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi", ReasoningContent: "greet back"},
		{Role: "user"},
	}

	counts := CountConversationTokens(conversation, fixedTokenizer{})
	require.Len(t, counts, 3)
	assert.Equal(t, TokenCounts{ContentTokens: 5}, counts[0])
	assert.Equal(t, TokenCounts{ContentTokens: 2, ReasoningTokens: 10}, counts[1])
	assert.Equal(t, TokenCounts{}, counts[2])
}
