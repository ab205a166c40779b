package rollout

import (
	"bytes"
	"math"
	"strconv"
	"time"
)

// Reward 是可序列化的奖励值。JSON 不支持 NaN 与无穷,序列化时 NaN 写作
// null,±Inf 写作字符串 "Infinity"/"-Infinity",反序列化按同样规则还原。
type Reward float64

// IsNaN 报告奖励是否为 NaN
func (r Reward) IsNaN() bool { return math.IsNaN(float64(r)) }

func (r Reward) MarshalJSON() ([]byte, error) {
	switch {
	case r.IsNaN():
		return []byte("null"), nil
	case math.IsInf(float64(r), 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(float64(r), -1):
		return []byte(`"-Infinity"`), nil
	}
	return []byte(strconv.FormatFloat(float64(r), 'g', -1, 64)), nil
}

func (r *Reward) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = Reward(math.NaN())
		return nil
	case bytes.Equal(data, []byte(`"Infinity"`)):
		*r = Reward(math.Inf(1))
		return nil
	case bytes.Equal(data, []byte(`"-Infinity"`)):
		*r = Reward(math.Inf(-1))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*r = Reward(v)
	return nil
}

// SelectionType 标识一条 rollout 入选的原因
type SelectionType string

const (
	SelectionBest   SelectionType = "best"
	SelectionWorst  SelectionType = "worst"
	SelectionRandom SelectionType = "random"
	SelectionOnly   SelectionType = "only"
)

// Message 是 rollout 对话中的一条消息
type Message struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// TokenCounts 是单条消息的 token 统计
type TokenCounts struct {
	ContentTokens   int `json:"content_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Record 是保存到 rollouts.jsonl 的一条完整 rollout
type Record struct {
	Timestamp         time.Time          `json:"timestamp"`
	Step              int64              `json:"step"`
	SampleID          string             `json:"sample_id,omitempty"`
	Conversation      []Message          `json:"conversation"`
	TokenCounts       []TokenCounts      `json:"token_counts,omitempty"`
	SampleInfo        map[string]any     `json:"sample_info,omitempty"`
	IndividualRewards map[string]Reward  `json:"individual_rewards,omitempty"`
	TotalReward       Reward             `json:"total_reward"`
	RendererName      string             `json:"renderer_name,omitempty"`
	SelectionType     SelectionType      `json:"selection_type,omitempty"`
}
