package rollout

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer 计算文本的 token 数
type Tokenizer interface {
	CountTokens(text string) int
}

// TiktokenTokenizer 基于 tiktoken 编码表的 Tokenizer 实现
type TiktokenTokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenTokenizer 创建指定编码表的 tokenizer,如 "cl100k_base"。
func NewTiktokenTokenizer(encodingName string) (*TiktokenTokenizer, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TiktokenTokenizer{encoding: encoding}, nil
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessageTokens 统计单条消息正文与推理内容的 token 数
func CountMessageTokens(msg Message, tokenizer Tokenizer) TokenCounts {
	counts := TokenCounts{}
	if msg.Content != "" {
		counts.ContentTokens = tokenizer.CountTokens(msg.Content)
	}
	if msg.ReasoningContent != "" {
		counts.ReasoningTokens = tokenizer.CountTokens(msg.ReasoningContent)
	}
	return counts
}

// CountConversationTokens 统计整段对话逐条消息的 token 数
func CountConversationTokens(conversation []Message, tokenizer Tokenizer) []TokenCounts {
	if len(conversation) == 0 {
		return nil
	}
	counts := make([]TokenCounts, len(conversation))
	for i, msg := range conversation {
		counts[i] = CountMessageTokens(msg, tokenizer)
	}
	return counts
}

// Ensure TiktokenTokenizer implements Tokenizer
var _ Tokenizer = (*TiktokenTokenizer)(nil)
