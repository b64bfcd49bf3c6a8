package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter tiktoken 计数器。
// 编码表懒加载；加载失败时退化为字符数启发式估算，计数永不报错。
type TokenCounter struct {
	model   string
	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTokenCounter 为给定模型创建计数器
func NewTokenCounter(model string) *TokenCounter {
	return &TokenCounter{model: model}
}

// Count 统计文本 token 数
func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		c.enc, c.initErr = enc, err
	})
	if c.initErr != nil || c.enc == nil {
		return Estimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimate 启发式估算：平均约 4 字符一个 token。
// 作为编码表不可用时的保底，也适合只需要量级的场景。
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := len(text)/4 + 1
	return n
}
