package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ChatRequest 聊天式后端的统一请求
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// ChatUsage token 用量
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// ChatResponse 聊天式后端的统一响应
type ChatResponse struct {
	Content string    `json:"content"`
	Usage   ChatUsage `json:"usage,omitempty"`
}

// ChatProvider 统一的聊天式 LLM 适配接口。
// 支持原生结构化输出（如 OpenAI JSON 模式）的实现应返回 true。
type ChatProvider interface {
	// Completion 发起同步聊天请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Name 返回 Provider 的唯一标识
	Name() string
	// SupportsStructuredOutput 返回是否支持结构化输出提示
	SupportsStructuredOutput() bool
}

// ProviderCallable 把 ChatProvider 适配为编排器可消费的 Callable。
// BaseSchema 提示以系统消息形式注入；声明不支持提示的后端收到
// 带提示的请求时直接报错，触发编排器的同迭代降级重试。
type ProviderCallable struct {
	provider ChatProvider
	model    string
	counter  *TokenCounter
	logger   *zap.Logger
}

// NewProviderCallable 创建适配器。counter 可为 nil：后端不上报用量时
// 将不填充 token 计数。
func NewProviderCallable(provider ChatProvider, model string, counter *TokenCounter, logger *zap.Logger) *ProviderCallable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderCallable{
		provider: provider,
		model:    model,
		counter:  counter,
		logger:   logger.With(zap.String("component", "provider_callable")),
	}
}

// Call 实现 Callable 接口
func (c *ProviderCallable) Call(ctx context.Context, req *CallRequest) (*Response, error) {
	messages, err := c.buildMessages(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.provider.Completion(ctx, &ChatRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s completion failed: %w", c.provider.Name(), err)
	}

	out := &Response{
		Output:             resp.Content,
		PromptTokenCount:   resp.Usage.PromptTokens,
		ResponseTokenCount: resp.Usage.CompletionTokens,
	}
	if c.counter != nil {
		if out.PromptTokenCount == 0 {
			for _, m := range messages {
				out.PromptTokenCount += c.counter.Count(m.Content)
			}
		}
		if out.ResponseTokenCount == 0 {
			out.ResponseTokenCount = c.counter.Count(resp.Content)
		}
	}
	return out, nil
}

// buildMessages 把 CallRequest 转换为消息序列
func (c *ProviderCallable) buildMessages(req *CallRequest) ([]Message, error) {
	var messages []Message

	if req.BaseSchema != nil {
		if !c.provider.SupportsStructuredOutput() {
			return nil, fmt.Errorf("provider %s does not support structured output hints", c.provider.Name())
		}
		schemaJSON, err := json.Marshal(req.BaseSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal base schema: %w", err)
		}
		messages = append(messages, Message{
			Role: RoleSystem,
			Content: fmt.Sprintf(
				"You must respond with valid JSON that conforms to the following JSON Schema:\n%s\n\nRespond only with the JSON object, no additional text.",
				string(schemaJSON),
			),
		})
	}

	switch {
	case len(req.MsgHistory) > 0:
		messages = append(messages, req.MsgHistory...)
	case req.Prompt != "":
		if req.Instructions != "" {
			messages = append(messages, Message{Role: RoleSystem, Content: req.Instructions})
		}
		messages = append(messages, Message{Role: RoleUser, Content: req.Prompt})
	default:
		return nil, fmt.Errorf("call request has neither prompt nor message history")
	}

	return messages, nil
}
