package llm

import (
	"context"

	"github.com/BaSui01/reask/schema"
)

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 一条对话消息
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CallRequest 渲染完成、可直接发往模型的请求。
// Prompt/Instructions 与 MsgHistory 二者取一；BaseSchema 是可选的
// 结构化输出提示，不支持它的后端应当返回错误而不是静默忽略。
type CallRequest struct {
	Prompt       string             `json:"prompt,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
	MsgHistory   []Message          `json:"msg_history,omitempty"`
	BaseSchema   *schema.JSONSchema `json:"base_schema,omitempty"`
}

// WithoutHint 返回去掉结构化输出提示的请求拷贝（降级重试用）
func (r *CallRequest) WithoutHint() *CallRequest {
	clone := *r
	clone.BaseSchema = nil
	return &clone
}

// Response 一次模型调用的结果
type Response struct {
	Output             string `json:"output"`
	PromptTokenCount   int    `json:"prompt_token_count,omitempty"`
	ResponseTokenCount int    `json:"response_token_count,omitempty"`
}

// Callable 编排器消费的不透明调用目标。
// 实现必须可被并发调用，或在内部自行串行化。
type Callable interface {
	Call(ctx context.Context, req *CallRequest) (*Response, error)
}

// CallableFunc 函数适配器
type CallableFunc func(ctx context.Context, req *CallRequest) (*Response, error)

// Call 实现 Callable 接口
func (f CallableFunc) Call(ctx context.Context, req *CallRequest) (*Response, error) {
	return f(ctx, req)
}
