// MockCallable 的模型调用目标测试模拟实现。
//
// 支持脚本化逐轮响应、错误注入与调用记录。
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/reask/llm"
)

// MockCall 记录单次调用
type MockCall struct {
	Request  *llm.CallRequest
	Response *llm.Response
	Error    error
}

// MockCallable 是 llm.Callable 的模拟实现。
// 响应按脚本顺序逐次消费，脚本耗尽后重复最后一条。
type MockCallable struct {
	mu sync.Mutex

	// 响应配置
	outputs []string
	err     error

	// Token 使用统计
	promptTokens   int
	responseTokens int

	// 调用记录
	calls    []MockCall
	callFunc func(ctx context.Context, req *llm.CallRequest) (*llm.Response, error)

	// 行为控制
	failWhenHinted bool // 携带结构化输出提示的调用一律失败
	callCount      int
	outputIdx      int // 仅成功调用消费脚本
}

// --- 构造函数和 Builder 方法 ---

// NewMockCallable 创建新的 MockCallable
func NewMockCallable() *MockCallable {
	return &MockCallable{
		outputs:        []string{"{}"},
		promptTokens:   10,
		responseTokens: 20,
	}
}

// WithOutputs 设置脚本化响应序列，每次调用消费一条
func (m *MockCallable) WithOutputs(outputs ...string) *MockCallable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = outputs
	return m
}

// WithError 设置返回错误
func (m *MockCallable) WithError(err error) *MockCallable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockCallable) WithTokenUsage(prompt, response int) *MockCallable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.responseTokens = response
	return m
}

// WithFailWhenHinted 携带结构化输出提示的调用一律失败（降级重试测试用）
func (m *MockCallable) WithFailWhenHinted() *MockCallable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWhenHinted = true
	return m
}

// WithCallFunc 设置自定义 Call 函数
func (m *MockCallable) WithCallFunc(fn func(ctx context.Context, req *llm.CallRequest) (*llm.Response, error)) *MockCallable {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callFunc = fn
	return m
}

// --- Callable 接口实现 ---

// Call 实现 llm.Callable
func (m *MockCallable) Call(ctx context.Context, req *llm.CallRequest) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.callFunc != nil {
		resp, err := m.callFunc(ctx, req)
		m.calls = append(m.calls, MockCall{Request: req, Response: resp, Error: err})
		m.callCount++
		return resp, err
	}

	if err := ctx.Err(); err != nil {
		m.calls = append(m.calls, MockCall{Request: req, Error: err})
		m.callCount++
		return nil, err
	}

	if m.failWhenHinted && req.BaseSchema != nil {
		err := errors.New("mock: structured output hint not supported")
		m.calls = append(m.calls, MockCall{Request: req, Error: err})
		m.callCount++
		return nil, err
	}

	if m.err != nil {
		m.calls = append(m.calls, MockCall{Request: req, Error: m.err})
		m.callCount++
		return nil, m.err
	}

	idx := m.outputIdx
	if idx >= len(m.outputs) {
		idx = len(m.outputs) - 1
	}
	m.outputIdx++
	resp := &llm.Response{
		Output:             m.outputs[idx],
		PromptTokenCount:   m.promptTokens,
		ResponseTokenCount: m.responseTokens,
	}
	m.calls = append(m.calls, MockCall{Request: req, Response: resp})
	m.callCount++
	return resp, nil
}

// --- 检查方法 ---

// CallCount 返回调用次数
func (m *MockCallable) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls 返回调用记录副本
func (m *MockCallable) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall 返回最后一次调用记录（无调用时返回 nil）
func (m *MockCallable) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// Reset 清空调用记录与计数
func (m *MockCallable) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
	m.outputIdx = 0
}
