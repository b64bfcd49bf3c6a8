package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/reask/llm"
	"github.com/BaSui01/reask/outcome"
	"github.com/BaSui01/reask/prompt"
)

// Attempt 一次模型往返的完整记录。
// 字段按流水线阶段顺序各写入一次：请求（Prepare）、响应（Call）、
// 解析产物（Parse）、校验产物（Validate）、标记列表（Introspect）。
type Attempt struct {
	ID    string `json:"id"`
	Index int    `json:"index"`

	// Prepare 阶段
	Prompt       *prompt.Prompt       `json:"prompt,omitempty"`
	Instructions *prompt.Instructions `json:"instructions,omitempty"`
	MsgHistory   []llm.Message        `json:"msg_history,omitempty"`

	// Call 阶段
	Response *llm.Response `json:"response,omitempty"`

	// Parse 阶段
	ParsedOutput any    `json:"parsed_output,omitempty"`
	ParseError   string `json:"parse_error,omitempty"`

	// Validate / Finalize 阶段
	ValidatedOutput any `json:"validated_output,omitempty"`

	// Introspect 阶段
	ReAsks []outcome.ReAsk `json:"reasks,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// NewAttempt 创建第 index 轮的记录
func NewAttempt(index int) *Attempt {
	return &Attempt{
		ID:        uuid.NewString(),
		Index:     index,
		StartedAt: time.Now(),
	}
}

// RawOutput 返回本轮模型原始文本（无响应时为空串）
func (a *Attempt) RawOutput() string {
	if a.Response == nil {
		return ""
	}
	return a.Response.Output
}

// Resolved 本轮是否没有遗留任何标记
func (a *Attempt) Resolved() bool {
	return len(a.ReAsks) == 0
}

// History 一次编排运行的按时间序审计轨迹。
// 插入顺序即时间顺序；运行开始时由编排器整体重建。
type History struct {
	ID       string     `json:"id"`
	Attempts []*Attempt `json:"attempts"`
}

// New 创建空 History
func New() *History {
	return &History{ID: uuid.NewString()}
}

// Push 追加一条记录
func (h *History) Push(a *Attempt) {
	h.Attempts = append(h.Attempts, a)
}

// Len 记录条数
func (h *History) Len() int { return len(h.Attempts) }

// Last 最后一条记录（空历史返回 nil）
func (h *History) Last() *Attempt {
	if len(h.Attempts) == 0 {
		return nil
	}
	return h.Attempts[len(h.Attempts)-1]
}

// FinalOutput 最后一轮的校验产物
func (h *History) FinalOutput() any {
	last := h.Last()
	if last == nil {
		return nil
	}
	return last.ValidatedOutput
}

// Resolved 最后一轮是否没有遗留标记。
// false 表示预算耗尽时仍有失败，最终输出是尽力而为的替换结果。
func (h *History) Resolved() bool {
	last := h.Last()
	return last != nil && last.Resolved()
}

// State 跨运行的 History 栈。
// 多个并发运行各自持有独立的 History；State 只做事后汇集，读写加锁。
type State struct {
	mu        sync.RWMutex
	histories []*History
}

// NewState 创建空栈
func NewState() *State {
	return &State{}
}

// Push 压入一次运行的历史
func (s *State) Push(h *History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = append(s.histories, h)
}

// Latest 最近一次运行的历史（空栈返回 nil）
func (s *State) Latest() *History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.histories) == 0 {
		return nil
	}
	return s.histories[len(s.histories)-1]
}

// Len 栈内历史数量
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories)
}
