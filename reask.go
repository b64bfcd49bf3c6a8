// Package reask provides a top-level convenience entry point for schema-guarded
// model runs with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/reask"
//
//	g := reask.New(s,
//		reask.WithPrompt("Extract a person from: {text}"),
//		reask.WithNumReasks(2),
//	)
//	hist, err := g.Run(ctx, callable, map[string]any{"text": doc})
//
// This is a thin wrapper around [runner.New]; use the runner package directly
// when you need per-run control over every knob.
package reask

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/reask/config"
	"github.com/BaSui01/reask/history"
	"github.com/BaSui01/reask/internal/metrics"
	"github.com/BaSui01/reask/llm"
	"github.com/BaSui01/reask/runner"
	"github.com/BaSui01/reask/schema"
	"github.com/BaSui01/reask/validator"
)

// Guard 把输出 schema 与运行配置绑成一个可复用的入口。
// 同一 Guard 可被并发使用；每次 Run 产生独立的运行历史，
// 完成后压入内部的历史栈。
type Guard struct {
	schema *schema.Schema

	numReasks       int
	fullSchemaReask bool
	metadata        validator.Metadata

	promptSource       string
	instructionsSource string
	msgHistory         []llm.Message

	logger    *zap.Logger
	collector *metrics.Collector

	state *history.State
}

// Option 配置 Guard
type Option func(*Guard)

// WithNumReasks 设置重问预算
func WithNumReasks(n int) Option {
	return func(g *Guard) { g.numReasks = n }
}

// WithFullSchemaReask 纠正请求始终携带完整 schema
func WithFullSchemaReask() Option {
	return func(g *Guard) { g.fullSchemaReask = true }
}

// WithMetadata 设置传给校验器的元数据
func WithMetadata(md validator.Metadata) Option {
	return func(g *Guard) { g.metadata = md }
}

// WithPrompt 设置主提示词模板
func WithPrompt(source string) Option {
	return func(g *Guard) { g.promptSource = source }
}

// WithInstructions 设置系统指令模板
func WithInstructions(source string) Option {
	return func(g *Guard) { g.instructionsSource = source }
}

// WithMsgHistory 用完整消息历史代替提示词
func WithMsgHistory(msgs []llm.Message) Option {
	return func(g *Guard) { g.msgHistory = msgs }
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithCollector 设置指标收集器
func WithCollector(c *metrics.Collector) Option {
	return func(g *Guard) { g.collector = c }
}

// WithConfig 从配置文件载入的引擎配置覆盖预算与 schema 策略
func WithConfig(cfg config.GuardConfig) Option {
	return func(g *Guard) {
		g.numReasks = cfg.NumReasks
		g.fullSchemaReask = cfg.FullSchemaReask
	}
}

// New 创建 Guard。预算默认为 1。
func New(s *schema.Schema, opts ...Option) *Guard {
	g := &Guard{
		schema:    s,
		numReasks: 1,
		logger:    zap.NewNop(),
		state:     history.NewState(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run 驱动 callable 在预算内逼近合法输出，返回完整运行历史。
// 历史（包括失败运行已累积的部分）压入 Guard 的历史栈。
func (g *Guard) Run(ctx context.Context, callable llm.Callable, params map[string]any) (*history.History, error) {
	r, err := g.runner(callable, "")
	if err != nil {
		return nil, err
	}
	hist, err := r.Run(ctx, params)
	if hist != nil {
		g.state.Push(hist)
	}
	return hist, err
}

// RunAsync 异步执行一次运行并立即返回句柄。
// 异步运行不压入 Guard 的历史栈，结果经句柄获取。
func (g *Guard) RunAsync(ctx context.Context, callable llm.Callable, params map[string]any) (*runner.Execution, error) {
	r, err := g.runner(callable, "")
	if err != nil {
		return nil, err
	}
	return r.Start(ctx, params), nil
}

// ValidateString 回放模式：对给定的字面输出走一遍
// Parse/Validate/Finalize 流水线，不触发任何模型调用。
// 返回收尾后的最终结构；是否完全解决由 [Guard.History] 检查。
func (g *Guard) ValidateString(ctx context.Context, raw string) (any, error) {
	r, err := runner.New(g.schema, nil,
		runner.WithOutput(raw),
		runner.WithMetadata(g.metadata),
		runner.WithLogger(g.logger),
		runner.WithCollector(g.collector),
	)
	if err != nil {
		return nil, err
	}
	hist, err := r.Run(ctx, nil)
	if hist != nil {
		g.state.Push(hist)
	}
	if err != nil {
		return nil, err
	}
	return hist.FinalOutput(), nil
}

// History 最近一次运行的历史（还没有运行时返回 nil）
func (g *Guard) History() *history.History {
	return g.state.Latest()
}

// State 跨运行的历史栈
func (g *Guard) State() *history.State {
	return g.state
}

// Schema 绑定的输出 schema
func (g *Guard) Schema() *schema.Schema {
	return g.schema
}

// runner 按 Guard 配置组装一次性的编排器
func (g *Guard) runner(callable llm.Callable, output string) (*runner.Runner, error) {
	opts := []runner.Option{
		runner.WithNumReasks(g.numReasks),
		runner.WithMetadata(g.metadata),
		runner.WithLogger(g.logger),
		runner.WithCollector(g.collector),
	}
	if g.fullSchemaReask {
		opts = append(opts, runner.WithFullSchemaReask())
	}
	if g.promptSource != "" {
		opts = append(opts, runner.WithPrompt(g.promptSource))
	}
	if g.instructionsSource != "" {
		opts = append(opts, runner.WithInstructions(g.instructionsSource))
	}
	if len(g.msgHistory) > 0 {
		opts = append(opts, runner.WithMsgHistory(g.msgHistory))
	}
	if output != "" {
		opts = append(opts, runner.WithOutput(output))
	}
	return runner.New(g.schema, callable, opts...)
}
