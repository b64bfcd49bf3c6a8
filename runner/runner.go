package runner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/reask/history"
	"github.com/BaSui01/reask/internal/metrics"
	"github.com/BaSui01/reask/llm"
	"github.com/BaSui01/reask/outcome"
	"github.com/BaSui01/reask/prompt"
	"github.com/BaSui01/reask/schema"
	"github.com/BaSui01/reask/validator"
)

const instrumentationName = "github.com/BaSui01/reask/runner"

// Runner 有界重试编排器。
// 一次 Run 至多执行 numReasks+1 轮尝试；字段在构造后不再变化，
// 同一 Runner 可被并发 Run，各次运行互不共享可变状态。
type Runner struct {
	schema   *schema.Schema
	callable llm.Callable

	// 字面量回放：非空时第 0 轮跳过模型调用
	output string

	prompt       *prompt.Prompt
	instructions *prompt.Instructions
	msgHistory   []llm.Message

	metadata        validator.Metadata
	numReasks       int
	fullSchemaReask bool

	counter *llm.TokenCounter

	logger    *zap.Logger
	tracer    trace.Tracer
	collector *metrics.Collector
}

// Option 配置 Runner
type Option func(*Runner)

// WithNumReasks 设置重问预算（校验失败后的最大重试轮数）
func WithNumReasks(n int) Option {
	return func(r *Runner) { r.numReasks = n }
}

// WithFullSchemaReask 纠正请求始终携带完整 schema 而不裁剪
func WithFullSchemaReask() Option {
	return func(r *Runner) { r.fullSchemaReask = true }
}

// WithPrompt 设置主提示词模板
func WithPrompt(source string) Option {
	return func(r *Runner) { r.prompt = prompt.NewPrompt(source) }
}

// WithInstructions 设置系统指令模板
func WithInstructions(source string) Option {
	return func(r *Runner) { r.instructions = prompt.NewInstructions(source) }
}

// WithMsgHistory 用完整消息历史代替提示词
func WithMsgHistory(msgs []llm.Message) Option {
	return func(r *Runner) { r.msgHistory = msgs }
}

// WithMetadata 设置传给校验器的元数据
func WithMetadata(md validator.Metadata) Option {
	return func(r *Runner) { r.metadata = md }
}

// WithOutput 设置字面输出，第 0 轮直接回放而不调用模型
func WithOutput(output string) Option {
	return func(r *Runner) { r.output = output }
}

// WithTokenCounter 设置字面量回放时的 token 计数器
func WithTokenCounter(c *llm.TokenCounter) Option {
	return func(r *Runner) { r.counter = c }
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithCollector 设置指标收集器
func WithCollector(c *metrics.Collector) Option {
	return func(r *Runner) { r.collector = c }
}

// New 创建编排器。callable 可以为 nil，此时必须通过 WithOutput
// 提供字面输出；配置矛盾在这里即报错。
func New(s *schema.Schema, callable llm.Callable, opts ...Option) (*Runner, error) {
	r := &Runner{
		schema:    s,
		callable:  callable,
		numReasks: 1,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.numReasks < 0 {
		return nil, fmt.Errorf("runner: num reasks must be non-negative, got %d", r.numReasks)
	}
	if r.callable == nil && r.output == "" {
		return nil, ErrNoCallableOrOutput
	}
	if r.output == "" && r.prompt == nil && len(r.msgHistory) == 0 {
		return nil, ErrNoPromptOrMsgHistory
	}
	r.logger = r.logger.With(zap.String("component", "runner"))
	return r, nil
}

// Run 执行一次完整编排，返回按时间序的运行历史。
// 预算耗尽仍有失败时不返回错误：历史完整，最终输出是
// 尽力而为的替换结果，调用方检查 History.Resolved。
func (r *Runner) Run(ctx context.Context, params map[string]any) (*history.History, error) {
	// 元数据前置检查：任何副作用（包括模型调用）之前判定
	if missing := r.schema.MissingMetadataKeys(r.metadata); len(missing) > 0 {
		return nil, &MissingMetadataError{Keys: missing}
	}

	ctx, span := r.tracer.Start(ctx, "reask.run",
		trace.WithAttributes(
			attribute.Int("reask.budget", r.numReasks),
			attribute.Bool("reask.full_schema", r.fullSchemaReask),
		))
	defer span.End()

	hist := history.New()
	start := time.Now()

	curPrompt := r.prompt
	curIns := r.instructions
	curMsgHistory := r.msgHistory
	curSchema := r.schema
	// 原始请求既无指令也无消息历史时，纠正轮也不注入指令
	keepInstructions := r.instructions != nil || len(r.msgHistory) > 0

	for index := 0; ; index++ {
		attempt, validated, err := r.step(ctx, index, curPrompt, curIns, curMsgHistory, curSchema, params, hist)
		if err != nil {
			r.recordRun("error", hist, start)
			return hist, err
		}

		doLoop := len(attempt.ReAsks) > 0 && index < r.numReasks && r.callable != nil
		if !doLoop {
			attempt.ValidatedOutput = outcome.SubFixedValues(validated)
			break
		}

		curPrompt, curIns, curSchema, err = r.prepareToLoop(attempt.ReAsks, validated, params)
		if err != nil {
			r.recordRun("error", hist, start)
			return hist, err
		}
		if !keepInstructions {
			curIns = nil
		}
		// 纠正轮永远不携带消息历史
		curMsgHistory = nil
	}

	status := "unresolved"
	if hist.Resolved() {
		status = "resolved"
	}
	span.SetAttributes(
		attribute.Int("reask.attempts", hist.Len()),
		attribute.Bool("reask.resolved", hist.Resolved()),
	)
	r.recordRun(status, hist, start)
	r.logger.Info("run finished",
		zap.String("history_id", hist.ID),
		zap.Int("attempts", hist.Len()),
		zap.String("status", status),
	)
	return hist, nil
}

// step 执行一轮尝试。返回本轮记录与带标记的校验产物；
// 致命错误（传输、异常策略）通过 err 返回并终止整个运行。
func (r *Runner) step(
	ctx context.Context,
	index int,
	p *prompt.Prompt,
	ins *prompt.Instructions,
	msgHistory []llm.Message,
	s *schema.Schema,
	params map[string]any,
	hist *history.History,
) (*history.Attempt, any, error) {
	ctx, span := r.tracer.Start(ctx, "reask.step",
		trace.WithAttributes(attribute.Int("reask.index", index)))
	defer span.End()

	attempt := history.NewAttempt(index)
	hist.Push(attempt)

	// Prepare。纠正轮的提示词出自 ReaskSetup，已完成渲染，
	// 只有首轮需要注入 schema 与参数。
	stageStart := time.Now()
	var err error
	if index == 0 {
		if p != nil {
			p = p.Format(params)
			p, ins, err = s.PreprocessPrompt(p, ins)
			if err != nil {
				return attempt, nil, err
			}
		}
		if ins != nil {
			ins = ins.Format(params)
		}
	}
	attempt.Prompt = p
	attempt.Instructions = ins
	attempt.MsgHistory = msgHistory
	r.collector.RecordStage("prepare", time.Since(stageStart))

	// Call
	stageStart = time.Now()
	resp, err := r.call(ctx, index, p, ins, msgHistory, s)
	if err != nil {
		return attempt, nil, err
	}
	attempt.Response = resp
	r.collector.RecordStage("call", time.Since(stageStart))

	// Parse
	stageStart = time.Now()
	parsed, parseErr := s.Parse(resp.Output)
	r.collector.RecordStage("parse", time.Since(stageStart))
	if parseErr != nil {
		attempt.ParseError = parseErr.Error()
		np := outcome.NewNonParseable(resp.Output, parseErr)
		attempt.ReAsks = []outcome.ReAsk{np}
		r.collector.RecordReasks("non_parseable", 1)
		r.logger.Debug("output not parseable",
			zap.Int("index", index),
			zap.String("parse_error", attempt.ParseError),
		)
		return attempt, np, nil
	}
	attempt.ParsedOutput = parsed

	// Validate
	stageStart = time.Now()
	validated, err := s.Validate(ctx, parsed, r.metadata)
	r.collector.RecordStage("validate", time.Since(stageStart))
	if err != nil {
		return attempt, nil, err
	}
	attempt.ValidatedOutput = validated

	// Introspect
	stageStart = time.Now()
	reasks := outcome.Gather(validated)
	attempt.ReAsks = reasks
	r.collector.RecordStage("introspect", time.Since(stageStart))
	r.collector.RecordReasks("field", len(reasks))
	r.logger.Debug("step finished",
		zap.Int("index", index),
		zap.Int("reasks", len(reasks)),
	)
	return attempt, validated, nil
}

// call 执行模型调用。字面输出在第 0 轮直接回放；携带结构化输出
// 提示的调用失败时，同一轮内去掉提示重试一次。
func (r *Runner) call(
	ctx context.Context,
	index int,
	p *prompt.Prompt,
	ins *prompt.Instructions,
	msgHistory []llm.Message,
	s *schema.Schema,
) (*llm.Response, error) {
	if r.output != "" && index == 0 {
		resp := &llm.Response{Output: r.output}
		if r.counter != nil {
			resp.ResponseTokenCount = r.counter.Count(r.output)
		}
		return resp, nil
	}

	req := &llm.CallRequest{
		MsgHistory: msgHistory,
		BaseSchema: s.Root(),
	}
	if p != nil {
		req.Prompt = p.Source
	}
	if ins != nil {
		req.Instructions = ins.Source
	}

	resp, err := r.callable.Call(ctx, req)
	if err != nil && req.BaseSchema != nil {
		r.logger.Warn("call with structured output hint failed, retrying without hint",
			zap.Int("index", index),
			zap.Error(err),
		)
		r.collector.RecordLLMCall(true, "error", 0, 0)
		resp, err = r.callable.Call(ctx, req.WithoutHint())
		if err != nil {
			r.collector.RecordLLMCall(false, "error", 0, 0)
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		r.collector.RecordLLMCall(false, "success", resp.PromptTokenCount, resp.ResponseTokenCount)
		return resp, nil
	}
	if err != nil {
		r.collector.RecordLLMCall(true, "error", 0, 0)
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	r.collector.RecordLLMCall(true, "success", resp.PromptTokenCount, resp.ResponseTokenCount)
	return resp, nil
}

// prepareToLoop 用残留标记构造下一轮的纠正请求。
// 窄化始终从原始 schema 出发，标记路径是绝对路径。
func (r *Runner) prepareToLoop(
	reasks []outcome.ReAsk,
	validated any,
	params map[string]any,
) (*prompt.Prompt, *prompt.Instructions, *schema.Schema, error) {
	return r.schema.ReaskSetup(reasks, validated, r.fullSchemaReask, params)
}

func (r *Runner) recordRun(status string, hist *history.History, start time.Time) {
	r.collector.RecordRun(status, hist.Len(), time.Since(start))
}
