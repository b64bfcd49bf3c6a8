package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/reask/llm"
	"github.com/BaSui01/reask/outcome"
	"github.com/BaSui01/reask/schema"
	"github.com/BaSui01/reask/testutil/mocks"
	"github.com/BaSui01/reask/validator"
)

func ageSchema(t *testing.T, onFail validator.OnFailAction) *schema.Schema {
	t.Helper()
	min, max := 0.0, 10.0
	root := schema.NewObjectSchema().
		AddProperty("age", schema.NewIntegerSchema()).
		AddRequired("age")
	s := schema.New(root)
	s.Bind("age", &validator.ValidRange{Min: &min, Max: &max}, onFail)
	return s
}

func newRunner(t *testing.T, s *schema.Schema, callable llm.Callable, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithPrompt("Extract the person's age.")}, opts...)
	r, err := New(s, callable, opts...)
	require.NoError(t, err)
	return r
}

// ============================================================================
// 构造配置错误
// ============================================================================

func TestNew_ConfigErrors(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)

	t.Run("no callable and no output", func(t *testing.T) {
		_, err := New(s, nil, WithPrompt("p"))
		assert.ErrorIs(t, err, ErrNoCallableOrOutput)
	})

	t.Run("no prompt and no msg history", func(t *testing.T) {
		_, err := New(s, mocks.NewMockCallable())
		assert.ErrorIs(t, err, ErrNoPromptOrMsgHistory)
	})

	t.Run("negative budget", func(t *testing.T) {
		_, err := New(s, mocks.NewMockCallable(), WithPrompt("p"), WithNumReasks(-1))
		assert.Error(t, err)
	})

	t.Run("literal output needs neither prompt nor callable", func(t *testing.T) {
		_, err := New(s, nil, WithOutput(`{"age": 5}`))
		assert.NoError(t, err)
	})
}

func TestRun_MissingMetadata(t *testing.T) {
	root := schema.NewObjectSchema().AddProperty("name", schema.NewStringSchema())
	s := schema.New(root)
	s.Bind("name", &needsKeyValidator{key: "glossary"}, validator.OnFailReask)

	callable := mocks.NewMockCallable()
	r := newRunner(t, s, callable)

	_, err := r.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingMetadata)

	var mme *MissingMetadataError
	require.ErrorAs(t, err, &mme)
	assert.Equal(t, []string{"glossary"}, mme.Keys)

	// 模型调用不应发生
	assert.Zero(t, callable.CallCount())
}

// needsKeyValidator 声明一个必需的元数据键
type needsKeyValidator struct {
	key string
}

func (v *needsKeyValidator) Name() string { return "needs-key" }

func (v *needsKeyValidator) RequiredMetadataKeys() []string { return []string{v.key} }

func (v *needsKeyValidator) Validate(_ context.Context, _ any, _ validator.Metadata) outcome.Result {
	return outcome.Pass()
}

// ============================================================================
// 场景：预算内纠正成功
// ============================================================================

func TestRun_ReaskThenResolve(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().
		WithOutputs(`{"age": 15}`, `{"age": 7}`)

	r := newRunner(t, s, callable, WithNumReasks(1))
	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	// 预算 1 → 两轮尝试，第二轮解决
	require.Equal(t, 2, hist.Len())
	assert.True(t, hist.Resolved())
	assert.Equal(t, map[string]any{"age": 7.0}, hist.FinalOutput())

	// 第一轮记录了标记与出错信息
	first := hist.Attempts[0]
	require.Len(t, first.ReAsks, 1)
	fr := first.ReAsks[0].(*outcome.FieldReAsk)
	assert.Equal(t, []any{"age"}, fr.Path)
	assert.Equal(t, 15.0, fr.IncorrectValue)
	require.Len(t, fr.FailResults, 1)
	assert.Equal(t, "Value 15 is greater than 10.", fr.FailResults[0].ErrorMessage)

	// 纠正轮的提示词包含上一轮的错误信息，且不携带消息历史
	second := hist.Attempts[1]
	require.NotNil(t, second.Prompt)
	assert.Contains(t, second.Prompt.Source, "Value 15 is greater than 10.")
	assert.Empty(t, second.MsgHistory)
}

func TestRun_MissingRequiredPropertyReasks(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)

	t.Run("omitted field triggers another turn", func(t *testing.T) {
		callable := mocks.NewMockCallable().
			WithOutputs(`{"age": 15}`, `{}`, `{"age": 7}`)

		r := newRunner(t, s, callable, WithNumReasks(3))
		hist, err := r.Run(context.Background(), nil)
		require.NoError(t, err)

		// 第二轮省略了必填字段，不得就此判定解决
		require.Equal(t, 3, hist.Len())
		assert.True(t, hist.Resolved())
		assert.Equal(t, map[string]any{"age": 7.0}, hist.FinalOutput())

		second := hist.Attempts[1]
		require.Len(t, second.ReAsks, 1)
		fr := second.ReAsks[0].(*outcome.FieldReAsk)
		assert.Equal(t, []any{"age"}, fr.Path)
		assert.Nil(t, fr.IncorrectValue)
		require.Len(t, fr.FailResults, 1)
		assert.Equal(t, "Required property age is missing.", fr.FailResults[0].ErrorMessage)

		// 纠正轮的提示词复述缺失信息
		third := hist.Attempts[2]
		require.NotNil(t, third.Prompt)
		assert.Contains(t, third.Prompt.Source, "Required property age is missing.")
	})

	t.Run("still omitted at budget exhaustion stays unresolved", func(t *testing.T) {
		callable := mocks.NewMockCallable().
			WithOutputs(`{"age": 15}`, `{}`)

		r := newRunner(t, s, callable, WithNumReasks(1))
		hist, err := r.Run(context.Background(), nil)
		require.NoError(t, err)

		require.Equal(t, 2, hist.Len())
		assert.False(t, hist.Resolved())
	})
}

func TestRun_FirstAttemptValid(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 3}`)

	r := newRunner(t, s, callable, WithNumReasks(5))
	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	// 首轮即合法 → 无论预算多大都只有一轮
	assert.Equal(t, 1, hist.Len())
	assert.True(t, hist.Resolved())
	assert.Equal(t, 1, callable.CallCount())
}

// ============================================================================
// 场景：预算 0
// ============================================================================

func TestRun_ZeroBudget(t *testing.T) {
	t.Run("fix policy resolves without reask", func(t *testing.T) {
		s := ageSchema(t, validator.OnFailFix)
		callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`)

		r := newRunner(t, s, callable, WithNumReasks(0))
		hist, err := r.Run(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, 1, hist.Len())
		assert.True(t, hist.Resolved())
		// 修复值为最近边界
		assert.Equal(t, map[string]any{"age": 10.0}, hist.FinalOutput())
	})

	t.Run("reask policy exhausts with fix substitution", func(t *testing.T) {
		s := ageSchema(t, validator.OnFailReask)
		callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`)

		r := newRunner(t, s, callable, WithNumReasks(0))
		hist, err := r.Run(context.Background(), nil)
		require.NoError(t, err)

		assert.Equal(t, 1, hist.Len())
		assert.False(t, hist.Resolved())
		// 收尾替换：标记让位于修复值
		assert.Equal(t, map[string]any{"age": 10.0}, hist.FinalOutput())
		assert.Equal(t, 1, callable.CallCount())
	})
}

// ============================================================================
// 场景：不可解析输出
// ============================================================================

func TestRun_NonParseable(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().
		WithOutputs("definitely not json", `also bad`, `{"age": 4}`)

	r := newRunner(t, s, callable, WithNumReasks(2))
	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 3, hist.Len())
	assert.True(t, hist.Resolved())
	assert.Equal(t, map[string]any{"age": 4.0}, hist.FinalOutput())

	// 不可解析轮：有解析错误，没有校验产物
	first := hist.Attempts[0]
	assert.NotEmpty(t, first.ParseError)
	assert.Nil(t, first.ParsedOutput)
	require.Len(t, first.ReAsks, 1)
	_, ok := first.ReAsks[0].(*outcome.NonParseableReAsk)
	assert.True(t, ok)

	// 纠正轮复述原始文本且不携带消息历史
	second := hist.Attempts[1]
	require.NotNil(t, second.Prompt)
	assert.Contains(t, second.Prompt.Source, "definitely not json")
	assert.Empty(t, second.MsgHistory)
}

func TestRun_NonParseableExhausted(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs("garbage")

	r := newRunner(t, s, callable, WithNumReasks(1))
	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hist.Len())
	assert.False(t, hist.Resolved())
	// 不可解析的收尾产物是未解决哨兵
	_, ok := hist.FinalOutput().(outcome.Unresolved)
	assert.True(t, ok)
}

// ============================================================================
// 降级重试
// ============================================================================

func TestRun_DegradeRetryWithoutHint(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().
		WithFailWhenHinted().
		WithOutputs(`{"age": 6}`)

	r := newRunner(t, s, callable)
	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	// 降级成功后照常走完流水线，不留残留
	assert.Equal(t, 1, hist.Len())
	assert.True(t, hist.Resolved())
	assert.Equal(t, map[string]any{"age": 6.0}, hist.FinalOutput())

	// 两次传输调用：先带提示失败，再不带提示成功
	calls := callable.Calls()
	require.Len(t, calls, 2)
	assert.NotNil(t, calls[0].Request.BaseSchema)
	assert.Nil(t, calls[1].Request.BaseSchema)
}

func TestRun_CallFailurePropagates(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithError(errors.New("network down"))

	r := newRunner(t, s, callable, WithNumReasks(3))
	hist, err := r.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")

	// 两次降级尝试都失败 → 只有一轮，且不消耗预算重试
	assert.Equal(t, 1, hist.Len())
	assert.Equal(t, 2, callable.CallCount())
}

// ============================================================================
// 字面量回放
// ============================================================================

func TestRun_LiteralOutput(t *testing.T) {
	t.Run("valid literal", func(t *testing.T) {
		s := ageSchema(t, validator.OnFailReask)
		r, err := New(s, nil, WithOutput(`{"age": 8}`))
		require.NoError(t, err)

		hist, err := r.Run(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, hist.Len())
		assert.True(t, hist.Resolved())
		assert.Equal(t, map[string]any{"age": 8.0}, hist.FinalOutput())
	})

	t.Run("failing literal without callable cannot reask", func(t *testing.T) {
		s := ageSchema(t, validator.OnFailReask)
		r, err := New(s, nil, WithOutput(`{"age": 99}`), WithNumReasks(3))
		require.NoError(t, err)

		hist, err := r.Run(context.Background(), nil)
		require.NoError(t, err)
		// 没有调用目标就没有纠正轮
		assert.Equal(t, 1, hist.Len())
		assert.False(t, hist.Resolved())
		assert.Equal(t, map[string]any{"age": 10.0}, hist.FinalOutput())
	})
}

// ============================================================================
// 异常策略向上传播
// ============================================================================

func TestRun_ExceptionPolicy(t *testing.T) {
	s := ageSchema(t, validator.OnFailException)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 42}`)

	r := newRunner(t, s, callable, WithNumReasks(2))
	hist, err := r.Run(context.Background(), nil)
	require.Error(t, err)

	var verr *schema.ValidationError
	assert.ErrorAs(t, err, &verr)
	// 异常即终止，不消耗预算
	assert.Equal(t, 1, hist.Len())
	assert.Equal(t, 1, callable.CallCount())
}

// ============================================================================
// 提示词与指令传递
// ============================================================================

func TestRun_PromptPreparation(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 2}`)

	r, err := New(s, callable,
		WithPrompt("Extract the age from: {text}"),
		WithInstructions("Respond with JSON only."),
	)
	require.NoError(t, err)

	hist, err := r.Run(context.Background(), map[string]any{"text": "seven years old"})
	require.NoError(t, err)

	first := hist.Attempts[0]
	require.NotNil(t, first.Prompt)
	// 参数替换 + schema 注入
	assert.Contains(t, first.Prompt.Source, "seven years old")
	assert.Contains(t, first.Prompt.Source, `"age"`)
	assert.NotContains(t, first.Prompt.Source, "{text}")

	// 发出去的请求与记录一致
	call := callable.LastCall()
	assert.Equal(t, first.Prompt.Source, call.Request.Prompt)
	assert.Equal(t, "Respond with JSON only.", call.Request.Instructions)
}

func TestRun_InstructionsDroppedOnReask(t *testing.T) {
	// 原始请求只有提示词 → 纠正轮不得注入指令
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`, `{"age": 5}`)

	r := newRunner(t, s, callable, WithNumReasks(1))
	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 2, hist.Len())
	assert.Nil(t, hist.Attempts[1].Instructions)
}

func TestRun_InstructionsKeptOnReask(t *testing.T) {
	// 原始请求有指令 → 纠正轮使用标准纠正指令
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`, `{"age": 5}`)

	r, err := New(s, callable,
		WithPrompt("Extract the age."),
		WithInstructions("Respond with JSON only."),
		WithNumReasks(1),
	)
	require.NoError(t, err)

	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 2, hist.Len())
	require.NotNil(t, hist.Attempts[1].Instructions)
	assert.Contains(t, hist.Attempts[1].Instructions.Source, "valid JSON")
}

func TestRun_MsgHistoryClearedOnReask(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`, `{"age": 5}`)

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "You extract structured data."},
		{Role: llm.RoleUser, Content: "How old is Ada?"},
	}
	r, err := New(s, callable, WithMsgHistory(msgs), WithNumReasks(1))
	require.NoError(t, err)

	hist, err := r.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 2, hist.Len())
	assert.Equal(t, msgs, hist.Attempts[0].MsgHistory)
	assert.Empty(t, hist.Attempts[1].MsgHistory, "reask turn must not carry message history")

	calls := callable.Calls()
	require.Len(t, calls, 2)
	assert.Empty(t, calls[1].Request.MsgHistory)
	assert.NotEmpty(t, calls[1].Request.Prompt)
}

// ============================================================================
// 元数据跨轮持续
// ============================================================================

func TestRun_MetadataPersistsAcrossTurns(t *testing.T) {
	root := schema.NewObjectSchema().AddProperty("age", schema.NewIntegerSchema())
	s := schema.New(root)
	min, max := 0.0, 10.0
	s.Bind("age", &validator.ValidRange{Min: &min, Max: &max}, validator.OnFailReask)

	md := validator.Metadata{"tenant": "acme"}
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`, `{"age": 5}`)

	r := newRunner(t, s, callable, WithNumReasks(1), WithMetadata(md))
	_, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", md["tenant"])
}

// ============================================================================
// 异步句柄
// ============================================================================

func TestStart_AsyncCompleted(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`, `{"age": 5}`)

	r := newRunner(t, s, callable, WithNumReasks(1))
	exec := r.Start(context.Background(), nil)
	require.NotNil(t, exec)
	assert.NotEmpty(t, exec.ID)

	hist, err := exec.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, hist)
	assert.Equal(t, 2, hist.Len())
	assert.True(t, hist.Resolved())

	assert.Equal(t, StatusCompleted, exec.GetStatus())
	assert.Empty(t, exec.GetError())
	assert.Same(t, hist, exec.GetHistory())
	assert.False(t, exec.GetEndTime().IsZero())
}

func TestStart_AsyncFailed(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	callable := mocks.NewMockCallable().WithError(errors.New("boom"))

	r := newRunner(t, s, callable)
	exec := r.Start(context.Background(), nil)

	_, err := exec.Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, exec.GetStatus())
	assert.Contains(t, exec.GetError(), "boom")
}

func TestStart_AsyncCancelled(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)
	blockCh := make(chan struct{})
	callable := mocks.NewMockCallable().WithCallFunc(
		func(ctx context.Context, _ *llm.CallRequest) (*llm.Response, error) {
			select {
			case <-blockCh:
				return &llm.Response{Output: `{"age": 5}`}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(t, s, callable)
	exec := r.Start(ctx, nil)
	cancel()

	_, err := exec.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, exec.GetStatus())
	close(blockCh)
}

// ============================================================================
// 并发运行组
// ============================================================================

func TestRunAll(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)

	tasks := make([]Task, 0, 4)
	for i := 0; i < 4; i++ {
		callable := mocks.NewMockCallable().WithOutputs(`{"age": 15}`, `{"age": 5}`)
		tasks = append(tasks, Task{
			Runner: newRunner(t, s, callable, WithNumReasks(1)),
		})
	}

	results, err := RunAll(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, hist := range results {
		require.NotNil(t, hist)
		assert.Equal(t, 2, hist.Len())
		assert.True(t, hist.Resolved())
	}
}

func TestRunAll_OneFails(t *testing.T) {
	s := ageSchema(t, validator.OnFailReask)

	good := mocks.NewMockCallable().WithOutputs(`{"age": 5}`)
	bad := mocks.NewMockCallable().WithError(errors.New("down"))

	tasks := []Task{
		{Runner: newRunner(t, s, good)},
		{Runner: newRunner(t, s, bad)},
	}

	_, err := RunAll(context.Background(), tasks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}
