package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/reask/schema"
	"github.com/BaSui01/reask/testutil/mocks"
	"github.com/BaSui01/reask/validator"
)

// TestProperty_BudgetBound 预算 b 的运行至多 b+1 轮尝试；
// 模型在第 k 轮才给出合法输出时，k≤b 则恰好 k+1 轮且解决，
// 否则恰好 b+1 轮且未解决。
func TestProperty_BudgetBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		budget := rapid.IntRange(0, 4).Draw(rt, "budget")
		firstValid := rapid.IntRange(0, 6).Draw(rt, "firstValid")

		min, max := 0.0, 10.0
		root := schema.NewObjectSchema().
			AddProperty("age", schema.NewIntegerSchema()).
			AddRequired("age")
		s := schema.New(root)
		s.Bind("age", &validator.ValidRange{Min: &min, Max: &max}, validator.OnFailReask)

		outputs := make([]string, 0, firstValid+1)
		for i := 0; i < firstValid; i++ {
			outputs = append(outputs, fmt.Sprintf(`{"age": %d}`, 100+i))
		}
		outputs = append(outputs, `{"age": 5}`)
		callable := mocks.NewMockCallable().WithOutputs(outputs...)

		r, err := New(s, callable,
			WithPrompt("Extract the age."),
			WithNumReasks(budget),
		)
		require.NoError(rt, err)

		hist, err := r.Run(context.Background(), nil)
		require.NoError(rt, err)

		if hist.Len() > budget+1 {
			rt.Fatalf("history length %d exceeds budget bound %d", hist.Len(), budget+1)
		}
		if firstValid <= budget {
			if !hist.Resolved() {
				rt.Fatalf("run should resolve when valid output arrives within budget")
			}
			if hist.Len() != firstValid+1 {
				rt.Fatalf("expected %d attempts, got %d", firstValid+1, hist.Len())
			}
		} else {
			if hist.Resolved() {
				rt.Fatalf("run should not resolve when valid output arrives after budget")
			}
			if hist.Len() != budget+1 {
				rt.Fatalf("expected full budget %d attempts, got %d", budget+1, hist.Len())
			}
		}
		if callable.CallCount() != hist.Len() {
			rt.Fatalf("one model call per attempt: calls=%d attempts=%d", callable.CallCount(), hist.Len())
		}
	})
}

// TestProperty_EveryIntermediateAttemptHasMarkers 除最后一轮外，
// 每一轮都必须留有标记（否则不会进入下一轮）。
func TestProperty_EveryIntermediateAttemptHasMarkers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		budget := rapid.IntRange(1, 4).Draw(rt, "budget")
		firstValid := rapid.IntRange(0, 5).Draw(rt, "firstValid")

		min, max := 0.0, 10.0
		root := schema.NewObjectSchema().AddProperty("age", schema.NewIntegerSchema())
		s := schema.New(root)
		s.Bind("age", &validator.ValidRange{Min: &min, Max: &max}, validator.OnFailReask)

		outputs := make([]string, 0, firstValid+1)
		for i := 0; i < firstValid; i++ {
			outputs = append(outputs, `{"age": -3}`)
		}
		outputs = append(outputs, `{"age": 1}`)
		callable := mocks.NewMockCallable().WithOutputs(outputs...)

		r, err := New(s, callable,
			WithPrompt("Extract the age."),
			WithNumReasks(budget),
		)
		require.NoError(rt, err)

		hist, err := r.Run(context.Background(), nil)
		require.NoError(rt, err)

		for i, attempt := range hist.Attempts {
			if i < hist.Len()-1 && len(attempt.ReAsks) == 0 {
				rt.Fatalf("intermediate attempt %d has no markers but a next attempt exists", i)
			}
		}
	})
}
