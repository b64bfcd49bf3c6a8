package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Result 测试
// ============================================================================

func TestResult_Tags(t *testing.T) {
	t.Run("pass result", func(t *testing.T) {
		r := Pass()
		assert.True(t, r.Passed())
		assert.False(t, r.HasOverride)
	})

	t.Run("pass with override", func(t *testing.T) {
		r := PassWith("normalized")
		assert.True(t, r.Passed())
		assert.True(t, r.HasOverride)
		assert.Equal(t, "normalized", r.ValueOverride)
	})

	t.Run("fail result", func(t *testing.T) {
		r := Fail("greater than 10")
		assert.False(t, r.Passed())
		assert.False(t, r.HasFix)
		assert.Equal(t, "greater than 10", r.ErrorMessage)
	})

	t.Run("fail with fix keeps nil fix distinct", func(t *testing.T) {
		r := FailWithFix("must be null", nil)
		assert.True(t, r.HasFix)
		assert.Nil(t, r.FixValue)
	})
}

func TestMergeMetadata(t *testing.T) {
	t.Run("merges not replaces", func(t *testing.T) {
		meta := map[string]any{"a": 1, "b": 2}
		out := MergeMetadata(meta, map[string]any{"b": 3, "c": 4})
		assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, out)
	})

	t.Run("nil metadata", func(t *testing.T) {
		out := MergeMetadata(nil, map[string]any{"k": "v"})
		assert.Equal(t, map[string]any{"k": "v"}, out)
	})

	t.Run("empty updates", func(t *testing.T) {
		meta := map[string]any{"a": 1}
		assert.Equal(t, meta, MergeMetadata(meta, nil))
	})
}

// ============================================================================
// Gather 测试
// ============================================================================

func TestGather(t *testing.T) {
	t.Run("no markers", func(t *testing.T) {
		value := map[string]any{"name": "ok", "items": []any{1, 2}}
		assert.Empty(t, Gather(value))
	})

	t.Run("nil value", func(t *testing.T) {
		assert.Empty(t, Gather(nil))
	})

	t.Run("root non-parseable", func(t *testing.T) {
		np := NewNonParseable("not json at all", nil)
		reasks := Gather(np)
		require.Len(t, reasks, 1)
		assert.Same(t, np, reasks[0])
	})

	t.Run("nested field reask gets path", func(t *testing.T) {
		ra := &FieldReAsk{
			IncorrectValue: 15,
			FailResults:    []*FailResult{Fail("greater than 10")},
		}
		value := map[string]any{
			"person": map[string]any{
				"age": ra,
			},
		}
		reasks := Gather(value)
		require.Len(t, reasks, 1)
		assert.Equal(t, []any{"person", "age"}, reasks[0].(*FieldReAsk).Path)
	})

	t.Run("marker inside list gets index path", func(t *testing.T) {
		ra := &FieldReAsk{IncorrectValue: "x", FailResults: []*FailResult{Fail("bad")}}
		value := map[string]any{
			"entries": []any{"ok", map[string]any{"field": ra}},
		}
		reasks := Gather(value)
		require.Len(t, reasks, 1)
		assert.Equal(t, []any{"entries", 1, "field"}, reasks[0].(*FieldReAsk).Path)
	})

	t.Run("deterministic order across keys", func(t *testing.T) {
		raA := &FieldReAsk{IncorrectValue: 1, FailResults: []*FailResult{Fail("a")}}
		raB := &FieldReAsk{IncorrectValue: 2, FailResults: []*FailResult{Fail("b")}}
		value := map[string]any{"zzz": raB, "aaa": raA}
		for i := 0; i < 10; i++ {
			reasks := Gather(value)
			require.Len(t, reasks, 2)
			assert.Same(t, raA, reasks[0])
			assert.Same(t, raB, reasks[1])
		}
	})
}

// ============================================================================
// SubFixedValues 测试
// ============================================================================

func TestSubFixedValues(t *testing.T) {
	t.Run("uses fix value when available", func(t *testing.T) {
		value := map[string]any{
			"age": &FieldReAsk{
				IncorrectValue: 15,
				FailResults:    []*FailResult{FailWithFix("greater than 10", 10)},
			},
		}
		out := SubFixedValues(value)
		assert.Equal(t, map[string]any{"age": 10}, out)
	})

	t.Run("falls back to incorrect value without fix", func(t *testing.T) {
		value := map[string]any{
			"age": &FieldReAsk{
				IncorrectValue: 15,
				FailResults:    []*FailResult{Fail("greater than 10")},
			},
		}
		out := SubFixedValues(value)
		assert.Equal(t, map[string]any{"age": 15}, out)
	})

	t.Run("non-parseable becomes unresolved sentinel", func(t *testing.T) {
		out := SubFixedValues(NewNonParseable("garbage", nil))
		_, ok := out.(Unresolved)
		assert.True(t, ok)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		ra := &FieldReAsk{IncorrectValue: 15, FailResults: []*FailResult{FailWithFix("too big", 10)}}
		value := map[string]any{"age": ra}
		_ = SubFixedValues(value)
		assert.Same(t, ra, value["age"])
	})

	t.Run("markers in lists", func(t *testing.T) {
		value := []any{
			&FieldReAsk{IncorrectValue: "BAD", FailResults: []*FailResult{FailWithFix("upper", "bad")}},
			"fine",
		}
		assert.Equal(t, []any{"bad", "fine"}, SubFixedValues(value))
	})
}

// ============================================================================
// PruneForReask 测试
// ============================================================================

func TestPruneForReask(t *testing.T) {
	t.Run("valid subtrees pruned", func(t *testing.T) {
		ra := &FieldReAsk{IncorrectValue: 15, FailResults: []*FailResult{Fail("too big")}}
		value := map[string]any{
			"good": map[string]any{"x": 1},
			"bad":  map[string]any{"age": ra},
		}
		pruned := PruneForReask(value)
		assert.Equal(t, map[string]any{"bad": map[string]any{"age": ra}}, pruned)
	})

	t.Run("no markers yields nil", func(t *testing.T) {
		assert.Nil(t, PruneForReask(map[string]any{"x": []any{1, "two"}}))
	})

	t.Run("list ancestors kept", func(t *testing.T) {
		ra := &FieldReAsk{IncorrectValue: "x", FailResults: []*FailResult{Fail("bad")}}
		value := []any{"ok", map[string]any{"f": ra}, "ok2"}
		pruned := PruneForReask(value)
		assert.Equal(t, []any{map[string]any{"f": ra}}, pruned)
	})
}
