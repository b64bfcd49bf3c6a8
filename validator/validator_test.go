package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/reask/outcome"
)

type metaValidator struct {
	keys []string
}

func (v *metaValidator) Name() string { return "meta_validator" }

func (v *metaValidator) Validate(_ context.Context, _ any, metadata Metadata) outcome.Result {
	if _, ok := metadata["citations"]; !ok {
		return outcome.Fail("citations missing")
	}
	return outcome.Pass()
}

func (v *metaValidator) RequiredMetadataKeys() []string { return v.keys }

func TestRegistry(t *testing.T) {
	t.Run("build registered", func(t *testing.T) {
		r := NewRegistry()
		r.Register("custom", func(map[string]any) (Validator, error) {
			return &LowerCase{}, nil
		})
		v, err := r.Build("custom", nil)
		require.NoError(t, err)
		assert.Equal(t, "lower-case", v.Name())
	})

	t.Run("unknown name", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Build("nope", nil)
		assert.Error(t, err)
	})

	t.Run("unregister", func(t *testing.T) {
		r := NewRegistry()
		r.Register("x", func(map[string]any) (Validator, error) { return &LowerCase{}, nil })
		r.Unregister("x")
		_, err := r.Build("x", nil)
		assert.Error(t, err)
	})

	t.Run("default registry has builtins", func(t *testing.T) {
		for _, name := range []string{"valid-range", "valid-choices", "length", "regex_match", "lower-case", "two-words"} {
			assert.Contains(t, Default().Names(), name)
		}
	})
}

func TestMissingKeys(t *testing.T) {
	vs := []Validator{
		&LowerCase{},
		&metaValidator{keys: []string{"citations", "sources"}},
	}

	t.Run("reports missing", func(t *testing.T) {
		missing := MissingKeys(Metadata{"citations": map[string]any{}}, vs)
		assert.Equal(t, []string{"sources"}, missing)
	})

	t.Run("all present", func(t *testing.T) {
		missing := MissingKeys(Metadata{"citations": 1, "sources": 2}, vs)
		assert.Empty(t, missing)
	})

	t.Run("deduplicates across validators", func(t *testing.T) {
		dup := []Validator{
			&metaValidator{keys: []string{"citations"}},
			&metaValidator{keys: []string{"citations"}},
		}
		assert.Equal(t, []string{"citations"}, MissingKeys(Metadata{}, dup))
	})
}

func TestValidRange(t *testing.T) {
	ctx := context.Background()
	min, max := 0.0, 10.0
	v := &ValidRange{Min: &min, Max: &max}

	tests := []struct {
		name       string
		value      any
		expectPass bool
		expectFix  any
		expectMsg  string
	}{
		{name: "within range", value: 7, expectPass: true},
		{name: "at max boundary", value: 10, expectPass: true},
		{name: "above max int fix clamps", value: 15, expectFix: 10, expectMsg: "Value 15 is greater than 10."},
		{name: "below min", value: -3.5, expectFix: -3.5 + 3.5, expectMsg: "Value -3.5 is less than 0."},
		{name: "json float stays float", value: 15.0, expectFix: 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(ctx, tt.value, nil)
			if tt.expectPass {
				assert.True(t, res.Passed())
				return
			}
			fail := res.(*outcome.FailResult)
			require.True(t, fail.HasFix)
			assert.Equal(t, tt.expectFix, fail.FixValue)
			if tt.expectMsg != "" {
				assert.Equal(t, tt.expectMsg, fail.ErrorMessage)
			}
		})
	}

	t.Run("non numeric", func(t *testing.T) {
		res := v.Validate(ctx, "ten", nil)
		assert.False(t, res.Passed())
		assert.False(t, res.(*outcome.FailResult).HasFix)
	})
}

func TestValidChoices(t *testing.T) {
	ctx := context.Background()
	v := &ValidChoices{Choices: []any{"red", "green", 3}}

	assert.True(t, v.Validate(ctx, "red", nil).Passed())
	assert.True(t, v.Validate(ctx, 3.0, nil).Passed(), "json numbers compare numerically")
	assert.False(t, v.Validate(ctx, "blue", nil).Passed())
}

func TestValidLength(t *testing.T) {
	ctx := context.Background()
	min, max := 2, 5
	v := &ValidLength{Min: &min, Max: &max}

	t.Run("string truncated on max", func(t *testing.T) {
		res := v.Validate(ctx, "overlong", nil)
		fail := res.(*outcome.FailResult)
		require.True(t, fail.HasFix)
		assert.Equal(t, "overl", fail.FixValue)
	})

	t.Run("list truncated on max", func(t *testing.T) {
		res := v.Validate(ctx, []any{1, 2, 3, 4, 5, 6}, nil)
		fail := res.(*outcome.FailResult)
		require.True(t, fail.HasFix)
		assert.Equal(t, []any{1, 2, 3, 4, 5}, fail.FixValue)
	})

	t.Run("too short has no fix", func(t *testing.T) {
		res := v.Validate(ctx, "a", nil)
		fail := res.(*outcome.FailResult)
		assert.False(t, fail.HasFix)
	})

	t.Run("within bounds", func(t *testing.T) {
		assert.True(t, v.Validate(ctx, "abc", nil).Passed())
	})
}

func TestRegexMatch(t *testing.T) {
	ctx := context.Background()

	v, err := NewRegexMatch(`^[a-z]+@[a-z]+\.com$`)
	require.NoError(t, err)

	assert.True(t, v.Validate(ctx, "a@b.com", nil).Passed())
	assert.False(t, v.Validate(ctx, "not-an-email", nil).Passed())

	_, err = NewRegexMatch(`([`)
	assert.Error(t, err)
}

func TestLowerCase(t *testing.T) {
	ctx := context.Background()
	v := &LowerCase{}

	res := v.Validate(ctx, "Mixed Case", nil)
	fail := res.(*outcome.FailResult)
	require.True(t, fail.HasFix)
	assert.Equal(t, "mixed case", fail.FixValue)

	assert.True(t, v.Validate(ctx, "all lower", nil).Passed())
}

func TestTwoWords(t *testing.T) {
	ctx := context.Background()
	v := &TwoWords{}

	assert.True(t, v.Validate(ctx, "two words", nil).Passed())

	res := v.Validate(ctx, "three whole words", nil)
	fail := res.(*outcome.FailResult)
	require.True(t, fail.HasFix)
	assert.Equal(t, "three whole", fail.FixValue)

	res = v.Validate(ctx, "one", nil)
	assert.False(t, res.(*outcome.FailResult).HasFix)
}
