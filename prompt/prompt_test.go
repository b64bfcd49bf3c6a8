package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		source string
		params map[string]any
		want   string
	}{
		{
			name:   "simple substitution",
			source: "Generate a profile for {name}.",
			params: map[string]any{"name": "Ada"},
			want:   "Generate a profile for Ada.",
		},
		{
			name:   "missing params preserved",
			source: "{greeting}, {name}!",
			params: map[string]any{"greeting": "Hello"},
			want:   "Hello, {name}!",
		},
		{
			name:   "output_schema placeholder untouched by params",
			source: "Answer as JSON.\n{output_schema}",
			params: map[string]any{"name": "x"},
			want:   "Answer as JSON.\n{output_schema}",
		},
		{
			name:   "nil params",
			source: "static text",
			params: nil,
			want:   "static text",
		},
		{
			name:   "non string values",
			source: "budget is {n}",
			params: map[string]any{"n": 3},
			want:   "budget is 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPrompt(tt.source).Format(tt.params).Source)
		})
	}
}

func TestHasOutputSchema(t *testing.T) {
	assert.True(t, NewPrompt("x {output_schema} y").HasOutputSchema())
	assert.False(t, NewPrompt("no placeholder").HasOutputSchema())
}

func TestInstructionsFormat(t *testing.T) {
	i := NewInstructions("Respond in {lang}.").Format(map[string]any{"lang": "JSON"})
	assert.Equal(t, "Respond in JSON.", i.Source)
}
