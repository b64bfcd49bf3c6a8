package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/reask/outcome"
)

func init() {
	defaultRegistry.Register("valid-range", func(args map[string]any) (Validator, error) {
		v := &ValidRange{}
		if raw, ok := args["min"]; ok {
			f, err := toFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("valid-range: bad min: %w", err)
			}
			v.Min = &f
		}
		if raw, ok := args["max"]; ok {
			f, err := toFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("valid-range: bad max: %w", err)
			}
			v.Max = &f
		}
		return v, nil
	})
	defaultRegistry.Register("valid-choices", func(args map[string]any) (Validator, error) {
		choices, _ := args["choices"].([]any)
		if len(choices) == 0 {
			return nil, fmt.Errorf("valid-choices: choices must be a non-empty list")
		}
		return &ValidChoices{Choices: choices}, nil
	})
	defaultRegistry.Register("length", func(args map[string]any) (Validator, error) {
		v := &ValidLength{}
		if raw, ok := args["min"]; ok {
			f, err := toFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("length: bad min: %w", err)
			}
			n := int(f)
			v.Min = &n
		}
		if raw, ok := args["max"]; ok {
			f, err := toFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("length: bad max: %w", err)
			}
			n := int(f)
			v.Max = &n
		}
		return v, nil
	})
	defaultRegistry.Register("regex_match", func(args map[string]any) (Validator, error) {
		pattern, _ := args["regex"].(string)
		return NewRegexMatch(pattern)
	})
	defaultRegistry.Register("lower-case", func(map[string]any) (Validator, error) {
		return &LowerCase{}, nil
	})
	defaultRegistry.Register("two-words", func(map[string]any) (Validator, error) {
		return &TwoWords{}, nil
	})
}

// ValidRange 校验数值落在 [Min, Max] 区间内；越界时修复值为最近的边界。
type ValidRange struct {
	Min *float64
	Max *float64
}

// Name 实现 Validator 接口
func (v *ValidRange) Name() string { return "valid-range" }

// Validate 实现 Validator 接口
func (v *ValidRange) Validate(_ context.Context, value any, _ Metadata) outcome.Result {
	f, err := toFloat(value)
	if err != nil {
		return outcome.Fail(fmt.Sprintf("Value %v is not a number.", value))
	}
	if v.Min != nil && f < *v.Min {
		return outcome.FailWithFix(
			fmt.Sprintf("Value %v is less than %v.", formatNum(value, f), formatNum(nil, *v.Min)),
			numLike(value, *v.Min),
		)
	}
	if v.Max != nil && f > *v.Max {
		return outcome.FailWithFix(
			fmt.Sprintf("Value %v is greater than %v.", formatNum(value, f), formatNum(nil, *v.Max)),
			numLike(value, *v.Max),
		)
	}
	return outcome.Pass()
}

// ValidChoices 校验值属于给定的离散选项集合。无修复值。
type ValidChoices struct {
	Choices []any
}

// Name 实现 Validator 接口
func (v *ValidChoices) Name() string { return "valid-choices" }

// Validate 实现 Validator 接口
func (v *ValidChoices) Validate(_ context.Context, value any, _ Metadata) outcome.Result {
	for _, c := range v.Choices {
		if equalish(value, c) {
			return outcome.Pass()
		}
	}
	return outcome.Fail(fmt.Sprintf("Value %v is not in choices %v.", value, v.Choices))
}

// ValidLength 校验字符串或列表长度落在 [Min, Max]；
// 超长时修复值为截断结果，过短没有可靠修复。
type ValidLength struct {
	Min *int
	Max *int
}

// Name 实现 Validator 接口
func (v *ValidLength) Name() string { return "length" }

// Validate 实现 Validator 接口
func (v *ValidLength) Validate(_ context.Context, value any, _ Metadata) outcome.Result {
	var n int
	switch tv := value.(type) {
	case string:
		n = len([]rune(tv))
	case []any:
		n = len(tv)
	default:
		return outcome.Fail(fmt.Sprintf("Value %v has no length.", value))
	}

	if v.Min != nil && n < *v.Min {
		return outcome.Fail(fmt.Sprintf("Value has length less than %d. Please return a longer output.", *v.Min))
	}
	if v.Max != nil && n > *v.Max {
		switch tv := value.(type) {
		case string:
			return outcome.FailWithFix(
				fmt.Sprintf("Value has length greater than %d. Please return a shorter output.", *v.Max),
				string([]rune(tv)[:*v.Max]),
			)
		case []any:
			return outcome.FailWithFix(
				fmt.Sprintf("Value has length greater than %d. Please return a shorter output.", *v.Max),
				append([]any{}, tv[:*v.Max]...),
			)
		}
	}
	return outcome.Pass()
}

// RegexMatch 校验字符串匹配给定正则。无修复值。
type RegexMatch struct {
	pattern *regexp.Regexp
}

// NewRegexMatch 编译并创建正则校验器
func NewRegexMatch(pattern string) (*RegexMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regex_match: invalid pattern %q: %w", pattern, err)
	}
	return &RegexMatch{pattern: re}, nil
}

// Name 实现 Validator 接口
func (v *RegexMatch) Name() string { return "regex_match" }

// Validate 实现 Validator 接口
func (v *RegexMatch) Validate(_ context.Context, value any, _ Metadata) outcome.Result {
	s, ok := value.(string)
	if !ok {
		return outcome.Fail(fmt.Sprintf("Value %v is not a string.", value))
	}
	if !v.pattern.MatchString(s) {
		return outcome.Fail(fmt.Sprintf("Result must match %s", v.pattern.String()))
	}
	return outcome.Pass()
}

// LowerCase 校验字符串全小写；修复值为小写化结果。
type LowerCase struct{}

// Name 实现 Validator 接口
func (v *LowerCase) Name() string { return "lower-case" }

// Validate 实现 Validator 接口
func (v *LowerCase) Validate(_ context.Context, value any, _ Metadata) outcome.Result {
	s, ok := value.(string)
	if !ok {
		return outcome.Fail(fmt.Sprintf("Value %v is not a string.", value))
	}
	if s != strings.ToLower(s) {
		return outcome.FailWithFix(
			fmt.Sprintf("Value %s is not lower case.", s),
			strings.ToLower(s),
		)
	}
	return outcome.Pass()
}

// TwoWords 校验字符串恰好两个词；修复值取前两个词。
type TwoWords struct{}

// Name 实现 Validator 接口
func (v *TwoWords) Name() string { return "two-words" }

// Validate 实现 Validator 接口
func (v *TwoWords) Validate(_ context.Context, value any, _ Metadata) outcome.Result {
	s, ok := value.(string)
	if !ok {
		return outcome.Fail(fmt.Sprintf("Value %v is not a string.", value))
	}
	words := strings.Fields(s)
	if len(words) == 2 {
		return outcome.Pass()
	}
	fix := s
	if len(words) > 2 {
		fix = strings.Join(words[:2], " ")
		return outcome.FailWithFix(fmt.Sprintf("Value must be exactly two words, got %d.", len(words)), fix)
	}
	return outcome.Fail(fmt.Sprintf("Value must be exactly two words, got %d.", len(words)))
}

// toFloat 把 JSON 解析产物中的数值表示统一为 float64
func toFloat(value any) (float64, error) {
	switch n := value.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", value, value)
	}
}

// numLike 让修复值保持与原值相同的数值表示（int 入 int 出）
func numLike(original any, f float64) any {
	switch original.(type) {
	case int, int32, int64:
		return int(f)
	default:
		return f
	}
}

// formatNum 整数值不带小数位地格式化
func formatNum(original any, f float64) string {
	switch original.(type) {
	case int, int32, int64:
		return fmt.Sprintf("%d", int(f))
	default:
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%v", f)
	}
}

// equalish 宽松相等：数值按数值比较，其余按接口相等
func equalish(a, b any) bool {
	if a == b {
		return true
	}
	fa, errA := toFloat(a)
	fb, errB := toFloat(b)
	return errA == nil && errB == nil && fa == fb
}
