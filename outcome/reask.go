package outcome

import "sort"

// ReAsk 嵌入输出结构中的未解决标记。
// 它只在引擎内部流转：要么触发下一轮纠正请求，要么在终止时被替换掉。
type ReAsk interface {
	// Incorrect 返回导致失败的原始值
	Incorrect() any
	// Failures 返回产生该标记的失败结果（按验证器执行顺序）
	Failures() []*FailResult
}

// FieldReAsk 字段级失败标记。
// Path 指向输出结构内失败字段的位置（字符串为对象键，int 为数组下标）。
type FieldReAsk struct {
	Path           []any          `json:"path,omitempty"`
	IncorrectValue any            `json:"incorrect_value"`
	FailResults    []*FailResult  `json:"fail_results"`
}

// Incorrect 实现 ReAsk 接口
func (r *FieldReAsk) Incorrect() any { return r.IncorrectValue }

// Failures 实现 ReAsk 接口
func (r *FieldReAsk) Failures() []*FailResult { return r.FailResults }

// NonParseableReAsk 根级失败标记：整个原始响应无法解析为目标结构。
// 它没有路径与字段级失败，只携带原始文本。
type NonParseableReAsk struct {
	IncorrectValue any           `json:"incorrect_value"`
	FailResults    []*FailResult `json:"fail_results"`
}

// Incorrect 实现 ReAsk 接口
func (r *NonParseableReAsk) Incorrect() any { return r.IncorrectValue }

// Failures 实现 ReAsk 接口
func (r *NonParseableReAsk) Failures() []*FailResult { return r.FailResults }

// NewNonParseable 用原始文本与解析错误信息创建根级标记
func NewNonParseable(raw string, parseErr error) *NonParseableReAsk {
	msg := "output could not be parsed into the expected structure"
	if parseErr != nil {
		msg = parseErr.Error()
	}
	return &NonParseableReAsk{
		IncorrectValue: raw,
		FailResults:    []*FailResult{Fail(msg)},
	}
}

// Unresolved 预算耗尽后仍无法给出合法输出时的显式占位值。
// 它不是 ReAsk：替换完成后的结构中不允许再出现引擎内部标记。
type Unresolved struct{}

// String 实现 fmt.Stringer
func (Unresolved) String() string { return "could not produce valid output" }

// Gather 深度优先收集 value 中的全部 ReAsk 标记。
// 对象字段按键名排序遍历，保证收集顺序确定；收集时为 FieldReAsk 回填路径。
// 不含任何标记时返回空切片。
func Gather(value any) []ReAsk {
	if value == nil {
		return []ReAsk{}
	}
	if r, ok := value.(ReAsk); ok {
		if fr, ok := r.(*FieldReAsk); ok && fr.Path == nil {
			fr.Path = []any{}
		}
		return []ReAsk{r}
	}

	reasks := []ReAsk{}
	var walk func(v any, path []any)
	walk = func(v any, path []any) {
		switch node := v.(type) {
		case *FieldReAsk:
			node.Path = append([]any{}, path...)
			reasks = append(reasks, node)
		case *NonParseableReAsk:
			reasks = append(reasks, node)
		case map[string]any:
			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(node[k], append(path, k))
			}
		case []any:
			for i, item := range node {
				walk(item, append(path, i))
			}
		}
	}
	walk(value, []any{})
	return reasks
}

// SubFixedValues 递归地把全部标记替换为其最佳可用回退值，返回新结构。
// FieldReAsk 优先采用首个失败结果的修复值，否则回退到未通过校验的原值；
// NonParseableReAsk 没有可回退的值，替换为 [Unresolved]。
// 替换后的结构不再含任何 ReAsk 标记，且本函数幂等。
func SubFixedValues(value any) any {
	switch node := value.(type) {
	case *FieldReAsk:
		for _, fr := range node.FailResults {
			if fr.HasFix {
				return SubFixedValues(fr.FixValue)
			}
		}
		return SubFixedValues(node.IncorrectValue)
	case *NonParseableReAsk:
		return Unresolved{}
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = SubFixedValues(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = SubFixedValues(v)
		}
		return out
	default:
		return value
	}
}

// PruneForReask 裁剪出仅包含 ReAsk 标记及其祖先的子结构。
// 纠正请求只应复述仍然失败的部分；完全合法的子树被剪除。
// value 中不含任何标记时返回 nil。
func PruneForReask(value any) any {
	switch node := value.(type) {
	case ReAsk:
		return node
	case []any:
		pruned := []any{}
		for _, item := range node {
			if p := PruneForReask(item); p != nil {
				pruned = append(pruned, p)
			}
		}
		if len(pruned) > 0 {
			return pruned
		}
		return nil
	case map[string]any:
		pruned := map[string]any{}
		for k, v := range node {
			if p := PruneForReask(v); p != nil {
				pruned[k] = p
			}
		}
		if len(pruned) > 0 {
			return pruned
		}
		return nil
	default:
		return nil
	}
}
