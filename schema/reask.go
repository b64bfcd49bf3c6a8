package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/reask/outcome"
	"github.com/BaSui01/reask/prompt"
)

// PreprocessPrompt 把渲染后的输出 schema 注入提示词与指令。
// 模板含 {output_schema} 占位符时就地替换；主提示词没有占位符时，
// 在末尾追加一个标准的结构化输出说明块。
func (s *Schema) PreprocessPrompt(p *prompt.Prompt, ins *prompt.Instructions) (*prompt.Prompt, *prompt.Instructions, error) {
	rendered, err := s.root.ToJSONIndent()
	if err != nil {
		return nil, nil, fmt.Errorf("render output schema: %w", err)
	}
	block := string(rendered)

	if p != nil {
		if p.HasOutputSchema() {
			p = prompt.NewPrompt(strings.ReplaceAll(p.Source, prompt.OutputSchemaPlaceholder, block))
		} else {
			p = prompt.NewPrompt(p.Source + structuredOutputSuffix(block))
		}
	}
	if ins != nil && strings.Contains(ins.Source, prompt.OutputSchemaPlaceholder) {
		ins = prompt.NewInstructions(strings.ReplaceAll(ins.Source, prompt.OutputSchemaPlaceholder, block))
	}
	return p, ins, nil
}

// structuredOutputSuffix 无占位符时追加的说明块
func structuredOutputSuffix(schemaJSON string) string {
	var sb strings.Builder
	sb.WriteString("\n\nYou MUST respond with valid JSON that conforms to the following JSON Schema.\n")
	sb.WriteString("Do NOT include any text before or after the JSON.\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(schemaJSON)
	sb.WriteString("\n```\n")
	return sb.String()
}

// ReaskSetup 用上一轮的标记构造纠正请求。
// 返回新的提示词、指令与窄化后的 schema；纠正指令把全部剩余失败
// 合并进一个新的顶层请求。
func (s *Schema) ReaskSetup(
	reasks []outcome.ReAsk,
	previousValue any,
	useFullSchema bool,
	params map[string]any,
) (*prompt.Prompt, *prompt.Instructions, *Schema, error) {
	// 整体不可解析：复述原始文本，schema 不窄化
	if np, ok := nonParseableRoot(reasks); ok {
		rendered, err := s.root.ToJSONIndent()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("render output schema: %w", err)
		}
		source := strings.ReplaceAll(prompt.NonParseableReaskPrompt, "{previous_response}", fmt.Sprint(np.IncorrectValue))
		source = strings.ReplaceAll(source, prompt.OutputSchemaPlaceholder, string(rendered))
		p := prompt.NewPrompt(source).Format(params)
		return p, prompt.NewInstructions(prompt.ReaskInstructions), s, nil
	}

	narrowed := s
	if !useFullSchema {
		narrowed = &Schema{
			root:     narrowRoot(s.root, reasks),
			bindings: s.bindings,
			order:    s.order,
			logger:   s.logger,
		}
	}

	// 复述内容：完整结构或仅失败部分及其祖先
	echo := previousValue
	if !useFullSchema {
		echo = outcome.PruneForReask(previousValue)
	}
	echoJSON, err := json.MarshalIndent(renderReasks(echo), "", "  ")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("render previous response: %w", err)
	}

	rendered, err := narrowed.root.ToJSONIndent()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("render narrowed schema: %w", err)
	}

	source := strings.ReplaceAll(prompt.ReaskPrompt, "{previous_response}", string(echoJSON))
	source = strings.ReplaceAll(source, prompt.OutputSchemaPlaceholder, string(rendered))
	p := prompt.NewPrompt(source).Format(params)

	return p, prompt.NewInstructions(prompt.ReaskInstructions), narrowed, nil
}

// nonParseableRoot 判断标记集是否为单个根级不可解析标记
func nonParseableRoot(reasks []outcome.ReAsk) (*outcome.NonParseableReAsk, bool) {
	if len(reasks) == 1 {
		if np, ok := reasks[0].(*outcome.NonParseableReAsk); ok {
			return np, true
		}
	}
	return nil, false
}

// renderReasks 把结构中的标记渲染为纠正提示词可读的 JSON 形态
func renderReasks(value any) any {
	switch node := value.(type) {
	case *outcome.FieldReAsk:
		msgs := make([]string, 0, len(node.FailResults))
		for _, fr := range node.FailResults {
			msgs = append(msgs, fr.ErrorMessage)
		}
		return map[string]any{
			"incorrect_value": node.IncorrectValue,
			"error_messages":  msgs,
		}
	case *outcome.NonParseableReAsk:
		return map[string]any{
			"incorrect_value": node.IncorrectValue,
			"error_messages":  []string{"output could not be parsed"},
		}
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			out[k] = renderReasks(v)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, v := range node {
			out[i] = renderReasks(v)
		}
		return out
	default:
		return value
	}
}

// narrowRoot 把根 schema 裁剪到仅包含失败路径及其祖先。
// 路径元素为字符串时走 Properties，为 int 或 "*" 时走 Items。
func narrowRoot(root *JSONSchema, reasks []outcome.ReAsk) *JSONSchema {
	// 根即叶（标量 schema）：失败路径为空，约束必须整体保留
	if isLeaf(root) {
		return root.Clone()
	}

	out := &JSONSchema{
		Type:        root.Type,
		Title:       root.Title,
		Description: root.Description,
	}

	for _, r := range reasks {
		fr, ok := r.(*outcome.FieldReAsk)
		if !ok {
			continue
		}
		src, dst := root, out
		for _, part := range fr.Path {
			key, isKey := part.(string)
			if isKey && key != Wildcard {
				child := src.Properties[key]
				if child == nil {
					break
				}
				if dst.Properties == nil {
					dst.Properties = make(map[string]*JSONSchema)
				}
				if _, ok := dst.Properties[key]; !ok {
					dst.Properties[key] = &JSONSchema{
						Type:        child.Type,
						Title:       child.Title,
						Description: child.Description,
					}
					if isLeaf(child) {
						dst.Properties[key] = child.Clone()
					}
				}
				if contains(src.Required, key) && !contains(dst.Required, key) {
					dst.Required = append(dst.Required, key)
				}
				src, dst = child, dst.Properties[key]
			} else {
				child := src.Items
				if child == nil {
					break
				}
				if dst.Items == nil {
					dst.Items = &JSONSchema{
						Type:        child.Type,
						Title:       child.Title,
						Description: child.Description,
					}
					if isLeaf(child) {
						dst.Items = child.Clone()
					}
				}
				src, dst = child, dst.Items
			}
		}
	}
	return out
}

// isLeaf 判断节点是否没有可继续窄化的子结构
func isLeaf(s *JSONSchema) bool {
	return len(s.Properties) == 0 && s.Items == nil
}

// contains 字符串切片包含判断
func contains(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
