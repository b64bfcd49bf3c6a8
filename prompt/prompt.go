// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// 包 prompt 提供提示词与指令的模板值类型。
//
// 模板中的 {name} 占位符在 Format 时按参数替换，未提供的占位符原样保留；
// {output_schema} 由 schema 层在预处理阶段注入。纠正请求使用的默认模板
// 也定义在本包，便于上层按需覆盖。
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Prompt 发给模型的主提示词模板
type Prompt struct {
	Source string
}

// Instructions 发给模型的系统指令模板
type Instructions struct {
	Source string
}

// NewPrompt 创建提示词
func NewPrompt(source string) *Prompt { return &Prompt{Source: source} }

// NewInstructions 创建指令
func NewInstructions(source string) *Instructions { return &Instructions{Source: source} }

// Format 按参数渲染模板，返回新 Prompt
func (p *Prompt) Format(params map[string]any) *Prompt {
	return &Prompt{Source: format(p.Source, params)}
}

// Format 按参数渲染模板，返回新 Instructions
func (i *Instructions) Format(params map[string]any) *Instructions {
	return &Instructions{Source: format(i.Source, params)}
}

// format 替换 {name} 占位符；params 中不存在的占位符原样保留
func format(source string, params map[string]any) string {
	if len(params) == 0 {
		return source
	}
	return placeholderRe.ReplaceAllStringFunc(source, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := params[name]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}

// OutputSchemaPlaceholder 预处理阶段由 schema 层替换的占位符
const OutputSchemaPlaceholder = "{output_schema}"

// HasOutputSchema 返回模板是否包含输出 schema 占位符
func (p *Prompt) HasOutputSchema() bool {
	return strings.Contains(p.Source, OutputSchemaPlaceholder)
}

// 纠正请求的默认模板。
// 纠正指令必须把全部剩余失败合并进一个新的顶层请求，不延续历史消息。

// ReaskPrompt 字段级纠正请求模板
const ReaskPrompt = `I was given the following JSON response, which had problems due to incorrect values.

{previous_response}

Help me correct the incorrect values based on the given error messages.

Given below is a JSON Schema that describes the expected output. Return ONLY a valid JSON object that conforms to it, correcting every value whose error message is shown above.

{output_schema}`

// NonParseableReaskPrompt 整体不可解析时的纠正请求模板
const NonParseableReaskPrompt = `I was given the following response, which was not parseable as JSON.

{previous_response}

Help me correct this by making it valid JSON.

Given below is a JSON Schema that describes the expected output. Return ONLY a valid JSON object that conforms to it.

{output_schema}`

// ReaskInstructions 纠正请求默认系统指令
const ReaskInstructions = `You are a helpful assistant only capable of communicating with valid JSON, and no other text.`
