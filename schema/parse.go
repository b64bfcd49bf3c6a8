package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// Parse 把原始响应文本解析为结构化值。
// 解析失败返回 (nil, err)：这不是运行级错误，调用方应把它包装为
// NonParseableReAsk 并照常走内省流程。
func (s *Schema) Parse(raw string) (any, error) {
	extracted := ExtractJSON(raw)

	var value any
	if err := json.Unmarshal([]byte(extracted), &value); err != nil {
		return nil, fmt.Errorf("output is not parseable as JSON: %w", err)
	}
	return value, nil
}

// ExtractJSON 从可能混有围栏代码块或说明文字的响应中提取 JSON 文本。
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	// 围栏代码块优先
	if strings.Contains(response, "```") {
		matches := fencedJSONRe.FindStringSubmatch(response)
		if len(matches) > 1 {
			return strings.TrimSpace(matches[1])
		}
	}

	// 对象边界
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}

	// 数组边界
	start = strings.Index(response, "[")
	end = strings.LastIndex(response, "]")
	if start >= 0 && end > start {
		return response[start : end+1]
	}

	return response
}
