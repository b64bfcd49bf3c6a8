package schema

import (
	"encoding/json"
	"fmt"
)

// SchemaType JSON Schema 的基础类型
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeNull    SchemaType = "null"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// JSONSchema 输出结构的声明式描述。
// 既用于渲染进提示词，也用于指导校验遍历与纠正请求的窄化。
type JSONSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	// 对象属性
	Properties map[string]*JSONSchema `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`

	// 数组元素
	Items *JSONSchema `json:"items,omitempty"`

	// 枚举
	Enum []any `json:"enum,omitempty"`

	// 字符串约束
	Pattern string `json:"pattern,omitempty"`

	// 数值约束
	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
}

// NewObjectSchema 创建对象 schema
func NewObjectSchema() *JSONSchema {
	return &JSONSchema{
		Type:       SchemaTypeObject,
		Properties: make(map[string]*JSONSchema),
	}
}

// NewArraySchema 创建数组 schema
func NewArraySchema(items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: SchemaTypeArray, Items: items}
}

// NewStringSchema 创建字符串 schema
func NewStringSchema() *JSONSchema { return &JSONSchema{Type: SchemaTypeString} }

// NewIntegerSchema 创建整数 schema
func NewIntegerSchema() *JSONSchema { return &JSONSchema{Type: SchemaTypeInteger} }

// NewNumberSchema 创建数值 schema
func NewNumberSchema() *JSONSchema { return &JSONSchema{Type: SchemaTypeNumber} }

// NewBooleanSchema 创建布尔 schema
func NewBooleanSchema() *JSONSchema { return &JSONSchema{Type: SchemaTypeBoolean} }

// AddProperty 为对象 schema 添加属性
func (s *JSONSchema) AddProperty(name string, prop *JSONSchema) *JSONSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*JSONSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired 追加必填字段名
func (s *JSONSchema) AddRequired(names ...string) *JSONSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithDescription 设置描述
func (s *JSONSchema) WithDescription(desc string) *JSONSchema {
	s.Description = desc
	return s
}

// ToJSON 序列化为 JSON
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// ToJSONIndent 序列化为缩进 JSON（用于渲染进提示词）
func (s *JSONSchema) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON 从 JSON 反序列化 schema
func FromJSON(data []byte) (*JSONSchema, error) {
	var schema JSONSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}
	return &schema, nil
}

// Clone 深拷贝 schema（窄化时不改动原树）
func (s *JSONSchema) Clone() *JSONSchema {
	if s == nil {
		return nil
	}
	out := *s
	if s.Properties != nil {
		out.Properties = make(map[string]*JSONSchema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.Clone()
		}
	}
	out.Items = s.Items.Clone()
	out.Required = append([]string(nil), s.Required...)
	out.Enum = append([]any(nil), s.Enum...)
	if s.Minimum != nil {
		m := *s.Minimum
		out.Minimum = &m
	}
	if s.Maximum != nil {
		m := *s.Maximum
		out.Maximum = &m
	}
	return &out
}
