package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/reask/outcome"
	"github.com/BaSui01/reask/validator"
)

// Wildcard 绑定路径中数组元素的统一记号
const Wildcard = "*"

// Binding 一个字段上的（验证器, 失败策略）对
type Binding struct {
	Validator validator.Validator
	OnFail    validator.OnFailAction
}

// ValidationError on_fail=exception 策略触发的致命校验错误
type ValidationError struct {
	Path          string
	ValidatorName string
	Message       string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %q (%s): %s", e.Path, e.ValidatorName, e.Message)
}

// Schema 输出结构声明 + 字段验证器绑定。
// 它是编排器消费的 schema 引擎协作方的具体实现。
type Schema struct {
	root     *JSONSchema
	bindings map[string][]Binding
	order    []string
	logger   *zap.Logger
}

// Option Schema 配置项
type Option func(*Schema)

// WithLogger 注入日志器
func WithLogger(logger *zap.Logger) Option {
	return func(s *Schema) { s.logger = logger }
}

// New 创建 Schema
func New(root *JSONSchema, opts ...Option) *Schema {
	s := &Schema{
		root:     root,
		bindings: make(map[string][]Binding),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind 把验证器绑定到字段路径（"." 连接键名，数组元素记作 "*"）。
// 同一路径上的验证器按绑定顺序执行。
func (s *Schema) Bind(path string, v validator.Validator, onFail validator.OnFailAction) *Schema {
	if onFail == "" {
		onFail = validator.DefaultOnFail
	}
	if _, ok := s.bindings[path]; !ok {
		s.order = append(s.order, path)
	}
	s.bindings[path] = append(s.bindings[path], Binding{Validator: v, OnFail: onFail})
	return s
}

// Root 返回根 schema
func (s *Schema) Root() *JSONSchema { return s.root }

// Validators 按绑定顺序返回全部验证器
func (s *Schema) Validators() []validator.Validator {
	out := []validator.Validator{}
	for _, path := range s.order {
		for _, b := range s.bindings[path] {
			out = append(out, b.Validator)
		}
	}
	return out
}

// MissingMetadataKeys 返回可达验证器声明的必需元数据键中缺失的部分
func (s *Schema) MissingMetadataKeys(metadata validator.Metadata) []string {
	return validator.MissingKeys(metadata, s.Validators())
}

// filtered on_fail=filter 的内部哨兵：通知父容器丢弃该元素
type filtered struct{}

// refrainSignal on_fail=refrain 的内部信号：放弃整个输出
type refrainSignal struct{}

func (refrainSignal) Error() string { return "validator refrained from the output" }

// Validate 对解析后的值执行字段校验。
// 返回的结构中可能内嵌 FieldReAsk 标记；输入值不被修改。
// on_fail=exception 返回 *ValidationError；on_fail=refrain 使整个输出为 nil。
func (s *Schema) Validate(ctx context.Context, value any, metadata validator.Metadata) (any, error) {
	if metadata == nil {
		metadata = validator.Metadata{}
	}
	out, err := s.validateNode(ctx, value, nil, s.root, metadata)
	if err != nil {
		if _, ok := err.(refrainSignal); ok {
			s.logger.Debug("validator refrained, dropping entire output")
			return nil, nil
		}
		return nil, err
	}
	if _, ok := out.(filtered); ok {
		return nil, nil
	}
	return out, nil
}

// validateNode 先递归校验子节点，再对（已含子结果的）当前值执行本路径绑定。
// declared 是当前位置的 schema 声明，可为 nil（未声明的子树只做值遍历）。
func (s *Schema) validateNode(ctx context.Context, value any, path []string, declared *JSONSchema, metadata validator.Metadata) (any, error) {
	var current any
	switch node := value.(type) {
	case map[string]any:
		// 键名排序遍历：跨字段的元数据传递与内省顺序都要求确定性
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(map[string]any, len(node))
		for _, k := range keys {
			child, err := s.validateNode(ctx, node[k], append(path, k), propertySchema(declared, k), metadata)
			if err != nil {
				return nil, err
			}
			if _, drop := child.(filtered); drop {
				continue
			}
			obj[k] = child
		}
		// 声明为必填却未出现的属性是结构性失败，嵌入字段级标记；
		// 缺席以输入为准，on_fail=filter 刻意移除的字段不算缺席
		for _, k := range requiredProperties(declared) {
			if _, present := node[k]; present {
				continue
			}
			obj[k] = &outcome.FieldReAsk{
				FailResults: []*outcome.FailResult{
					outcome.Fail(fmt.Sprintf("Required property %s is missing.", k)),
				},
			}
			s.logger.Debug("required property missing",
				zap.String("path", strings.Join(append(path, k), ".")),
			)
		}
		current = obj
	case []any:
		list := make([]any, 0, len(node))
		for _, item := range node {
			child, err := s.validateNode(ctx, item, append(path, Wildcard), itemSchema(declared), metadata)
			if err != nil {
				return nil, err
			}
			if _, drop := child.(filtered); drop {
				continue
			}
			list = append(list, child)
		}
		current = list
	default:
		current = value
	}

	return s.runBindings(ctx, strings.Join(path, "."), current, metadata)
}

// propertySchema 取对象属性的声明，声明缺失时返回 nil
func propertySchema(declared *JSONSchema, key string) *JSONSchema {
	if declared == nil {
		return nil
	}
	return declared.Properties[key]
}

// itemSchema 取数组元素的声明，声明缺失时返回 nil
func itemSchema(declared *JSONSchema) *JSONSchema {
	if declared == nil {
		return nil
	}
	return declared.Items
}

// requiredProperties 取声明的必填属性名
func requiredProperties(declared *JSONSchema) []string {
	if declared == nil {
		return nil
	}
	return declared.Required
}

// runBindings 在单个字段上按顺序执行绑定的验证器并应用失败策略。
func (s *Schema) runBindings(ctx context.Context, key string, value any, metadata validator.Metadata) (any, error) {
	bindings := s.bindings[key]
	if len(bindings) == 0 {
		return value, nil
	}

	current := value
	var reaskFails []*outcome.FailResult

	for _, b := range bindings {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result := b.Validator.Validate(ctx, current, metadata)
		outcome.MergeMetadata(metadata, result.Metadata())

		if pass, ok := result.(*outcome.PassResult); ok {
			if pass.HasOverride {
				current = pass.ValueOverride
			}
			continue
		}

		fail := result.(*outcome.FailResult)
		s.logger.Debug("validator failed",
			zap.String("path", key),
			zap.String("validator", b.Validator.Name()),
			zap.String("reason", fail.ErrorMessage),
		)

		switch b.OnFail {
		case validator.OnFailException:
			return nil, &ValidationError{
				Path:          key,
				ValidatorName: b.Validator.Name(),
				Message:       fail.ErrorMessage,
			}
		case validator.OnFailFix:
			if fail.HasFix {
				current = fail.FixValue
			}
		case validator.OnFailFilter:
			return filtered{}, nil
		case validator.OnFailRefrain:
			return nil, refrainSignal{}
		case validator.OnFailReask:
			reaskFails = append(reaskFails, fail)
		default:
			// noop：保留原值
		}
	}

	if len(reaskFails) > 0 {
		return &outcome.FieldReAsk{
			IncorrectValue: current,
			FailResults:    reaskFails,
		}, nil
	}
	return current, nil
}
