package validator

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/reask/outcome"
)

// Metadata 一次运行内全部验证器共享的可变元数据。
// 后执行的验证器可以读取先执行者留下的上下文（如引用映射）。
type Metadata map[string]any

// Validator 字段级验证器接口。
// 实现必须不原地修改 value，且同一 Attempt 内可被调用零次或多次。
type Validator interface {
	// Validate 校验候选值，返回 Pass 或 Fail 结果
	Validate(ctx context.Context, value any, metadata Metadata) outcome.Result
	// Name 返回验证器的注册名称
	Name() string
}

// MetadataRequirer 声明必需元数据键的可选接口。
// 运行开始前任一必需键缺失都是配置错误，不会消耗模型调用。
type MetadataRequirer interface {
	RequiredMetadataKeys() []string
}

// OnFailAction 失败处理策略
type OnFailAction string

const (
	// OnFailReask 嵌入 FieldReAsk 标记并发起纠正请求
	OnFailReask OnFailAction = "reask"
	// OnFailFix 静默应用验证器给出的修复值
	OnFailFix OnFailAction = "fix"
	// OnFailFilter 从所在集合中丢弃该元素
	OnFailFilter OnFailAction = "filter"
	// OnFailRefrain 放弃整个输出
	OnFailRefrain OnFailAction = "refrain"
	// OnFailNoOp 保留原值，不做纠正
	OnFailNoOp OnFailAction = "noop"
	// OnFailException 转为致命错误终止本次运行
	OnFailException OnFailAction = "exception"
)

// DefaultOnFail 未显式配置时的默认策略
const DefaultOnFail = OnFailNoOp

// Constructor 按声明参数构造验证器
type Constructor func(args map[string]any) (Validator, error)

// Registry 验证器注册表。
// 将声明名称映射到构造函数，支持自定义验证规则的注册与扩展。
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry 创建验证器注册表
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register 注册构造函数
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// Unregister 注销构造函数
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.constructors, name)
}

// Build 按名称构造验证器
func (r *Registry) Build(name string, args map[string]any) (Validator, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("validator %q is not registered", name)
	}
	return ctor(args)
}

// Names 返回全部已注册名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

// RequiredKeys 汇总一组验证器声明的全部必需元数据键（去重）
func RequiredKeys(validators []Validator) []string {
	seen := map[string]struct{}{}
	keys := []string{}
	for _, v := range validators {
		mr, ok := v.(MetadataRequirer)
		if !ok {
			continue
		}
		for _, k := range mr.RequiredMetadataKeys() {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// MissingKeys 返回 metadata 中缺失的必需键
func MissingKeys(metadata Metadata, validators []Validator) []string {
	missing := []string{}
	for _, k := range RequiredKeys(validators) {
		if _, ok := metadata[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// defaultRegistry 包级默认注册表，内置验证器在 init 中注册
var defaultRegistry = NewRegistry()

// Default 返回包级默认注册表
func Default() *Registry {
	return defaultRegistry
}
