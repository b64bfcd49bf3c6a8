package outcome

// Result 单次验证器调用的结果。
// 恰好为 *PassResult 或 *FailResult 之一。
type Result interface {
	// Passed 返回该结果是否为通过
	Passed() bool
	// Metadata 返回需要合并进运行期元数据的增量（可为 nil）
	Metadata() map[string]any
}

// PassResult 验证通过。
// 验证器可以在通过的同时规范化或覆写被验证的值。
type PassResult struct {
	// ValueOverride 通过时对原值的覆写（HasOverride 为 true 时生效）
	ValueOverride any
	// HasOverride 标识是否存在覆写值（区分"覆写为 nil"与"不覆写"）
	HasOverride bool
	// MetadataUpdates 合并进环境元数据的增量
	MetadataUpdates map[string]any
}

// Passed 实现 Result 接口
func (r *PassResult) Passed() bool { return true }

// Metadata 实现 Result 接口
func (r *PassResult) Metadata() map[string]any { return r.MetadataUpdates }

// FailResult 验证失败。
// ErrorMessage 供纠正提示词使用；FixValue 是验证器能给出的最佳修复值。
type FailResult struct {
	// ErrorMessage 人类可读的失败原因
	ErrorMessage string `json:"error_message"`
	// FixValue 验证器建议的修复值（HasFix 为 true 时生效）
	FixValue any `json:"fix_value,omitempty"`
	// HasFix 标识是否存在修复值
	HasFix bool `json:"has_fix"`
	// MetadataUpdates 合并进环境元数据的增量
	MetadataUpdates map[string]any `json:"-"`
}

// Passed 实现 Result 接口
func (r *FailResult) Passed() bool { return false }

// Metadata 实现 Result 接口
func (r *FailResult) Metadata() map[string]any { return r.MetadataUpdates }

// Pass 创建一个不覆写值的通过结果
func Pass() *PassResult {
	return &PassResult{}
}

// PassWith 创建一个覆写值的通过结果
func PassWith(override any) *PassResult {
	return &PassResult{ValueOverride: override, HasOverride: true}
}

// Fail 创建一个无修复值的失败结果
func Fail(message string) *FailResult {
	return &FailResult{ErrorMessage: message}
}

// FailWithFix 创建一个带修复值的失败结果
func FailWithFix(message string, fix any) *FailResult {
	return &FailResult{ErrorMessage: message, FixValue: fix, HasFix: true}
}

// MergeMetadata 将 updates 合并进 metadata（浅合并，updates 优先）。
// metadata 为 nil 时原样返回 updates 的拷贝。
func MergeMetadata(metadata, updates map[string]any) map[string]any {
	if len(updates) == 0 {
		return metadata
	}
	if metadata == nil {
		metadata = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		metadata[k] = v
	}
	return metadata
}
