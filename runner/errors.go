package runner

import (
	"errors"
	"fmt"
	"strings"
)

// 配置错误：运行开始前即可判定，不消耗预算，不触发模型调用。
var (
	// ErrNoCallableOrOutput 既没有调用目标也没有字面输出
	ErrNoCallableOrOutput = errors.New("runner: callable or literal output is required")

	// ErrNoPromptOrMsgHistory 既没有提示词也没有消息历史
	ErrNoPromptOrMsgHistory = errors.New("runner: prompt or message history is required")

	// ErrMissingMetadata 校验器声明的元数据键缺失
	ErrMissingMetadata = errors.New("runner: metadata keys required by validators are missing")
)

// MissingMetadataError 携带具体缺失键名的配置错误。
// errors.Is(err, ErrMissingMetadata) 成立。
type MissingMetadataError struct {
	Keys []string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("runner: metadata keys required by validators are missing: %s",
		strings.Join(e.Keys, ", "))
}

func (e *MissingMetadataError) Is(target error) bool {
	return target == ErrMissingMetadata
}
