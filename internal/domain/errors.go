package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 引用的对象不存在
	ErrNotFound = errors.New("not found")
	// ErrSchema 持久化文档不符合 schema
	ErrSchema = errors.New("schema error")
	// ErrValidation 输入参数非法
	ErrValidation = errors.New("validation error")
)

// NotFoundError 指定 ID 的对象不存在（如 SetPrimaryContact 传入未知 contact）
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SchemaError 文档缺少必填字段或字段非法，解码时直接失败，不做静默默认值
type SchemaError struct {
	Document string
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Document, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Document, e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ValidationError 请求参数校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFound 构造 NotFoundError
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Invalid 构造 ValidationError
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
