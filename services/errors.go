package services

import "errors"

var (
	// ErrArityMismatch 类型参数数量与泛型定义不一致
	ErrArityMismatch = errors.New("services: generic arity mismatch")

	// ErrClosingConflict 同一个具体类型被声明为不同泛型定义的闭合
	ErrClosingConflict = errors.New("services: conflicting generic closing")

	// ErrUnexpectedType 解析结果无法转换为请求的类型
	ErrUnexpectedType = errors.New("services: resolved value has unexpected type")
)
