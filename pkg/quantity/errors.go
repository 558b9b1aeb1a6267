// Package quantity 提供定点离散数量体系：以资产最小单位（Basis）的整数倍精确表示数量，
// 并在不同 Basis 之间做无损或显式舍入的换算。
package quantity

import "errors"

var (
	// ErrBasisMismatch 两个离散数量的 Basis 不同，必须先显式换算
	ErrBasisMismatch = errors.New("quantity: basis mismatch")
	// ErrArithmeticOverflow 计数超出 int64 表示范围
	ErrArithmeticOverflow = errors.New("quantity: arithmetic overflow")
	// ErrInexact 严格策略下换算产生了非零余数
	ErrInexact = errors.New("quantity: inexact conversion")
	// ErrInvalidBasis Basis 单位必须严格为正
	ErrInvalidBasis = errors.New("quantity: basis unit must be positive")
	// ErrAmountOutOfRange 数量的十进制指数或长度超出可处理范围
	ErrAmountOutOfRange = errors.New("quantity: amount out of range")
	// ErrUnknownPolicy 未注册的余数策略名称
	ErrUnknownPolicy = errors.New("quantity: unknown remainder policy")
)
