package domain

import "errors"

var (
	ErrNilPosition         = errors.New("position is nil")
	ErrPositionNotFound    = errors.New("position not found")
	ErrPositionReserved    = errors.New("position is reserved")
	ErrPositionNotReserved = errors.New("position is not reserved")
	ErrInsufficientVolume  = errors.New("insufficient free volume")
	// ErrDuplicatePosition 同一 (交易所, 资产, 订单) 已存在持仓
	ErrDuplicatePosition = errors.New("position key already exists")
	// ErrCorruptPosition 存储的持仓无法按当前目录恢复（资产下线、Basis 变更等）
	ErrCorruptPosition = errors.New("stored position cannot be restored")
)
