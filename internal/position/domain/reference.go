package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wyfcoding/ledger/pkg/quantity"
)

var (
	ErrExchangeNotFound = errors.New("exchange not found")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrInvalidReference = errors.New("invalid reference")
)

// Exchange 交易所标识值对象，按 symbol 判等
type Exchange struct {
	symbol string
}

// NewExchange 创建交易所标识，symbol 统一大写
func NewExchange(symbol string) (Exchange, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Exchange{}, fmt.Errorf("exchange symbol is required: %w", ErrInvalidReference)
	}
	return Exchange{symbol: symbol}, nil
}

func (e Exchange) Symbol() string { return e.symbol }

func (e Exchange) Equal(other Exchange) bool { return e.symbol == other.symbol }

func (e Exchange) String() string { return e.symbol }

// Asset 资产标识值对象，携带该资产所有离散换算使用的 Basis。
// symbol 相同但 Basis 不同的两个 Asset 不相等，避免把不同单位的计数相加。
type Asset struct {
	symbol string
	basis  quantity.Basis
}

// NewAsset 创建资产标识
func NewAsset(symbol string, basis quantity.Basis) (Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Asset{}, fmt.Errorf("asset symbol is required: %w", ErrInvalidReference)
	}
	if !basis.Valid() {
		return Asset{}, fmt.Errorf("asset %s: %w", symbol, quantity.ErrInvalidBasis)
	}
	return Asset{symbol: symbol, basis: basis}, nil
}

func (a Asset) Symbol() string { return a.symbol }

// Basis 返回该资产的最小单位
func (a Asset) Basis() quantity.Basis { return a.basis }

func (a Asset) Equal(other Asset) bool {
	return a.symbol == other.symbol && a.basis.Equal(other.basis)
}

func (a Asset) String() string { return a.symbol }

// SpecificOrder 挂单引用，仅用作持仓冻结标记；持仓不拥有订单的生命周期
type SpecificOrder struct {
	ID string
}

// NewSpecificOrder 创建订单引用
func NewSpecificOrder(id string) (*SpecificOrder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("order id is required: %w", ErrInvalidReference)
	}
	return &SpecificOrder{ID: id}, nil
}

// ReferenceResolver 按 symbol 解析交易所与资产（资产需带 Basis）
type ReferenceResolver interface {
	Exchange(symbol string) (Exchange, error)
	Asset(symbol string) (Asset, error)
}
