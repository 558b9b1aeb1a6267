// 包 持仓服务的领域模型
package domain

import (
	"fmt"

	"github.com/wyfcoding/ledger/pkg/quantity"
)

// Position 某交易所内某资产的持仓数量。
// 若关联了 SpecificOrder，则该持仓被冻结（不可交易），用于覆盖挂单所需资金。
//
// Position 不做内部加锁，同一时刻只允许一个持有者（账本/应用服务）修改。
type Position struct {
	// ID 持久化标识，由应用层分配
	ID string

	exchange    Exchange
	asset       Asset
	volumeCount int64
	order       *SpecificOrder

	// volume 由 volumeCount 派生的缓存，volumeCount 变化时必须清空
	volume *quantity.Amount
}

// NewPosition 以数量创建持仓，构造时按 TO_HOUSE 策略换算到资产 Basis，仅保存整数计数
func NewPosition(exchange Exchange, asset Asset, volume quantity.Amount) (*Position, error) {
	d, err := volume.ToBasis(asset.Basis(), quantity.ToHouse)
	if err != nil {
		return nil, fmt.Errorf("position %s/%s: %w", exchange, asset, err)
	}
	return &Position{
		exchange:    exchange,
		asset:       asset,
		volumeCount: d.Count(),
	}, nil
}

// RestorePosition 从持久化字段重建持仓，直接设置计数，不经过换算
func RestorePosition(id string, exchange Exchange, asset Asset, volumeCount int64, order *SpecificOrder) *Position {
	return &Position{
		ID:          id,
		exchange:    exchange,
		asset:       asset,
		volumeCount: volumeCount,
		order:       order,
	}
}

func (p *Position) Exchange() Exchange { return p.exchange }

func (p *Position) Asset() Asset { return p.asset }

// VolumeCount 以资产 Basis 为单位的整数计数
func (p *Position) VolumeCount() int64 { return p.volumeCount }

// DiscreteVolume 返回带 Basis 的离散数量
func (p *Position) DiscreteVolume() quantity.DiscreteAmount {
	return quantity.NewDiscreteAmount(p.volumeCount, p.asset.Basis())
}

// Volume 返回缓存的数量，缓存失效时由 (volumeCount, basis) 重建
func (p *Position) Volume() quantity.Amount {
	if p.volume == nil {
		v := p.DiscreteVolume().Amount()
		p.volume = &v
	}
	return *p.volume
}

// SetVolumeCount 直接设置计数（持久化恢复或账本调整），同时使缓存失效
func (p *Position) SetVolumeCount(count int64) {
	p.volumeCount = count
	p.volume = nil
}

// Order 返回冻结该持仓的订单，未冻结时为 nil
func (p *Position) Order() *SpecificOrder { return p.order }

// IsReserved 当且仅当关联了订单
func (p *Position) IsReserved() bool { return p.order != nil }

// SetOrder 设置或清除（nil）订单关联，不影响数量
func (p *Position) SetOrder(order *SpecificOrder) { p.order = order }

// Reserve Free -> Reserved
func (p *Position) Reserve(order *SpecificOrder) error {
	if order == nil {
		return fmt.Errorf("reserve %s: %w", p.key(), ErrInvalidReference)
	}
	if p.order != nil && p.order.ID != order.ID {
		return fmt.Errorf("reserve %s for %s: held by %s: %w", p.key(), order.ID, p.order.ID, ErrPositionReserved)
	}
	p.order = order
	return nil
}

// Release Reserved -> Free，返回原先的订单引用
func (p *Position) Release() (*SpecificOrder, error) {
	if p.order == nil {
		return nil, fmt.Errorf("release %s: %w", p.key(), ErrPositionNotReserved)
	}
	order := p.order
	p.order = nil
	return order, nil
}

// Disposable 数量为零且未冻结的持仓可由持有者回收
func (p *Position) Disposable() bool {
	return p.volumeCount == 0 && p.order == nil
}

// Merge 把 other 的数量就地累加到本持仓。
// 交易所或资产不同时不做任何修改并返回对应的失败状态；
// 计数溢出时返回 ErrArithmeticOverflow，同样不修改。other 始终不变。
func (p *Position) Merge(other *Position) (MergeResult, error) {
	if other == nil {
		return MergeResult{}, ErrNilPosition
	}
	if !p.exchange.Equal(other.exchange) {
		return MergeResult{Status: MergeExchangeMismatch, Volume: p.DiscreteVolume()}, nil
	}
	if !p.asset.Equal(other.asset) {
		return MergeResult{Status: MergeAssetMismatch, Volume: p.DiscreteVolume()}, nil
	}
	sum, err := p.DiscreteVolume().Add(other.DiscreteVolume())
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge into %s: %w", p.key(), err)
	}
	p.SetVolumeCount(sum.Count())
	return MergeResult{Status: MergeApplied, Volume: sum}, nil
}

func (p *Position) String() string {
	reservation := "free"
	if p.order != nil {
		reservation = "reserved:" + p.order.ID
	}
	return fmt.Sprintf("Position[id=%s, exchange=%s, asset=%s, count=%d, volume=%s, %s]",
		p.ID, p.exchange, p.asset, p.volumeCount, p.DiscreteVolume(), reservation)
}

func (p *Position) key() string {
	return p.exchange.String() + "/" + p.asset.String()
}
