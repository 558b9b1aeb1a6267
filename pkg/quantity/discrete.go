package quantity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscreteAmount 以 basis 单位的整数个数表示的数量：count × basis.unit。不可变。
type DiscreteAmount struct {
	count int64
	basis Basis
}

// NewDiscreteAmount 直接以计数构造，不经过换算
func NewDiscreteAmount(count int64, basis Basis) DiscreteAmount {
	return DiscreteAmount{count: count, basis: basis}
}

func (d DiscreteAmount) Count() int64 {
	return d.count
}

func (d DiscreteAmount) Basis() Basis {
	return d.basis
}

// Amount 返回精确的十进制值
func (d DiscreteAmount) Amount() Amount {
	return Amount{value: decimal.NewFromInt(d.count).Mul(d.basis.unit)}
}

// ToBasis 换算到 target。目标更细且整除当前 Basis 时走整数乘法，不产生余数；
// 否则按 policy 处置余数。
func (d DiscreteAmount) ToBasis(target Basis, policy RemainderPolicy) (DiscreteAmount, error) {
	if !target.Valid() {
		return DiscreteAmount{}, ErrInvalidBasis
	}
	if d.basis.Equal(target) {
		return DiscreteAmount{count: d.count, basis: target}, nil
	}
	if ratio, ok := target.Ratio(d.basis); ok {
		count, err := checkedMul(d.count, ratio)
		if err != nil {
			return DiscreteAmount{}, fmt.Errorf("%s to basis %s: %w", d, target, err)
		}
		return DiscreteAmount{count: count, basis: target}, nil
	}
	return d.Amount().ToBasis(target, policy)
}

// Add 同 Basis 相加；Basis 不同返回 ErrBasisMismatch
func (d DiscreteAmount) Add(other DiscreteAmount) (DiscreteAmount, error) {
	if err := d.sameBasis(other); err != nil {
		return DiscreteAmount{}, err
	}
	count, err := checkedAdd(d.count, other.count)
	if err != nil {
		return DiscreteAmount{}, err
	}
	return DiscreteAmount{count: count, basis: d.basis}, nil
}

// Sub 同 Basis 相减
func (d DiscreteAmount) Sub(other DiscreteAmount) (DiscreteAmount, error) {
	if err := d.sameBasis(other); err != nil {
		return DiscreteAmount{}, err
	}
	count, err := checkedSub(d.count, other.count)
	if err != nil {
		return DiscreteAmount{}, err
	}
	return DiscreteAmount{count: count, basis: d.basis}, nil
}

// Neg 取反，MinInt64 无法取反
func (d DiscreteAmount) Neg() (DiscreteAmount, error) {
	count, err := checkedSub(0, d.count)
	if err != nil {
		return DiscreteAmount{}, err
	}
	return DiscreteAmount{count: count, basis: d.basis}, nil
}

// Cmp 比较两个同 Basis 的数量
func (d DiscreteAmount) Cmp(other DiscreteAmount) (int, error) {
	if err := d.sameBasis(other); err != nil {
		return 0, err
	}
	switch {
	case d.count < other.count:
		return -1, nil
	case d.count > other.count:
		return 1, nil
	default:
		return 0, nil
	}
}

func (d DiscreteAmount) IsZero() bool {
	return d.count == 0
}

func (d DiscreteAmount) Sign() int {
	switch {
	case d.count < 0:
		return -1
	case d.count > 0:
		return 1
	default:
		return 0
	}
}

// String 按 Basis 精度输出固定小数位，如 1.50000000
func (d DiscreteAmount) String() string {
	if !d.basis.Valid() {
		return fmt.Sprintf("%d@invalid", d.count)
	}
	return d.Amount().value.StringFixed(d.basis.Precision())
}

func (d DiscreteAmount) sameBasis(other DiscreteAmount) error {
	if !d.basis.Equal(other.basis) {
		return fmt.Errorf("%s vs %s: %w", d.basis, other.basis, ErrBasisMismatch)
	}
	return nil
}
