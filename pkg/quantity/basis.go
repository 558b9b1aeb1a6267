package quantity

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Basis 资产的最小不可分单位，例如 BTC 的 0.00000001。
// 零值无效，必须通过 NewBasis / BasisFromPrecision 构造。
type Basis struct {
	unit decimal.Decimal
}

// NewBasis 以单位大小构造 Basis，单位必须严格为正
func NewBasis(unit decimal.Decimal) (Basis, error) {
	if !unit.IsPositive() || !inScale(unit) {
		return Basis{}, fmt.Errorf("%s: %w", brief(unit), ErrInvalidBasis)
	}
	return Basis{unit: unit}, nil
}

// ParseBasis 从字符串（如 "0.01"、"0.25"）解析 Basis
func ParseBasis(s string) (Basis, error) {
	unit, err := parseDecimal(s)
	if err != nil {
		return Basis{}, fmt.Errorf("parse basis: %w", err)
	}
	return NewBasis(unit)
}

// BasisFromPrecision 以小数位数构造 Basis，unit = 10^-places
func BasisFromPrecision(places int32) (Basis, error) {
	if places < 0 || places > maxScale {
		return Basis{}, fmt.Errorf("precision %d: %w", places, ErrInvalidBasis)
	}
	return Basis{unit: decimal.New(1, -places)}, nil
}

// MustBasis 用于常量式声明，非法输入直接 panic
func MustBasis(s string) Basis {
	b, err := ParseBasis(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Unit 返回一个最小单位的大小
func (b Basis) Unit() decimal.Decimal {
	return b.unit
}

// Valid 报告 Basis 是否经过合法构造
func (b Basis) Valid() bool {
	return b.unit.IsPositive()
}

// Equal 两个 Basis 当且仅当单位数值相等时相等（0.10 与 0.1 相等）
func (b Basis) Equal(other Basis) bool {
	return b.unit.Equal(other.unit)
}

// Precision 返回单位所需的小数位数，0.25 -> 2，0.00000001 -> 8，5 -> 0
func (b Basis) Precision() int32 {
	if !b.Valid() {
		return 0
	}
	coef := new(big.Int).Set(b.unit.Coefficient())
	exp := b.unit.Exponent()
	ten := big.NewInt(10)
	mod := new(big.Int)
	for coef.Sign() != 0 {
		q, r := new(big.Int).QuoRem(coef, ten, mod)
		if r.Sign() != 0 {
			break
		}
		coef = q
		exp++
	}
	if exp >= 0 {
		return 0
	}
	return -exp
}

// Ratio 返回 coarser 单位是本 Basis 单位的多少倍。
// 仅当 coarser 能被本 Basis 整除且倍数落在 int64 内时 ok 为 true。
func (b Basis) Ratio(coarser Basis) (ratio int64, ok bool) {
	if !b.Valid() || !coarser.Valid() {
		return 0, false
	}
	q, r := coarser.unit.QuoRem(b.unit, 0)
	if !r.IsZero() || !q.IsPositive() {
		return 0, false
	}
	if q.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, false
	}
	return q.IntPart(), true
}

// Divides 报告本 Basis 是否整除 coarser（即本 Basis 更细且 coarser 是其整数倍）
func (b Basis) Divides(coarser Basis) bool {
	_, ok := b.Ratio(coarser)
	return ok
}

func (b Basis) String() string {
	if !b.Valid() {
		return "invalid"
	}
	return b.unit.String()
}
