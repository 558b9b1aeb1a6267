package quantity

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RemainderPolicy 决定换算到较粗 Basis 时小数余数的处置方式。
// 实现必须是确定性的纯函数，且满足 count*unit + remainder == amount。
type RemainderPolicy interface {
	// Name 策略名称，如 TO_HOUSE
	Name() string
	// Split 返回整数个单位及剩余部分
	Split(amount Amount, basis Basis) (count int64, remainder Amount, err error)
}

// roundFunc 根据截断商 q（向零取整）和同号余数 r 给出最终的整数商
type roundFunc func(q, r, unit decimal.Decimal) (decimal.Decimal, error)

type roundingPolicy struct {
	name  string
	round roundFunc
}

var (
	// ToHouse 向负无穷取整，余数恒为非负并归平台（house）所有：
	// 入账向下取整，扣账多扣一个单位，对手方永远拿不到舍入误差。
	ToHouse RemainderPolicy = roundingPolicy{name: "TO_HOUSE", round: roundFloor}
	// Truncate 向零取整
	Truncate RemainderPolicy = roundingPolicy{name: "TRUNCATE", round: roundTruncate}
	// HalfEven 银行家舍入
	HalfEven RemainderPolicy = roundingPolicy{name: "HALF_EVEN", round: roundHalfEven}
	// Exact 余数非零时返回 ErrInexact
	Exact RemainderPolicy = roundingPolicy{name: "EXACT", round: roundExact}
)

var policies = map[string]RemainderPolicy{
	ToHouse.Name():  ToHouse,
	Truncate.Name(): Truncate,
	HalfEven.Name(): HalfEven,
	Exact.Name():    Exact,
}

// PolicyByName 按名称（大小写不敏感）查找策略，空名称返回 ToHouse
func PolicyByName(name string) (RemainderPolicy, error) {
	if name == "" {
		return ToHouse, nil
	}
	p, ok := policies[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPolicy)
	}
	return p, nil
}

var (
	maxCount = decimal.NewFromInt(math.MaxInt64)
	minCount = decimal.NewFromInt(math.MinInt64)
)

func (p roundingPolicy) Name() string {
	return p.name
}

func (p roundingPolicy) Split(amount Amount, basis Basis) (int64, Amount, error) {
	if !basis.Valid() {
		return 0, Amount{}, ErrInvalidBasis
	}
	unit := basis.unit
	if amount.value.IsZero() {
		return 0, Zero, nil
	}
	// 先按数量级排除必然溢出和超出精度范围的输入，避免 QuoRem 构造超大整数
	if countExceedsInt64(amount.value, unit) {
		return 0, Amount{}, fmt.Errorf("%s to basis %s: %w", brief(amount.value), basis, ErrArithmeticOverflow)
	}
	if !inScale(amount.value) || !inScale(unit) {
		return 0, Amount{}, fmt.Errorf("%s to basis %s: %w", brief(amount.value), basis, ErrAmountOutOfRange)
	}
	q, r := amount.value.QuoRem(unit, 0)
	q, err := p.round(q, r, unit)
	if err != nil {
		return 0, Amount{}, fmt.Errorf("%s to basis %s: %w", brief(amount.value), basis, err)
	}
	if q.GreaterThan(maxCount) || q.LessThan(minCount) {
		return 0, Amount{}, fmt.Errorf("%s to basis %s: %w", brief(amount.value), basis, ErrArithmeticOverflow)
	}
	remainder := amount.value.Sub(q.Mul(unit))
	return q.IntPart(), Amount{value: remainder}, nil
}

// countExceedsInt64 按数量级判断 |amount / unit| 是否必然超过 MaxInt64。
// NumDigits 可能多算一位，阈值留出一个数量级。
func countExceedsInt64(amount, unit decimal.Decimal) bool {
	low := int64(amount.NumDigits()) - 1 + int64(amount.Exponent())
	high := int64(unit.NumDigits()) + int64(unit.Exponent())
	return low-high >= 20
}

func (p roundingPolicy) String() string {
	return p.name
}

var one = decimal.NewFromInt(1)

func roundFloor(q, r, _ decimal.Decimal) (decimal.Decimal, error) {
	if r.Sign() < 0 {
		return q.Sub(one), nil
	}
	return q, nil
}

func roundTruncate(q, _, _ decimal.Decimal) (decimal.Decimal, error) {
	return q, nil
}

func roundHalfEven(q, r, unit decimal.Decimal) (decimal.Decimal, error) {
	if r.IsZero() {
		return q, nil
	}
	away := q.Add(decimal.NewFromInt(int64(r.Sign())))
	switch r.Abs().Add(r.Abs()).Cmp(unit) {
	case 1:
		return away, nil
	case 0:
		// 恰好一半，取偶数
		if q.Mod(decimal.NewFromInt(2)).IsZero() {
			return q, nil
		}
		return away, nil
	default:
		return q, nil
	}
}

func roundExact(q, r, _ decimal.Decimal) (decimal.Decimal, error) {
	if !r.IsZero() {
		return q, fmt.Errorf("remainder %s: %w", r.String(), ErrInexact)
	}
	return q, nil
}
