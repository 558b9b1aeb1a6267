package quantity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount 与 Basis 无关的精确数量，任意精度，不可变
type Amount struct {
	value decimal.Decimal
}

// Zero 数量零
var Zero = Amount{value: decimal.Zero}

// NewAmount 包装一个 decimal 值
func NewAmount(value decimal.Decimal) Amount {
	return Amount{value: value}
}

// NewAmountFromInt 以整数构造
func NewAmountFromInt(value int64) Amount {
	return Amount{value: decimal.NewFromInt(value)}
}

const (
	// maxScale 数量与 Basis 单位允许的最大十进制指数绝对值
	maxScale = 64
	// maxInputLen 可解析的十进制字符串最大长度
	maxInputLen = 128
	// briefDigits 错误信息中数值保留的最多位数
	briefDigits = 32
)

// ParseAmount 从十进制字符串解析，不经过 float64。
// 过长或指数超出 ±64 的输入返回 ErrAmountOutOfRange。
func ParseAmount(s string) (Amount, error) {
	value, err := parseDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount: %w", err)
	}
	return Amount{value: value}, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if len(s) > maxInputLen {
		return decimal.Decimal{}, fmt.Errorf("%d characters: %w", len(s), ErrAmountOutOfRange)
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, err)
	}
	if !inScale(value) {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", brief(value), ErrAmountOutOfRange)
	}
	return value, nil
}

func inScale(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxScale && exp <= maxScale
}

// brief 用于错误信息，超长或超范围的值只给出数量级
func brief(d decimal.Decimal) string {
	if inScale(d) && d.NumDigits() <= briefDigits {
		return d.String()
	}
	return fmt.Sprintf("~%de%d", d.Sign(), int64(d.Exponent())+int64(d.NumDigits())-1)
}

// MustAmount 解析失败时 panic，仅用于常量和测试
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal 返回底层 decimal 值
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) Add(other Amount) Amount {
	return Amount{value: a.value.Add(other.value)}
}

func (a Amount) Sub(other Amount) Amount {
	return Amount{value: a.value.Sub(other.value)}
}

func (a Amount) Mul(other Amount) Amount {
	return Amount{value: a.value.Mul(other.value)}
}

func (a Amount) Neg() Amount {
	return Amount{value: a.value.Neg()}
}

func (a Amount) Cmp(other Amount) int {
	return a.value.Cmp(other.value)
}

// Equal 数值相等（1.50 与 1.5 相等）
func (a Amount) Equal(other Amount) bool {
	return a.value.Equal(other.value)
}

func (a Amount) Sign() int {
	return a.value.Sign()
}

func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// ToBasis 使用给定余数策略把数量换算为 basis 上的离散数量，余数按策略处置
func (a Amount) ToBasis(basis Basis, policy RemainderPolicy) (DiscreteAmount, error) {
	d, _, err := a.Split(basis, policy)
	return d, err
}

// Split 与 ToBasis 相同，但同时返回被策略处置的余数，满足 d.Amount() + remainder == a
func (a Amount) Split(basis Basis, policy RemainderPolicy) (DiscreteAmount, Amount, error) {
	count, remainder, err := policy.Split(a, basis)
	if err != nil {
		return DiscreteAmount{}, Amount{}, err
	}
	return DiscreteAmount{count: count, basis: basis}, remainder, nil
}

func (a Amount) String() string {
	return a.value.String()
}

// MarshalText 以十进制字符串序列化，保证 JSON 中不丢精度
func (a Amount) MarshalText() ([]byte, error) {
	return a.value.MarshalText()
}

// UnmarshalText 从十进制字符串反序列化
func (a *Amount) UnmarshalText(text []byte) error {
	return a.value.UnmarshalText(text)
}
