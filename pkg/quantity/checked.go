package quantity

import (
	"fmt"
	"math"
)

// checkedAdd 执行 int64 加法，溢出时返回 ErrArithmeticOverflow 而不是回绕
func checkedAdd(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%d + %d: %w", a, b, ErrArithmeticOverflow)
	}
	return a + b, nil
}

// checkedSub 执行 int64 减法
func checkedSub(a, b int64) (int64, error) {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		return 0, fmt.Errorf("%d - %d: %w", a, b, ErrArithmeticOverflow)
	}
	return a - b, nil
}

// checkedMul 执行 int64 乘法
func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	overflow := false
	if a > 0 {
		if b > 0 {
			overflow = a > math.MaxInt64/b
		} else {
			overflow = b < math.MinInt64/a
		}
	} else {
		if b > 0 {
			overflow = a < math.MinInt64/b
		} else {
			overflow = a < math.MaxInt64/b
		}
	}
	if overflow {
		return 0, fmt.Errorf("%d * %d: %w", a, b, ErrArithmeticOverflow)
	}
	return a * b, nil
}
