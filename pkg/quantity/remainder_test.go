package quantity

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestRemainderPolicies(t *testing.T) {
	cent := MustBasis("0.01")
	tests := []struct {
		policy    RemainderPolicy
		amount    string
		count     int64
		remainder string
	}{
		{ToHouse, "1.239", 123, "0.009"},
		{ToHouse, "-1.231", -124, "0.009"},
		{ToHouse, "5", 500, "0"},
		{Truncate, "1.239", 123, "0.009"},
		{Truncate, "-1.239", -123, "-0.009"},
		{HalfEven, "1.235", 124, "-0.005"},
		{HalfEven, "1.225", 122, "0.005"},
		{HalfEven, "-1.235", -124, "0.005"},
		{HalfEven, "1.2349", 123, "0.0049"},
		{HalfEven, "1.2351", 124, "-0.0049"},
		{Exact, "1.23", 123, "0"},
	}
	for _, tt := range tests {
		count, rem, err := tt.policy.Split(MustAmount(tt.amount), cent)
		if err != nil {
			t.Errorf("%s.Split(%s) unexpected error: %v", tt.policy.Name(), tt.amount, err)
			continue
		}
		if count != tt.count || !rem.Equal(MustAmount(tt.remainder)) {
			t.Errorf("%s.Split(%s) = %d, %s; want %d, %s", tt.policy.Name(), tt.amount, count, rem, tt.count, tt.remainder)
		}
	}
}

func TestToHouse_RemainderNeverNegative(t *testing.T) {
	b := MustBasis("0.25")
	for _, s := range []string{"0.1", "-0.1", "-0.26", "0.26", "-100.01"} {
		_, rem, err := ToHouse.Split(MustAmount(s), b)
		if err != nil {
			t.Fatalf("Split(%s): %v", s, err)
		}
		if rem.Sign() < 0 {
			t.Errorf("ToHouse.Split(%s) remainder = %s; want >= 0", s, rem)
		}
	}
}

func TestExact_RejectsRemainder(t *testing.T) {
	_, _, err := Exact.Split(MustAmount("1.001"), MustBasis("0.01"))
	if !errors.Is(err, ErrInexact) {
		t.Errorf("Exact.Split err = %v; want ErrInexact", err)
	}
}

func TestSplit_Overflow(t *testing.T) {
	huge := NewAmount(decimal.NewFromInt(math.MaxInt64).Add(decimal.NewFromInt(1)))
	if _, _, err := ToHouse.Split(huge, MustBasis("1")); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Split(MaxInt64+1) err = %v; want ErrArithmeticOverflow", err)
	}
	if _, _, err := ToHouse.Split(MustAmount("1000000000000"), MustBasis("0.00000001")); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Split(1e12 @ 1e-8) err = %v; want ErrArithmeticOverflow", err)
	}
	// floor 在 MinInt64 边界上再减一也必须被拦截
	low := NewAmount(decimal.NewFromInt(math.MinInt64).Sub(decimal.RequireFromString("0.5")))
	if _, _, err := ToHouse.Split(low, MustBasis("1")); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Split(MinInt64-0.5) err = %v; want ErrArithmeticOverflow", err)
	}
}

func TestSplit_ExtremeExponents(t *testing.T) {
	sat := MustBasis("0.00000001")
	tests := []struct {
		name   string
		amount Amount
		want   error
	}{
		{"huge", NewAmount(decimal.New(1, 2_000_000)), ErrArithmeticOverflow},
		{"huge negative", NewAmount(decimal.New(-7, 2_000_000)), ErrArithmeticOverflow},
		{"tiny", NewAmount(decimal.New(1, -2_000_000)), ErrAmountOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, _, err := ToHouse.Split(tt.amount, sat)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Split err = %v; want %v", err, tt.want)
			}
			if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
				t.Errorf("Split took %v", elapsed)
			}
			if len(err.Error()) > 200 {
				t.Errorf("error message is %d bytes long", len(err.Error()))
			}
		})
	}

	// 零值不论指数都是零计数
	count, rem, err := Exact.Split(NewAmount(decimal.New(0, 2_000_000)), sat)
	if err != nil || count != 0 || !rem.IsZero() {
		t.Errorf("Split(0e2000000) = %d, %s, %v; want 0, 0, nil", count, rem, err)
	}
}

func TestParseAmount_Bounds(t *testing.T) {
	for _, s := range []string{"1e2000000", "1e-65", strings.Repeat("9", 200)} {
		if _, err := ParseAmount(s); !errors.Is(err, ErrAmountOutOfRange) {
			t.Errorf("ParseAmount(%.20s) err = %v; want ErrAmountOutOfRange", s, err)
		}
	}
	if _, err := ParseBasis("1e-100"); !errors.Is(err, ErrAmountOutOfRange) {
		t.Errorf("ParseBasis(1e-100) err = %v; want ErrAmountOutOfRange", err)
	}
	if _, err := NewBasis(decimal.New(1, 100)); !errors.Is(err, ErrInvalidBasis) {
		t.Errorf("NewBasis(1e100) err = %v; want ErrInvalidBasis", err)
	}
	if a, err := ParseAmount("1.5e-8"); err != nil || a.String() != "0.000000015" {
		t.Errorf("ParseAmount(1.5e-8) = %s, %v", a, err)
	}
}

func TestSplit_InvalidBasis(t *testing.T) {
	if _, _, err := ToHouse.Split(MustAmount("1"), Basis{}); !errors.Is(err, ErrInvalidBasis) {
		t.Errorf("Split with zero Basis err = %v; want ErrInvalidBasis", err)
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "to_house", "TRUNCATE", "half_even", "Exact"} {
		if _, err := PolicyByName(name); err != nil {
			t.Errorf("PolicyByName(%q) err = %v", name, err)
		}
	}
	if _, err := PolicyByName("ROUND_UP"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("PolicyByName(ROUND_UP) err = %v; want ErrUnknownPolicy", err)
	}
}

// 余数守恒：count*unit + remainder == amount，对所有策略成立
func TestProperty_RemainderConservation(t *testing.T) {
	all := []RemainderPolicy{ToHouse, Truncate, HalfEven}
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(-1_000_000_000_000, 1_000_000_000_000).Draw(t, "units")
		scale := rapid.Int32Range(0, 12).Draw(t, "scale")
		places := rapid.Int32Range(0, 8).Draw(t, "places")
		step := rapid.Int64Range(1, 100).Draw(t, "step")
		policy := rapid.SampledFrom(all).Draw(t, "policy")

		amount := NewAmount(decimal.New(units, -scale))
		basis, err := NewBasis(decimal.New(step, -places))
		if err != nil {
			t.Fatalf("NewBasis: %v", err)
		}

		count, rem, err := policy.Split(amount, basis)
		if errors.Is(err, ErrArithmeticOverflow) {
			t.Skip("count outside int64")
		}
		if err != nil {
			t.Fatalf("Split(%s, %s): %v", amount, basis, err)
		}
		rebuilt := NewDiscreteAmount(count, basis).Amount().Add(rem)
		if !rebuilt.Equal(amount) {
			t.Fatalf("%s: %d*%s + %s = %s; want %s", policy.Name(), count, basis, rem, rebuilt, amount)
		}
		if rem.Decimal().Abs().GreaterThanOrEqual(basis.Unit()) {
			t.Fatalf("%s: |remainder| %s >= unit %s", policy.Name(), rem, basis)
		}

		again, rem2, _ := policy.Split(amount, basis)
		if again != count || !rem2.Equal(rem) {
			t.Fatalf("%s is not deterministic", policy.Name())
		}
	})
}
