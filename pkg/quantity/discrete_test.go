package quantity

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var (
	satoshi = MustBasis("0.00000001")
	cent    = MustBasis("0.01")
)

func TestAmount_ToBasis_BTC(t *testing.T) {
	d, err := MustAmount("1.00000000").ToBasis(satoshi, ToHouse)
	if err != nil {
		t.Fatalf("ToBasis: %v", err)
	}
	if d.Count() != 100000000 {
		t.Errorf("Count() = %d; want 100000000", d.Count())
	}
	if d.String() != "1.00000000" {
		t.Errorf("String() = %s; want 1.00000000", d.String())
	}
	if !d.Amount().Equal(MustAmount("1")) {
		t.Errorf("Amount() = %s; want 1", d.Amount())
	}
}

func TestDiscreteAmount_ToBasis(t *testing.T) {
	tests := []struct {
		name   string
		count  int64
		from   Basis
		to     Basis
		policy RemainderPolicy
		want   int64
	}{
		{"same basis", 42, cent, MustBasis("0.010"), ToHouse, 42},
		{"finer divides", 150, cent, satoshi, ToHouse, 150000000},
		{"coarser truncates to house", 150000001, satoshi, cent, ToHouse, 150},
		{"coarser negative to house", -150000001, satoshi, cent, ToHouse, -151},
		{"non dividing basis", 10, MustBasis("0.03"), MustBasis("0.1"), Truncate, 3},
	}
	for _, tt := range tests {
		got, err := NewDiscreteAmount(tt.count, tt.from).ToBasis(tt.to, tt.policy)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got.Count() != tt.want || !got.Basis().Equal(tt.to) {
			t.Errorf("%s: ToBasis = %d@%s; want %d@%s", tt.name, got.Count(), got.Basis(), tt.want, tt.to)
		}
	}
}

func TestDiscreteAmount_ToBasisOverflow(t *testing.T) {
	d := NewDiscreteAmount(math.MaxInt64/10, cent)
	if _, err := d.ToBasis(satoshi, ToHouse); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("ToBasis err = %v; want ErrArithmeticOverflow", err)
	}
}

func TestDiscreteAmount_Arithmetic(t *testing.T) {
	a := NewDiscreteAmount(100, cent)
	b := NewDiscreteAmount(-30, cent)

	sum, err := a.Add(b)
	if err != nil || sum.Count() != 70 {
		t.Errorf("Add = %d, %v; want 70", sum.Count(), err)
	}
	diff, err := a.Sub(b)
	if err != nil || diff.Count() != 130 {
		t.Errorf("Sub = %d, %v; want 130", diff.Count(), err)
	}
	neg, err := b.Neg()
	if err != nil || neg.Count() != 30 {
		t.Errorf("Neg = %d, %v; want 30", neg.Count(), err)
	}
	if c, _ := a.Cmp(b); c != 1 {
		t.Errorf("Cmp = %d; want 1", c)
	}
	if a.Sign() != 1 || b.Sign() != -1 || NewDiscreteAmount(0, cent).Sign() != 0 {
		t.Error("Sign mismatch")
	}
}

func TestDiscreteAmount_BasisMismatch(t *testing.T) {
	a := NewDiscreteAmount(1, cent)
	b := NewDiscreteAmount(1, satoshi)
	if _, err := a.Add(b); !errors.Is(err, ErrBasisMismatch) {
		t.Errorf("Add err = %v; want ErrBasisMismatch", err)
	}
	if _, err := a.Sub(b); !errors.Is(err, ErrBasisMismatch) {
		t.Errorf("Sub err = %v; want ErrBasisMismatch", err)
	}
	if _, err := a.Cmp(b); !errors.Is(err, ErrBasisMismatch) {
		t.Errorf("Cmp err = %v; want ErrBasisMismatch", err)
	}

	converted, err := b.ToBasis(cent, ToHouse)
	if err != nil {
		t.Fatalf("ToBasis: %v", err)
	}
	if _, err := a.Add(converted); err != nil {
		t.Errorf("Add after explicit conversion: %v", err)
	}
}

func TestDiscreteAmount_OverflowDetected(t *testing.T) {
	a := NewDiscreteAmount(math.MaxInt64, cent)
	if _, err := a.Add(NewDiscreteAmount(1, cent)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Add err = %v; want ErrArithmeticOverflow", err)
	}
	b := NewDiscreteAmount(math.MinInt64, cent)
	if _, err := b.Sub(NewDiscreteAmount(1, cent)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Sub err = %v; want ErrArithmeticOverflow", err)
	}
	if _, err := b.Neg(); !errors.Is(err, ErrArithmeticOverflow) {
		t.Errorf("Neg err = %v; want ErrArithmeticOverflow", err)
	}
}

func TestAmount_JSON(t *testing.T) {
	var out struct {
		Volume Amount `json:"volume"`
	}
	if err := json.Unmarshal([]byte(`{"volume":"0.123456789012345678"}`), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"volume":"0.123456789012345678"}` {
		t.Errorf("Marshal = %s", data)
	}
}

// 往返换算：fine 整除 coarse 时，coarse -> fine -> coarse 恢复原计数
func TestProperty_RoundTrip(t *testing.T) {
	policies := []RemainderPolicy{ToHouse, Truncate, HalfEven, Exact}
	rapid.Check(t, func(t *rapid.T) {
		finePlaces := rapid.Int32Range(0, 10).Draw(t, "finePlaces")
		fineStep := rapid.Int64Range(1, 50).Draw(t, "fineStep")
		multiple := rapid.Int64Range(1, 1000).Draw(t, "multiple")
		count := rapid.Int64Range(-1_000_000_000, 1_000_000_000).Draw(t, "count")
		policy := rapid.SampledFrom(policies).Draw(t, "policy")

		fineUnit := decimal.New(fineStep, -finePlaces)
		fineBasis, _ := NewBasis(fineUnit)
		coarseBasis, _ := NewBasis(fineUnit.Mul(decimal.NewFromInt(multiple)))
		if !fineBasis.Divides(coarseBasis) {
			t.Fatalf("%s should divide %s", fineBasis, coarseBasis)
		}

		original := NewDiscreteAmount(count, coarseBasis)
		down, err := original.ToBasis(fineBasis, policy)
		if errors.Is(err, ErrArithmeticOverflow) {
			t.Skip("count outside int64")
		}
		if err != nil {
			t.Fatalf("to fine: %v", err)
		}
		back, err := down.ToBasis(coarseBasis, policy)
		if err != nil {
			t.Fatalf("to coarse: %v", err)
		}
		if back.Count() != original.Count() || !back.Basis().Equal(original.Basis()) {
			t.Fatalf("round trip %s -> %s -> %s", original, down, back)
		}
		if !down.Amount().Equal(original.Amount()) {
			t.Fatalf("finer conversion changed value: %s vs %s", down.Amount(), original.Amount())
		}
	})
}
