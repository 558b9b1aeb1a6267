package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/internal/position/infrastructure/catalog"
	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/quantity"
)

const testCatalog = `
exchanges:
  - symbol: BINANCE
  - symbol: COINBASE
assets:
  - symbol: BTC
    precision: 8
  - symbol: USD
    unit: "0.01"
`

type fixture struct {
	db      *db.DB
	repo    domain.PositionRepository
	binance domain.Exchange
	btc     domain.Asset
	usd     domain.Asset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Init(db.Config{Driver: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := database.AutoMigrate(&PositionModel{}); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{db: database, repo: NewPositionRepository(database, cat)}
	f.binance, _ = cat.Exchange("BINANCE")
	f.btc, _ = cat.Asset("BTC")
	f.usd, _ = cat.Asset("USD")
	return f
}

func (f *fixture) position(t *testing.T, id string, asset domain.Asset, amount string) *domain.Position {
	t.Helper()
	p, err := domain.NewPosition(f.binance, asset, quantity.MustAmount(amount))
	if err != nil {
		t.Fatal(err)
	}
	p.ID = id
	return p
}

func TestSaveAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.position(t, "POS1", f.btc, "1.5")
	if err := f.repo.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := f.repo.Get(ctx, "POS1")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if got.VolumeCount() != 150000000 {
		t.Errorf("VolumeCount() = %d", got.VolumeCount())
	}
	if !got.Asset().Equal(f.btc) || !got.Exchange().Equal(f.binance) {
		t.Errorf("restored references = %s/%s", got.Exchange(), got.Asset())
	}
	if got.IsReserved() {
		t.Error("restored position should be free")
	}

	missing, err := f.repo.Get(ctx, "NOPE")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v", missing, err)
	}
}

func TestSaveUpdatesExistingRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.position(t, "POS1", f.usd, "10.00")
	_ = f.repo.Save(ctx, p)

	p.SetVolumeCount(0)
	_ = p.Reserve(&domain.SpecificOrder{ID: "ORD-1"})
	if err := f.repo.Save(ctx, p); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	got, _ := f.repo.Get(ctx, "POS1")
	if got.VolumeCount() != 0 {
		t.Errorf("VolumeCount() = %d, want 0", got.VolumeCount())
	}
	if !got.IsReserved() || got.Order().ID != "ORD-1" {
		t.Errorf("Order() = %v", got.Order())
	}
}

func TestGetByKeySeparatesFreeAndReserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	free := f.position(t, "POS1", f.btc, "2")
	reserved := f.position(t, "POS2", f.btc, "0.5")
	_ = reserved.Reserve(&domain.SpecificOrder{ID: "ORD-9"})

	err := f.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := f.repo.Save(ctx, free); err != nil {
			return err
		}
		return f.repo.Save(ctx, reserved)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = f.repo.WithTx(ctx, func(ctx context.Context) error {
		got, err := f.repo.GetByKey(ctx, f.binance, f.btc, "", true)
		if err != nil {
			return err
		}
		if got == nil || got.ID != "POS1" {
			t.Errorf("free GetByKey() = %v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.repo.GetByKey(ctx, f.binance, f.btc, "ORD-9", false)
	if err != nil || got == nil || got.ID != "POS2" {
		t.Errorf("reserved GetByKey() = %v, %v", got, err)
	}

	none, err := f.repo.GetByKey(ctx, f.binance, f.usd, "", false)
	if err != nil || none != nil {
		t.Errorf("GetByKey(missing) = %v, %v", none, err)
	}
}

func TestUniqueFreePositionPerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.repo.Save(ctx, f.position(t, "POS1", f.btc, "1"))
	if err := f.repo.Save(ctx, f.position(t, "POS2", f.btc, "1")); !errors.Is(err, domain.ErrDuplicatePosition) {
		t.Fatalf("Save() second free position error = %v, want ErrDuplicatePosition", err)
	}
}

func TestListByExchangeAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.repo.Save(ctx, f.position(t, "POS1", f.btc, "1"))
	_ = f.repo.Save(ctx, f.position(t, "POS2", f.usd, "5"))

	all, total, err := f.repo.ListByExchange(ctx, f.binance, "", 10, 0)
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("ListByExchange() = %d items, total %d, err %v", len(all), total, err)
	}

	onlyUSD, total, _ := f.repo.ListByExchange(ctx, f.binance, "USD", 10, 0)
	if total != 1 || onlyUSD[0].ID != "POS2" {
		t.Errorf("filtered list = %v, total %d", onlyUSD, total)
	}

	page, total, _ := f.repo.ListByExchange(ctx, f.binance, "", 1, 1)
	if total != 2 || len(page) != 1 || page[0].ID != "POS2" {
		t.Errorf("page = %v, total %d", page, total)
	}

	if err := f.repo.Delete(ctx, "POS1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.repo.Get(ctx, "POS1"); got != nil {
		t.Errorf("Get() after Delete = %v", got)
	}
}

func TestRestoreRejectsChangedBasis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.repo.Save(ctx, f.position(t, "POS1", f.usd, "1"))
	if err := f.db.Model(&PositionModel{}).Where("position_id = ?", "POS1").
		Update("basis_unit", "0.001").Error; err != nil {
		t.Fatal(err)
	}

	_, err := f.repo.Get(ctx, "POS1")
	if !errors.Is(err, domain.ErrCorruptPosition) || !errors.Is(err, quantity.ErrBasisMismatch) {
		t.Errorf("Get() error = %v, want ErrCorruptPosition wrapping ErrBasisMismatch", err)
	}
}

func TestRestoreRejectsUnknownAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.repo.Save(ctx, f.position(t, "POS1", f.usd, "1"))
	if err := f.db.Model(&PositionModel{}).Where("position_id = ?", "POS1").
		Update("asset", "DOGE").Error; err != nil {
		t.Fatal(err)
	}

	if _, err := f.repo.Get(ctx, "POS1"); !errors.Is(err, domain.ErrCorruptPosition) {
		t.Errorf("Get() error = %v, want ErrCorruptPosition", err)
	}
}
