package db

import (
	"context"
	"errors"
	"testing"
)

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Init(Config{Driver: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := d.AutoMigrate(&row{}); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestWithTxCommitAndRollback(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	err := d.WithTx(ctx, func(ctx context.Context) error {
		if !InTx(ctx) {
			t.Fatal("expected tx in context")
		}
		return d.Conn(ctx).Create(&row{Name: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("commit tx error = %v", err)
	}

	boom := errors.New("boom")
	err = d.WithTx(ctx, func(ctx context.Context) error {
		if err := d.Conn(ctx).Create(&row{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("rollback tx error = %v, want %v", err, boom)
	}

	var count int64
	if err := d.Conn(ctx).Model(&row{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestWithTxReusesOuterTransaction(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	boom := errors.New("outer failed")
	err := d.WithTx(ctx, func(ctx context.Context) error {
		if err := d.WithTx(ctx, func(ctx context.Context) error {
			return d.Conn(ctx).Create(&row{Name: "inner"}).Error
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}

	var count int64
	d.Conn(ctx).Model(&row{}).Count(&count)
	if count != 0 {
		t.Errorf("inner write survived outer rollback: rows = %d", count)
	}
}

func TestAfterCommit(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	var calls []string
	hook := func(name string) func(context.Context) {
		return func(ctx context.Context) {
			if InTx(ctx) {
				t.Errorf("%s ran inside the transaction", name)
			}
			calls = append(calls, name)
		}
	}

	err := d.WithTx(ctx, func(ctx context.Context) error {
		AfterCommit(ctx, hook("first"))
		if err := d.WithTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, hook("nested"))
			return nil
		}); err != nil {
			return err
		}
		if len(calls) != 0 {
			t.Errorf("hooks ran before commit: %v", calls)
		}
		return d.Conn(ctx).Create(&row{Name: "a"}).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "nested" {
		t.Errorf("calls = %v, want [first nested]", calls)
	}

	calls = nil
	_ = d.WithTx(ctx, func(ctx context.Context) error {
		AfterCommit(ctx, hook("rolled back"))
		return errors.New("abort")
	})
	if len(calls) != 0 {
		t.Errorf("hook ran after rollback: %v", calls)
	}

	AfterCommit(ctx, hook("immediate"))
	if len(calls) != 1 {
		t.Errorf("hook outside tx not run immediately: %v", calls)
	}
}

func TestIsNotFound(t *testing.T) {
	d := newTestDB(t)
	var r row
	err := d.Conn(context.Background()).Where("name = ?", "missing").Take(&r).Error
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if IsNotFound(errors.New("other")) {
		t.Error("IsNotFound(other) = true")
	}
}

func TestInitUnsupportedDriver(t *testing.T) {
	if _, err := Init(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
