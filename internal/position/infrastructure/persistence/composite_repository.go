// Package persistence 组合写模型仓储与读缓存
package persistence

import (
	"context"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/logger"
)

type compositePositionRepository struct {
	store domain.PositionRepository
	cache domain.PositionReadRepository
}

// NewCompositePositionRepository store 为权威存储，cache 为按 ID 的读缓存。
// 写操作在事务提交后失效缓存，事务内读取不经过缓存；缓存故障只记录日志。
func NewCompositePositionRepository(store domain.PositionRepository, cache domain.PositionReadRepository) domain.PositionRepository {
	if cache == nil {
		return store
	}
	return &compositePositionRepository{
		store: store,
		cache: cache,
	}
}

func (r *compositePositionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.store.WithTx(ctx, fn)
}

func (r *compositePositionRepository) Save(ctx context.Context, position *domain.Position) error {
	if err := r.store.Save(ctx, position); err != nil {
		return err
	}
	r.invalidate(ctx, position.ID)
	return nil
}

func (r *compositePositionRepository) Get(ctx context.Context, id string) (*domain.Position, error) {
	if db.InTx(ctx) {
		return r.store.Get(ctx, id)
	}

	pos, err := r.cache.Get(ctx, id)
	if err == nil && pos != nil {
		return pos, nil
	}
	if err != nil {
		logger.Warn(ctx, "position cache read failed", "position_id", id, "error", err)
	}

	pos, err = r.store.Get(ctx, id)
	if err != nil || pos == nil {
		return pos, err
	}

	if err := r.cache.Save(ctx, pos); err != nil {
		logger.Warn(ctx, "position cache fill failed", "position_id", id, "error", err)
	}
	return pos, nil
}

// GetByKey 加锁读取必须走存储
func (r *compositePositionRepository) GetByKey(ctx context.Context, exchange domain.Exchange, asset domain.Asset, orderID string, forUpdate bool) (*domain.Position, error) {
	return r.store.GetByKey(ctx, exchange, asset, orderID, forUpdate)
}

func (r *compositePositionRepository) ListByExchange(ctx context.Context, exchange domain.Exchange, asset string, limit, offset int) ([]*domain.Position, int64, error) {
	return r.store.ListByExchange(ctx, exchange, asset, limit, offset)
}

func (r *compositePositionRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// invalidate 事务提交后删除缓存
func (r *compositePositionRepository) invalidate(ctx context.Context, id string) {
	db.AfterCommit(ctx, func(ctx context.Context) {
		if err := r.cache.Delete(ctx, id); err != nil {
			logger.Warn(ctx, "position cache invalidation failed", "position_id", id, "error", err)
		}
	})
}
