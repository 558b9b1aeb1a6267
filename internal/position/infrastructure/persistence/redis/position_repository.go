// Package redis 提供按持仓 ID 的 Redis 读缓存
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/cache"
	"github.com/wyfcoding/ledger/pkg/quantity"
)

const defaultTTL = 15 * time.Minute

// positionSnapshot 缓存中的持仓快照
type positionSnapshot struct {
	ID          string `json:"id"`
	Exchange    string `json:"exchange"`
	Asset       string `json:"asset"`
	BasisUnit   string `json:"basis_unit"`
	VolumeCount int64  `json:"volume_count"`
	OrderID     string `json:"order_id,omitempty"`
}

// PositionRedisRepository 实现 domain.PositionReadRepository
type PositionRedisRepository struct {
	cache    *cache.RedisCache
	resolver domain.ReferenceResolver
	prefix   string
	ttl      time.Duration
}

var _ domain.PositionReadRepository = (*PositionRedisRepository)(nil)

// NewPositionRedisRepository ttl <= 0 时使用 15 分钟
func NewPositionRedisRepository(c *cache.RedisCache, resolver domain.ReferenceResolver, ttl time.Duration) *PositionRedisRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PositionRedisRepository{
		cache:    c,
		resolver: resolver,
		prefix:   "position:",
		ttl:      ttl,
	}
}

func (r *PositionRedisRepository) Save(ctx context.Context, position *domain.Position) error {
	if position == nil || position.ID == "" {
		return nil
	}
	snap := positionSnapshot{
		ID:          position.ID,
		Exchange:    position.Exchange().Symbol(),
		Asset:       position.Asset().Symbol(),
		BasisUnit:   position.Asset().Basis().String(),
		VolumeCount: position.VolumeCount(),
	}
	if o := position.Order(); o != nil {
		snap.OrderID = o.ID
	}
	return r.cache.SetJSON(ctx, r.key(position.ID), snap, r.ttl)
}

// Get 未命中或快照已不符合当前目录时返回 nil, nil
func (r *PositionRedisRepository) Get(ctx context.Context, positionID string) (*domain.Position, error) {
	if positionID == "" {
		return nil, nil
	}
	var snap positionSnapshot
	hit, err := r.cache.GetJSON(ctx, r.key(positionID), &snap)
	if err != nil || !hit {
		return nil, err
	}

	exchange, err := r.resolver.Exchange(snap.Exchange)
	if err != nil {
		return nil, nil
	}
	asset, err := r.resolver.Asset(snap.Asset)
	if err != nil {
		return nil, nil
	}
	stored, err := quantity.ParseBasis(snap.BasisUnit)
	if err != nil || !stored.Equal(asset.Basis()) {
		return nil, nil
	}

	var order *domain.SpecificOrder
	if snap.OrderID != "" {
		order = &domain.SpecificOrder{ID: snap.OrderID}
	}
	return domain.RestorePosition(snap.ID, exchange, asset, snap.VolumeCount, order), nil
}

func (r *PositionRedisRepository) Delete(ctx context.Context, positionID string) error {
	return r.cache.Delete(ctx, r.key(positionID))
}

func (r *PositionRedisRepository) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}
