// Package mysql 提供了持仓仓储接口的 GORM 实现（MySQL / SQLite）。
package mysql

import (
	"context"
	"fmt"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/logger"
	"github.com/wyfcoding/ledger/pkg/quantity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// positionRepositoryImpl 是 domain.PositionRepository 接口的 GORM 实现。
type positionRepositoryImpl struct {
	db       *db.DB
	resolver domain.ReferenceResolver
}

// NewPositionRepository 创建持仓仓储实例，resolver 用于恢复持仓时解析交易所与资产
func NewPositionRepository(database *db.DB, resolver domain.ReferenceResolver) domain.PositionRepository {
	return &positionRepositoryImpl{
		db:       database,
		resolver: resolver,
	}
}

// WithTx 实现 domain.PositionRepository.WithTx
func (r *positionRepositoryImpl) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// Save 实现 domain.PositionRepository.Save
func (r *positionRepositoryImpl) Save(ctx context.Context, position *domain.Position) error {
	if position == nil {
		return domain.ErrNilPosition
	}
	if position.ID == "" {
		return fmt.Errorf("save %s: position id is required", position)
	}

	conn := r.db.Conn(ctx)
	var existing PositionModel
	err := conn.Select("id").Where("position_id = ?", position.ID).Take(&existing).Error
	switch {
	case db.IsNotFound(err):
		model := fromDomain(position)
		if err := conn.Create(model).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return fmt.Errorf("create position %s: %w", position.ID, domain.ErrDuplicatePosition)
			}
			logger.Error(ctx, "position_repository.Save create failed", "position_id", position.ID, "error", err)
			return fmt.Errorf("failed to create position: %w", err)
		}
		return nil
	case err != nil:
		logger.Error(ctx, "position_repository.Save lookup failed", "position_id", position.ID, "error", err)
		return fmt.Errorf("failed to save position: %w", err)
	}

	err = conn.Model(&PositionModel{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"order_id":     orderID(position),
		"basis_unit":   position.Asset().Basis().String(),
		"volume_count": position.VolumeCount(),
	}).Error
	if err != nil {
		logger.Error(ctx, "position_repository.Save update failed", "position_id", position.ID, "error", err)
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

// Get 实现 domain.PositionRepository.Get
func (r *positionRepositoryImpl) Get(ctx context.Context, positionID string) (*domain.Position, error) {
	var model PositionModel
	if err := r.db.Conn(ctx).Where("position_id = ?", positionID).Take(&model).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		logger.Error(ctx, "position_repository.Get failed", "position_id", positionID, "error", err)
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return r.toDomain(&model)
}

// GetByKey 实现 domain.PositionRepository.GetByKey
func (r *positionRepositoryImpl) GetByKey(ctx context.Context, exchange domain.Exchange, asset domain.Asset, orderID string, forUpdate bool) (*domain.Position, error) {
	query := r.db.Conn(ctx).
		Where("exchange = ? AND asset = ? AND order_id = ?", exchange.Symbol(), asset.Symbol(), orderID)
	if forUpdate && r.supportsRowLock(query) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model PositionModel
	if err := query.Take(&model).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		logger.Error(ctx, "position_repository.GetByKey failed",
			"exchange", exchange.Symbol(), "asset", asset.Symbol(), "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to get position by key: %w", err)
	}
	return r.toDomain(&model)
}

// ListByExchange 实现 domain.PositionRepository.ListByExchange
func (r *positionRepositoryImpl) ListByExchange(ctx context.Context, exchange domain.Exchange, asset string, limit, offset int) ([]*domain.Position, int64, error) {
	query := r.db.Conn(ctx).Model(&PositionModel{}).Where("exchange = ?", exchange.Symbol())
	if asset != "" {
		query = query.Where("asset = ?", asset)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count positions: %w", err)
	}

	var models []PositionModel
	if err := query.Order("asset asc, order_id asc, id asc").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		logger.Error(ctx, "position_repository.ListByExchange failed", "exchange", exchange.Symbol(), "error", err)
		return nil, 0, fmt.Errorf("failed to list positions: %w", err)
	}

	positions := make([]*domain.Position, 0, len(models))
	for i := range models {
		p, err := r.toDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		positions = append(positions, p)
	}
	return positions, total, nil
}

// Delete 实现 domain.PositionRepository.Delete
func (r *positionRepositoryImpl) Delete(ctx context.Context, positionID string) error {
	if err := r.db.Conn(ctx).Where("position_id = ?", positionID).Delete(&PositionModel{}).Error; err != nil {
		logger.Error(ctx, "position_repository.Delete failed", "position_id", positionID, "error", err)
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// supportsRowLock SQLite 没有行级锁，单写者连接本身已串行化
func (r *positionRepositoryImpl) supportsRowLock(tx *gorm.DB) bool {
	return tx.Dialector.Name() != "sqlite"
}

func (r *positionRepositoryImpl) toDomain(m *PositionModel) (*domain.Position, error) {
	exchange, err := r.resolver.Exchange(m.Exchange)
	if err != nil {
		return nil, restoreError(m, err)
	}
	asset, err := r.resolver.Asset(m.Asset)
	if err != nil {
		return nil, restoreError(m, err)
	}
	stored, err := quantity.ParseBasis(m.BasisUnit)
	if err != nil {
		return nil, restoreError(m, err)
	}
	if !stored.Equal(asset.Basis()) {
		return nil, restoreError(m, fmt.Errorf("stored basis %s, catalog basis %s: %w",
			stored, asset.Basis(), quantity.ErrBasisMismatch))
	}

	var order *domain.SpecificOrder
	if m.OrderID != "" {
		order = &domain.SpecificOrder{ID: m.OrderID}
	}
	return domain.RestorePosition(m.PositionID, exchange, asset, m.VolumeCount, order), nil
}

// restoreError 行数据与目录不一致属于服务端数据问题，统一归为 ErrCorruptPosition
func restoreError(m *PositionModel, err error) error {
	return fmt.Errorf("restore position %s: %w: %w", m.PositionID, domain.ErrCorruptPosition, err)
}

func fromDomain(p *domain.Position) *PositionModel {
	return &PositionModel{
		PositionID:  p.ID,
		Exchange:    p.Exchange().Symbol(),
		Asset:       p.Asset().Symbol(),
		OrderID:     orderID(p),
		BasisUnit:   p.Asset().Basis().String(),
		VolumeCount: p.VolumeCount(),
	}
}

func orderID(p *domain.Position) string {
	if o := p.Order(); o != nil {
		return o.ID
	}
	return ""
}
