package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/metrics"
	"github.com/wyfcoding/ledger/pkg/quantity"
	"github.com/wyfcoding/pkg/idgen"
)

// Options PositionService 可选依赖
type Options struct {
	Collector     metrics.Collector
	DefaultPolicy quantity.RemainderPolicy
	// NewID 持仓 ID 生成器，默认使用 idgen
	NewID func() string
}

// PositionService 持仓服务门面，整合命令和查询服务
type PositionService struct {
	Command *PositionCommandService
	Query   *PositionQueryService
}

// NewPositionService 构造函数
func NewPositionService(repo domain.PositionRepository, publisher domain.EventPublisher, resolver domain.ReferenceResolver, opts Options) *PositionService {
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return fmt.Sprintf("POS%d", idgen.GenID()) }
	}
	return &PositionService{
		Command: NewPositionCommandService(repo, publisher, resolver, opts.Collector, newID),
		Query:   NewPositionQueryService(repo, resolver, opts.Collector, opts.DefaultPolicy),
	}
}

// --- Command (Writes) ---

func (s *PositionService) Credit(ctx context.Context, cmd CreditCommand) (*CreditResult, error) {
	return s.Command.Credit(ctx, cmd)
}

func (s *PositionService) Reserve(ctx context.Context, cmd ReserveCommand) (*PositionDTO, error) {
	return s.Command.Reserve(ctx, cmd)
}

func (s *PositionService) Release(ctx context.Context, positionID string) (*PositionDTO, error) {
	return s.Command.Release(ctx, positionID)
}

// --- Query (Reads) ---

func (s *PositionService) GetPosition(ctx context.Context, positionID string) (*PositionDTO, error) {
	return s.Query.GetPosition(ctx, positionID)
}

func (s *PositionService) GetPositionByKey(ctx context.Context, exchange, asset, orderID string) (*PositionDTO, error) {
	return s.Query.GetPositionByKey(ctx, exchange, asset, orderID)
}

func (s *PositionService) ListPositions(ctx context.Context, q ListPositionsQuery) ([]*PositionDTO, int64, error) {
	return s.Query.ListPositions(ctx, q)
}

func (s *PositionService) Convert(ctx context.Context, q ConvertQuery) (*ConversionDTO, error) {
	return s.Query.Convert(ctx, q)
}
