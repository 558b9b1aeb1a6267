package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/metrics"
	"github.com/wyfcoding/ledger/pkg/quantity"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// PositionQueryService 处理所有持仓相关的查询操作（Queries）。
type PositionQueryService struct {
	repo          domain.PositionRepository
	resolver      domain.ReferenceResolver
	collector     metrics.Collector
	defaultPolicy quantity.RemainderPolicy
}

// NewPositionQueryService 构造函数。
func NewPositionQueryService(repo domain.PositionRepository, resolver domain.ReferenceResolver, collector metrics.Collector, defaultPolicy quantity.RemainderPolicy) *PositionQueryService {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if defaultPolicy == nil {
		defaultPolicy = quantity.ToHouse
	}
	return &PositionQueryService{repo: repo, resolver: resolver, collector: collector, defaultPolicy: defaultPolicy}
}

func (s *PositionQueryService) GetPosition(ctx context.Context, positionID string) (*PositionDTO, error) {
	pos, err := s.repo.Get(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("%s: %w", positionID, domain.ErrPositionNotFound)
	}
	return toPositionDTO(pos), nil
}

// GetPositionByKey 获取空闲持仓（orderID 为空）或某订单冻结的持仓
func (s *PositionQueryService) GetPositionByKey(ctx context.Context, exchangeSymbol, assetSymbol, orderID string) (*PositionDTO, error) {
	exchange, err := s.resolver.Exchange(exchangeSymbol)
	if err != nil {
		return nil, err
	}
	asset, err := s.resolver.Asset(assetSymbol)
	if err != nil {
		return nil, err
	}
	pos, err := s.repo.GetByKey(ctx, exchange, asset, orderID, false)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("%s/%s/%q: %w", exchange, asset, orderID, domain.ErrPositionNotFound)
	}
	return toPositionDTO(pos), nil
}

func (s *PositionQueryService) ListPositions(ctx context.Context, q ListPositionsQuery) ([]*PositionDTO, int64, error) {
	exchange, err := s.resolver.Exchange(q.Exchange)
	if err != nil {
		return nil, 0, err
	}
	asset := ""
	if q.Asset != "" {
		a, err := s.resolver.Asset(q.Asset)
		if err != nil {
			return nil, 0, err
		}
		asset = a.Symbol()
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := max(q.Offset, 0)

	positions, total, err := s.repo.ListByExchange(ctx, exchange, asset, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toPositionDTOs(positions), total, nil
}

// Convert 把数量换算到资产或指定单位的 Basis 上，返回计数与余数
func (s *PositionQueryService) Convert(ctx context.Context, q ConvertQuery) (*ConversionDTO, error) {
	amount, err := quantity.ParseAmount(q.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", ErrInvalidArgument, err)
	}

	var basis quantity.Basis
	switch {
	case q.Asset != "" && q.Unit != "":
		return nil, fmt.Errorf("asset and unit are mutually exclusive: %w", ErrInvalidArgument)
	case q.Asset != "":
		asset, err := s.resolver.Asset(q.Asset)
		if err != nil {
			return nil, err
		}
		basis = asset.Basis()
	case q.Unit != "":
		if basis, err = quantity.ParseBasis(q.Unit); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("asset or unit is required: %w", ErrInvalidArgument)
	}

	policy := s.defaultPolicy
	if q.Policy != "" {
		if policy, err = quantity.PolicyByName(q.Policy); err != nil {
			return nil, err
		}
	}

	d, remainder, err := amount.Split(basis, policy)
	if err != nil {
		return nil, err
	}
	s.collector.RecordConversion(policy.Name(), !remainder.IsZero())

	return &ConversionDTO{
		Amount:    amount.String(),
		Basis:     basis.String(),
		Policy:    policy.Name(),
		Count:     d.Count(),
		Discrete:  d.String(),
		Remainder: remainder.String(),
	}, nil
}
