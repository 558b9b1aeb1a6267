package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/logger"
	"github.com/wyfcoding/ledger/pkg/metrics"
	"github.com/wyfcoding/ledger/pkg/quantity"
)

// PositionCommandService 处理持仓相关的命令操作
// 每个命令在一个事务内完成 加锁读取 - 合并 - 保存 - 写 Outbox
type PositionCommandService struct {
	repo           domain.PositionRepository
	eventPublisher domain.EventPublisher
	resolver       domain.ReferenceResolver
	collector      metrics.Collector
	newID          func() string
}

// NewPositionCommandService 创建新的 PositionCommandService 实例
func NewPositionCommandService(
	repo domain.PositionRepository,
	eventPublisher domain.EventPublisher,
	resolver domain.ReferenceResolver,
	collector metrics.Collector,
	newID func() string,
) *PositionCommandService {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &PositionCommandService{
		repo:           repo,
		eventPublisher: eventPublisher,
		resolver:       resolver,
		collector:      collector,
		newID:          newID,
	}
}

// Credit 按 TO_HOUSE 策略把数量换算为资产计数后并入空闲持仓；
// 不存在空闲持仓时新建。出账后空闲数量不能为负，归零的持仓被回收。
func (c *PositionCommandService) Credit(ctx context.Context, cmd CreditCommand) (*CreditResult, error) {
	exchange, err := c.resolver.Exchange(cmd.Exchange)
	if err != nil {
		return nil, err
	}
	asset, err := c.resolver.Asset(cmd.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := quantity.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", ErrInvalidArgument, err)
	}
	credited, remainder, err := amount.Split(asset.Basis(), quantity.ToHouse)
	if err != nil {
		return nil, err
	}
	incoming, err := domain.NewPosition(exchange, asset, amount)
	if err != nil {
		return nil, err
	}

	result := &CreditResult{CreditedCount: credited.Count(), Remainder: remainder.String()}
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		free, err := c.repo.GetByKey(txCtx, exchange, asset, "", true)
		if err != nil {
			return err
		}

		if free == nil {
			if incoming.VolumeCount() < 0 {
				return fmt.Errorf("debit %s from empty %s/%s: %w", credited, exchange, asset, domain.ErrInsufficientVolume)
			}
			if incoming.Disposable() {
				return nil
			}
			incoming.ID = c.newID()
			if err := c.repo.Save(txCtx, incoming); err != nil {
				return err
			}
			result.Position = toPositionDTO(incoming)
			return c.eventPublisher.PublishInTx(txCtx, domain.PositionOpenedEventType, incoming.ID, domain.PositionOpenedEvent{
				PositionID:  incoming.ID,
				Exchange:    exchange.Symbol(),
				Asset:       asset.Symbol(),
				VolumeCount: incoming.VolumeCount(),
				Volume:      incoming.Volume().String(),
				OccurredOn:  time.Now(),
			})
		}

		if incoming.VolumeCount() == 0 {
			result.Position = toPositionDTO(free)
			return nil
		}

		oldCount := free.VolumeCount()
		if err := c.merge(free, incoming); err != nil {
			return err
		}
		if free.VolumeCount() < 0 {
			return fmt.Errorf("debit %s from %s: %w", credited, free.ID, domain.ErrInsufficientVolume)
		}

		if err := c.publishMerged(txCtx, free, oldCount, incoming.VolumeCount()); err != nil {
			return err
		}
		if free.Disposable() {
			result.Disposed = true
			return c.dispose(txCtx, free)
		}
		if err := c.repo.Save(txCtx, free); err != nil {
			return err
		}
		result.Position = toPositionDTO(free)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "position credited",
		"exchange", exchange.Symbol(),
		"asset", asset.Symbol(),
		"amount", amount.String(),
		"credited_count", credited.Count(),
		"remainder", remainder.String(),
	)
	return result, nil
}

// Reserve 冻结持仓。整笔冻结直接关联订单；部分冻结从空闲持仓拆出精确数量，
// 同一订单已有冻结持仓时并入该持仓。
func (c *PositionCommandService) Reserve(ctx context.Context, cmd ReserveCommand) (*PositionDTO, error) {
	order, err := domain.NewSpecificOrder(cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	var reserved *domain.Position
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		free, err := c.lock(txCtx, cmd.PositionID)
		if err != nil {
			return err
		}
		if free.IsReserved() {
			return fmt.Errorf("reserve %s for %s: held by %s: %w", free.ID, order.ID, free.Order().ID, domain.ErrPositionReserved)
		}

		count := free.VolumeCount()
		if cmd.Amount != "" {
			if count, err = c.exactCount(cmd.Amount, free.Asset()); err != nil {
				return err
			}
		}
		if count <= 0 {
			return fmt.Errorf("reserve %d from %s: %w", count, free.ID, ErrInvalidArgument)
		}
		if count > free.VolumeCount() {
			return fmt.Errorf("reserve %d from %s holding %d: %w", count, free.ID, free.VolumeCount(), domain.ErrInsufficientVolume)
		}

		existing, err := c.repo.GetByKey(txCtx, free.Exchange(), free.Asset(), order.ID, true)
		if err != nil {
			return err
		}

		switch {
		case count == free.VolumeCount() && existing == nil:
			if err := free.Reserve(order); err != nil {
				return err
			}
			if err := c.repo.Save(txCtx, free); err != nil {
				return err
			}
			reserved = free
		default:
			portion := domain.RestorePosition("", free.Exchange(), free.Asset(), count, nil)
			taken := domain.RestorePosition("", free.Exchange(), free.Asset(), -count, nil)
			if err := c.merge(free, taken); err != nil {
				return err
			}
			if free.Disposable() {
				if err := c.dispose(txCtx, free); err != nil {
					return err
				}
			} else if err := c.repo.Save(txCtx, free); err != nil {
				return err
			}

			if existing != nil {
				if err := c.merge(existing, portion); err != nil {
					return err
				}
				reserved = existing
			} else {
				portion.ID = c.newID()
				if err := portion.Reserve(order); err != nil {
					return err
				}
				reserved = portion
			}
			if err := c.repo.Save(txCtx, reserved); err != nil {
				return err
			}
		}

		c.collector.RecordReservation("reserve")
		return c.eventPublisher.PublishInTx(txCtx, domain.PositionReservedEventType, reserved.ID, domain.PositionReservedEvent{
			PositionID:  reserved.ID,
			Exchange:    reserved.Exchange().Symbol(),
			Asset:       reserved.Asset().Symbol(),
			OrderID:     order.ID,
			VolumeCount: count,
			OccurredOn:  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "position reserved", "position_id", reserved.ID, "order_id", order.ID)
	return toPositionDTO(reserved), nil
}

// Release 解除冻结，存在空闲持仓时并入并删除冻结持仓，返回解冻后的空闲持仓
func (c *PositionCommandService) Release(ctx context.Context, positionID string) (*PositionDTO, error) {
	var released *domain.Position
	err := c.repo.WithTx(ctx, func(txCtx context.Context) error {
		p, err := c.lock(txCtx, positionID)
		if err != nil {
			return err
		}
		order, err := p.Release()
		if err != nil {
			return err
		}

		free, err := c.repo.GetByKey(txCtx, p.Exchange(), p.Asset(), "", true)
		if err != nil {
			return err
		}

		event := domain.PositionReleasedEvent{
			PositionID:  p.ID,
			Exchange:    p.Exchange().Symbol(),
			Asset:       p.Asset().Symbol(),
			OrderID:     order.ID,
			VolumeCount: p.VolumeCount(),
			OccurredOn:  time.Now(),
		}

		if free == nil {
			if err := c.repo.Save(txCtx, p); err != nil {
				return err
			}
			released = p
		} else {
			if err := c.merge(free, p); err != nil {
				return err
			}
			if err := c.repo.Delete(txCtx, p.ID); err != nil {
				return err
			}
			if err := c.repo.Save(txCtx, free); err != nil {
				return err
			}
			event.MergedInto = free.ID
			released = free
		}

		c.collector.RecordReservation("release")
		return c.eventPublisher.PublishInTx(txCtx, domain.PositionReleasedEventType, p.ID, event)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "position released", "position_id", positionID, "into", released.ID)
	return toPositionDTO(released), nil
}

// lock 按 ID 定位持仓，再按唯一键加行锁重新读取
func (c *PositionCommandService) lock(ctx context.Context, positionID string) (*domain.Position, error) {
	if positionID == "" {
		return nil, fmt.Errorf("position id is required: %w", ErrInvalidArgument)
	}
	p, err := c.repo.Get(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", positionID, domain.ErrPositionNotFound)
	}

	orderID := ""
	if o := p.Order(); o != nil {
		orderID = o.ID
	}
	locked, err := c.repo.GetByKey(ctx, p.Exchange(), p.Asset(), orderID, true)
	if err != nil {
		return nil, err
	}
	if locked == nil || locked.ID != positionID {
		return nil, fmt.Errorf("%s changed concurrently: %w", positionID, domain.ErrPositionNotFound)
	}
	return locked, nil
}

// merge 合并并记录指标，键不匹配视为程序错误
func (c *PositionCommandService) merge(into, other *domain.Position) error {
	res, err := into.Merge(other)
	if err != nil {
		c.collector.RecordMerge("OVERFLOW")
		return err
	}
	c.collector.RecordMerge(res.Status.String())
	if !res.Applied() {
		return fmt.Errorf("merge %s into %s: %s", other, into, res.Status)
	}
	return nil
}

func (c *PositionCommandService) dispose(ctx context.Context, p *domain.Position) error {
	if err := c.repo.Delete(ctx, p.ID); err != nil {
		return err
	}
	return c.eventPublisher.PublishInTx(ctx, domain.PositionDisposedEventType, p.ID, domain.PositionDisposedEvent{
		PositionID: p.ID,
		Exchange:   p.Exchange().Symbol(),
		Asset:      p.Asset().Symbol(),
		OccurredOn: time.Now(),
	})
}

func (c *PositionCommandService) publishMerged(ctx context.Context, p *domain.Position, oldCount, delta int64) error {
	return c.eventPublisher.PublishInTx(ctx, domain.PositionMergedEventType, p.ID, domain.PositionMergedEvent{
		PositionID:     p.ID,
		Exchange:       p.Exchange().Symbol(),
		Asset:          p.Asset().Symbol(),
		OldVolumeCount: oldCount,
		DeltaCount:     delta,
		NewVolumeCount: p.VolumeCount(),
		Volume:         p.Volume().String(),
		OccurredOn:     time.Now(),
	})
}

func (c *PositionCommandService) exactCount(raw string, asset domain.Asset) (int64, error) {
	amount, err := quantity.ParseAmount(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: amount: %v", ErrInvalidArgument, err)
	}
	d, err := amount.ToBasis(asset.Basis(), quantity.Exact)
	if err != nil {
		return 0, err
	}
	return d.Count(), nil
}
