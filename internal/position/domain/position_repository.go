package domain

import "context"

// PositionRepository 持仓仓储接口 (写模型)
type PositionRepository interface {
	// WithTx 在事务中执行 fn，事务通过 ctx 传递给仓储与事件发布者
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Save 保存或更新持仓，新持仓需已分配 ID
	Save(ctx context.Context, position *Position) error
	// Get 根据持仓 ID 获取持仓，不存在时返回 nil, nil
	Get(ctx context.Context, positionID string) (*Position, error)
	// GetByKey 按 (交易所, 资产, 订单) 获取持仓，orderID 为空表示未冻结的持仓；
	// forUpdate 在事务内加行锁。不存在时返回 nil, nil
	GetByKey(ctx context.Context, exchange Exchange, asset Asset, orderID string, forUpdate bool) (*Position, error)
	// ListByExchange 分页获取交易所下的持仓，asset 为空时不过滤
	ListByExchange(ctx context.Context, exchange Exchange, asset string, limit, offset int) ([]*Position, int64, error)
	// Delete 删除持仓
	Delete(ctx context.Context, positionID string) error
}

// PositionReadRepository 持仓读模型缓存
// 仅用于按 ID 查询的缓存（读写分离）
type PositionReadRepository interface {
	Save(ctx context.Context, position *Position) error
	Get(ctx context.Context, positionID string) (*Position, error)
	Delete(ctx context.Context, positionID string) error
}
