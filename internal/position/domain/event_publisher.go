package domain

import "context"

// EventPublisher 事件发布者接口。
// 实现需在 ctx 携带的事务中写入（Outbox），保证事件与持仓变更同时提交。
type EventPublisher interface {
	PublishInTx(ctx context.Context, eventType string, aggregateID string, event any) error
}
