// Package messaging 提供基于 Outbox 模式的领域事件发布与 Kafka 投递
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/logger"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
)

// OutboxMessage 待投递的事件
type OutboxMessage struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	EventID     string    `gorm:"type:varchar(36);uniqueIndex"`
	AggregateID string    `gorm:"type:varchar(32);index"`
	EventType   string    `gorm:"type:varchar(100);index"`
	Payload     string    `gorm:"type:text"`
	Status      string    `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts    int       `gorm:"not null;default:0"`
	LastError   string    `gorm:"type:varchar(512)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "position_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，事件写入 ctx 中的事务
type OutboxEventPublisher struct {
	db *db.DB
}

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例
func NewOutboxEventPublisher(database *db.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: database}
}

// PublishInTx 序列化事件并写入 Outbox 表，必须在事务中调用
func (p *OutboxEventPublisher) PublishInTx(ctx context.Context, eventType string, aggregateID string, event any) error {
	if !db.InTx(ctx) {
		return fmt.Errorf("publish %s for %s: outbox write requires a transaction", eventType, aggregateID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	now := time.Now()
	message := OutboxMessage{
		EventID:     uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     string(payload),
		Status:      OutboxStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.db.Conn(ctx).Create(&message).Error; err != nil {
		logger.Error(ctx, "outbox write failed", "event_type", eventType, "aggregate_id", aggregateID, "error", err)
		return fmt.Errorf("failed to write outbox message: %w", err)
	}
	return nil
}
