package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/ledger/pkg/db"
	"github.com/wyfcoding/ledger/pkg/logger"
	"github.com/wyfcoding/ledger/pkg/metrics"
	"github.com/wyfcoding/ledger/pkg/mq"
	"gorm.io/gorm"
)

// Sender 消息投递端，由 mq.KafkaProducer 实现
type Sender interface {
	Send(ctx context.Context, messages ...mq.Message) error
}

// RelayConfig Outbox 投递配置
type RelayConfig struct {
	Topic     string
	Interval  time.Duration
	BatchSize int
	// 已投递消息保留时长，<= 0 时不清理
	Retention time.Duration
}

// OutboxRelay 按创建顺序批量把待投递消息发送到 Kafka，成功后标记为已发送。
// 投递为至少一次语义，消费者需按事件 ID 幂等。
type OutboxRelay struct {
	db        *db.DB
	sender    Sender
	cfg       RelayConfig
	collector metrics.Collector
}

// NewOutboxRelay 创建投递器
func NewOutboxRelay(database *db.DB, sender Sender, cfg RelayConfig, collector metrics.Collector) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &OutboxRelay{db: database, sender: sender, cfg: cfg, collector: collector}
}

// Run 周期投递直到 ctx 取消
func (r *OutboxRelay) Run(ctx context.Context) error {
	logger.Info(ctx, "outbox relay started", "topic", r.cfg.Topic, "interval", r.cfg.Interval)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	lastCleanup := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "outbox relay stopped")
			return nil
		case <-ticker.C:
			done := logger.LogDuration(ctx, "outbox relay round", "topic", r.cfg.Topic)
			sent, err := r.RelayOnce(ctx)
			done("sent", sent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn(ctx, "outbox relay round failed", "error", err)
			}
			if r.cfg.Retention > 0 && time.Since(lastCleanup) > time.Hour {
				if err := r.Cleanup(ctx, time.Now().Add(-r.cfg.Retention)); err != nil {
					logger.Warn(ctx, "outbox cleanup failed", "error", err)
				}
				lastCleanup = time.Now()
			}
		}
	}
}

// RelayOnce 投递一批待发送消息，返回成功投递的条数
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	var messages []OutboxMessage
	if err := r.db.Conn(ctx).
		Where("status = ?", OutboxStatusPending).
		Order("id asc").
		Limit(r.cfg.BatchSize).
		Find(&messages).Error; err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		r.collector.SetOutboxPending(0)
		return 0, nil
	}

	batch := make([]mq.Message, len(messages))
	ids := make([]uint64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
		batch[i] = mq.Message{
			Topic: r.cfg.Topic,
			Key:   m.AggregateID,
			Value: []byte(m.Payload),
			Headers: map[string]string{
				"event_id":   m.EventID,
				"event_type": m.EventType,
			},
		}
	}

	if err := r.sender.Send(ctx, batch...); err != nil {
		r.collector.RecordOutbox("failed", len(messages))
		errMsg := err.Error()
		if len(errMsg) > 512 {
			errMsg = errMsg[:512]
		}
		updateErr := r.db.Conn(ctx).Model(&OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": errMsg,
			}).Error
		return 0, errors.Join(err, updateErr)
	}

	if err := r.db.Conn(ctx).Model(&OutboxMessage{}).
		Where("id IN ?", ids).
		Update("status", OutboxStatusSent).Error; err != nil {
		return 0, err
	}
	r.collector.RecordOutbox("sent", len(messages))

	var pending int64
	if err := r.db.Conn(ctx).Model(&OutboxMessage{}).Where("status = ?", OutboxStatusPending).Count(&pending).Error; err == nil {
		r.collector.SetOutboxPending(pending)
	}

	logger.Debug(ctx, "outbox batch relayed", "count", len(messages))
	return len(messages), nil
}

// Cleanup 删除 before 之前已投递的消息
func (r *OutboxRelay) Cleanup(ctx context.Context, before time.Time) error {
	return r.db.Conn(ctx).
		Where("status = ? AND updated_at < ?", OutboxStatusSent, before).
		Delete(&OutboxMessage{}).Error
}
