package mysql

import (
	"time"
)

// PositionModel 持仓表映射。
// 数量以 Basis 计数（BIGINT）存储，basis_unit 记录写入时的资产单位，
// 用于在资产目录变更单位后拒绝按新单位解释旧计数。
type PositionModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	PositionID  string    `gorm:"column:position_id;type:varchar(32);uniqueIndex;not null"`
	Exchange    string    `gorm:"column:exchange;type:varchar(32);uniqueIndex:idx_exchange_asset_order,priority:1;not null"`
	Asset       string    `gorm:"column:asset;type:varchar(32);uniqueIndex:idx_exchange_asset_order,priority:2;not null"`
	OrderID     string    `gorm:"column:order_id;type:varchar(64);uniqueIndex:idx_exchange_asset_order,priority:3;not null;default:''"`
	BasisUnit   string    `gorm:"column:basis_unit;type:varchar(64);not null"`
	VolumeCount int64     `gorm:"column:volume_count;type:bigint;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (PositionModel) TableName() string {
	return "positions"
}
