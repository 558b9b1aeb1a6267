package domain

import "time"

const (
	PositionOpenedEventType   = "PositionOpened"
	PositionMergedEventType   = "PositionMerged"
	PositionReservedEventType = "PositionReserved"
	PositionReleasedEventType = "PositionReleased"
	PositionDisposedEventType = "PositionDisposed"
)

// PositionOpenedEvent 新建持仓事件
type PositionOpenedEvent struct {
	PositionID  string    `json:"position_id"`
	Exchange    string    `json:"exchange"`
	Asset       string    `json:"asset"`
	VolumeCount int64     `json:"volume_count"`
	Volume      string    `json:"volume"`
	OrderID     string    `json:"order_id,omitempty"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// PositionMergedEvent 持仓合并事件
type PositionMergedEvent struct {
	PositionID     string    `json:"position_id"`
	Exchange       string    `json:"exchange"`
	Asset          string    `json:"asset"`
	OldVolumeCount int64     `json:"old_volume_count"`
	DeltaCount     int64     `json:"delta_count"`
	NewVolumeCount int64     `json:"new_volume_count"`
	Volume         string    `json:"volume"`
	OccurredOn     time.Time `json:"occurred_on"`
}

// PositionReservedEvent 持仓冻结事件
type PositionReservedEvent struct {
	PositionID  string    `json:"position_id"`
	Exchange    string    `json:"exchange"`
	Asset       string    `json:"asset"`
	OrderID     string    `json:"order_id"`
	VolumeCount int64     `json:"volume_count"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// PositionReleasedEvent 持仓解冻事件
type PositionReleasedEvent struct {
	PositionID  string    `json:"position_id"`
	Exchange    string    `json:"exchange"`
	Asset       string    `json:"asset"`
	OrderID     string    `json:"order_id"`
	VolumeCount int64     `json:"volume_count"`
	MergedInto  string    `json:"merged_into,omitempty"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// PositionDisposedEvent 空持仓回收事件
type PositionDisposedEvent struct {
	PositionID string    `json:"position_id"`
	Exchange   string    `json:"exchange"`
	Asset      string    `json:"asset"`
	OccurredOn time.Time `json:"occurred_on"`
}
