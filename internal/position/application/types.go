package application

import (
	"github.com/wyfcoding/ledger/internal/position/domain"
)

// CreditCommand 入账命令，Amount 可为负（出账）
type CreditCommand struct {
	Exchange string
	Asset    string
	Amount   string
}

// ReserveCommand 冻结命令。Amount 为空时冻结整个持仓，否则从空闲持仓中拆出该数量；
// 拆分数量必须能被资产 Basis 精确表示。
type ReserveCommand struct {
	PositionID string
	OrderID    string
	Amount     string
}

// ListPositionsQuery 分页查询
type ListPositionsQuery struct {
	Exchange string
	Asset    string
	Limit    int
	Offset   int
}

// ConvertQuery 数量换算请求，Asset 与 Unit 二选一，Policy 为空时使用默认策略
type ConvertQuery struct {
	Amount string
	Asset  string
	Unit   string
	Policy string
}

// PositionDTO 持仓 DTO
type PositionDTO struct {
	PositionID  string `json:"position_id"`
	Exchange    string `json:"exchange"`
	Asset       string `json:"asset"`
	Basis       string `json:"basis"`
	VolumeCount int64  `json:"volume_count"`
	Volume      string `json:"volume"`
	OrderID     string `json:"order_id,omitempty"`
	Reserved    bool   `json:"reserved"`
}

// CreditResult 入账结果。Position 为 nil 表示入账后持仓为空已回收（或从未建立）
type CreditResult struct {
	Position *PositionDTO `json:"position"`
	// 实际入账的计数
	CreditedCount int64 `json:"credited_count"`
	// 换算时留给平台的余数
	Remainder string `json:"remainder"`
	Disposed  bool   `json:"disposed"`
}

// ConversionDTO 换算结果，满足 count × basis + remainder == amount
type ConversionDTO struct {
	Amount    string `json:"amount"`
	Basis     string `json:"basis"`
	Policy    string `json:"policy"`
	Count     int64  `json:"count"`
	Discrete  string `json:"discrete"`
	Remainder string `json:"remainder"`
}

func toPositionDTO(p *domain.Position) *PositionDTO {
	if p == nil {
		return nil
	}
	dto := holdingDTO(p)
	dto.PositionID = p.ID
	dto.VolumeCount = p.VolumeCount()
	if o := p.Order(); o != nil {
		dto.OrderID = o.ID
		dto.Reserved = true
	}
	return dto
}

// holdingDTO 只依赖 Holding 视图的字段
func holdingDTO(h domain.Holding) *PositionDTO {
	return &PositionDTO{
		Exchange: h.Exchange().Symbol(),
		Asset:    h.Asset().Symbol(),
		Basis:    h.Asset().Basis().String(),
		Volume:   h.Volume().String(),
	}
}

func toPositionDTOs(positions []*domain.Position) []*PositionDTO {
	dtos := make([]*PositionDTO, 0, len(positions))
	for _, p := range positions {
		dtos = append(dtos, toPositionDTO(p))
	}
	return dtos
}
