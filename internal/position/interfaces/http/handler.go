package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ledger/internal/position/application"
	"github.com/wyfcoding/ledger/pkg/logger"
)

// PositionHandler 持仓 HTTP 处理器
type PositionHandler struct {
	positionService *application.PositionService
}

// NewPositionHandler 创建 HTTP 处理器
func NewPositionHandler(positionService *application.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// RegisterRoutes 注册路由
func (h *PositionHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/positions")
	{
		api.GET("", h.ListPositions)
		api.POST("/credit", h.Credit)
		api.GET("/by-key", h.GetPositionByKey)
		api.GET("/:id", h.GetPosition)
		api.POST("/:id/reserve", h.Reserve)
		api.POST("/:id/release", h.Release)
	}
	router.POST("/api/v1/quantities/convert", h.Convert)
}

type creditRequest struct {
	Exchange string `json:"exchange" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

type reserveRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Amount  string `json:"amount"`
}

type convertRequest struct {
	Amount string `json:"amount" binding:"required"`
	Asset  string `json:"asset"`
	Unit   string `json:"unit"`
	Policy string `json:"policy"`
}

// Credit 入账（Amount 为负时出账）
func (h *PositionHandler) Credit(c *gin.Context) {
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.positionService.Credit(c.Request.Context(), application.CreditCommand{
		Exchange: req.Exchange,
		Asset:    req.Asset,
		Amount:   req.Amount,
	})
	if err != nil {
		h.fail(c, "Failed to credit position", err, "exchange", req.Exchange, "asset", req.Asset, "amount", clip(req.Amount))
		return
	}
	success(c, res)
}

// GetPosition 获取持仓详情
func (h *PositionHandler) GetPosition(c *gin.Context) {
	dto, err := h.positionService.GetPosition(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get position", err, "position_id", c.Param("id"))
		return
	}
	success(c, dto)
}

// GetPositionByKey 按 (exchange, asset, order_id) 获取持仓，order_id 为空时返回空闲持仓
func (h *PositionHandler) GetPositionByKey(c *gin.Context) {
	exchange, asset := c.Query("exchange"), c.Query("asset")
	if exchange == "" || asset == "" {
		errorWithStatus(c, http.StatusBadRequest, "exchange and asset are required")
		return
	}
	orderID := c.Query("order_id")
	dto, err := h.positionService.GetPositionByKey(c.Request.Context(), exchange, asset, orderID)
	if err != nil {
		h.fail(c, "Failed to get position by key", err, "exchange", exchange, "asset", asset, "order_id", clip(orderID))
		return
	}
	success(c, dto)
}

// ListPositions 分页获取交易所下的持仓
func (h *PositionHandler) ListPositions(c *gin.Context) {
	exchange := c.Query("exchange")
	if exchange == "" {
		errorWithStatus(c, http.StatusBadRequest, "exchange is required")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		errorWithStatus(c, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		errorWithStatus(c, http.StatusBadRequest, "invalid offset")
		return
	}

	dtos, total, err := h.positionService.ListPositions(c.Request.Context(), application.ListPositionsQuery{
		Exchange: exchange,
		Asset:    c.Query("asset"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.fail(c, "Failed to list positions", err, "exchange", exchange)
		return
	}
	success(c, gin.H{"items": dtos, "total": total})
}

// Reserve 冻结持仓
func (h *PositionHandler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	dto, err := h.positionService.Reserve(c.Request.Context(), application.ReserveCommand{
		PositionID: c.Param("id"),
		OrderID:    req.OrderID,
		Amount:     req.Amount,
	})
	if err != nil {
		h.fail(c, "Failed to reserve position", err, "position_id", c.Param("id"), "order_id", req.OrderID)
		return
	}
	success(c, dto)
}

// Release 解除冻结
func (h *PositionHandler) Release(c *gin.Context) {
	dto, err := h.positionService.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to release position", err, "position_id", c.Param("id"))
		return
	}
	success(c, dto)
}

// Convert 数量换算
func (h *PositionHandler) Convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	dto, err := h.positionService.Convert(c.Request.Context(), application.ConvertQuery{
		Amount: req.Amount,
		Asset:  req.Asset,
		Unit:   req.Unit,
		Policy: req.Policy,
	})
	if err != nil {
		h.fail(c, "Failed to convert amount", err, "amount", clip(req.Amount))
		return
	}
	success(c, dto)
}

// fail 按错误类型返回状态码，5xx 记录 error 日志
func (h *PositionHandler) fail(c *gin.Context, msg string, err error, args ...any) {
	status := statusOf(err)
	args = append(args, "error", err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, args...)
		errorWithStatus(c, status, "internal error")
		return
	}
	logger.Warn(c.Request.Context(), msg, args...)
	errorWithStatus(c, status, err.Error())
}

// clip 截断写入日志的客户端输入
func clip(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
