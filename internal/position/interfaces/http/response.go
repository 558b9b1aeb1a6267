package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ledger/internal/position/application"
	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/quantity"
)

// errorStatus 业务错误到 HTTP 状态码的映射，按顺序匹配
var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrCorruptPosition, http.StatusInternalServerError},
	{application.ErrInvalidArgument, http.StatusBadRequest},
	{domain.ErrInvalidReference, http.StatusBadRequest},
	{quantity.ErrInvalidBasis, http.StatusBadRequest},
	{quantity.ErrInexact, http.StatusBadRequest},
	{quantity.ErrUnknownPolicy, http.StatusBadRequest},
	{quantity.ErrAmountOutOfRange, http.StatusBadRequest},
	{quantity.ErrBasisMismatch, http.StatusBadRequest},
	{domain.ErrPositionNotFound, http.StatusNotFound},
	{domain.ErrExchangeNotFound, http.StatusNotFound},
	{domain.ErrAssetNotFound, http.StatusNotFound},
	{domain.ErrPositionReserved, http.StatusConflict},
	{domain.ErrPositionNotReserved, http.StatusConflict},
	{domain.ErrDuplicatePosition, http.StatusConflict},
	{domain.ErrInsufficientVolume, http.StatusUnprocessableEntity},
	{quantity.ErrArithmeticOverflow, http.StatusUnprocessableEntity},
}

func statusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
}

func errorWithStatus(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message})
}
