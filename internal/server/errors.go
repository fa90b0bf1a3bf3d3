package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/configaction"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"github.com/smallbiznis/netbill/pkg/db"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, resellerdomain.ErrNotFound),
		errors.Is(err, configdomain.ErrNotFound),
		errors.Is(err, billingdomain.ErrResellerNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, resellerdomain.ErrInvalidAmount),
		errors.Is(err, resellerdomain.ErrInvalidID),
		errors.Is(err, configdomain.ErrInvalidID):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	case errors.Is(err, configaction.ErrSettlementInProgress):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "duplicate resource"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
