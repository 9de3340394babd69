package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	paymentdomain "github.com/luminacare/checkout/internal/payment/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInternal       = errors.New("internal_error")
)

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
	var gatewayErr *paymentdomain.GatewayError
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrMissingOrderID),
		errors.Is(err, paymentdomain.ErrMissingAmount),
		errors.Is(err, paymentdomain.ErrInvalidAmount):
		return http.StatusBadRequest, errorPayload{Type: "validation", Message: err.Error()}
	case errors.Is(err, paymentdomain.ErrMissingSignature):
		// missing credential material for the resolved environment is a
		// deployment fault, not a caller fault
		return http.StatusInternalServerError, errorPayload{Type: "configuration", Message: err.Error()}
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway, errorPayload{Type: "gateway", Message: gatewayErr.Reason}
	case errors.Is(err, paymentdomain.ErrGatewayResponse):
		return http.StatusBadGateway, errorPayload{Type: "gateway", Message: err.Error()}
	case errors.Is(err, orderdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal", Message: ErrInternal.Error()}
	}
}
