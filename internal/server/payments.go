package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/luminacare/checkout/internal/payment/domain"
	"go.uber.org/zap"
)

type initiateResponse struct {
	Success     bool   `json:"success"`
	PaymentURL  string `json:"paymentUrl,omitempty"`
	OrderID     string `json:"orderId"`
	Environment string `json:"environment"`
}

func (s *Server) HandleInitiatePayment(c *gin.Context) {
	allowed, err := s.limiter.AllowClient(c.Request.Context(), c.ClientIP())
	if err != nil {
		// limiter outage must not block checkout
		s.log.Warn("rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		AbortWithError(c, ErrRateLimited)
		return
	}

	var params paymentdomain.InitiateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	outcome, err := s.paymentSvc.Initiate(c.Request.Context(), c.Request.Host, params)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch outcome.Kind {
	case paymentdomain.OutcomeHTMLForm:
		// the processor answered with its own 3-D Secure document; hand it
		// to the browser untouched
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(outcome.HTML))
	default:
		c.JSON(http.StatusOK, initiateResponse{
			Success:     true,
			PaymentURL:  outcome.PaymentURL,
			OrderID:     params.OrderID,
			Environment: string(outcome.Environment),
		})
	}
}
