package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// webhookAck is the fixed acknowledgment the processor expects. Anything
// else makes it redeliver indefinitely.
var webhookAck = gin.H{"errorCode": 0, "message": "success"}

// HandleCardWebhook ingests the processor's asynchronous callback. The
// response is always 200/success no matter what arrives: processing is best
// effort and every internal failure is logged, never surfaced to the
// processor.
func (s *Server) HandleCardWebhook(c *gin.Context) {
	defer c.JSON(http.StatusOK, webhookAck)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.log.Error("webhook body unreadable", zap.Error(err))
		return
	}

	ev, err := s.notificationSvc.Normalize(c.ContentType(), body, c.Request.URL.Query())
	if err != nil {
		s.log.Warn("webhook rejected during normalization",
			zap.Error(err),
			zap.Int("body_bytes", len(body)),
			zap.String("content_type", c.ContentType()))
		return
	}

	if err := s.notificationSvc.Process(c.Request.Context(), ev); err != nil {
		s.log.Error("webhook processing failed, acknowledged anyway",
			zap.String("order_id", ev.OrderID),
			zap.String("transaction_id", ev.ProviderTransactionID),
			zap.Error(err))
	}
}
