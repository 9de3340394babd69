package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	confirmdomain "github.com/luminacare/checkout/internal/confirm/domain"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"github.com/luminacare/checkout/internal/recovery"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// lastOrderCookie is the side-channel cookie the storefront sets before the
// processor redirect.
const lastOrderCookie = "lc_last_order"

type saveOrderRequest struct {
	orderdomain.Record
	EntityType string `json:"entityType"`
	OwnerID    string `json:"ownerId"`
}

// HandleSaveOrder persists the order document before the browser leaves for
// the processor. This is what the last-resort recovery tier reads back.
func (s *Server) HandleSaveOrder(c *gin.Context) {
	var req saveOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.OrderNumber) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	items, err := json.Marshal(req.Items)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order := &accountdomain.AccountOrder{
		OrderNumber:     req.OrderNumber,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		CustomerCity:    req.CustomerCity,
		CustomerCounty:  req.CustomerCounty,
		TotalAmount:     req.TotalAmount,
		Items:           datatypes.JSON(items),
		PaymentMethod:   req.PaymentMethod,
		Status:          accountdomain.StatusPending,
		EntityType:      req.EntityType,
		OwnerID:         req.OwnerID,
		Verified:        req.IsVerifiedCustomerData,
	}
	if err := s.accounts.Upsert(c.Request.Context(), order); err != nil {
		s.log.Error("order save failed", zap.String("order_id", req.OrderNumber), zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": req.OrderNumber})
}

type recoverRequest struct {
	OrderID string `json:"orderId"`
	recovery.ClientSnapshot
}

type recoverResponse struct {
	Success   bool                `json:"success"`
	OrderData *orderdomain.Record `json:"orderData,omitempty"`
	Tier      string              `json:"tier,omitempty"`
}

// HandleRecoverOrder reconstructs an order after the redirect round-trip.
// The browser posts back whatever client state survived; a miss is a normal
// outcome answered with success:false, not an error.
func (s *Server) HandleRecoverOrder(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snap := req.ClientSnapshot
	if cookie, err := c.Cookie(lastOrderCookie); err == nil {
		snap.Cookie = cookie
	}

	s.respondRecovery(c, req.OrderID, snap)
}

// HandleRemoteRecovery serves the last-resort tier directly: no client state
// travels with a bare GET, so only the account store can answer.
func (s *Server) HandleRemoteRecovery(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))
	if orderID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snap := recovery.ClientSnapshot{}
	if cookie, err := c.Cookie(lastOrderCookie); err == nil {
		snap.Cookie = cookie
	}

	s.respondRecovery(c, orderID, snap)
}

func (s *Server) respondRecovery(c *gin.Context, orderID string, snap recovery.ClientSnapshot) {
	res, err := s.cascade.Resolve(c.Request.Context(), orderID, snap)
	if err != nil {
		if errors.Is(err, orderdomain.ErrNotFound) {
			c.JSON(http.StatusOK, recoverResponse{Success: false})
			return
		}
		s.log.Error("recovery failed", zap.String("order_id", orderID), zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, recoverResponse{
		Success:   true,
		OrderData: res.Record,
		Tier:      res.Tier,
	})
}

type confirmRequest struct {
	Order orderdomain.Record `json:"order"`
}

type confirmResponse struct {
	Success              bool   `json:"success"`
	OrderID              string `json:"orderId"`
	IsBackupNotification bool   `json:"isBackupNotification"`
	Duplicate            bool   `json:"duplicate"`
	CustomerEmailSent    bool   `json:"customerEmailSent"`
	AdminEmailSent       bool   `json:"adminEmailSent"`
}

// HandleConfirmOrder fires the confirmation emails for a recovered order.
// A record that lost its customer details still succeeds, degraded to an
// admin-only backup notification.
func (s *Server) HandleConfirmOrder(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Order.OrderNumber) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	summary, err := s.dispatcher.Dispatch(c.Request.Context(), &req.Order, confirmdomain.SourceRecovery)
	if err != nil {
		s.log.Error("confirmation dispatch failed",
			zap.String("order_id", req.Order.OrderNumber), zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, confirmResponse{
		Success:              true,
		OrderID:              summary.OrderNumber,
		IsBackupNotification: summary.IsBackupNotification,
		Duplicate:            summary.Duplicate,
		CustomerEmailSent:    summary.Customer.OK(),
		AdminEmailSent:       summary.Admin.OK(),
	})
}
