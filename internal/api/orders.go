package api

import (
	"io"
	"net/http"
	"time"

	"pizza-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateStatusRequest is the body of PUT /api/orders/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// placeOrder handles order placement
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", "/api/orders/"+itoa(order.ID))
	c.JSON(http.StatusCreated, order)
}

// listOrders returns every order, newest first
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// updateOrderStatus changes the status of an order
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c, "order")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// orderUpdates streams status changes as server-sent events
func (h *Handler) orderUpdates(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status updates are not available"})
		return
	}

	ctx := c.Request.Context()
	updates, closeSub, err := h.hub.SubscribeStatus(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			h.logger.Debug("Closing status subscription", zap.Error(err))
		}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("order-update", update)
			return true
		case t := <-heartbeat.C:
			c.SSEvent("heartbeat", t.Unix())
			return true
		}
	})
}
