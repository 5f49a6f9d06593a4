package handlers

import (
	"log/slog"
	"net/http"

	"bakery-service/internal/orders"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) PlaceOrder(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req orders.NewOrder
	if !h.bindJSON(c, &req) {
		return
	}

	placed, err := h.Orders.Place(c.Request.Context(), p.Subject, req)
	if err != nil {
		slog.Error("error placing order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, p.Subject), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("order placed", slog.String(logkey.TraceID, traceId), slog.String(logkey.UserID, p.Subject),
		slog.String(logkey.OrderID, placed.Order.ID), slog.String("Amount", placed.Order.Amount.StringFixed(2)))

	body := gin.H{"success": true, "message": "Order Placed Successfully", "orderId": placed.Order.ID}
	if placed.CheckoutURL != "" {
		body["checkoutUrl"] = placed.CheckoutURL
	}
	c.JSON(http.StatusCreated, body)
}

func (h *Handler) UserOrders(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	p, ok := h.principal(c)
	if !ok {
		return
	}

	list, err := h.Orders.UserOrders(c.Request.Context(), p.Subject)
	if err != nil {
		slog.Error("error fetching user orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, p.Subject), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": nonNil(list)})
}

func (h *Handler) AllOrders(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.Orders.AllOrders(c.Request.Context())
	if err != nil {
		slog.Error("error fetching all orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": nonNil(list)})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	o, err := h.Orders.UpdateStatus(c.Request.Context(), req.OrderID, req.Status)
	if err != nil {
		slog.Error("error updating order status", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, req.OrderID), slog.String(logkey.Status, req.Status), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("order status updated", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.OrderID, o.ID), slog.String(logkey.Status, o.Status))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status Updated Successfully", "order": o})
}

func (h *Handler) DownloadInvoice(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orderID := c.Param("orderId")

	filename, body, err := h.Invoices.Download(c.Request.Context(), p, orderID)
	if err != nil {
		slog.Error("error generating invoice", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (h *Handler) SendInvoice(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderID := c.Param("orderId")

	recipient, err := h.Invoices.Send(c.Request.Context(), orderID)
	if err != nil {
		slog.Error("error sending invoice", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("invoice sent", slog.String(logkey.TraceID, traceId), slog.String(logkey.OrderID, orderID))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Invoice sent successfully", "recipient": recipient})
}

func nonNil(list []orders.Order) []orders.Order {
	if list == nil {
		return []orders.Order{}
	}
	return list
}
