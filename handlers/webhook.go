package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"bakery-service/internal/payments"
	"bakery-service/pkg/apperr"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

// Webhook settles card orders once Stripe reports the payment intent succeeded.
func (h *Handler) Webhook(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		slog.Error("error reading webhook body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, apperr.Invalid("Invalid request body", nil))
		return
	}

	settlement, eventType, ok, err := h.StripeWebhook.Parse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		slog.Error("error parsing webhook", slog.String(logkey.TraceID, traceId),
			slog.String("EventType", string(eventType)), slog.String(logkey.ERROR, err.Error()))
		msg := "Invalid webhook payload"
		switch {
		case errors.Is(err, payments.ErrMissingOrderID):
			msg = "Order ID missing from payment metadata"
		case errors.Is(err, payments.ErrNoSigningSecret):
			msg = "Webhook signing is not configured"
		}
		h.fail(c, apperr.Invalid(msg, nil))
		return
	}
	if !ok {
		slog.Info("webhook event ignored", slog.String(logkey.TraceID, traceId), slog.String("EventType", string(eventType)))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	o, err := h.Orders.MarkPaid(c.Request.Context(), settlement.OrderID, settlement.PaymentRef)
	if err != nil {
		slog.Error("failed to update order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, settlement.OrderID), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("order paid", slog.String(logkey.TraceID, traceId), slog.String(logkey.OrderID, o.ID),
		slog.String("PaymentRef", settlement.PaymentRef))
	c.JSON(http.StatusOK, gin.H{"received": true})
}
