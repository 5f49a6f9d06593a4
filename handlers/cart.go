package handlers

import (
	"log/slog"
	"net/http"

	"bakery-service/internal/cart"
	"bakery-service/pkg/apperr"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// cartRequest is shared by the cart mutations. Quantity is loosely typed
// because clients send numbers and numeric strings alike.
type cartRequest struct {
	ItemID   string `json:"itemId"`
	Quantity any    `json:"quantity"`
}

type cartOp func(c *gin.Context, userID string, req cartRequest) (map[string]int, string, error)

// cartAction wraps a cart operation with the principal lookup, body binding
// and the {success, message, cartData} envelope shared by every cart route.
func (h *Handler) cartAction(name string, withBody bool, op cartOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the traceId for logging
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		p, ok := h.principal(c)
		if !ok {
			return
		}

		var req cartRequest
		if withBody && !h.bindJSON(c, &req) {
			return
		}

		cartData, msg, err := op(c, p.Subject, req)
		if err != nil {
			slog.Error("error in cart "+name, slog.String(logkey.TraceID, traceId), slog.String(logkey.UserID, p.Subject),
				slog.String(logkey.Product, req.ItemID), slog.String(logkey.ERROR, err.Error()))
			h.fail(c, err)
			return
		}

		body := gin.H{"success": true, "cartData": cartData}
		if msg != "" {
			body["message"] = msg
		}
		c.JSON(http.StatusOK, body)
	}
}

func (h *Handler) AddToCart(c *gin.Context) {
	h.cartAction("add", true, func(c *gin.Context, userID string, req cartRequest) (map[string]int, string, error) {
		qty := 1
		if req.Quantity != nil {
			n, err := cart.ParseQuantity(req.Quantity)
			if err != nil {
				n = 0
			}
			qty = n
		}
		data, err := h.Cart.Add(c.Request.Context(), userID, req.ItemID, qty)
		return data, "Item added to cart successfully", err
	})(c)
}

func (h *Handler) UpdateCart(c *gin.Context) {
	h.cartAction("update", true, func(c *gin.Context, userID string, req cartRequest) (map[string]int, string, error) {
		if req.Quantity == nil {
			return nil, "", apperr.Invalid("Item ID and quantity are required", nil)
		}
		qty, err := cart.ParseQuantity(req.Quantity)
		if err != nil {
			qty = -1
		}
		data, err := h.Cart.Update(c.Request.Context(), userID, req.ItemID, qty)
		return data, "Cart updated successfully", err
	})(c)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	h.cartAction("remove", true, func(c *gin.Context, userID string, req cartRequest) (map[string]int, string, error) {
		data, err := h.Cart.Remove(c.Request.Context(), userID, req.ItemID)
		return data, "Item removed from cart successfully", err
	})(c)
}

func (h *Handler) GetCart(c *gin.Context) {
	h.cartAction("get", false, func(c *gin.Context, userID string, _ cartRequest) (map[string]int, string, error) {
		data, err := h.Cart.Get(c.Request.Context(), userID)
		return data, "", err
	})(c)
}

func (h *Handler) ClearCart(c *gin.Context) {
	h.cartAction("clear", false, func(c *gin.Context, userID string, _ cartRequest) (map[string]int, string, error) {
		data, err := h.Cart.Clear(c.Request.Context(), userID)
		return data, "Cart cleared successfully", err
	})(c)
}

func (h *Handler) CartCount(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	p, ok := h.principal(c)
	if !ok {
		return
	}

	total, unique, err := h.Cart.Count(c.Request.Context(), p.Subject)
	if err != nil {
		slog.Error("error counting cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, p.Subject), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": total, "uniqueItems": unique})
}
