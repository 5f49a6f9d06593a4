package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"bakery-service/internal/products"
	"bakery-service/pkg/apperr"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

const (
	imageField   = "image1"
	maxImageSize = 5 << 20
)

func (h *Handler) AddProduct(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var np products.NewProduct
	if err := c.ShouldBind(&np); err != nil {
		slog.Error("invalid product form", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, apperr.Invalid("Invalid request body", nil))
		return
	}

	var img *products.Image
	fh, err := c.FormFile(imageField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		slog.Error("error reading image", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, apperr.Invalid("Invalid image upload", nil))
		return
	case fh.Size > maxImageSize:
		slog.Error("image too large", slog.String(logkey.TraceID, traceId), slog.Int64("Size Received", fh.Size))
		h.fail(c, apperr.Invalid("Image must be at most 5MB", nil))
		return
	default:
		f, err := fh.Open()
		if err != nil {
			slog.Error("error opening image", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			h.fail(c, apperr.Upstream("Failed to read image", err))
			return
		}
		defer f.Close()
		img = &products.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	}

	p, err := h.Products.Add(c.Request.Context(), np, img)
	if err != nil {
		slog.Error("error in inserting the product", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("product added", slog.String(logkey.TraceID, traceId), slog.String(logkey.Product, p.ID))
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product added successfully", "product": p})
}

func (h *Handler) ListProducts(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.Products.List(c.Request.Context())
	if err != nil {
		slog.Error("error listing products", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": list})
}

func (h *Handler) SingleProduct(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	p, err := h.Products.Get(c.Request.Context(), productID)
	if err != nil {
		slog.Error("error in retrieving product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.Product, productID), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

func (h *Handler) RemoveProduct(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID := c.Param("id")

	if err := h.Products.Remove(c.Request.Context(), productID); err != nil {
		slog.Error("error removing product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.Product, productID), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("product removed", slog.String(logkey.TraceID, traceId), slog.String(logkey.Product, productID))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product removed successfully"})
}
