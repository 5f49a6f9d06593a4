package handlers

import (
	"log/slog"
	"net/http"

	"bakery-service/internal/recipes"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GenerateRecipe(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req recipes.Request
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.Recipes.Generate(c.Request.Context(), req)
	if err != nil {
		slog.Error("error generating recipe", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}
	if res.Fallback {
		slog.Warn("served fallback recipe", slog.String(logkey.TraceID, traceId), slog.String("Dish", req.DishName))
	}
	body := gin.H{"success": true, "recipe": res.Recipe}
	if res.Fallback {
		body["fallback"] = true
		body["message"] = res.Message
	}
	c.JSON(http.StatusOK, body)
}
