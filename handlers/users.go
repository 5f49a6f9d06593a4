package handlers

import (
	"log/slog"
	"net/http"

	"bakery-service/internal/users"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Register(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var nu users.NewUser
	if !h.bindJSON(c, &nu) {
		return
	}

	u, token, err := h.Users.Register(c.Request.Context(), nu)
	if err != nil {
		slog.Error("error registering user", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	slog.Info("user registered", slog.String(logkey.TraceID, traceId), slog.String(logkey.UserID, u.ID))
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": u.Profile()})
}

func (h *Handler) Login(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var cr users.Credentials
	if !h.bindJSON(c, &cr) {
		return
	}

	u, token, err := h.Users.Login(c.Request.Context(), cr)
	if err != nil {
		slog.Error("login failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": u.Profile()})
}

func (h *Handler) AdminLogin(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var cr users.Credentials
	if !h.bindJSON(c, &cr) {
		return
	}

	profile, token, err := h.Users.AdminLogin(cr)
	if err != nil {
		slog.Error("admin login failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "isAdmin": true, "user": profile})
}

func (h *Handler) FindByEmail(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var req struct {
		Email string `json:"email"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		slog.Error("error finding user by email", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    gin.H{"_id": u.ID, "name": u.Name, "email": u.Email},
	})
}

func (h *Handler) Me(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	p, ok := h.principal(c)
	if !ok {
		return
	}

	u, err := h.Users.UserByID(c.Request.Context(), p.Subject)
	if err != nil {
		slog.Error("error fetching current user", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, p.Subject), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Token is valid",
		"user":    gin.H{"_id": u.ID, "name": u.Name, "email": u.Email},
	})
}
