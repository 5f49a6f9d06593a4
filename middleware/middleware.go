package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bakery-service/internal/auth"
	"bakery-service/internal/users"
	"bakery-service/pkg/apperr"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// UserLookup resolves the subject of a user token to a stored account.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (users.User, error)
}

type Mid struct {
	k     *auth.Keys
	users UserLookup
}

func NewMid(k *auth.Keys, u UserLookup) (*Mid, error) {
	if k == nil {
		return nil, errors.New("auth keys are nil")
	}
	if u == nil {
		return nil, errors.New("user lookup is nil")
	}
	return &Mid{k: k, users: u}, nil
}

// Logger assigns the request trace id and logs every request once it is served.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.NewTraceId(c.GetHeader(ctxmanage.HeaderTraceID))
		ctx := ctxmanage.WithTraceId(c.Request.Context(), traceId)
		c.Request = c.Request.WithContext(ctx)
		c.Header(ctxmanage.HeaderTraceID, traceId)

		start := time.Now()
		c.Next()

		slog.Info("request served",
			slog.String(logkey.TraceID, traceId),
			slog.String("Method", c.Request.Method),
			slog.String("Path", c.FullPath()),
			slog.Int("Status", c.Writer.Status()),
			slog.Duration("Latency", time.Since(start)),
		)
	}
}

// Authentication validates the bearer token (or the legacy token header)
// and stores the resolved principal in the request context.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the traceId for logging
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		ctx := c.Request.Context()

		tokenStr, err := bearerToken(c.Request.Header)
		if err != nil {
			slog.Error("token missing", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			abort(c, apperr.Unauthorized("Not authorized, no token"))
			return
		}

		claims, err := m.k.ValidateToken(tokenStr)
		if err != nil {
			slog.Error("token validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			abort(c, apperr.Unauthorized("Invalid token"))
			return
		}

		p, err := m.principal(ctx, claims)
		if err != nil {
			slog.Error("token subject not resolved", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.UserID, claims.Subject), slog.String(logkey.ERROR, err.Error()))
			abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(ctx, p))
		c.Next()
	}
}

// principal turns validated claims into capabilities. Admin tokens are
// trusted on their flag alone; user tokens must name an existing account.
func (m *Mid) principal(ctx context.Context, claims auth.Claims) (auth.Principal, error) {
	if claims.IsAdmin && claims.Subject == auth.AdminSubject {
		return auth.Principal{
			Subject:      claims.Subject,
			Email:        claims.Email,
			Capabilities: map[auth.Capability]bool{auth.CapabilityAdmin: true},
		}, nil
	}

	u, err := m.users.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return auth.Principal{}, apperr.Unauthorized("User not found")
		}
		return auth.Principal{}, apperr.Upstream("Failed to verify token", err)
	}
	return auth.Principal{
		Subject:      u.ID,
		Email:        u.Email,
		Capabilities: map[auth.Capability]bool{auth.CapabilityUser: true},
	}, nil
}

// Authorize runs next only when the principal holds one of caps.
func (m *Mid) Authorize(next gin.HandlerFunc, caps ...auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		p, ok := auth.PrincipalFrom(c.Request.Context())
		if !ok {
			slog.Error("principal not found", slog.String(logkey.TraceID, traceId))
			abort(c, apperr.Unauthorized("Unauthorized"))
			return
		}

		for _, want := range caps {
			if p.Can(want) {
				next(c)
				return
			}
		}

		slog.Error("capability missing", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, p.Subject), slog.Any("Required", caps))
		if len(caps) == 1 && caps[0] == auth.CapabilityAdmin {
			abort(c, apperr.Forbidden("Admin access required"))
			return
		}
		abort(c, apperr.Forbidden("You are not allowed to perform this action"))
	}
}

func bearerToken(h http.Header) (string, error) {
	if authz := h.Get("Authorization"); authz != "" {
		parts := strings.Fields(authz)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", fmt.Errorf("expected authorization header format: Bearer <token>")
		}
		return parts[1], nil
	}
	if legacy := strings.TrimSpace(h.Get("token")); legacy != "" {
		return legacy, nil
	}
	return "", errors.New("no bearer or token header")
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(err), gin.H{"success": false, "message": apperr.Message(err, false)})
}
