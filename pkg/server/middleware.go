package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/server/dto"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

const (
	headerRequestID = "X-Request-ID"
	headerAPIKey    = "X-API-Key"

	defaultTenant = "default"
)

// recoveryMiddleware turns a handler panic into a 500 and logs it.
func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "recovered from panic", "event", "panic",
			"path", c.Request.URL.Path, "error", fmt.Sprint(recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "internal_error"})
	})
}

// requestIDMiddleware keeps the caller's X-Request-ID or assigns one, and
// echoes it on the response.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		ctx := context.WithValue(c.Request.Context(), types.ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// contextMiddleware records the client address and the request source.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, types.ContextKeyClientIP, c.ClientIP())
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"request_id", c.Writer.Header().Get(headerRequestID),
		)
	}
}

// authMiddleware accepts X-API-Key or an Authorization bearer token that
// matches one of keys. Accepted requests run as the default tenant.
func authMiddleware(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.GetHeader(headerAPIKey))
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Detail: "Missing API key"})
			return
		}
		if !validKey(keys, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Detail: "Invalid API key"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), types.ContextKeyTenantID, defaultTenant)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func validKey(keys []string, token string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
