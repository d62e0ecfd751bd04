package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/username/finassist/backend/src/database"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/model"
)

const requestIDContextKey contextKey = "requestID"

// ContextualLoggerMiddleware attaches a request-scoped logger with a requestID
// to the request context.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware validates the bearer token, checks the backing session and
// enriches the contextual logger with the authenticated userID.
func (h *UserHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			sendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := ""
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			tokenString = authHeader
		}

		if tokenString == "" {
			ctxLogger.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
			sendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		userIDStr, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			sendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		if _, err := model.GetSessionByToken(database.DB, tokenString); err != nil {
			ctxLogger.Warn("AuthMiddleware: Session validation failed for access token", "path", r.URL.Path, "error", err)
			sendJSONError(w, "Invalid or expired session", http.StatusUnauthorized)
			return
		}

		userIDInt, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			ctxLogger.Error("AuthMiddleware: Invalid user ID format in token", "userIDStr", userIDStr, "error", err)
			sendJSONError(w, "Invalid user ID in token", http.StatusInternalServerError)
			return
		}

		enrichedLogger := ctxLogger.With(slog.Int64("userID", userIDInt))
		ctx := logger.ToContext(r.Context(), enrichedLogger)
		ctx = context.WithValue(ctx, userIDContextKey, userIDInt)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
