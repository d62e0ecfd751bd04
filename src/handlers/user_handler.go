package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/patrickmn/go-cache"
	"github.com/username/finassist/backend/src/database"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/model"
	"github.com/username/finassist/backend/src/security"
	"github.com/username/finassist/backend/src/services"
)

type contextKey string

const userIDContextKey contextKey = "userID"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var passwordRegex = regexp.MustCompile(`^.{6,}$`)

type UserHandler struct {
	authService *security.AuthService
	mfaService  *services.MFAService
	// cache holds short-lived state like pending MFA enrolment secrets.
	cache *cache.Cache
}

func NewUserHandler(authService *security.AuthService, mfaService *services.MFAService, stateCache *cache.Cache) *UserHandler {
	return &UserHandler{
		authService: authService,
		mfaService:  mfaService,
		cache:       stateCache,
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// HandleGetProfile returns the authenticated user's profile.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Warn("Profile lookup failed", "error", err)
		sendJSONError(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}
