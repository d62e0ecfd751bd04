package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/finassist/backend/src/database"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/model"
)

const mfaSetupCacheTTL = 10 * time.Minute

func mfaSetupCacheKey(userID int64) string {
	return fmt.Sprintf("mfa_setup_user_%d", userID)
}

type mfaTokenRequest struct {
	Token string `json:"token"`
}

// HandleSetupMFA generates a fresh TOTP secret for the user and returns it
// with a QR code. The secret is held in the cache until the user confirms it
// with a valid token; nothing is persisted yet.
func (h *UserHandler) HandleSetupMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	log := logger.FromContext(r.Context())

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		log.Error("Failed to get user for MFA setup", "userID", userID, "error", err)
		sendJSONError(w, "Failed to retrieve user information", http.StatusInternalServerError)
		return
	}
	if user.MFAEnabled {
		sendJSONError(w, "MFA is already enabled", http.StatusConflict)
		return
	}

	secret, qrCode, err := h.mfaService.GenerateMFASecret(user.Username)
	if err != nil {
		log.Error("Failed to generate MFA secret", "userID", userID, "error", err)
		sendJSONError(w, "Failed to generate MFA secret", http.StatusInternalServerError)
		return
	}

	h.cache.Set(mfaSetupCacheKey(userID), secret, mfaSetupCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"secret":  secret,
		"qr_code": qrCode,
	})
}

// HandleEnableMFA confirms a pending MFA enrolment. The token must validate
// against the secret issued by HandleSetupMFA before it expires.
func (h *UserHandler) HandleEnableMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	log := logger.FromContext(r.Context())

	var req mfaTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		sendJSONError(w, "MFA token is required", http.StatusBadRequest)
		return
	}

	cached, found := h.cache.Get(mfaSetupCacheKey(userID))
	if !found {
		sendJSONError(w, "No pending MFA setup found, request a new secret", http.StatusBadRequest)
		return
	}
	secret := cached.(string)

	if !h.mfaService.ValidateToken(secret, req.Token) {
		log.Warn("Invalid MFA token during enrolment", "userID", userID)
		sendJSONError(w, "Invalid MFA token", http.StatusForbidden)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		log.Error("Failed to get user for MFA enable", "userID", userID, "error", err)
		sendJSONError(w, "Failed to retrieve user information", http.StatusInternalServerError)
		return
	}
	if err := user.UpdateMFA(database.DB, secret, true); err != nil {
		log.Error("Failed to persist MFA settings", "userID", userID, "error", err)
		sendJSONError(w, "Failed to enable MFA", http.StatusInternalServerError)
		return
	}
	h.cache.Delete(mfaSetupCacheKey(userID))

	log.Info("MFA enabled", "userID", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "MFA enabled successfully."})
}

// HandleDisableMFA turns MFA off after a final valid token.
func (h *UserHandler) HandleDisableMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	log := logger.FromContext(r.Context())

	var req mfaTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		sendJSONError(w, "MFA token is required", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		log.Error("Failed to get user for MFA disable", "userID", userID, "error", err)
		sendJSONError(w, "Failed to retrieve user information", http.StatusInternalServerError)
		return
	}
	if !user.MFAEnabled {
		sendJSONError(w, "MFA is not enabled", http.StatusBadRequest)
		return
	}
	if !h.mfaService.ValidateToken(user.MFASecret, req.Token) {
		log.Warn("Invalid MFA token during disable", "userID", userID)
		sendJSONError(w, "Invalid MFA token", http.StatusForbidden)
		return
	}

	if err := user.UpdateMFA(database.DB, "", false); err != nil {
		log.Error("Failed to clear MFA settings", "userID", userID, "error", err)
		sendJSONError(w, "Failed to disable MFA", http.StatusInternalServerError)
		return
	}

	log.Info("MFA disabled", "userID", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "MFA disabled successfully."})
}
