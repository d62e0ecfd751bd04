package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/finassist/backend/src/database"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/model"
)

type changePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// HandleChangePassword updates the authenticated user's password after
// verifying the current one, then revokes every other session so stolen
// tokens stop working.
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	log := logger.FromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.NewPassword != req.ConfirmNewPassword {
		sendJSONError(w, "New passwords do not match", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(req.NewPassword) {
		sendJSONError(w, "New password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		log.Error("Failed to get user for password change", "userID", userID, "error", err)
		sendJSONError(w, "Failed to retrieve user information", http.StatusInternalServerError)
		return
	}

	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		log.Warn("Current password mismatch for password change", "userID", userID)
		sendJSONError(w, "Incorrect current password", http.StatusForbidden)
		return
	}

	if err := user.HashPassword(req.NewPassword); err != nil {
		log.Error("Failed to hash new password", "userID", userID, "error", err)
		sendJSONError(w, "Failed to process new password", http.StatusInternalServerError)
		return
	}
	if err := user.UpdatePassword(database.DB, user.Password); err != nil {
		log.Error("Failed to update password in DB", "userID", userID, "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	if err := model.DeleteSessionsForUser(database.DB, userID); err != nil {
		log.Warn("Failed to revoke sessions after password change", "userID", userID, "error", err)
	}

	log.Info("Password changed successfully", "userID", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Password changed successfully. Please log in again."})
}
