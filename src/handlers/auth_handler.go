package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/username/finassist/backend/src/config"
	"github.com/username/finassist/backend/src/database"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/model"
	"github.com/username/finassist/backend/src/security/validation"
)

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Sanitization
	credentials.Username = validation.SanitizeText(strings.TrimSpace(credentials.Username))
	credentials.Email = strings.ToLower(validation.SanitizeText(strings.TrimSpace(credentials.Email)))
	credentials.Password = strings.TrimSpace(credentials.Password)

	if credentials.Username == "" && strings.Contains(credentials.Email, "@") {
		credentials.Username = strings.Split(credentials.Email, "@")[0]
	}

	// Validation
	if credentials.Username == "" {
		sendJSONError(w, "Username is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(credentials.Username, 50, "Username"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringNotEmpty(credentials.Email, "Email"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(credentials.Email) {
		sendJSONError(w, "Invalid email format", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringNotEmpty(credentials.Password, "Password"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(credentials.Password) {
		sendJSONError(w, "Password must be at least 6 characters long", http.StatusBadRequest)
		return
	}

	// Check username uniqueness
	_, err := model.GetUserByUsername(database.DB, credentials.Username)
	if err == nil {
		sendJSONError(w, "Username already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logger.L.Error("Error checking username uniqueness", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	// Check email uniqueness
	_, err = model.GetUserByEmail(database.DB, credentials.Email)
	if err == nil {
		sendJSONError(w, "Email address already in use", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logger.L.Error("Error checking email uniqueness", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username: credentials.Username,
		Email:    credentials.Email,
	}
	if err := user.HashPassword(credentials.Password); err != nil {
		logger.L.Error("Failed to hash password", "error", err)
		sendJSONError(w, "Failed to process registration", http.StatusInternalServerError)
		return
	}

	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Error("Failed to create user in DB", "error", err)
		sendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User registered successfully", "userID", user.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User registered successfully. You can now log in.",
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	logger.L.Debug("Login request received", "remoteAddr", r.RemoteAddr)

	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		MFAToken string `json:"mfa_token,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		logger.L.Warn("Invalid request body for login", "error", err)
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Email = strings.ToLower(validation.SanitizeText(strings.TrimSpace(credentials.Email)))

	user, err := model.GetUserByEmail(database.DB, credentials.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.L.Warn("User lookup by email failed for login: user not found", "email", credentials.Email)
			sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		logger.L.Error("User lookup by email failed for login", "error", err)
		sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := user.CheckPassword(credentials.Password); err != nil {
		logger.L.Warn("Password check failed for login", "userID", user.ID, "error", err)
		sendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if user.MFAEnabled {
		if credentials.MFAToken == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":        "MFA token required",
				"mfa_required": true,
			})
			return
		}
		if !h.mfaService.ValidateToken(user.MFASecret, credentials.MFAToken) {
			logger.L.Warn("MFA token check failed for login", "userID", user.ID)
			sendJSONError(w, "Invalid MFA token", http.StatusUnauthorized)
			return
		}
	}

	accessToken, err := h.authService.GenerateToken(user.ID, config.Cfg.AccessTokenExpiry)
	if err != nil {
		logger.L.Error("Failed to generate access token", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		IsBlocked:    false,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Failed to create session", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User login successful, tokens generated", "userID", user.ID)

	userData := map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          userData,
	})
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if requestBody.RefreshToken == "" {
		sendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	oldSession, err := model.GetSessionByRefreshToken(database.DB, requestBody.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh token lookup failed or token invalid/expired", "error", err)
		sendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByRefreshToken(database.DB, requestBody.RefreshToken); err != nil {
		logger.L.Error("Failed to delete old session during refresh", "refreshTokenPrefix", requestBody.RefreshToken[:min(10, len(requestBody.RefreshToken))], "error", err)
	}

	newAccessToken, err := h.authService.GenerateToken(oldSession.UserID, config.Cfg.AccessTokenExpiry)
	if err != nil {
		logger.L.Error("Failed to generate new access token on refresh", "userID", oldSession.UserID, "error", err)
		sendJSONError(w, "Failed to generate new access token", http.StatusInternalServerError)
		return
	}

	newRefreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate new refresh token on refresh", "userID", oldSession.UserID, "error", err)
		sendJSONError(w, "Failed to generate new refresh token", http.StatusInternalServerError)
		return
	}

	newSession := &model.Session{
		UserID:       oldSession.UserID,
		Token:        newAccessToken,
		RefreshToken: newRefreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		IsBlocked:    false,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}

	if err := model.CreateSession(database.DB, newSession); err != nil {
		logger.L.Error("Failed to create new session on refresh", "userID", oldSession.UserID, "error", err)
		sendJSONError(w, "Failed to create new session on refresh", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Token refreshed successfully", "userID", oldSession.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	logger.L.Info("Logout request received")

	authHeader := r.Header.Get("Authorization")
	tokenString := ""
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	} else {
		tokenString = authHeader
	}

	if tokenString != "" {
		err := model.DeleteSessionByToken(database.DB, tokenString)
		if err != nil {
			logger.L.Warn("Failed to delete session on logout", "tokenPrefix", tokenString[:min(10, len(tokenString))], "error", err)
		} else {
			logger.L.Info("Session invalidated successfully on logout", "tokenPrefix", tokenString[:min(10, len(tokenString))])
		}
	} else {
		logger.L.Warn("Logout attempt with no token in Authorization header")
	}

	w.WriteHeader(http.StatusNoContent)
}
