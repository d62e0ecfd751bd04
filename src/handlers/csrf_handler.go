package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/username/finassist/backend/src/logger"
)

func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	logger.L.Debug("Generating CSRF token", "remoteAddr", r.RemoteAddr)
	token := generateRandomToken()

	http.SetCookie(w, &http.Cookie{
		Name:     "_csrf",
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   3600,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)

	json.NewEncoder(w).Encode(map[string]string{
		"csrfToken": token,
	})
}

func generateRandomToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.StdEncoding.EncodeToString(b)
}

func CSRFMiddleware(csrfKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Safe methods are never state-changing and skip validation.
			switch r.Method {
			case "GET", "HEAD", "OPTIONS":
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, errCookie := r.Cookie("_csrf")

			if headerToken != "" && errCookie == nil && headerToken == cookie.Value {
				next.ServeHTTP(w, r)
				return
			}

			var cookieErrorForLog interface{}
			if errCookie != nil {
				cookieErrorForLog = errCookie.Error()
			}

			logger.L.Warn("CSRF validation failed",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.Bool("headerTokenPresent", headerToken != ""),
				slog.Any("cookieError", cookieErrorForLog),
				slog.String("origin", r.Header.Get("Origin")),
			)

			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}
