package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/finassist/backend/src/config"
	"github.com/username/finassist/backend/src/database"
	"github.com/username/finassist/backend/src/handlers"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/security"
	"github.com/username/finassist/backend/src/services"
	"github.com/username/finassist/backend/src/storage"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("FinAssist backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	appCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	holdingStore := storage.NewHoldingStore(database.DB)
	transactionStore := storage.NewTransactionStore(database.DB)
	taxStore := storage.NewTaxStore(database.DB)
	goalStore := storage.NewGoalStore(database.DB)
	budgetStore := storage.NewBudgetStore(database.DB)

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	mfaService := services.NewMFAService()
	priceService := services.NewPriceService(config.Cfg.PriceCacheExpiry)
	portfolioService := services.NewPortfolioService(holdingStore, transactionStore, appCache)
	importService := services.NewImportService(portfolioService)
	taxService := services.NewTaxService(taxStore)
	goalService := services.NewGoalService(goalStore)
	budgetService := services.NewBudgetService(budgetStore)

	priceRefresher := services.NewPriceRefresher(portfolioService, priceService)
	if err := priceRefresher.Start(config.Cfg.PriceRefreshCronSpec); err != nil {
		logger.L.Error("Failed to start price refresher", "spec", config.Cfg.PriceRefreshCronSpec, "error", err)
	}
	defer priceRefresher.Stop()

	userHandler := handlers.NewUserHandler(authService, mfaService, appCache)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, priceService)
	importHandler := handlers.NewImportHandler(importService)
	taxHandler := handlers.NewTaxHandler(taxService)
	goalHandler := handlers.NewGoalHandler(goalService)
	budgetHandler := handlers.NewBudgetHandler(budgetService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "FinAssist Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", handlers.GetCSRFToken)
		})

		// Auth routes (CSRF protected)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Post("/auth/login", userHandler.LoginUserHandler)
			r.Post("/auth/register", userHandler.RegisterUserHandler)
			r.Post("/auth/refresh", userHandler.RefreshTokenHandler)
			r.With(userHandler.AuthMiddleware).Post("/auth/logout", userHandler.LogoutUserHandler)
		})

		// Protected routes (auth + CSRF)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Use(userHandler.AuthMiddleware)

			r.Get("/user/profile", userHandler.HandleGetProfile)
			r.Put("/user/password", userHandler.HandleChangePassword)
			r.Post("/user/mfa/setup", userHandler.HandleSetupMFA)
			r.Post("/user/mfa/enable", userHandler.HandleEnableMFA)
			r.Post("/user/mfa/disable", userHandler.HandleDisableMFA)

			r.Post("/portfolio/transactions", portfolioHandler.HandleRecordTransaction)
			r.Post("/portfolio/transactions/import", importHandler.HandleImportTransactions)
			r.Get("/portfolio/transactions", portfolioHandler.HandleGetTransactions)
			r.Get("/portfolio/holdings", portfolioHandler.HandleGetHoldings)
			r.Get("/portfolio/summary", portfolioHandler.HandleGetSummary)
			r.Put("/portfolio/holdings/{holdingID}/price", portfolioHandler.HandleUpdatePrice)
			r.Post("/portfolio/prices/refresh", portfolioHandler.HandleRefreshPrices)

			r.Post("/tax/calculate", taxHandler.HandleCalculateTax)
			r.Get("/tax/returns", taxHandler.HandleGetTaxReturns)
			r.Get("/tax/returns/latest", taxHandler.HandleGetLatestTaxReturn)

			r.Post("/goals", goalHandler.HandleCreateGoal)
			r.Get("/goals", goalHandler.HandleGetGoals)
			r.Put("/goals/{goalID}/progress", goalHandler.HandleUpdateGoalProgress)
			r.Delete("/goals/{goalID}", goalHandler.HandleDeleteGoal)

			r.Post("/budget/entries", budgetHandler.HandleAddEntry)
			r.Get("/budget/entries", budgetHandler.HandleGetEntries)
			r.Delete("/budget/entries/{entryID}", budgetHandler.HandleDeleteEntry)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
