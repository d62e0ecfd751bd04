package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/security/validation"
	"github.com/username/finassist/backend/src/services"
)

type PortfolioHandler struct {
	portfolioService *services.PortfolioService
	priceService     services.PriceService
}

func NewPortfolioHandler(portfolioService *services.PortfolioService, priceService services.PriceService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		priceService:     priceService,
	}
}

type transactionRequest struct {
	TransactionType string          `json:"transaction_type"`
	AssetType       string          `json:"asset_type"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Exchange        string          `json:"exchange"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Fees            decimal.Decimal `json:"fees"`
	TransactionDate string          `json:"transaction_date"`
	Broker          string          `json:"broker"`
	Notes           string          `json:"notes"`
}

// HandleRecordTransaction records a buy or sell and returns the persisted
// transaction.
func (h *PortfolioHandler) HandleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	ctxLogger := logger.FromContext(r.Context())

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.TransactionType = strings.ToLower(strings.TrimSpace(req.TransactionType))
	if req.TransactionType != models.TransactionBuy && req.TransactionType != models.TransactionSell {
		sendJSONError(w, "transaction_type must be 'buy' or 'sell'", http.StatusBadRequest)
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := validation.ValidateSymbol(req.Symbol); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringNotEmpty(req.AssetType, "asset_type"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Quantity, "quantity"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Price, "price"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateNonNegativeAmount(req.Fees, "fees"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	txDate := time.Now()
	if req.TransactionDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.TransactionDate)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", req.TransactionDate)
		}
		if err != nil {
			sendJSONError(w, "transaction_date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		txDate = parsed
	}

	tx := &models.Transaction{
		UserID:          userID,
		TransactionType: req.TransactionType,
		AssetType:       validation.SanitizeText(req.AssetType),
		Symbol:          req.Symbol,
		Name:            validation.SanitizeText(req.Name),
		Exchange:        validation.SanitizeText(req.Exchange),
		Quantity:        req.Quantity,
		Price:           req.Price,
		Fees:            req.Fees,
		TransactionDate: txDate,
		Broker:          validation.SanitizeText(req.Broker),
		Notes:           validation.SanitizeText(req.Notes),
	}

	recorded, err := h.portfolioService.RecordTransaction(tx)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransaction) {
			sendJSONError(w, "Transaction quantity must be positive and price non-negative", http.StatusBadRequest)
			return
		}
		if errors.Is(err, services.ErrInsufficientQuantity) {
			sendJSONError(w, "Cannot sell more than the held quantity", http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, services.ErrHoldingNotFound) {
			sendJSONError(w, "Cannot sell an instrument that is not held", http.StatusNotFound)
			return
		}
		ctxLogger.Error("Failed to record transaction", "symbol", tx.Symbol, "error", err)
		sendJSONError(w, "Failed to record transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(recorded)
}

// HandleGetHoldings lists the user's holdings, optionally filtered by asset
// type via ?asset_type=.
func (h *PortfolioHandler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	assetType := strings.TrimSpace(r.URL.Query().Get("asset_type"))

	var holdings []models.Holding
	var err error
	if assetType != "" {
		holdings, err = h.portfolioService.GetUserHoldingsByType(userID, assetType)
	} else {
		holdings, err = h.portfolioService.GetUserHoldings(userID)
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list holdings", "error", err)
		sendJSONError(w, "Failed to list holdings", http.StatusInternalServerError)
		return
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(holdings)
}

// HandleGetTransactions lists the user's transaction history, newest first.
func (h *PortfolioHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	transactions, err := h.portfolioService.GetUserTransactions(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list transactions", "error", err)
		sendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// HandleGetSummary returns the cached portfolio aggregate for the user.
func (h *PortfolioHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	summary, err := h.portfolioService.GetPortfolioSummary(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to compute portfolio summary", "error", err)
		sendJSONError(w, "Failed to compute portfolio summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

type priceUpdateRequest struct {
	Price decimal.Decimal `json:"price"`
}

// HandleUpdatePrice sets the current market price of one holding and
// recomputes its valuation.
func (h *PortfolioHandler) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	holdingID, err := strconv.ParseInt(chi.URLParam(r, "holdingID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid holding ID", http.StatusBadRequest)
		return
	}

	var req priceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Price, "price"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.portfolioService.GetHoldingByID(userID, holdingID); err != nil {
		if errors.Is(err, services.ErrHoldingNotFound) {
			sendJSONError(w, "Holding not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to resolve holding for price update", "holdingID", holdingID, "error", err)
		sendJSONError(w, "Failed to update price", http.StatusInternalServerError)
		return
	}

	if err := h.portfolioService.UpdatePrice(holdingID, req.Price); err != nil {
		if errors.Is(err, services.ErrHoldingNotFound) {
			sendJSONError(w, "Holding not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update price", "holdingID", holdingID, "userID", userID, "error", err)
		sendJSONError(w, "Failed to update price", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRefreshPrices fetches live quotes for every symbol the user holds
// and applies them.
func (h *PortfolioHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	ctxLogger := logger.FromContext(r.Context())

	holdings, err := h.portfolioService.GetUserHoldings(userID)
	if err != nil {
		ctxLogger.Error("Failed to list holdings for price refresh", "error", err)
		sendJSONError(w, "Failed to refresh prices", http.StatusInternalServerError)
		return
	}
	if len(holdings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	seen := make(map[string]bool, len(holdings))
	symbols := make([]string, 0, len(holdings))
	for _, holding := range holdings {
		if !seen[holding.Symbol] {
			seen[holding.Symbol] = true
			symbols = append(symbols, holding.Symbol)
		}
	}

	prices, err := h.priceService.GetCurrentPrices(symbols)
	if err != nil {
		ctxLogger.Error("Failed to fetch quotes for price refresh", "symbols", len(symbols), "error", err)
		sendJSONError(w, "Failed to fetch market prices", http.StatusBadGateway)
		return
	}

	if err := h.portfolioService.BulkUpdatePrices(userID, prices); err != nil {
		ctxLogger.Error("Failed to apply refreshed prices", "error", err)
		sendJSONError(w, "Failed to apply market prices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"requested": len(symbols),
		"updated":   len(prices),
	})
}
