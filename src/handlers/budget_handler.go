package handlers

import (
	"encoding/json"
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

type BudgetHandler struct {
	budgetService *services.BudgetService
}

func NewBudgetHandler(budgetService *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

type budgetEntryRequest struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	EntryDate   string          `json:"entry_date"`
}

// HandleAddEntry records an income or expense entry.
func (h *BudgetHandler) HandleAddEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req budgetEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.Type != models.BudgetIncome && req.Type != models.BudgetExpense {
		sendJSONError(w, "type must be 'income' or 'expense'", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringNotEmpty(req.Category, "category"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Amount, "amount"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var entryDate time.Time
	if req.EntryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			sendJSONError(w, "entry_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		entryDate = parsed
	}

	entry := &models.BudgetEntry{
		UserID:      userID,
		Category:    req.Category,
		Amount:      req.Amount,
		Type:        req.Type,
		Description: req.Description,
		EntryDate:   entryDate,
	}

	created, err := h.budgetService.AddEntry(entry)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to add budget entry", "error", err)
		sendJSONError(w, "Failed to add budget entry", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleGetEntries lists the user's budget entries, optionally filtered by
// ?type=income or ?type=expense.
func (h *BudgetHandler) HandleGetEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entryType := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))

	var entries []models.BudgetEntry
	var err error
	if entryType != "" {
		if entryType != models.BudgetIncome && entryType != models.BudgetExpense {
			sendJSONError(w, "type must be 'income' or 'expense'", http.StatusBadRequest)
			return
		}
		entries, err = h.budgetService.GetUserEntriesByType(userID, entryType)
	} else {
		entries, err = h.budgetService.GetUserEntries(userID)
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list budget entries", "error", err)
		sendJSONError(w, "Failed to list budget entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.BudgetEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// HandleDeleteEntry removes one of the user's budget entries.
func (h *BudgetHandler) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	if err := h.budgetService.DeleteEntry(userID, entryID); err != nil {
		logger.FromContext(r.Context()).Error("Failed to delete budget entry", "entryID", entryID, "error", err)
		sendJSONError(w, "Failed to delete budget entry", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
