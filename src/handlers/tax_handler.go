package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/security/validation"
	"github.com/username/finassist/backend/src/services"
)

type TaxHandler struct {
	taxService *services.TaxService
}

func NewTaxHandler(taxService *services.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

// HandleCalculateTax runs a dual-regime tax calculation and appends the
// result to the user's history.
func (h *TaxHandler) HandleCalculateTax(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	ctxLogger := logger.FromContext(r.Context())

	var input models.TaxInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateFinancialYear(input.FinancialYear); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.taxService.CalculateTax(userID, input)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTaxInput) {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctxLogger.Error("Tax calculation failed", "financialYear", input.FinancialYear, "error", err)
		sendJSONError(w, "Failed to calculate tax", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// HandleGetTaxReturns lists the user's stored calculations, newest first.
func (h *TaxHandler) HandleGetTaxReturns(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	returns, err := h.taxService.GetUserTaxReturns(userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list tax returns", "error", err)
		sendJSONError(w, "Failed to list tax returns", http.StatusInternalServerError)
		return
	}
	if returns == nil {
		returns = []models.TaxReturn{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(returns)
}

// HandleGetLatestTaxReturn returns the most recent calculation for the
// financial year given in ?financial_year=.
func (h *TaxHandler) HandleGetLatestTaxReturn(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	financialYear := r.URL.Query().Get("financial_year")
	if err := validation.ValidateFinancialYear(financialYear); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	taxReturn, err := h.taxService.GetLatestTaxReturn(userID, financialYear)
	if err != nil {
		if errors.Is(err, services.ErrTaxReturnNotFound) {
			sendJSONError(w, "No tax return found for the financial year", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to fetch latest tax return", "financialYear", financialYear, "error", err)
		sendJSONError(w, "Failed to fetch tax return", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(taxReturn)
}
