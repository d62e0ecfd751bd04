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

type GoalHandler struct {
	goalService *services.GoalService
}

func NewGoalHandler(goalService *services.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

type goalRequest struct {
	GoalName      string          `json:"goal_name"`
	GoalType      string          `json:"goal_type"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    string          `json:"target_date"`
	RiskProfile   string          `json:"risk_profile"`
	Priority      int             `json:"priority"`
	Notes         string          `json:"notes"`
}

// HandleCreateGoal creates a savings goal and returns it with the derived
// monthly saving and suggested strategy filled in.
func (h *GoalHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateStringNotEmpty(req.GoalName, "goal_name"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(req.GoalName, 100, "goal_name"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.TargetAmount, "target_amount"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateNonNegativeAmount(req.CurrentAmount, "current_amount"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	targetDate, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		sendJSONError(w, "target_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	riskProfile := strings.ToLower(strings.TrimSpace(req.RiskProfile))
	switch riskProfile {
	case "", "conservative", "moderate", "aggressive":
	default:
		sendJSONError(w, "risk_profile must be conservative, moderate or aggressive", http.StatusBadRequest)
		return
	}

	goal := &models.Goal{
		UserID:        userID,
		GoalName:      req.GoalName,
		GoalType:      validation.SanitizeText(req.GoalType),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    targetDate,
		RiskProfile:   riskProfile,
		Priority:      req.Priority,
		Notes:         req.Notes,
	}

	created, err := h.goalService.CreateGoal(goal)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to create goal", "error", err)
		sendJSONError(w, "Failed to create goal", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleGetGoals lists the user's goals. ?status=active limits to goals not
// yet completed.
func (h *GoalHandler) HandleGetGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var goals []models.Goal
	var err error
	if r.URL.Query().Get("status") == models.GoalActive {
		goals, err = h.goalService.GetActiveGoals(userID)
	} else {
		goals, err = h.goalService.GetUserGoals(userID)
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list goals", "error", err)
		sendJSONError(w, "Failed to list goals", http.StatusInternalServerError)
		return
	}
	if goals == nil {
		goals = []models.Goal{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(goals)
}

type goalProgressRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// HandleUpdateGoalProgress adds a contribution to the goal's saved amount.
func (h *GoalHandler) HandleUpdateGoalProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	goalID, err := strconv.ParseInt(chi.URLParam(r, "goalID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid goal ID", http.StatusBadRequest)
		return
	}

	var req goalProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Amount, "amount"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	goal, err := h.goalService.UpdateGoalProgress(userID, goalID, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrGoalNotFound) {
			sendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to update goal progress", "goalID", goalID, "error", err)
		sendJSONError(w, "Failed to update goal progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(goal)
}

// HandleDeleteGoal removes a goal owned by the user.
func (h *GoalHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	goalID, err := strconv.ParseInt(chi.URLParam(r, "goalID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid goal ID", http.StatusBadRequest)
		return
	}

	if err := h.goalService.DeleteGoal(userID, goalID); err != nil {
		if errors.Is(err, services.ErrGoalNotFound) {
			sendJSONError(w, "Goal not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to delete goal", "goalID", goalID, "error", err)
		sendJSONError(w, "Failed to delete goal", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
