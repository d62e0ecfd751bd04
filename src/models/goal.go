package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal status values.
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
)

// StrategyAllocation is one line of a goal's suggested asset allocation.
type StrategyAllocation struct {
	Instrument string `json:"instrument"`
	Percent    int    `json:"percent"`
	Note       string `json:"note,omitempty"`
}

// InvestmentStrategy is a static, table-driven allocation suggestion picked
// by goal horizon and risk profile.
type InvestmentStrategy struct {
	Horizon     string               `json:"horizon"`
	Allocations []StrategyAllocation `json:"allocations"`
}

// Goal tracks progress toward a savings target.
type Goal struct {
	ID                    int64               `json:"id"`
	UserID                int64               `json:"user_id"`
	GoalName              string              `json:"goal_name"`
	GoalType              string              `json:"goal_type"`
	TargetAmount          decimal.Decimal     `json:"target_amount"`
	CurrentAmount         decimal.Decimal     `json:"current_amount"`
	TargetDate            time.Time           `json:"target_date"`
	StartDate             time.Time           `json:"start_date"`
	MonthsRemaining       int                 `json:"months_remaining"`
	MonthlySavingRequired decimal.NullDecimal `json:"monthly_saving_required"`
	RiskProfile           string              `json:"risk_profile"`
	Strategy              InvestmentStrategy  `json:"strategy"`
	Status                string              `json:"status"`
	Priority              int                 `json:"priority"`
	Notes                 string              `json:"notes,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}
