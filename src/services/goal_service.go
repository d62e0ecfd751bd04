package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/security/validation"
)

// GoalService tracks savings goals and derives the static allocation advice.
type GoalService struct {
	store GoalStore
}

func NewGoalService(store GoalStore) *GoalService {
	return &GoalService{store: store}
}

// CreateGoal fills in the derived fields (months remaining, required monthly
// saving, suggested strategy) and persists the goal.
func (s *GoalService) CreateGoal(g *models.Goal) (*models.Goal, error) {
	now := time.Now()
	if g.StartDate.IsZero() {
		g.StartDate = now
	}
	g.GoalName = validation.SanitizeText(g.GoalName)
	g.Notes = validation.SanitizeText(g.Notes)

	g.MonthsRemaining = monthsBetween(now, g.TargetDate)
	if g.MonthsRemaining > 0 {
		remaining := g.TargetAmount.Sub(g.CurrentAmount)
		monthly := remaining.DivRound(decimal.NewFromInt(int64(g.MonthsRemaining)), models.MoneyScale)
		g.MonthlySavingRequired = decimal.NewNullDecimal(monthly)
	}
	g.Strategy = suggestStrategy(g.MonthsRemaining, g.RiskProfile)
	if g.Status == "" {
		g.Status = models.GoalActive
	}
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.store.Insert(g); err != nil {
		return nil, fmt.Errorf("saving goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) GetUserGoals(userID int64) ([]models.Goal, error) {
	return s.store.ListByUser(userID)
}

func (s *GoalService) GetActiveGoals(userID int64) ([]models.Goal, error) {
	return s.store.ListActiveByUser(userID)
}

// UpdateGoalProgress adds amount to the goal's saved total and marks the
// goal completed when it reaches the target. Goals owned by another user are
// reported as not found.
func (s *GoalService) UpdateGoalProgress(userID, goalID int64, amount decimal.Decimal) (*models.Goal, error) {
	g, err := s.store.FindByID(goalID)
	if err != nil {
		return nil, err
	}
	if g.UserID != userID {
		return nil, ErrGoalNotFound
	}

	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.Status = models.GoalCompleted
	}
	g.UpdatedAt = time.Now()

	if err := s.store.Update(g); err != nil {
		return nil, fmt.Errorf("updating goal %d: %w", goalID, err)
	}
	return g, nil
}

func (s *GoalService) DeleteGoal(userID, goalID int64) error {
	g, err := s.store.FindByID(goalID)
	if err != nil {
		return err
	}
	if g.UserID != userID {
		return ErrGoalNotFound
	}
	return s.store.Delete(goalID)
}

// monthsBetween counts whole calendar months from a to b, zero when b is not
// after a.
func monthsBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// suggestStrategy picks a static allocation by horizon band, then by risk
// profile for long horizons. The tables mirror the product's advice copy;
// presentation formatting happens client-side.
func suggestStrategy(months int, riskProfile string) models.InvestmentStrategy {
	switch {
	case months <= 12:
		return models.InvestmentStrategy{
			Horizon: "short-term",
			Allocations: []models.StrategyAllocation{
				{Instrument: "Liquid Funds", Percent: 50, Note: "7-7.5% returns"},
				{Instrument: "Short-term FDs", Percent: 40, Note: "6.5-7% returns"},
				{Instrument: "Savings Account", Percent: 10, Note: "3 months expenses buffer"},
			},
		}
	case months <= 36:
		return models.InvestmentStrategy{
			Horizon: "medium-term",
			Allocations: []models.StrategyAllocation{
				{Instrument: "Debt Funds", Percent: 60, Note: "8-9% returns"},
				{Instrument: "Conservative Hybrid Funds", Percent: 30},
				{Instrument: "Liquid Funds", Percent: 10},
			},
		}
	}

	switch riskProfile {
	case "aggressive":
		return models.InvestmentStrategy{
			Horizon: "long-term-aggressive",
			Allocations: []models.StrategyAllocation{
				{Instrument: "Equity Mutual Funds", Percent: 70, Note: "12-15% returns"},
				{Instrument: "Mid/Small Cap Funds", Percent: 20},
				{Instrument: "Debt Funds", Percent: 10},
			},
		}
	case "moderate":
		return models.InvestmentStrategy{
			Horizon: "long-term-moderate",
			Allocations: []models.StrategyAllocation{
				{Instrument: "Equity Mutual Funds", Percent: 50},
				{Instrument: "Balanced Hybrid Funds", Percent: 30},
				{Instrument: "Debt Funds", Percent: 20},
			},
		}
	default:
		return models.InvestmentStrategy{
			Horizon: "long-term-conservative",
			Allocations: []models.StrategyAllocation{
				{Instrument: "PPF", Percent: 40, Note: "7.1% tax-free"},
				{Instrument: "Debt Funds", Percent: 30},
				{Instrument: "Equity Funds", Percent: 30},
			},
		}
	}
}
