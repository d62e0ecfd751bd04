package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/services"
)

const goalColumns = `id, user_id, goal_name, goal_type, target_amount, current_amount,
	target_date, start_date, months_remaining, monthly_saving_required, risk_profile,
	strategy, status, priority, notes, created_at, updated_at`

// GoalStore is the sqlite implementation of services.GoalStore. The derived
// strategy is stored as a JSON document alongside the scalar columns.
type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

func (s *GoalStore) Insert(g *models.Goal) error {
	strategy, err := json.Marshal(g.Strategy)
	if err != nil {
		return fmt.Errorf("encoding strategy: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO financial_goals (user_id, goal_name, goal_type, target_amount, current_amount,
			target_date, start_date, months_remaining, monthly_saving_required, risk_profile,
			strategy, status, priority, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.GoalName, g.GoalType, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.TargetDate, g.StartDate, g.MonthsRemaining, nullDecimalArg(g.MonthlySavingRequired),
		g.RiskProfile, string(strategy), g.Status, g.Priority, g.Notes, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

func (s *GoalStore) FindByID(id int64) (*models.Goal, error) {
	row := s.db.QueryRow(`SELECT `+goalColumns+` FROM financial_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrGoalNotFound
		}
		return nil, err
	}
	return g, nil
}

func (s *GoalStore) ListByUser(userID int64) ([]models.Goal, error) {
	rows, err := s.db.Query(`SELECT `+goalColumns+`
		FROM financial_goals
		WHERE user_id = ?
		ORDER BY priority, target_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGoals(rows)
}

func (s *GoalStore) ListActiveByUser(userID int64) ([]models.Goal, error) {
	rows, err := s.db.Query(`SELECT `+goalColumns+`
		FROM financial_goals
		WHERE user_id = ? AND status = ?
		ORDER BY priority, target_date`, userID, models.GoalActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGoals(rows)
}

func (s *GoalStore) Update(g *models.Goal) error {
	strategy, err := json.Marshal(g.Strategy)
	if err != nil {
		return fmt.Errorf("encoding strategy: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE financial_goals
		SET goal_name = ?, goal_type = ?, target_amount = ?, current_amount = ?,
			target_date = ?, start_date = ?, months_remaining = ?, monthly_saving_required = ?,
			risk_profile = ?, strategy = ?, status = ?, priority = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		g.GoalName, g.GoalType, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.TargetDate, g.StartDate, g.MonthsRemaining, nullDecimalArg(g.MonthlySavingRequired),
		g.RiskProfile, string(strategy), g.Status, g.Priority, g.Notes, g.UpdatedAt, g.ID,
	)
	return err
}

func (s *GoalStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM financial_goals WHERE id = ?`, id)
	return err
}

func scanGoal(row rowScanner) (*models.Goal, error) {
	var g models.Goal
	var target, current string
	var monthly sql.NullString
	var strategy string
	var notes sql.NullString

	err := row.Scan(
		&g.ID, &g.UserID, &g.GoalName, &g.GoalType, &target, &current,
		&g.TargetDate, &g.StartDate, &g.MonthsRemaining, &monthly, &g.RiskProfile,
		&strategy, &g.Status, &g.Priority, &notes, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.Notes = notes.String

	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("goal %d target_amount: %w", g.ID, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("goal %d current_amount: %w", g.ID, err)
	}
	if g.MonthlySavingRequired, err = parseNullDecimal(monthly); err != nil {
		return nil, fmt.Errorf("goal %d monthly_saving_required: %w", g.ID, err)
	}
	if err := json.Unmarshal([]byte(strategy), &g.Strategy); err != nil {
		return nil, fmt.Errorf("goal %d strategy: %w", g.ID, err)
	}
	return &g, nil
}

func scanGoals(rows *sql.Rows) ([]models.Goal, error) {
	var goals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}
