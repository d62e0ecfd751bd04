package storage

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
)

// BudgetStore is the sqlite implementation of services.BudgetStore.
type BudgetStore struct {
	db *sql.DB
}

func NewBudgetStore(db *sql.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

func (s *BudgetStore) Insert(e *models.BudgetEntry) error {
	res, err := s.db.Exec(`
		INSERT INTO budget_entries (user_id, category, amount, type, description, entry_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Category, e.Amount.String(), e.Type, e.Description, e.EntryDate, e.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (s *BudgetStore) ListByUser(userID int64) ([]models.BudgetEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category, amount, type, description, entry_date, created_at
		FROM budget_entries
		WHERE user_id = ?
		ORDER BY entry_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBudgetEntries(rows)
}

func (s *BudgetStore) ListByUserAndType(userID int64, entryType string) ([]models.BudgetEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category, amount, type, description, entry_date, created_at
		FROM budget_entries
		WHERE user_id = ? AND type = ?
		ORDER BY entry_date DESC, id DESC`, userID, entryType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBudgetEntries(rows)
}

func (s *BudgetStore) Delete(userID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM budget_entries WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

func scanBudgetEntries(rows *sql.Rows) ([]models.BudgetEntry, error) {
	var entries []models.BudgetEntry
	for rows.Next() {
		var e models.BudgetEntry
		var amount string
		var description sql.NullString

		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &amount, &e.Type,
			&description, &e.EntryDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Description = description.String

		var err error
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("budget entry %d amount: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
