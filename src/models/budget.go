package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget entry types.
const (
	BudgetIncome  = "income"
	BudgetExpense = "expense"
)

// BudgetEntry is a plain bookkeeping record, either income or expense.
type BudgetEntry struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	EntryDate   time.Time       `json:"entry_date"`
	CreatedAt   time.Time       `json:"created_at"`
}
