package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/finassist/backend/src/models"
)

// Common service errors. All of these are recoverable conditions surfaced to
// the caller; handlers translate them to HTTP status codes with errors.Is.
var (
	ErrInvalidTaxInput      = errors.New("tax input contains a negative amount")
	ErrInvalidTransaction   = errors.New("transaction quantity must be positive and price non-negative")
	ErrInsufficientQuantity = errors.New("sell quantity exceeds held quantity")
	ErrHoldingNotFound      = errors.New("holding not found")
	ErrGoalNotFound         = errors.New("goal not found")
	ErrTaxReturnNotFound    = errors.New("tax return not found")
)

// HoldingStore is the persistence contract for holdings. Upsert writes the
// full snapshot including derived valuation fields; the natural unique key
// is (user_id, symbol, asset_type).
type HoldingStore interface {
	FindByID(id int64) (*models.Holding, error)
	FindByKey(userID int64, symbol, assetType string) (*models.Holding, error)
	ListByUser(userID int64) ([]models.Holding, error)
	ListByUserAndAssetType(userID int64, assetType string) ([]models.Holding, error)
	ListUserIDs() ([]int64, error)
	Upsert(h *models.Holding) error
	Delete(id int64) error
}

// TransactionStore appends and lists immutable transaction records.
type TransactionStore interface {
	Insert(tx *models.Transaction) error
	ListByUser(userID int64) ([]models.Transaction, error)
}

// TaxStore appends and lists immutable tax returns.
type TaxStore interface {
	Insert(tr *models.TaxReturn) error
	ListByUser(userID int64) ([]models.TaxReturn, error)
	FindLatestByUserAndYear(userID int64, financialYear string) (*models.TaxReturn, error)
}

// GoalStore persists financial goals.
type GoalStore interface {
	Insert(g *models.Goal) error
	FindByID(id int64) (*models.Goal, error)
	ListByUser(userID int64) ([]models.Goal, error)
	ListActiveByUser(userID int64) ([]models.Goal, error)
	Update(g *models.Goal) error
	Delete(id int64) error
}

// BudgetStore persists budget entries.
type BudgetStore interface {
	Insert(e *models.BudgetEntry) error
	ListByUser(userID int64) ([]models.BudgetEntry, error)
	ListByUserAndType(userID int64, entryType string) ([]models.BudgetEntry, error)
	Delete(userID, id int64) error
}

// PriceService fetches current market prices for a set of symbols. Symbols
// without an available quote are simply absent from the result map.
type PriceService interface {
	GetCurrentPrices(symbols []string) (map[string]decimal.Decimal, error)
}

// Cache tuning shared by the services that memoize per-user aggregates.
const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)
