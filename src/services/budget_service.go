package services

import (
	"fmt"
	"time"

	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/security/validation"
)

// BudgetService is plain bookkeeping over budget entries.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

func (s *BudgetService) AddEntry(e *models.BudgetEntry) (*models.BudgetEntry, error) {
	if e.Type != models.BudgetIncome && e.Type != models.BudgetExpense {
		return nil, fmt.Errorf("invalid budget entry type %q", e.Type)
	}
	e.Category = validation.SanitizeText(e.Category)
	e.Description = validation.SanitizeText(e.Description)
	if e.EntryDate.IsZero() {
		e.EntryDate = time.Now()
	}
	e.CreatedAt = time.Now()

	if err := s.store.Insert(e); err != nil {
		return nil, fmt.Errorf("saving budget entry: %w", err)
	}
	return e, nil
}

func (s *BudgetService) GetUserEntries(userID int64) ([]models.BudgetEntry, error) {
	return s.store.ListByUser(userID)
}

func (s *BudgetService) GetUserEntriesByType(userID int64, entryType string) ([]models.BudgetEntry, error) {
	return s.store.ListByUserAndType(userID, entryType)
}

func (s *BudgetService) DeleteEntry(userID, id int64) error {
	return s.store.Delete(userID, id)
}
