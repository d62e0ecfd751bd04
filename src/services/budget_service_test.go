package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/finassist/backend/src/models"
)

type memBudgetStore struct {
	nextID  int64
	entries map[int64]*models.BudgetEntry
}

func newMemBudgetStore() *memBudgetStore {
	return &memBudgetStore{entries: make(map[int64]*models.BudgetEntry)}
}

func (m *memBudgetStore) Insert(e *models.BudgetEntry) error {
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memBudgetStore) ListByUser(userID int64) ([]models.BudgetEntry, error) {
	var out []models.BudgetEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memBudgetStore) ListByUserAndType(userID int64, entryType string) ([]models.BudgetEntry, error) {
	var out []models.BudgetEntry
	for _, e := range m.entries {
		if e.UserID == userID && e.Type == entryType {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memBudgetStore) Delete(userID, id int64) error {
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return nil
	}
	delete(m.entries, id)
	return nil
}

func TestAddEntryDefaultsEntryDate(t *testing.T) {
	svc := NewBudgetService(newMemBudgetStore())

	e, err := svc.AddEntry(&models.BudgetEntry{
		UserID:   1,
		Category: "Groceries",
		Amount:   d("4500"),
		Type:     models.BudgetExpense,
	})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.False(t, e.EntryDate.IsZero())
	assert.WithinDuration(t, time.Now(), e.EntryDate, time.Minute)
}

func TestAddEntryRejectsUnknownType(t *testing.T) {
	svc := NewBudgetService(newMemBudgetStore())

	_, err := svc.AddEntry(&models.BudgetEntry{
		UserID:   1,
		Category: "Salary",
		Amount:   d("50000"),
		Type:     "transfer",
	})
	assert.Error(t, err)
}

func TestAddEntrySanitizesText(t *testing.T) {
	svc := NewBudgetService(newMemBudgetStore())

	e, err := svc.AddEntry(&models.BudgetEntry{
		UserID:      1,
		Category:    "<script>alert(1)</script>Rent",
		Description: "monthly <b>rent</b>",
		Amount:      d("18000"),
		Type:        models.BudgetExpense,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rent", e.Category)
	assert.Equal(t, "monthly rent", e.Description)
}

func TestGetUserEntriesByType(t *testing.T) {
	store := newMemBudgetStore()
	svc := NewBudgetService(store)

	add := func(category, entryType, amount string) {
		_, err := svc.AddEntry(&models.BudgetEntry{
			UserID:   1,
			Category: category,
			Amount:   d(amount),
			Type:     entryType,
		})
		require.NoError(t, err)
	}
	add("Salary", models.BudgetIncome, "80000")
	add("Rent", models.BudgetExpense, "18000")
	add("Groceries", models.BudgetExpense, "4500")

	expenses, err := svc.GetUserEntriesByType(1, models.BudgetExpense)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	income, err := svc.GetUserEntriesByType(1, models.BudgetIncome)
	require.NoError(t, err)
	assert.Len(t, income, 1)

	all, err := svc.GetUserEntries(1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteEntryScopedToUser(t *testing.T) {
	store := newMemBudgetStore()
	svc := NewBudgetService(store)

	e, err := svc.AddEntry(&models.BudgetEntry{
		UserID:   1,
		Category: "Rent",
		Amount:   d("18000"),
		Type:     models.BudgetExpense,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(2, e.ID))
	remaining, err := svc.GetUserEntries(1)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "another user's delete must not remove the entry")

	require.NoError(t, svc.DeleteEntry(1, e.ID))
	remaining, err = svc.GetUserEntries(1)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
