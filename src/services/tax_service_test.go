package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/finassist/backend/src/models"
)

type memTaxStore struct {
	nextID  int64
	returns []models.TaxReturn
}

func (m *memTaxStore) Insert(tr *models.TaxReturn) error {
	m.nextID++
	tr.ID = m.nextID
	m.returns = append(m.returns, *tr)
	return nil
}

func (m *memTaxStore) ListByUser(userID int64) ([]models.TaxReturn, error) {
	var out []models.TaxReturn
	for i := len(m.returns) - 1; i >= 0; i-- {
		if m.returns[i].UserID == userID {
			out = append(out, m.returns[i])
		}
	}
	return out, nil
}

func (m *memTaxStore) FindLatestByUserAndYear(userID int64, financialYear string) (*models.TaxReturn, error) {
	for i := len(m.returns) - 1; i >= 0; i-- {
		if m.returns[i].UserID == userID && m.returns[i].FinancialYear == financialYear {
			cp := m.returns[i]
			return &cp, nil
		}
	}
	return nil, ErrTaxReturnNotFound
}

func taxInput(salary string) models.TaxInput {
	return models.TaxInput{
		FinancialYear: "2024-25",
		SalaryIncome:  d(salary),
	}
}

func TestCalculateTaxBothRegimes(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	input := taxInput("800000")
	input.Deduction80C = d("150000")

	ret, err := svc.CalculateTax(1, input)
	require.NoError(t, err)

	assert.True(t, d("800000").Equal(ret.TotalIncome))
	assert.True(t, d("150000").Equal(ret.TotalDeductions))
	assert.True(t, d("650000").Equal(ret.TaxableIncome))
	// Old regime on 650000: 250000*5% + 150000*20%, plus 4% cess.
	assert.True(t, d("44200").Equal(ret.TaxOldRegime), "TaxOldRegime = %s", ret.TaxOldRegime)
	// New regime ignores deductions and taxes the full 800000.
	assert.True(t, d("36400").Equal(ret.TaxNewRegime), "TaxNewRegime = %s", ret.TaxNewRegime)
	assert.Equal(t, "New Regime", ret.RecommendedRegime)
}

func TestCalculateTaxZeroIncome(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	ret, err := svc.CalculateTax(1, taxInput("0"))
	require.NoError(t, err)

	assert.True(t, ret.TaxOldRegime.IsZero())
	assert.True(t, ret.TaxNewRegime.IsZero())
	// Equal taxes favor the old regime.
	assert.Equal(t, "Old Regime", ret.RecommendedRegime)
}

func TestCalculateTaxBelowOldRegimeThreshold(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	ret, err := svc.CalculateTax(1, taxInput("250000"))
	require.NoError(t, err)
	assert.True(t, ret.TaxOldRegime.IsZero())
	assert.True(t, ret.TaxNewRegime.IsZero())
}

func TestCalculateTaxTopSlabs(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	ret, err := svc.CalculateTax(1, taxInput("2000000"))
	require.NoError(t, err)

	// Old: 250000*5% + 500000*20% + 1000000*30% = 412500, cess -> 429000.
	assert.True(t, d("429000").Equal(ret.TaxOldRegime), "TaxOldRegime = %s", ret.TaxOldRegime)
	// New: 300000*5% + 300000*10% + 300000*15% + 300000*20% + 500000*30%
	// = 300000, cess -> 312000.
	assert.True(t, d("312000").Equal(ret.TaxNewRegime), "TaxNewRegime = %s", ret.TaxNewRegime)
	assert.Equal(t, "New Regime", ret.RecommendedRegime)
}

func TestCalculateTaxDeductionsCappedAtZero(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	input := taxInput("100000")
	input.Deduction80C = d("150000")

	ret, err := svc.CalculateTax(1, input)
	require.NoError(t, err)
	assert.True(t, ret.TaxableIncome.IsZero(), "taxable income must clamp at zero")
}

func TestCalculateTaxRejectsNegativeComponents(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	input := taxInput("500000")
	input.OtherIncome = d("-1")

	_, err := svc.CalculateTax(1, input)
	assert.ErrorIs(t, err, ErrInvalidTaxInput)

	input = taxInput("500000")
	input.Deduction80D = d("-0.01")
	_, err = svc.CalculateTax(1, input)
	assert.ErrorIs(t, err, ErrInvalidTaxInput)
}

func TestCalculateTaxMonotonicInIncome(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	var prevOld, prevNew decimal.Decimal
	for _, salary := range []string{"200000", "400000", "700000", "1100000", "1600000", "2500000"} {
		ret, err := svc.CalculateTax(1, taxInput(salary))
		require.NoError(t, err)

		assert.True(t, ret.TaxOldRegime.GreaterThanOrEqual(prevOld), "old-regime tax decreased at %s", salary)
		assert.True(t, ret.TaxNewRegime.GreaterThanOrEqual(prevNew), "new-regime tax decreased at %s", salary)
		prevOld, prevNew = ret.TaxOldRegime, ret.TaxNewRegime
	}
}

func TestSavingsOpportunities(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	input := taxInput("1000000")
	input.Deduction80C = d("100000")
	input.Deduction80D = d("25000")

	ret, err := svc.CalculateTax(1, input)
	require.NoError(t, err)

	require.Len(t, ret.SavingsOpportunities, 3)

	first := ret.SavingsOpportunities[0]
	assert.Equal(t, "80C", first.Category)
	assert.True(t, d("50000").Equal(first.Headroom))
	assert.True(t, d("15000").Equal(first.EstimatedSaving))

	// 80D is fully used, so the next slot is the NPS suggestion.
	second := ret.SavingsOpportunities[1]
	assert.Equal(t, "NPS-80CCD1B", second.Category)
	assert.True(t, d("50000").Equal(second.Headroom))
	assert.True(t, d("15600").Equal(second.EstimatedSaving))

	assert.Equal(t, "REGIME-COMPARE", ret.SavingsOpportunities[2].Category)
}

func TestSavingsOpportunitiesAllUsed(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	input := taxInput("1000000")
	input.Deduction80C = d("150000")
	input.Deduction80D = d("25000")
	input.Deduction80CCD1B = d("50000")

	ret, err := svc.CalculateTax(1, input)
	require.NoError(t, err)

	// Only the trailing regime reminder remains.
	require.Len(t, ret.SavingsOpportunities, 1)
	assert.Equal(t, "REGIME-COMPARE", ret.SavingsOpportunities[0].Category)
}

func TestCalculateTaxAppendsHistory(t *testing.T) {
	store := &memTaxStore{}
	svc := NewTaxService(store)

	_, err := svc.CalculateTax(1, taxInput("500000"))
	require.NoError(t, err)
	_, err = svc.CalculateTax(1, taxInput("600000"))
	require.NoError(t, err)

	returns, err := svc.GetUserTaxReturns(1)
	require.NoError(t, err)
	assert.Len(t, returns, 2)

	latest, err := svc.GetLatestTaxReturn(1, "2024-25")
	require.NoError(t, err)
	assert.True(t, d("600000").Equal(latest.TotalIncome))
}

func TestGetLatestTaxReturnNotFound(t *testing.T) {
	svc := NewTaxService(&memTaxStore{})

	_, err := svc.GetLatestTaxReturn(1, "2023-24")
	assert.ErrorIs(t, err, ErrTaxReturnNotFound)
}
