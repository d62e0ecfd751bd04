package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
)

// Statutory figures for the two regimes (FY 2024-25). Both tables are
// marginal: each slab taxes only the portion of income inside it.
var (
	cessFactor = decimal.RequireFromString("1.04")

	oldRegimeSlabs = []taxSlab{
		{threshold: decimal.NewFromInt(250000), width: decimal.NewFromInt(250000), rate: decimal.RequireFromString("0.05")},
		{threshold: decimal.NewFromInt(500000), width: decimal.NewFromInt(500000), rate: decimal.RequireFromString("0.20")},
		{threshold: decimal.NewFromInt(1000000), rate: decimal.RequireFromString("0.30")},
	}

	newRegimeSlabs = []taxSlab{
		{threshold: decimal.NewFromInt(300000), width: decimal.NewFromInt(300000), rate: decimal.RequireFromString("0.05")},
		{threshold: decimal.NewFromInt(600000), width: decimal.NewFromInt(300000), rate: decimal.RequireFromString("0.10")},
		{threshold: decimal.NewFromInt(900000), width: decimal.NewFromInt(300000), rate: decimal.RequireFromString("0.15")},
		{threshold: decimal.NewFromInt(1200000), width: decimal.NewFromInt(300000), rate: decimal.RequireFromString("0.20")},
		{threshold: decimal.NewFromInt(1500000), rate: decimal.RequireFromString("0.30")},
	}

	max80C          = decimal.NewFromInt(150000)
	max80D          = decimal.NewFromInt(25000)
	npsHeadroom     = decimal.NewFromInt(50000)
	npsFixedSaving  = decimal.NewFromInt(15600)
	marginalRate30  = decimal.RequireFromString("0.30")
	regimeOldLabel  = "Old Regime"
	regimeNewLabel  = "New Regime"
	generalReminder = models.SavingsOpportunity{Category: "REGIME-COMPARE"}
)

// taxSlab taxes income above threshold at rate, capped at width when width
// is set (the topmost slab of each table is unbounded).
type taxSlab struct {
	threshold decimal.Decimal
	width     decimal.Decimal
	rate      decimal.Decimal
}

// TaxService computes dual-regime income tax. Calculations share no mutable
// state and may run fully in parallel.
type TaxService struct {
	store TaxStore
}

func NewTaxService(store TaxStore) *TaxService {
	return &TaxService{store: store}
}

// CalculateTax builds an immutable TaxReturn from the given input and
// appends it to the user's history. Any negative income or deduction
// component rejects the whole input before computation.
func (s *TaxService) CalculateTax(userID int64, input models.TaxInput) (*models.TaxReturn, error) {
	if err := validateTaxInput(input); err != nil {
		return nil, err
	}

	totalIncome := input.SalaryIncome.
		Add(input.HousePropertyIncome).
		Add(input.BusinessIncome).
		Add(input.CapitalGainsShort).
		Add(input.CapitalGainsLong).
		Add(input.OtherIncome)

	totalDeductions := input.Deduction80C.
		Add(input.Deduction80D).
		Add(input.Deduction80CCD1B).
		Add(input.Deduction80E).
		Add(input.Deduction80G).
		Add(input.OtherDeductions)

	taxableIncome := totalIncome.Sub(totalDeductions)
	if taxableIncome.IsNegative() {
		taxableIncome = decimal.Zero
	}

	// Old regime taxes post-deduction income; the new regime disallows the
	// deductions and taxes total income against its wider slabs.
	taxOld := calculateSlabTax(taxableIncome, oldRegimeSlabs)
	taxNew := calculateSlabTax(totalIncome, newRegimeSlabs)

	recommended := regimeNewLabel
	if taxOld.LessThanOrEqual(taxNew) {
		recommended = regimeOldLabel
	}

	now := time.Now()
	ret := &models.TaxReturn{
		UserID:               userID,
		TaxInput:             input,
		TotalIncome:          totalIncome,
		TotalDeductions:      totalDeductions,
		TaxableIncome:        taxableIncome,
		TaxOldRegime:         taxOld,
		TaxNewRegime:         taxNew,
		RecommendedRegime:    recommended,
		SavingsOpportunities: savingsOpportunities(input),
		CalculationDate:      now,
		CreatedAt:            now,
	}

	if s.store != nil {
		if err := s.store.Insert(ret); err != nil {
			return nil, fmt.Errorf("saving tax return: %w", err)
		}
	}
	return ret, nil
}

func validateTaxInput(input models.TaxInput) error {
	components := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"salary_income", input.SalaryIncome},
		{"house_property_income", input.HousePropertyIncome},
		{"business_income", input.BusinessIncome},
		{"capital_gains_short", input.CapitalGainsShort},
		{"capital_gains_long", input.CapitalGainsLong},
		{"other_income", input.OtherIncome},
		{"deduction_80c", input.Deduction80C},
		{"deduction_80d", input.Deduction80D},
		{"deduction_80ccd1b", input.Deduction80CCD1B},
		{"deduction_80e", input.Deduction80E},
		{"deduction_80g", input.Deduction80G},
		{"other_deductions", input.OtherDeductions},
	}
	for _, c := range components {
		if c.amount.IsNegative() {
			return fmt.Errorf("%w: %s", ErrInvalidTaxInput, c.name)
		}
	}
	return nil
}

// calculateSlabTax applies a marginal bracket table, adds the 4% cess, and
// rounds the result to money scale.
func calculateSlabTax(income decimal.Decimal, slabs []taxSlab) decimal.Decimal {
	tax := decimal.Zero
	for _, slab := range slabs {
		if income.LessThanOrEqual(slab.threshold) {
			continue
		}
		portion := income.Sub(slab.threshold)
		if !slab.width.IsZero() && portion.GreaterThan(slab.width) {
			portion = slab.width
		}
		tax = tax.Add(portion.Mul(slab.rate))
	}
	return tax.Mul(cessFactor).Round(models.MoneyScale)
}

// savingsOpportunities emits the rule-ordered structured recommendations.
// The trailing regime-comparison reminder is always present.
func savingsOpportunities(input models.TaxInput) []models.SavingsOpportunity {
	var out []models.SavingsOpportunity

	if input.Deduction80C.LessThan(max80C) {
		headroom := max80C.Sub(input.Deduction80C)
		out = append(out, models.SavingsOpportunity{
			Category:        "80C",
			Headroom:        headroom,
			EstimatedSaving: headroom.Mul(marginalRate30),
		})
	}
	if input.Deduction80D.LessThan(max80D) {
		headroom := max80D.Sub(input.Deduction80D)
		out = append(out, models.SavingsOpportunity{
			Category:        "80D",
			Headroom:        headroom,
			EstimatedSaving: headroom.Mul(marginalRate30),
		})
	}
	if input.Deduction80CCD1B.IsZero() {
		out = append(out, models.SavingsOpportunity{
			Category:        "NPS-80CCD1B",
			Headroom:        npsHeadroom,
			EstimatedSaving: npsFixedSaving,
		})
	}

	out = append(out, generalReminder)
	return out
}

func (s *TaxService) GetUserTaxReturns(userID int64) ([]models.TaxReturn, error) {
	return s.store.ListByUser(userID)
}

func (s *TaxService) GetLatestTaxReturn(userID int64, financialYear string) (*models.TaxReturn, error) {
	return s.store.FindLatestByUserAndYear(userID, financialYear)
}
