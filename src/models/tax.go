package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxInput carries the user-supplied components of a tax calculation.
// All amounts must be non-negative.
type TaxInput struct {
	FinancialYear string `json:"financial_year"`

	SalaryIncome        decimal.Decimal `json:"salary_income"`
	HousePropertyIncome decimal.Decimal `json:"house_property_income"`
	BusinessIncome      decimal.Decimal `json:"business_income"`
	CapitalGainsShort   decimal.Decimal `json:"capital_gains_short"`
	CapitalGainsLong    decimal.Decimal `json:"capital_gains_long"`
	OtherIncome         decimal.Decimal `json:"other_income"`

	Deduction80C     decimal.Decimal `json:"deduction_80c"`
	Deduction80D     decimal.Decimal `json:"deduction_80d"`
	Deduction80CCD1B decimal.Decimal `json:"deduction_80ccd1b"`
	Deduction80E     decimal.Decimal `json:"deduction_80e"`
	Deduction80G     decimal.Decimal `json:"deduction_80g"`
	OtherDeductions  decimal.Decimal `json:"other_deductions"`
}

// SavingsOpportunity is a structured tax-saving recommendation. Rendering
// into user-facing text is a presentation concern and lives elsewhere.
type SavingsOpportunity struct {
	Category        string          `json:"category"`
	Headroom        decimal.Decimal `json:"headroom"`
	EstimatedSaving decimal.Decimal `json:"estimated_saving"`
}

// TaxReturn is the immutable outcome of a single calculation. It is created
// fresh per request and appended to the user's history, never updated.
type TaxReturn struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`

	TaxInput

	TotalIncome          decimal.Decimal      `json:"total_income"`
	TotalDeductions      decimal.Decimal      `json:"total_deductions"`
	TaxableIncome        decimal.Decimal      `json:"taxable_income"`
	TaxOldRegime         decimal.Decimal      `json:"tax_old_regime"`
	TaxNewRegime         decimal.Decimal      `json:"tax_new_regime"`
	RecommendedRegime    string               `json:"recommended_regime"`
	SavingsOpportunities []SavingsOpportunity `json:"savings_opportunities"`

	CalculationDate time.Time `json:"calculation_date"`
	CreatedAt       time.Time `json:"created_at"`
}
