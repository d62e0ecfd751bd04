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

const taxColumns = `id, user_id, financial_year, salary_income, house_property_income,
	business_income, capital_gains_short, capital_gains_long, other_income,
	deduction_80c, deduction_80d, deduction_80ccd1b, deduction_80e, deduction_80g,
	other_deductions, total_income, total_deductions, taxable_income,
	tax_old_regime, tax_new_regime, recommended_regime, savings_opportunities,
	calculation_date, created_at`

// TaxStore is the sqlite implementation of services.TaxStore. Returns are
// append-only history; savings opportunities are stored as a JSON document.
type TaxStore struct {
	db *sql.DB
}

func NewTaxStore(db *sql.DB) *TaxStore {
	return &TaxStore{db: db}
}

func (s *TaxStore) Insert(tr *models.TaxReturn) error {
	opportunities, err := json.Marshal(tr.SavingsOpportunities)
	if err != nil {
		return fmt.Errorf("encoding savings opportunities: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO tax_returns (user_id, financial_year, salary_income, house_property_income,
			business_income, capital_gains_short, capital_gains_long, other_income,
			deduction_80c, deduction_80d, deduction_80ccd1b, deduction_80e, deduction_80g,
			other_deductions, total_income, total_deductions, taxable_income,
			tax_old_regime, tax_new_regime, recommended_regime, savings_opportunities,
			calculation_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.UserID, tr.FinancialYear,
		tr.SalaryIncome.String(), tr.HousePropertyIncome.String(), tr.BusinessIncome.String(),
		tr.CapitalGainsShort.String(), tr.CapitalGainsLong.String(), tr.OtherIncome.String(),
		tr.Deduction80C.String(), tr.Deduction80D.String(), tr.Deduction80CCD1B.String(),
		tr.Deduction80E.String(), tr.Deduction80G.String(), tr.OtherDeductions.String(),
		tr.TotalIncome.String(), tr.TotalDeductions.String(), tr.TaxableIncome.String(),
		tr.TaxOldRegime.String(), tr.TaxNewRegime.String(), tr.RecommendedRegime,
		string(opportunities), tr.CalculationDate, tr.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tr.ID = id
	return nil
}

func (s *TaxStore) ListByUser(userID int64) ([]models.TaxReturn, error) {
	rows, err := s.db.Query(`SELECT `+taxColumns+`
		FROM tax_returns
		WHERE user_id = ?
		ORDER BY calculation_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var returns []models.TaxReturn
	for rows.Next() {
		tr, err := scanTaxReturn(rows)
		if err != nil {
			return nil, err
		}
		returns = append(returns, *tr)
	}
	return returns, rows.Err()
}

func (s *TaxStore) FindLatestByUserAndYear(userID int64, financialYear string) (*models.TaxReturn, error) {
	row := s.db.QueryRow(`SELECT `+taxColumns+`
		FROM tax_returns
		WHERE user_id = ? AND financial_year = ?
		ORDER BY calculation_date DESC, id DESC
		LIMIT 1`, userID, financialYear)
	tr, err := scanTaxReturn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrTaxReturnNotFound
		}
		return nil, err
	}
	return tr, nil
}

func scanTaxReturn(row rowScanner) (*models.TaxReturn, error) {
	var tr models.TaxReturn
	var opportunities string
	amounts := make([]string, 17)
	dest := []any{&tr.ID, &tr.UserID, &tr.FinancialYear}
	for i := range amounts {
		dest = append(dest, &amounts[i])
	}
	dest = append(dest, &tr.RecommendedRegime, &opportunities, &tr.CalculationDate, &tr.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	fields := []*decimal.Decimal{
		&tr.SalaryIncome, &tr.HousePropertyIncome, &tr.BusinessIncome,
		&tr.CapitalGainsShort, &tr.CapitalGainsLong, &tr.OtherIncome,
		&tr.Deduction80C, &tr.Deduction80D, &tr.Deduction80CCD1B,
		&tr.Deduction80E, &tr.Deduction80G, &tr.OtherDeductions,
		&tr.TotalIncome, &tr.TotalDeductions, &tr.TaxableIncome,
		&tr.TaxOldRegime, &tr.TaxNewRegime,
	}
	for i, field := range fields {
		d, err := decimal.NewFromString(amounts[i])
		if err != nil {
			return nil, fmt.Errorf("tax return %d column %d: %w", tr.ID, i, err)
		}
		*field = d
	}

	if err := json.Unmarshal([]byte(opportunities), &tr.SavingsOpportunities); err != nil {
		return nil, fmt.Errorf("tax return %d savings opportunities: %w", tr.ID, err)
	}
	return &tr, nil
}
