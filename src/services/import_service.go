package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/parsers/csvimport"
	"github.com/username/finassist/backend/src/security/validation"
)

// ImportResult summarises one statement import. Rejected rows carry the
// source line and the reason so the client can surface them.
type ImportResult struct {
	TotalRows    int               `json:"total_rows"`
	Imported     int               `json:"imported"`
	Rejected     int               `json:"rejected"`
	Issues       []csvimport.Issue `json:"issues,omitempty"`
	RowsRejected []RejectedRow     `json:"rows_rejected,omitempty"`
}

// RejectedRow is a parsed row the portfolio refused, e.g. a sell exceeding
// the held quantity.
type RejectedRow struct {
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

// ImportService runs broker statement CSVs through the parser and records
// each valid row as a portfolio transaction. Rows are applied in file order,
// so a statement that sells what an earlier row bought imports cleanly.
type ImportService struct {
	portfolio *PortfolioService
	parser    *csvimport.Parser
}

func NewImportService(portfolio *PortfolioService) *ImportService {
	return &ImportService{
		portfolio: portfolio,
		parser:    csvimport.NewParser(),
	}
}

// ProcessImport parses the statement and records its transactions for the
// user. A row that fails validation or is refused by the ledger is reported
// and skipped; the rest of the file still imports.
func (s *ImportService) ProcessImport(userID int64, file io.Reader) (*ImportResult, error) {
	txs, issues, err := s.parser.Parse(file)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		TotalRows: len(txs) + len(issues),
		Issues:    issues,
	}
	contextID := fmt.Sprintf("import-user-%d", userID)

	for _, tx := range txs {
		if err := s.validateRow(&tx, contextID); err != nil {
			result.RowsRejected = append(result.RowsRejected, RejectedRow{Symbol: tx.Symbol, Message: err.Error()})
			continue
		}

		tx.UserID = userID
		if _, err := s.portfolio.RecordTransaction(&tx); err != nil {
			if errors.Is(err, ErrInsufficientQuantity) || errors.Is(err, ErrHoldingNotFound) || errors.Is(err, ErrInvalidTransaction) {
				result.RowsRejected = append(result.RowsRejected, RejectedRow{Symbol: tx.Symbol, Message: err.Error()})
				continue
			}
			return nil, fmt.Errorf("recording imported transaction for %s: %w", tx.Symbol, err)
		}
		result.Imported++
	}

	result.Rejected = result.TotalRows - result.Imported
	logger.L.Info("statement import finished",
		"userID", userID,
		"totalRows", result.TotalRows,
		"imported", result.Imported,
		"rejected", result.Rejected)
	return result, nil
}

func (s *ImportService) validateRow(tx *models.Transaction, contextID string) error {
	if err := validation.ValidateSymbol(tx.Symbol); err != nil {
		return err
	}
	if err := validation.ValidatePositiveAmount(tx.Quantity, "quantity"); err != nil {
		return err
	}
	if err := validation.ValidatePositiveAmount(tx.Price, "price"); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeAmount(tx.Fees, "fees"); err != nil {
		return err
	}
	for field, value := range map[string]string{"name": tx.Name, "exchange": tx.Exchange, "broker": tx.Broker, "notes": tx.Notes} {
		if value == "" {
			continue
		}
		if err := validation.CheckXSSPatterns(value, field, contextID); err != nil {
			return err
		}
		if err := validation.CheckFormulaInjection(value, field, contextID); err != nil {
			return err
		}
	}
	tx.Name = validation.SanitizeText(tx.Name)
	tx.Notes = validation.SanitizeText(tx.Notes)
	return nil
}
