package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
)

// Issue describes a row that could not be converted, keyed by its line in
// the source file so the client can point the user at it.
type Issue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Parser converts a transaction statement CSV into Transaction records. The
// file must carry a header row; columns are matched by name so exports with
// extra or reordered columns still parse.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Column names recognised in the header, lowercased.
const (
	colDate      = "date"
	colType      = "type"
	colSymbol    = "symbol"
	colAssetType = "asset_type"
	colName      = "name"
	colExchange  = "exchange"
	colQuantity  = "quantity"
	colPrice     = "price"
	colFees      = "fees"
	colBroker    = "broker"
	colNotes     = "notes"
)

var requiredColumns = []string{colDate, colType, colSymbol, colQuantity, colPrice}

var dateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// normalizeDecimalString cleans a raw CSV number: surrounding whitespace and
// quotes go, a decimal comma becomes a period.
func normalizeDecimalString(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"")
	return strings.ReplaceAll(cleaned, ",", ".")
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Parse reads the statement and returns the rows that converted cleanly plus
// an issue per row that did not. A malformed header or unreadable file is an
// error; bad rows are not.
func (p *Parser) Parse(file io.Reader) ([]models.Transaction, []Issue, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("csv import: reading header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := colIndex[required]; !ok {
			return nil, nil, fmt.Errorf("csv import: missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var (
		txs    []models.Transaction
		issues []Issue
		line   = 1
	)
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			issues = append(issues, Issue{Line: line, Message: err.Error()})
			continue
		}
		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			continue
		}

		date, err := parseDate(field(record, colDate))
		if err != nil {
			issues = append(issues, Issue{Line: line, Message: err.Error()})
			continue
		}

		txType := strings.ToLower(field(record, colType))
		if txType != models.TransactionBuy && txType != models.TransactionSell {
			issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("unknown transaction type %q", field(record, colType))})
			continue
		}

		quantity, err := decimal.NewFromString(normalizeDecimalString(field(record, colQuantity)))
		if err != nil {
			issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("invalid quantity %q", field(record, colQuantity))})
			continue
		}
		price, err := decimal.NewFromString(normalizeDecimalString(field(record, colPrice)))
		if err != nil {
			issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("invalid price %q", field(record, colPrice))})
			continue
		}

		fees := decimal.Zero
		if raw := field(record, colFees); raw != "" {
			fees, err = decimal.NewFromString(normalizeDecimalString(raw))
			if err != nil {
				issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("invalid fees %q", raw)})
				continue
			}
		}

		assetType := strings.ToLower(field(record, colAssetType))
		if assetType == "" {
			assetType = "stock"
		}

		txs = append(txs, models.Transaction{
			TransactionType: txType,
			AssetType:       assetType,
			Symbol:          strings.ToUpper(field(record, colSymbol)),
			Name:            field(record, colName),
			Exchange:        field(record, colExchange),
			Quantity:        quantity,
			Price:           price,
			Fees:            fees,
			TransactionDate: date,
			Broker:          field(record, colBroker),
			Notes:           field(record, colNotes),
		})
	}

	return txs, issues, nil
}
