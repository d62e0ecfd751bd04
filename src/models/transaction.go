package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction direction values.
const (
	TransactionBuy  = "buy"
	TransactionSell = "sell"
)

// Transaction is an append-only record of a single buy or sell. It is never
// mutated after insertion and always precedes the holding state it produced.
type Transaction struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	HoldingID       int64           `json:"holding_id"`
	TransactionType string          `json:"transaction_type"`
	AssetType       string          `json:"asset_type"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name,omitempty"`
	Exchange        string          `json:"exchange,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Fees            decimal.Decimal `json:"fees"`
	TransactionDate time.Time       `json:"transaction_date"`
	Broker          string          `json:"broker,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
