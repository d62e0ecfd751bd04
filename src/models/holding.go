package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents a user's open position in a single instrument,
// uniquely keyed by (UserID, Symbol, AssetType). A holding only exists
// while its quantity is positive; selling a position down to zero deletes
// the row rather than flagging it closed.
type Holding struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	AssetType       string          `json:"asset_type"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Exchange        string          `json:"exchange,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
	TotalInvested   decimal.Decimal `json:"total_invested"`

	// Market-dependent fields. These stay unset until a price is known;
	// NullDecimal keeps absence distinguishable from a legitimate zero.
	CurrentPrice            decimal.NullDecimal `json:"current_price"`
	CurrentValue            decimal.NullDecimal `json:"current_value"`
	UnrealizedPnl           decimal.NullDecimal `json:"unrealized_pnl"`
	UnrealizedPnlPercentage decimal.NullDecimal `json:"unrealized_pnl_percentage"`
	LastPriceUpdate         NullTime            `json:"last_price_update"`

	Broker    string    `json:"broker,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NullTime is an alias for sql.NullTime for better JSON handling.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

// PortfolioSummary aggregates a user's holdings. A holding without a known
// market value contributes its cost basis to TotalValue and nothing to
// TotalUnrealizedPnL.
type PortfolioSummary struct {
	TotalValue         decimal.Decimal `json:"total_value"`
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
}
