package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
	"github.com/username/finassist/backend/src/services"
)

const holdingColumns = `id, user_id, asset_type, symbol, name, exchange, quantity,
	average_buy_price, total_invested, current_price, current_value, unrealized_pnl,
	unrealized_pnl_percentage, last_price_update, broker, notes, created_at, updated_at`

// HoldingStore is the sqlite implementation of services.HoldingStore.
// Decimal columns are stored as TEXT to keep them exact.
type HoldingStore struct {
	db *sql.DB
}

func NewHoldingStore(db *sql.DB) *HoldingStore {
	return &HoldingStore{db: db}
}

func (s *HoldingStore) FindByID(id int64) (*models.Holding, error) {
	row := s.db.QueryRow(`SELECT `+holdingColumns+` FROM portfolio_holdings WHERE id = ?`, id)
	return scanHolding(row)
}

func (s *HoldingStore) FindByKey(userID int64, symbol, assetType string) (*models.Holding, error) {
	row := s.db.QueryRow(`SELECT `+holdingColumns+`
		FROM portfolio_holdings
		WHERE user_id = ? AND symbol = ? AND asset_type = ?`, userID, symbol, assetType)
	return scanHolding(row)
}

func (s *HoldingStore) ListByUser(userID int64) ([]models.Holding, error) {
	rows, err := s.db.Query(`SELECT `+holdingColumns+`
		FROM portfolio_holdings
		WHERE user_id = ?
		ORDER BY total_invested DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHoldings(rows)
}

func (s *HoldingStore) ListByUserAndAssetType(userID int64, assetType string) ([]models.Holding, error) {
	rows, err := s.db.Query(`SELECT `+holdingColumns+`
		FROM portfolio_holdings
		WHERE user_id = ? AND asset_type = ?
		ORDER BY total_invested DESC`, userID, assetType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHoldings(rows)
}

func (s *HoldingStore) ListUserIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM portfolio_holdings ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert writes the holding's full snapshot, including the derived valuation
// fields, merging on the natural key (user_id, symbol, asset_type).
func (s *HoldingStore) Upsert(h *models.Holding) error {
	_, err := s.db.Exec(`
		INSERT INTO portfolio_holdings (user_id, asset_type, symbol, name, exchange, quantity,
			average_buy_price, total_invested, current_price, current_value, unrealized_pnl,
			unrealized_pnl_percentage, last_price_update, broker, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, symbol, asset_type) DO UPDATE SET
			name = excluded.name,
			exchange = excluded.exchange,
			quantity = excluded.quantity,
			average_buy_price = excluded.average_buy_price,
			total_invested = excluded.total_invested,
			current_price = excluded.current_price,
			current_value = excluded.current_value,
			unrealized_pnl = excluded.unrealized_pnl,
			unrealized_pnl_percentage = excluded.unrealized_pnl_percentage,
			last_price_update = excluded.last_price_update,
			broker = excluded.broker,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		h.UserID, h.AssetType, h.Symbol, h.Name, h.Exchange,
		h.Quantity.String(), h.AverageBuyPrice.String(), h.TotalInvested.String(),
		nullDecimalArg(h.CurrentPrice), nullDecimalArg(h.CurrentValue),
		nullDecimalArg(h.UnrealizedPnl), nullDecimalArg(h.UnrealizedPnlPercentage),
		nullTimeArg(h.LastPriceUpdate), h.Broker, h.Notes, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if h.ID == 0 {
		row := s.db.QueryRow(`SELECT id FROM portfolio_holdings
			WHERE user_id = ? AND symbol = ? AND asset_type = ?`,
			h.UserID, h.Symbol, h.AssetType)
		if err := row.Scan(&h.ID); err != nil {
			return fmt.Errorf("resolving upserted holding id: %w", err)
		}
	}
	return nil
}

func (s *HoldingStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM portfolio_holdings WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*models.Holding, error) {
	var h models.Holding
	var name, exchange, broker, notes sql.NullString
	var quantity, avgPrice, invested string
	var price, value, pnl, pnlPct sql.NullString
	var lastPriceUpdate sql.NullTime

	err := row.Scan(
		&h.ID, &h.UserID, &h.AssetType, &h.Symbol, &name, &exchange,
		&quantity, &avgPrice, &invested, &price, &value, &pnl, &pnlPct,
		&lastPriceUpdate, &broker, &notes, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrHoldingNotFound
		}
		return nil, err
	}

	h.Name = name.String
	h.Exchange = exchange.String
	h.Broker = broker.String
	h.Notes = notes.String
	h.LastPriceUpdate = models.NullTime(lastPriceUpdate)

	if h.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("holding %d quantity: %w", h.ID, err)
	}
	if h.AverageBuyPrice, err = decimal.NewFromString(avgPrice); err != nil {
		return nil, fmt.Errorf("holding %d average_buy_price: %w", h.ID, err)
	}
	if h.TotalInvested, err = decimal.NewFromString(invested); err != nil {
		return nil, fmt.Errorf("holding %d total_invested: %w", h.ID, err)
	}
	if h.CurrentPrice, err = parseNullDecimal(price); err != nil {
		return nil, fmt.Errorf("holding %d current_price: %w", h.ID, err)
	}
	if h.CurrentValue, err = parseNullDecimal(value); err != nil {
		return nil, fmt.Errorf("holding %d current_value: %w", h.ID, err)
	}
	if h.UnrealizedPnl, err = parseNullDecimal(pnl); err != nil {
		return nil, fmt.Errorf("holding %d unrealized_pnl: %w", h.ID, err)
	}
	if h.UnrealizedPnlPercentage, err = parseNullDecimal(pnlPct); err != nil {
		return nil, fmt.Errorf("holding %d unrealized_pnl_percentage: %w", h.ID, err)
	}

	return &h, nil
}

func scanHoldings(rows *sql.Rows) ([]models.Holding, error) {
	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}
	return holdings, rows.Err()
}

func nullDecimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func parseNullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nullTimeArg(t models.NullTime) any {
	if !t.Valid {
		return nil
	}
	return t.Time
}
