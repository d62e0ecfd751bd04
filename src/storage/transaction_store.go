package storage

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/models"
)

// TransactionStore is the sqlite implementation of services.TransactionStore.
// Rows are append-only; there are no update or delete statements here.
type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Insert(tx *models.Transaction) error {
	res, err := s.db.Exec(`
		INSERT INTO portfolio_transactions (user_id, holding_id, transaction_type, asset_type,
			symbol, name, exchange, quantity, price, total_amount, fees, transaction_date, broker, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.HoldingID, tx.TransactionType, tx.AssetType, tx.Symbol, tx.Name, tx.Exchange,
		tx.Quantity.String(), tx.Price.String(), tx.TotalAmount.String(), tx.Fees.String(),
		tx.TransactionDate, tx.Broker, tx.Notes, tx.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tx.ID = id
	return nil
}

func (s *TransactionStore) ListByUser(userID int64) ([]models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, holding_id, transaction_type, asset_type, symbol, name, exchange,
			quantity, price, total_amount, fees, transaction_date, broker, notes, created_at
		FROM portfolio_transactions
		WHERE user_id = ?
		ORDER BY transaction_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var name, exchange, broker, notes sql.NullString
		var quantity, price, amount, fees string

		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.HoldingID, &tx.TransactionType, &tx.AssetType, &tx.Symbol,
			&name, &exchange, &quantity, &price, &amount, &fees, &tx.TransactionDate, &broker, &notes, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		tx.Name = name.String
		tx.Exchange = exchange.String
		tx.Broker = broker.String
		tx.Notes = notes.String

		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("transaction %d quantity: %w", tx.ID, err)
		}
		if tx.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("transaction %d price: %w", tx.ID, err)
		}
		if tx.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %d total_amount: %w", tx.ID, err)
		}
		if tx.Fees, err = decimal.NewFromString(fees); err != nil {
			return nil, fmt.Errorf("transaction %d fees: %w", tx.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
