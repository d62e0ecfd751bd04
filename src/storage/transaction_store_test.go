package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/username/finassist/backend/src/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	return db
}

func testTx(userID int64, symbol string, date time.Time) *models.Transaction {
	return &models.Transaction{
		UserID:          userID,
		HoldingID:       7,
		TransactionType: models.TransactionBuy,
		AssetType:       "stock",
		Symbol:          symbol,
		Quantity:        decimal.RequireFromString("10"),
		Price:           decimal.RequireFromString("1500.50"),
		TotalAmount:     decimal.RequireFromString("15005"),
		Fees:            decimal.RequireFromString("20"),
		TransactionDate: date,
		CreatedAt:       date,
	}
}

func TestTransactionStoreRoundTrip(t *testing.T) {
	store := NewTransactionStore(newTestDB(t))

	now := time.Now().UTC().Truncate(time.Second)
	tx := testTx(1, "INFY", now)
	tx.Name = "Infosys Ltd"
	tx.Exchange = "NSE"
	tx.Broker = "zerodha"
	tx.Notes = "monthly purchase"
	require.NoError(t, store.Insert(tx))
	assert.NotZero(t, tx.ID)

	txs, err := store.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	got := txs[0]
	assert.Equal(t, "Infosys Ltd", got.Name)
	assert.Equal(t, "NSE", got.Exchange)
	assert.Equal(t, "zerodha", got.Broker)
	assert.Equal(t, "monthly purchase", got.Notes)
	assert.Equal(t, models.TransactionBuy, got.TransactionType)
	assert.True(t, tx.Quantity.Equal(got.Quantity))
	assert.True(t, tx.Price.Equal(got.Price))
	assert.True(t, tx.TotalAmount.Equal(got.TotalAmount))
	assert.True(t, tx.Fees.Equal(got.Fees))
}

func TestTransactionStoreOptionalFieldsStayEmpty(t *testing.T) {
	store := NewTransactionStore(newTestDB(t))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Insert(testTx(1, "TCS", now)))

	txs, err := store.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Name)
	assert.Empty(t, txs[0].Exchange)
	assert.Empty(t, txs[0].Broker)
	assert.Empty(t, txs[0].Notes)
}

func TestTransactionStoreListIsUserScopedAndNewestFirst(t *testing.T) {
	store := NewTransactionStore(newTestDB(t))

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Insert(testTx(1, "INFY", base.Add(-48*time.Hour))))
	require.NoError(t, store.Insert(testTx(1, "TCS", base)))
	require.NoError(t, store.Insert(testTx(2, "WIPRO", base)))

	txs, err := store.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TCS", txs[0].Symbol)
	assert.Equal(t, "INFY", txs[1].Symbol)
}
