package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/finassist/backend/src/models"
)

// --- In-memory stores ---

type memHoldingStore struct {
	nextID   int64
	holdings map[int64]*models.Holding
}

func newMemHoldingStore() *memHoldingStore {
	return &memHoldingStore{nextID: 1, holdings: make(map[int64]*models.Holding)}
}

func (m *memHoldingStore) FindByID(id int64) (*models.Holding, error) {
	h, ok := m.holdings[id]
	if !ok {
		return nil, ErrHoldingNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memHoldingStore) FindByKey(userID int64, symbol, assetType string) (*models.Holding, error) {
	for _, h := range m.holdings {
		if h.UserID == userID && h.Symbol == symbol && h.AssetType == assetType {
			cp := *h
			return &cp, nil
		}
	}
	return nil, ErrHoldingNotFound
}

func (m *memHoldingStore) ListByUser(userID int64) ([]models.Holding, error) {
	var out []models.Holding
	for _, h := range m.holdings {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (m *memHoldingStore) ListByUserAndAssetType(userID int64, assetType string) ([]models.Holding, error) {
	var out []models.Holding
	for _, h := range m.holdings {
		if h.UserID == userID && h.AssetType == assetType {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (m *memHoldingStore) ListUserIDs() ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, h := range m.holdings {
		if !seen[h.UserID] {
			seen[h.UserID] = true
			out = append(out, h.UserID)
		}
	}
	return out, nil
}

func (m *memHoldingStore) Upsert(h *models.Holding) error {
	if h.ID == 0 {
		h.ID = m.nextID
		m.nextID++
	}
	cp := *h
	m.holdings[h.ID] = &cp
	return nil
}

func (m *memHoldingStore) Delete(id int64) error {
	delete(m.holdings, id)
	return nil
}

type memTransactionStore struct {
	nextID int64
	txs    []models.Transaction
}

func (m *memTransactionStore) Insert(tx *models.Transaction) error {
	m.nextID++
	tx.ID = m.nextID
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memTransactionStore) ListByUser(userID int64) ([]models.Transaction, error) {
	var out []models.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func newTestPortfolioService() (*PortfolioService, *memHoldingStore, *memTransactionStore) {
	holdings := newMemHoldingStore()
	txs := &memTransactionStore{}
	svc := NewPortfolioService(holdings, txs, cache.New(time.Minute, time.Minute))
	return svc, holdings, txs
}

func buyTx(userID int64, symbol string, qty, price string) *models.Transaction {
	return &models.Transaction{
		UserID:          userID,
		TransactionType: models.TransactionBuy,
		AssetType:       "stock",
		Symbol:          symbol,
		Quantity:        d(qty),
		Price:           d(price),
		TransactionDate: time.Now(),
	}
}

func sellTx(userID int64, symbol string, qty, price string) *models.Transaction {
	tx := buyTx(userID, symbol, qty, price)
	tx.TransactionType = models.TransactionSell
	return tx
}

// --- Tests ---

func TestRecordTransactionFirstBuyCreatesHolding(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	assert.True(t, d("10").Equal(h.Quantity))
	assert.True(t, d("1000").Equal(h.TotalInvested))
	assert.True(t, d("100").Equal(h.AverageBuyPrice))
	assert.False(t, h.CurrentPrice.Valid, "valuation must stay unset until a price is known")
}

func TestRecordTransactionWeightedAverage(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	_, err = svc.RecordTransaction(buyTx(1, "INFY", "10", "200"))
	require.NoError(t, err)

	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	assert.True(t, d("20").Equal(h.Quantity))
	assert.True(t, d("3000").Equal(h.TotalInvested))
	assert.True(t, d("150").Equal(h.AverageBuyPrice), "AverageBuyPrice = %s", h.AverageBuyPrice)
}

func TestRecordTransactionSellReleasesCostBasis(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	_, err = svc.RecordTransaction(buyTx(1, "INFY", "10", "200"))
	require.NoError(t, err)

	_, err = svc.RecordTransaction(sellTx(1, "INFY", "5", "180"))
	require.NoError(t, err)

	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	assert.True(t, d("15").Equal(h.Quantity))
	assert.True(t, d("2250").Equal(h.TotalInvested))
	assert.True(t, d("150").Equal(h.AverageBuyPrice), "a sell must not move the average")
}

func TestRecordTransactionSellToZeroDeletesHolding(t *testing.T) {
	svc, _, txStore := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	_, err = svc.RecordTransaction(buyTx(1, "INFY", "10", "200"))
	require.NoError(t, err)
	_, err = svc.RecordTransaction(sellTx(1, "INFY", "5", "180"))
	require.NoError(t, err)

	_, err = svc.RecordTransaction(sellTx(1, "INFY", "15", "180"))
	require.NoError(t, err)

	_, err = svc.GetHolding(1, "INFY", "stock")
	assert.ErrorIs(t, err, ErrHoldingNotFound)

	// The closing sell is still part of the history.
	assert.Len(t, txStore.txs, 4)
}

func TestRecordTransactionOversellRejected(t *testing.T) {
	svc, _, txStore := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "TCS", "3", "100"))
	require.NoError(t, err)

	_, err = svc.RecordTransaction(sellTx(1, "TCS", "5", "120"))
	assert.ErrorIs(t, err, ErrInsufficientQuantity)

	// Rejected transactions leave no trace.
	h, err := svc.GetHolding(1, "TCS", "stock")
	require.NoError(t, err)
	assert.True(t, d("3").Equal(h.Quantity))
	assert.True(t, d("300").Equal(h.TotalInvested))
	assert.Len(t, txStore.txs, 1)
}

func TestRecordTransactionSellWithoutHolding(t *testing.T) {
	svc, _, txStore := newTestPortfolioService()

	_, err := svc.RecordTransaction(sellTx(1, "WIPRO", "1", "100"))
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Empty(t, txStore.txs)
}

func TestRecordTransactionZeroQuantityRejected(t *testing.T) {
	svc, _, txStore := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "0", "100"))
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	// No holding may be created for the rejected buy.
	_, err = svc.GetHolding(1, "INFY", "stock")
	assert.ErrorIs(t, err, ErrHoldingNotFound)
	assert.Empty(t, txStore.txs)
}

func TestRecordTransactionNegativeQuantityRejected(t *testing.T) {
	svc, _, txStore := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	_, err = svc.RecordTransaction(sellTx(1, "INFY", "-5", "120"))
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	assert.True(t, d("10").Equal(h.Quantity), "a negative sell must not grow the position")
	assert.Len(t, txStore.txs, 1)
}

func TestRecordTransactionNegativePriceRejected(t *testing.T) {
	svc, _, txStore := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "-100"))
	assert.ErrorIs(t, err, ErrInvalidTransaction)
	assert.Empty(t, txStore.txs)
}

func TestRecordTransactionKeysAreIndependent(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	other := buyTx(1, "INFY", "5", "200")
	other.AssetType = "etf"
	_, err = svc.RecordTransaction(other)
	require.NoError(t, err)

	stock, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	etf, err := svc.GetHolding(1, "INFY", "etf")
	require.NoError(t, err)

	assert.True(t, d("10").Equal(stock.Quantity))
	assert.True(t, d("5").Equal(etf.Quantity))
}

func TestRecordTransactionRevaluatesAgainstKnownPrice(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	require.NoError(t, svc.UpdatePrice(h.ID, d("120")))

	// A later buy refreshes the valuation against the stored price.
	_, err = svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	h, err = svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	require.True(t, h.CurrentValue.Valid)
	assert.True(t, d("2400").Equal(h.CurrentValue.Decimal), "CurrentValue = %s", h.CurrentValue.Decimal)
	assert.True(t, d("400").Equal(h.UnrealizedPnl.Decimal))
}

func TestUpdatePrice(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePrice(h.ID, d("120")))

	h, err = svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	require.True(t, h.CurrentPrice.Valid)
	assert.True(t, d("120").Equal(h.CurrentPrice.Decimal))
	assert.True(t, d("1200").Equal(h.CurrentValue.Decimal))
	assert.True(t, d("200").Equal(h.UnrealizedPnl.Decimal))
	assert.True(t, d("20").Equal(h.UnrealizedPnlPercentage.Decimal))
	assert.True(t, h.LastPriceUpdate.Valid)
}

func TestUpdatePriceUnknownHolding(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	err := svc.UpdatePrice(42, d("120"))
	assert.ErrorIs(t, err, ErrHoldingNotFound)
}

func TestUpdatePriceIdempotent(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePrice(h.ID, d("120")))
	first, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePrice(h.ID, d("120")))
	second, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)

	assert.True(t, first.CurrentValue.Decimal.Equal(second.CurrentValue.Decimal))
	assert.True(t, first.UnrealizedPnl.Decimal.Equal(second.UnrealizedPnl.Decimal))
	assert.True(t, first.Quantity.Equal(second.Quantity))
}

func TestBulkUpdatePricesSkipsMissingSymbols(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	_, err = svc.RecordTransaction(buyTx(1, "TCS", "5", "200"))
	require.NoError(t, err)

	err = svc.BulkUpdatePrices(1, map[string]decimal.Decimal{"INFY": d("110")})
	require.NoError(t, err)

	infy, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	tcs, err := svc.GetHolding(1, "TCS", "stock")
	require.NoError(t, err)

	assert.True(t, infy.CurrentPrice.Valid)
	assert.False(t, tcs.CurrentPrice.Valid, "holdings without a quote stay untouched")
}

func TestGetPortfolioSummary(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	_, err = svc.RecordTransaction(buyTx(1, "TCS", "5", "200"))
	require.NoError(t, err)

	infy, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	require.NoError(t, svc.UpdatePrice(infy.ID, d("120")))

	summary, err := svc.GetPortfolioSummary(1)
	require.NoError(t, err)

	// INFY contributes its market value, TCS falls back to cost basis.
	assert.True(t, d("2000").Equal(summary.TotalInvested), "TotalInvested = %s", summary.TotalInvested)
	assert.True(t, d("2200").Equal(summary.TotalValue), "TotalValue = %s", summary.TotalValue)
	assert.True(t, d("200").Equal(summary.TotalUnrealizedPnL), "TotalUnrealizedPnL = %s", summary.TotalUnrealizedPnL)
}

func TestGetPortfolioSummaryEmpty(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	summary, err := svc.GetPortfolioSummary(7)
	require.NoError(t, err)
	assert.True(t, summary.TotalValue.IsZero())
	assert.True(t, summary.TotalInvested.IsZero())
	assert.True(t, summary.TotalUnrealizedPnL.IsZero())
}

func TestGetPortfolioSummaryInvalidatedByTransaction(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	first, err := svc.GetPortfolioSummary(1)
	require.NoError(t, err)
	assert.True(t, d("1000").Equal(first.TotalInvested))

	_, err = svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	second, err := svc.GetPortfolioSummary(1)
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(second.TotalInvested), "summary cache must be invalidated by writes")
}

func TestGetPortfolioSummaryStaleWriteNotServed(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	stale, err := svc.GetPortfolioSummary(1)
	require.NoError(t, err)
	staleGen := svc.summaryGen(1).Load()

	_, err = svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)

	// A summary computation that overlapped the transaction finishes last
	// and writes its pre-mutation result back into the cache.
	svc.summaryCache.Set(fmt.Sprintf(ckPortfolioSummary, 1),
		cachedSummary{gen: staleGen, summary: stale}, cache.DefaultExpiration)

	fresh, err := svc.GetPortfolioSummary(1)
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(fresh.TotalInvested), "outdated cache entries must be recomputed")
}

func TestGetHoldingByIDOwnership(t *testing.T) {
	svc, _, _ := newTestPortfolioService()

	_, err := svc.RecordTransaction(buyTx(1, "INFY", "10", "100"))
	require.NoError(t, err)
	h, err := svc.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)

	_, err = svc.GetHoldingByID(1, h.ID)
	assert.NoError(t, err)

	_, err = svc.GetHoldingByID(2, h.ID)
	assert.ErrorIs(t, err, ErrHoldingNotFound)
}

func TestRecordTransactionBuyAdditivity(t *testing.T) {
	// Two buys of q each at the same price must equal one buy of 2q.
	svcA, _, _ := newTestPortfolioService()
	svcB, _, _ := newTestPortfolioService()

	_, err := svcA.RecordTransaction(buyTx(1, "INFY", "10", "150"))
	require.NoError(t, err)
	_, err = svcA.RecordTransaction(buyTx(1, "INFY", "10", "150"))
	require.NoError(t, err)

	_, err = svcB.RecordTransaction(buyTx(1, "INFY", "20", "150"))
	require.NoError(t, err)

	a, err := svcA.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)
	b, err := svcB.GetHolding(1, "INFY", "stock")
	require.NoError(t, err)

	assert.True(t, a.Quantity.Equal(b.Quantity))
	assert.True(t, a.TotalInvested.Equal(b.TotalInvested))
	assert.True(t, a.AverageBuyPrice.Equal(b.AverageBuyPrice))
}
