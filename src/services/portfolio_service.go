package services

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/finassist/backend/src/logger"
	"github.com/username/finassist/backend/src/models"
)

const ckPortfolioSummary = "agg_portfolio_summary_user_%d"

// keyedMutex serializes read-modify-write cycles per holding key. Two
// concurrent transactions on the same (user, symbol, assetType) would
// otherwise race on quantity and totalInvested.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func holdingKey(userID int64, symbol, assetType string) string {
	return fmt.Sprintf("%d|%s|%s", userID, symbol, assetType)
}

// PortfolioService owns holding state. It is the sole mutator of holdings:
// every transaction or price update flows through here, and the holding row
// is always re-written as a full snapshot with freshly computed valuation.
type PortfolioService struct {
	holdings     HoldingStore
	transactions TransactionStore
	locks        keyedMutex
	summaryCache *cache.Cache
	summaryGens  sync.Map // userID -> *atomic.Int64
}

// cachedSummary stamps the summary with the generation it was computed
// against. A mutation bumps the generation, so a Set racing with that
// mutation stores an entry that no longer matches and is never served.
type cachedSummary struct {
	gen     int64
	summary models.PortfolioSummary
}

func (s *PortfolioService) summaryGen(userID int64) *atomic.Int64 {
	g, _ := s.summaryGens.LoadOrStore(userID, new(atomic.Int64))
	return g.(*atomic.Int64)
}

func NewPortfolioService(holdings HoldingStore, transactions TransactionStore, summaryCache *cache.Cache) *PortfolioService {
	return &PortfolioService{
		holdings:     holdings,
		transactions: transactions,
		summaryCache: summaryCache,
	}
}

// RecordTransaction applies a buy or sell to the holding identified by the
// transaction's (userID, symbol, assetType) key and appends the transaction
// record. A rejected transaction is not persisted and leaves no state behind.
func (s *PortfolioService) RecordTransaction(tx *models.Transaction) (*models.Transaction, error) {
	// The average-cost fold divides by quantity; a zero or negative quantity
	// must never reach it, regardless of what the caller validated.
	if !tx.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity %s", ErrInvalidTransaction, tx.Quantity)
	}
	if tx.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price %s", ErrInvalidTransaction, tx.Price)
	}
	if tx.TotalAmount.IsZero() {
		tx.TotalAmount = tx.Quantity.Mul(tx.Price)
	}

	key := holdingKey(tx.UserID, tx.Symbol, tx.AssetType)
	lock := s.locks.get(key)
	lock.Lock()
	defer lock.Unlock()

	holding, err := s.holdings.FindByKey(tx.UserID, tx.Symbol, tx.AssetType)
	if err != nil && !errors.Is(err, ErrHoldingNotFound) {
		return nil, fmt.Errorf("resolving holding for %s: %w", tx.Symbol, err)
	}

	if holding == nil {
		if tx.TransactionType == models.TransactionSell {
			return nil, fmt.Errorf("%w: no position in %s", ErrInsufficientQuantity, tx.Symbol)
		}
		now := time.Now()
		holding = &models.Holding{
			UserID:          tx.UserID,
			AssetType:       tx.AssetType,
			Symbol:          tx.Symbol,
			Name:            tx.Name,
			Exchange:        tx.Exchange,
			Quantity:        decimal.Zero,
			AverageBuyPrice: decimal.Zero,
			TotalInvested:   decimal.Zero,
			Broker:          tx.Broker,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	switch tx.TransactionType {
	case models.TransactionBuy:
		newQuantity := holding.Quantity.Add(tx.Quantity)
		newTotalInvested := holding.TotalInvested.Add(tx.TotalAmount)
		// Weighted-average cost: re-derived from cumulative invested
		// capital, not averaged over previous averages.
		holding.AverageBuyPrice = newTotalInvested.DivRound(newQuantity, models.MoneyScale)
		holding.Quantity = newQuantity
		holding.TotalInvested = newTotalInvested

	case models.TransactionSell:
		if tx.Quantity.GreaterThan(holding.Quantity) {
			return nil, fmt.Errorf("%w: have %s, requested %s of %s",
				ErrInsufficientQuantity, holding.Quantity, tx.Quantity, tx.Symbol)
		}
		// A sell leaves the average cost untouched and releases cost basis
		// proportional to the quantity sold.
		soldCostBasis := holding.AverageBuyPrice.Mul(tx.Quantity)
		holding.Quantity = holding.Quantity.Sub(tx.Quantity)
		holding.TotalInvested = holding.TotalInvested.Sub(soldCostBasis)

		if !holding.Quantity.IsPositive() {
			if holding.ID != 0 {
				if err := s.holdings.Delete(holding.ID); err != nil {
					return nil, fmt.Errorf("deleting closed holding %d: %w", holding.ID, err)
				}
			}
			tx.HoldingID = holding.ID
			if err := s.insertTransaction(tx); err != nil {
				return nil, err
			}
			s.invalidateSummary(tx.UserID)
			logger.L.Info("Holding closed", "userID", tx.UserID, "symbol", tx.Symbol)
			return tx, nil
		}

	default:
		return nil, fmt.Errorf("unknown transaction type %q", tx.TransactionType)
	}

	// The price did not change, so LastPriceUpdate stays as it was; only the
	// derived valuation is refreshed against the already-known price.
	if holding.CurrentPrice.Valid {
		applyValuation(holding, holding.CurrentPrice.Decimal)
	}
	holding.UpdatedAt = time.Now()

	if err := s.holdings.Upsert(holding); err != nil {
		return nil, fmt.Errorf("saving holding for %s: %w", tx.Symbol, err)
	}

	tx.HoldingID = holding.ID
	if err := s.insertTransaction(tx); err != nil {
		return nil, err
	}
	s.invalidateSummary(tx.UserID)
	return tx, nil
}

func (s *PortfolioService) insertTransaction(tx *models.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	if err := s.transactions.Insert(tx); err != nil {
		return fmt.Errorf("recording transaction: %w", err)
	}
	return nil
}

// UpdatePrice refreshes the valuation of a single holding against a new
// market price and stamps LastPriceUpdate. A missing holding is reported as
// ErrHoldingNotFound with no partial state created.
func (s *PortfolioService) UpdatePrice(holdingID int64, price decimal.Decimal) error {
	holding, err := s.holdings.FindByID(holdingID)
	if err != nil {
		return err
	}

	lock := s.locks.get(holdingKey(holding.UserID, holding.Symbol, holding.AssetType))
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so a concurrent transaction is not overwritten.
	holding, err = s.holdings.FindByID(holdingID)
	if err != nil {
		return err
	}

	applyValuation(holding, price)
	holding.LastPriceUpdate = models.NullTime{Time: time.Now(), Valid: true}
	holding.UpdatedAt = time.Now()

	if err := s.holdings.Upsert(holding); err != nil {
		return fmt.Errorf("saving price update for holding %d: %w", holdingID, err)
	}
	s.invalidateSummary(holding.UserID)
	return nil
}

// BulkUpdatePrices applies UpdatePrice to every holding of the user whose
// symbol appears in the map. Holdings without a quote are left untouched.
// The bulk operation is deliberately not atomic: each per-holding update is
// independently idempotent and safe to retry.
func (s *PortfolioService) BulkUpdatePrices(userID int64, prices map[string]decimal.Decimal) error {
	holdings, err := s.holdings.ListByUser(userID)
	if err != nil {
		return err
	}
	for i := range holdings {
		price, ok := prices[holdings[i].Symbol]
		if !ok {
			continue
		}
		if err := s.UpdatePrice(holdings[i].ID, price); err != nil {
			logger.L.Warn("Bulk price update failed for holding",
				"userID", userID, "symbol", holdings[i].Symbol, "error", err)
		}
	}
	return nil
}

func applyValuation(h *models.Holding, price decimal.Decimal) {
	v := Valuate(h.Quantity, h.TotalInvested, price)
	h.CurrentPrice = decimal.NewNullDecimal(price)
	h.CurrentValue = decimal.NewNullDecimal(v.CurrentValue)
	h.UnrealizedPnl = decimal.NewNullDecimal(v.UnrealizedPnl)
	h.UnrealizedPnlPercentage = decimal.NewNullDecimal(v.UnrealizedPnlPercentage)
}

func (s *PortfolioService) GetUserHoldings(userID int64) ([]models.Holding, error) {
	return s.holdings.ListByUser(userID)
}

func (s *PortfolioService) GetUserHoldingsByType(userID int64, assetType string) ([]models.Holding, error) {
	return s.holdings.ListByUserAndAssetType(userID, assetType)
}

func (s *PortfolioService) GetHolding(userID int64, symbol, assetType string) (*models.Holding, error) {
	return s.holdings.FindByKey(userID, symbol, assetType)
}

// GetHoldingByID resolves a holding by ID and verifies ownership. Holdings
// belonging to another user are reported as not found.
func (s *PortfolioService) GetHoldingByID(userID, holdingID int64) (*models.Holding, error) {
	holding, err := s.holdings.FindByID(holdingID)
	if err != nil {
		return nil, err
	}
	if holding.UserID != userID {
		return nil, ErrHoldingNotFound
	}
	return holding, nil
}

func (s *PortfolioService) GetUserTransactions(userID int64) ([]models.Transaction, error) {
	return s.transactions.ListByUser(userID)
}

// GetPortfolioSummary folds the user's holdings into portfolio-level totals.
// The result is cached until the next mutation for this user.
func (s *PortfolioService) GetPortfolioSummary(userID int64) (models.PortfolioSummary, error) {
	cacheKey := fmt.Sprintf(ckPortfolioSummary, userID)
	gen := s.summaryGen(userID).Load()
	if s.summaryCache != nil {
		if cached, found := s.summaryCache.Get(cacheKey); found {
			if cs := cached.(cachedSummary); cs.gen == gen {
				return cs.summary, nil
			}
		}
	}

	holdings, err := s.holdings.ListByUser(userID)
	if err != nil {
		return models.PortfolioSummary{}, err
	}

	summary := models.PortfolioSummary{
		TotalValue:         decimal.Zero,
		TotalInvested:      decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
	}
	for i := range holdings {
		h := &holdings[i]
		summary.TotalInvested = summary.TotalInvested.Add(h.TotalInvested)
		if h.CurrentValue.Valid {
			summary.TotalValue = summary.TotalValue.Add(h.CurrentValue.Decimal)
		} else {
			// No price yet: the position contributes at cost.
			summary.TotalValue = summary.TotalValue.Add(h.TotalInvested)
		}
		if h.UnrealizedPnl.Valid {
			summary.TotalUnrealizedPnL = summary.TotalUnrealizedPnL.Add(h.UnrealizedPnl.Decimal)
		}
	}

	if s.summaryCache != nil {
		s.summaryCache.Set(cacheKey, cachedSummary{gen: gen, summary: summary}, cache.DefaultExpiration)
	}
	return summary, nil
}

func (s *PortfolioService) invalidateSummary(userID int64) {
	s.summaryGen(userID).Add(1)
	if s.summaryCache != nil {
		s.summaryCache.Delete(fmt.Sprintf(ckPortfolioSummary, userID))
	}
}
