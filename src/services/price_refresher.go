package services

import (
	"github.com/robfig/cron/v3"

	"github.com/username/finassist/backend/src/logger"
)

// PriceRefresher periodically pulls fresh quotes for every symbol held by
// any user and pushes them through the ledger's bulk price update.
type PriceRefresher struct {
	portfolio *PortfolioService
	prices    PriceService
	cron      *cron.Cron
}

func NewPriceRefresher(portfolio *PortfolioService, prices PriceService) *PriceRefresher {
	return &PriceRefresher{
		portfolio: portfolio,
		prices:    prices,
		cron:      cron.New(),
	}
}

// Start schedules the refresh at the given cron spec (e.g. "0 18 * * 1-5")
// and runs the scheduler in its own goroutine.
func (r *PriceRefresher) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, r.RefreshAll); err != nil {
		return err
	}
	r.cron.Start()
	logger.L.Info("Price refresh scheduled", "spec", spec)
	return nil
}

func (r *PriceRefresher) Stop() {
	r.cron.Stop()
}

// RefreshAll walks every user with holdings, quotes their symbols, and
// applies the prices. Failures on one user never block the others.
func (r *PriceRefresher) RefreshAll() {
	userIDs, err := r.portfolio.holdings.ListUserIDs()
	if err != nil {
		logger.L.Error("Price refresh: listing users failed", "error", err)
		return
	}

	for _, userID := range userIDs {
		holdings, err := r.portfolio.GetUserHoldings(userID)
		if err != nil {
			logger.L.Warn("Price refresh: listing holdings failed", "userID", userID, "error", err)
			continue
		}

		seen := make(map[string]bool, len(holdings))
		symbols := make([]string, 0, len(holdings))
		for i := range holdings {
			if !seen[holdings[i].Symbol] {
				seen[holdings[i].Symbol] = true
				symbols = append(symbols, holdings[i].Symbol)
			}
		}

		prices, err := r.prices.GetCurrentPrices(symbols)
		if err != nil {
			logger.L.Warn("Price refresh: quote fetch failed", "userID", userID, "error", err)
			continue
		}
		if len(prices) == 0 {
			continue
		}

		if err := r.portfolio.BulkUpdatePrices(userID, prices); err != nil {
			logger.L.Warn("Price refresh: bulk update failed", "userID", userID, "error", err)
		}
	}
	logger.L.Info("Price refresh pass completed", "users", len(userIDs))
}
