package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/username/finassist/backend/src/logger"
)

const quoteUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

type priceServiceImpl struct {
	httpClient    http.Client
	quoteCache    *cache.Cache
	isInitialized bool
	mu            sync.Mutex
}

// NewPriceService builds a quote fetcher backed by Yahoo Finance chart
// metadata. Quotes are cached so a bulk refresh across many users does not
// hammer the upstream API.
func NewPriceService(cacheExpiry time.Duration) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	if cacheExpiry <= 0 {
		cacheExpiry = DefaultCacheExpiration
	}

	return &priceServiceImpl{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: 20 * time.Second,
		},
		quoteCache: cache.New(cacheExpiry, CacheCleanupInterval),
	}
}

func (s *priceServiceImpl) ensureSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isInitialized {
		return
	}

	// Warm up the session cookies before hitting the query endpoints.
	for _, target := range []string{"https://fc.yahoo.com", "https://finance.yahoo.com"} {
		req, _ := http.NewRequest("GET", target, nil)
		req.Header.Set("User-Agent", quoteUserAgent)
		resp, err := s.httpClient.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	s.isInitialized = true
}

// GetCurrentPrices fetches the latest market price for each symbol. Symbols
// that cannot be quoted are omitted from the result rather than reported as
// zero, so callers never mistake a fetch failure for a worthless position.
func (s *priceServiceImpl) GetCurrentPrices(symbols []string) (map[string]decimal.Decimal, error) {
	results := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return results, nil
	}
	s.ensureSession()

	for _, symbol := range symbols {
		if cached, found := s.quoteCache.Get(symbol); found {
			results[symbol] = cached.(decimal.Decimal)
			continue
		}

		price, err := s.fetchQuote(symbol)
		if err != nil {
			logger.L.Warn("Could not fetch quote", "symbol", symbol, "error", err)
			continue
		}
		s.quoteCache.Set(symbol, price, cache.DefaultExpiration)
		results[symbol] = price
	}
	return results, nil
}

func (s *priceServiceImpl) fetchQuote(symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s?range=1d&interval=1d",
		url.PathEscape(symbol),
	)
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("User-Agent", quoteUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("quote request for %s returned %s", symbol, resp.Status)
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return decimal.Zero, fmt.Errorf("decoding quote response for %s: %w", symbol, err)
	}
	if len(chart.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no chart result for %s", symbol)
	}

	return decimal.NewFromFloat(chart.Chart.Result[0].Meta.RegularMarketPrice), nil
}
