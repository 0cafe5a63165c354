package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/finledger/backend/src/logger"
)

// RateClient fetches historical exchange rates from frankfurter.dev and
// caches them. Rates are daily; weekends and holidays have no rate, so
// lookups walk back up to a week before failing.
type RateClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

func NewRateClient(baseURL string, timeout time.Duration) *RateClient {
	return &RateClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(24*time.Hour, 48*time.Hour),
	}
}

type frankfurterResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the from→to exchange rate on the given date, or the most
// recent rate within the previous seven days.
func (c *RateClient) Rate(ctx context.Context, date time.Time, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	cacheKey := fmt.Sprintf("rate-%s-%s-%s", from, to, date.Format("2006-01-02"))
	if rate, found := c.cache.Get(cacheKey); found {
		return rate.(float64), nil
	}

	for i := 0; i < 7; i++ {
		queryDate := date.AddDate(0, 0, -i)
		rate, err := c.fetch(ctx, queryDate, from, to)
		if err != nil {
			logger.L.Debug("No exchange rate for date, trying previous day",
				"from", from, "to", to, "date", queryDate.Format("2006-01-02"), "error", err)
			continue
		}
		c.cache.Set(cacheKey, rate, cache.DefaultExpiration)
		return rate, nil
	}

	return 0, fmt.Errorf("exchange rate %s/%s not found on or before %s", from, to, date.Format("2006-01-02"))
}

func (c *RateClient) fetch(ctx context.Context, date time.Time, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/%s?from=%s&to=%s", c.baseURL, date.Format("2006-01-02"), from, to)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("exchange rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchange rate API returned %s", resp.Status)
	}

	var body frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding exchange rate response: %w", err)
	}
	rate, ok := body.Rates[to]
	if !ok {
		return 0, fmt.Errorf("rate for %s missing from response", to)
	}
	return rate, nil
}
