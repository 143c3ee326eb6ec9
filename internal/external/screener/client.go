package screener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/pkg/httputil"
	"github.com/capellaquant/capella/pkg/logger"
	"github.com/capellaquant/capella/pkg/redis"
)

// maxPages bounds pagination so a broken "next" link cannot loop forever.
const maxPages = 200

// Client fetches daily fundamental snapshots from the stock screener site.
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
	baseURL    string
	cacheTTL   time.Duration
}

// Snapshot is one day of screener data, split into the coarse rows every
// listed security gets and the fine rows only fundamentals-covered
// securities get.
type Snapshot struct {
	Date   time.Time                     `json:"date"`
	Coarse []contracts.CoarseFundamental `json:"coarse"`
	Fine   []contracts.FineFundamental   `json:"fine"`
}

// NewClient creates a screener client. cache may carry a disabled redis
// client, in which case every fetch hits the site.
func NewClient(baseURL string, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		logger:     log,
		baseURL:    baseURL,
		cacheTTL:   24 * time.Hour,
	}
}

// WithCacheTTL overrides how long fetched snapshots stay cached.
func (c *Client) WithCacheTTL(ttl time.Duration) *Client {
	c.cacheTTL = ttl
	return c
}

// FetchSnapshot retrieves the fundamental snapshot for a trading day,
// serving from cache when possible.
func (c *Client) FetchSnapshot(ctx context.Context, date time.Time) (*Snapshot, error) {
	key := redis.FundamentalsKey(date.Format("2006-01-02"))

	var cached Snapshot
	if hit, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.WithError(err).Warn("Cache lookup failed")
	} else if hit {
		c.logger.WithField("date", date.Format("2006-01-02")).Debug("Snapshot served from cache")
		return &cached, nil
	}

	snapshot := &Snapshot{Date: date}

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := c.fetchPage(ctx, date, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		rows, hasMore, err := parseScreenerHTML(html)
		if err != nil {
			return nil, fmt.Errorf("parse page %d: %w", page, err)
		}

		for _, row := range rows {
			snapshot.Coarse = append(snapshot.Coarse, contracts.CoarseFundamental{
				Symbol:             row.Symbol,
				Price:              row.Price,
				DollarVolume:       row.DollarVolume,
				HasFundamentalData: row.HasFundamentals,
			})
			if row.HasFundamentals {
				snapshot.Fine = append(snapshot.Fine, contracts.FineFundamental{
					Symbol:    row.Symbol,
					MarketCap: row.MarketCap,
					PERatio:   row.PERatio,
				})
			}
		}

		if !hasMore {
			break
		}
	}

	if len(snapshot.Coarse) == 0 {
		return nil, fmt.Errorf("no screener rows for %s", date.Format("2006-01-02"))
	}

	if err := c.cache.Set(ctx, key, snapshot, c.cacheTTL); err != nil {
		c.logger.WithError(err).Warn("Cache store failed")
	}

	c.logger.WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"coarse": len(snapshot.Coarse),
		"fine":   len(snapshot.Fine),
	}).Info("Fetched screener snapshot")

	return snapshot, nil
}

// fetchPage fetches one page of the daily screener table.
func (c *Client) fetchPage(ctx context.Context, date time.Time, page int) (string, error) {
	params := url.Values{}
	params.Set("date", date.Format("2006-01-02"))
	params.Set("page", fmt.Sprintf("%d", page))
	fullURL := fmt.Sprintf("%s/screener?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
