package screener

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capellaquant/capella/pkg/config"
	"github.com/capellaquant/capella/pkg/httputil"
	"github.com/capellaquant/capella/pkg/logger"
	"github.com/capellaquant/capella/pkg/redis"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	redisClient, err := redis.New(&config.Config{}) // disabled, cache is a no-op
	require.NoError(t, err)
	cache := redis.NewCache(redisClient, "capella-test")

	httpClient := httputil.New(logger.Nop()).DisableRetry().WithTimeout(5 * time.Second)
	return NewClient(baseURL, httpClient, cache, logger.Nop())
}

func screenerRow(symbol string, price float64, cap, pe string) string {
	return fmt.Sprintf("<tr><td>%s</td><td>%.2f</td><td>1M</td><td>%s</td><td>%s</td></tr>",
		symbol, price, cap, pe)
}

func TestFetchSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/screener", r.URL.Path)
		assert.Equal(t, "2015-01-05", r.URL.Query().Get("date"))

		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprintf(w, `<table class="screener-table"><tbody>%s%s</tbody></table><a class="next-page">next</a>`,
				screenerRow("AAPL", 106.25, "620B", "17.2"),
				screenerRow("ETFX", 52.10, "—", "—"))
		case "2":
			fmt.Fprintf(w, `<table class="screener-table"><tbody>%s</tbody></table>`,
				screenerRow("SMCO", 8.40, "450M", "9.8"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	snapshot, err := client.FetchSnapshot(context.Background(), time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, snapshot.Coarse, 3, "both pages are collected")
	require.Len(t, snapshot.Fine, 2, "fundamental-less rows stay coarse only")

	assert.Equal(t, "AAPL", snapshot.Coarse[0].Symbol)
	assert.True(t, snapshot.Coarse[0].HasFundamentalData)
	assert.False(t, snapshot.Coarse[1].HasFundamentalData)

	assert.Equal(t, "SMCO", snapshot.Fine[1].Symbol)
	assert.InDelta(t, 450e6, snapshot.Fine[1].MarketCap, 1e-3)
}

func TestFetchSnapshot_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table class="screener-table"><tbody></tbody></table>`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchSnapshot(context.Background(), time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestFetchSnapshot_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchSnapshot(context.Background(), time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}
