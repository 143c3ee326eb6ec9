package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/external/screener"
	"github.com/capellaquant/capella/pkg/config"
	"github.com/capellaquant/capella/pkg/httputil"
	"github.com/capellaquant/capella/pkg/logger"
	"github.com/capellaquant/capella/pkg/redis"
)

func newScreenerClient(t *testing.T, baseURL string) *screener.Client {
	t.Helper()

	redisClient, err := redis.New(&config.Config{})
	require.NoError(t, err)

	httpClient := httputil.New(logger.Nop()).DisableRetry().WithTimeout(5 * time.Second)
	return screener.NewClient(baseURL, httpClient, redis.NewCache(redisClient, "capella-test"), logger.Nop())
}

func TestSnapshotFetchJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table class="screener-table"><tbody>
			<tr><td>AAPL</td><td>106.25</td><td>1.2B</td><td>620B</td><td>17.2</td></tr>
			<tr><td>ETFX</td><td>52.10</td><td>88M</td><td>—</td><td>—</td></tr>
		</tbody></table>`)
	}))
	defer server.Close()

	store := data.NewMemoryStore()
	job := NewSnapshotFetchJob(newScreenerClient(t, server.URL), store, logger.Nop())

	// Saturday: the job falls back to Friday's session
	job.now = func() time.Time {
		return time.Date(2015, 1, 10, 9, 30, 0, 0, time.UTC)
	}

	require.NoError(t, job.Run(context.Background()))

	friday := time.Date(2015, 1, 9, 0, 0, 0, 0, time.UTC)

	coarse, err := store.CoarseSnapshot(context.Background(), friday)
	require.NoError(t, err)
	assert.Len(t, coarse, 2)

	fine, err := store.FineSnapshot(context.Background(), friday, []string{"AAPL", "ETFX"})
	require.NoError(t, err)
	require.Len(t, fine, 1)
	assert.Equal(t, "AAPL", fine[0].Symbol)

	prices, err := store.ClosePrices(context.Background(), friday, []string{"AAPL", "ETFX"})
	require.NoError(t, err)
	assert.InDelta(t, 106.25, prices["AAPL"], 1e-9)
	assert.InDelta(t, 52.10, prices["ETFX"], 1e-9)
}

func TestSnapshotFetchJob_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	job := NewSnapshotFetchJob(newScreenerClient(t, server.URL), data.NewMemoryStore(), logger.Nop())
	assert.Error(t, job.Run(context.Background()))
}

func TestLastWeekday(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2015, 1, 7, 15, 0, 0, 0, time.UTC), time.Date(2015, 1, 7, 0, 0, 0, 0, time.UTC)},  // Wednesday
		{time.Date(2015, 1, 10, 9, 0, 0, 0, time.UTC), time.Date(2015, 1, 9, 0, 0, 0, 0, time.UTC)},  // Saturday
		{time.Date(2015, 1, 11, 23, 0, 0, 0, time.UTC), time.Date(2015, 1, 9, 0, 0, 0, 0, time.UTC)}, // Sunday
	}

	for _, tt := range tests {
		assert.True(t, lastWeekday(tt.in).Equal(tt.want), "lastWeekday(%s)", tt.in)
	}
}
