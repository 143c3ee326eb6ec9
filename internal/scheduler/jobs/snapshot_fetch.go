package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/external/screener"
	"github.com/capellaquant/capella/pkg/logger"
)

// SnapshotFetchJob pulls the day's fundamental snapshot from the screener
// and persists it for backtests and universe queries.
type SnapshotFetchJob struct {
	client *screener.Client
	store  data.Writer
	logger *logger.Logger

	// now is stubbed in tests
	now func() time.Time
}

// NewSnapshotFetchJob creates the daily snapshot fetch job.
func NewSnapshotFetchJob(client *screener.Client, store data.Writer, log *logger.Logger) *SnapshotFetchJob {
	return &SnapshotFetchJob{
		client: client,
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// Name returns the job name.
func (j *SnapshotFetchJob) Name() string {
	return "snapshot_fetch"
}

// Schedule runs after the close on weekdays.
func (j *SnapshotFetchJob) Schedule() string {
	return "0 0 18 * * 1-5"
}

// Run fetches and stores the snapshot for the most recent trading day.
func (j *SnapshotFetchJob) Run(ctx context.Context) error {
	date := lastWeekday(j.now())

	j.logger.WithField("date", date.Format("2006-01-02")).Info("Fetching screener snapshot")

	snapshot, err := j.client.FetchSnapshot(ctx, date)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	if err := j.store.SaveCoarse(ctx, date, snapshot.Coarse); err != nil {
		return fmt.Errorf("save coarse: %w", err)
	}
	if err := j.store.SaveFine(ctx, date, snapshot.Fine); err != nil {
		return fmt.Errorf("save fine: %w", err)
	}

	// The screener price column doubles as the day's close
	prices := make(map[string]float64, len(snapshot.Coarse))
	for _, c := range snapshot.Coarse {
		prices[c.Symbol] = c.Price
	}
	if err := j.store.SaveClosePrices(ctx, date, prices); err != nil {
		return fmt.Errorf("save close prices: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"coarse": len(snapshot.Coarse),
		"fine":   len(snapshot.Fine),
	}).Info("Snapshot stored")

	return nil
}

// lastWeekday returns the given day, or the preceding Friday when it falls
// on a weekend.
func lastWeekday(t time.Time) time.Time {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		date = date.AddDate(0, 0, -1)
	}
	return date
}
