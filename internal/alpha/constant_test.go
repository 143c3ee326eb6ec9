package alpha

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capellaquant/capella/internal/contracts"
	"github.com/capellaquant/capella/pkg/logger"
)

func TestConstant_EmitsOneInsightPerSecurityPerBar(t *testing.T) {
	a := NewConstant(DefaultConfig(), logger.Nop())
	a.OnSecuritiesChanged(contracts.SecurityChanges{Added: []string{"MSFT", "AAPL"}})

	bar := contracts.Bar{
		Date:   time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC),
		Prices: map[string]float64{"AAPL": 106.25, "MSFT": 46.76},
	}

	insights, err := a.Update(context.Background(), bar)
	require.NoError(t, err)
	require.Len(t, insights, 2)

	// Deterministic symbol order
	assert.Equal(t, "AAPL", insights[0].Symbol)
	assert.Equal(t, "MSFT", insights[1].Symbol)

	for _, in := range insights {
		assert.Equal(t, contracts.DirectionUp, in.Direction)
		assert.Equal(t, bar.Date, in.GeneratedAt)
		assert.Equal(t, bar.Date.Add(24*time.Hour), in.ExpiresAt)
	}

	// Next bar emits again
	nextBar := contracts.Bar{Date: bar.Date.AddDate(0, 0, 1)}
	insights, err = a.Update(context.Background(), nextBar)
	require.NoError(t, err)
	assert.Len(t, insights, 2)
}

func TestConstant_RemovedSecuritiesStopEmitting(t *testing.T) {
	a := NewConstant(DefaultConfig(), logger.Nop())
	a.OnSecuritiesChanged(contracts.SecurityChanges{Added: []string{"AAPL", "MSFT"}})
	a.OnSecuritiesChanged(contracts.SecurityChanges{Removed: []string{"AAPL"}})

	assert.Equal(t, []string{"MSFT"}, a.TrackedSecurities())

	bar := contracts.Bar{Date: time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)}
	insights, err := a.Update(context.Background(), bar)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "MSFT", insights[0].Symbol)
}

func TestConstant_EmptyUniverse(t *testing.T) {
	a := NewConstant(DefaultConfig(), logger.Nop())

	bar := contracts.Bar{Date: time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)}
	insights, err := a.Update(context.Background(), bar)
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestConstant_ConfiguredDirectionAndLifetime(t *testing.T) {
	cfg := Config{Direction: contracts.DirectionDown, InsightDays: 7}
	a := NewConstant(cfg, logger.Nop())
	a.OnSecuritiesChanged(contracts.SecurityChanges{Added: []string{"GE"}})

	bar := contracts.Bar{Date: time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)}
	insights, err := a.Update(context.Background(), bar)
	require.NoError(t, err)
	require.Len(t, insights, 1)

	assert.Equal(t, contracts.DirectionDown, insights[0].Direction)
	assert.Equal(t, bar.Date.Add(7*24*time.Hour), insights[0].ExpiresAt)
}
