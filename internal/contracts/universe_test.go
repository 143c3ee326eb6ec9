package contracts

import (
	"testing"
	"time"
)

func TestUniverseSelection_Contains(t *testing.T) {
	u := &UniverseSelection{
		Date:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Symbols: []string{"AAPL", "MSFT"},
		Excluded: map[string]string{
			"SPY": "no fundamental data",
		},
	}

	if !u.Contains("AAPL") {
		t.Error("expected AAPL in universe")
	}
	if u.Contains("SPY") {
		t.Error("SPY should not be in universe")
	}
	if u.Count() != 2 {
		t.Errorf("Count() = %d, want 2", u.Count())
	}

	excluded, reason := u.IsExcluded("SPY")
	if !excluded || reason != "no fundamental data" {
		t.Errorf("IsExcluded(SPY) = %v, %q", excluded, reason)
	}
}

func TestUnchangedSelection(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	u := UnchangedSelection(date)

	if !u.Unchanged {
		t.Error("expected Unchanged to be set")
	}
	if u.Count() != 0 {
		t.Error("unchanged selection carries no symbols")
	}
}

func TestSecurityChanges_IsEmpty(t *testing.T) {
	if !(SecurityChanges{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if (SecurityChanges{Added: []string{"AAPL"}}).IsEmpty() {
		t.Error("changes with additions are not empty")
	}
	if (SecurityChanges{Removed: []string{"AAPL"}}).IsEmpty() {
		t.Error("changes with removals are not empty")
	}
}

func TestTotalPercent(t *testing.T) {
	targets := []Target{
		{Symbol: "AAPL", Percent: 0.5},
		{Symbol: "MSFT", Percent: -0.25},
		{Symbol: "GE", Percent: 0},
	}

	if got := TotalPercent(targets); got != 0.75 {
		t.Errorf("TotalPercent() = %v, want 0.75", got)
	}

	if !targets[2].IsFlatten() {
		t.Error("zero percent target should flatten")
	}
}
