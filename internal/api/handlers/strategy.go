package handlers

import (
	"net/http"
	"time"

	"github.com/capellaquant/capella/internal/data"
	"github.com/capellaquant/capella/internal/strategyconfig"
	"github.com/capellaquant/capella/internal/universe"
	"github.com/capellaquant/capella/pkg/logger"
)

// StrategyHandler serves the loaded strategy definition and on-demand
// universe selection.
type StrategyHandler struct {
	store      data.Store
	strategy   *strategyconfig.Config
	configHash string
	logger     *logger.Logger
}

// NewStrategyHandler creates a strategy handler.
func NewStrategyHandler(store data.Store, strategy *strategyconfig.Config, configHash string, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		store:      store,
		strategy:   strategy,
		configHash: configHash,
		logger:     log,
	}
}

// GetStrategy returns the active strategy config and its hash.
// GET /api/strategy
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_hash": h.configHash,
		"config":      h.strategy,
	})
}

// GetUniverse runs both selection stages for a date and returns the
// surviving symbols with per-symbol exclusion reasons.
// GET /api/strategy/universe?date=YYYY-MM-DD
func (h *StrategyHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	coarse, err := h.store.CoarseSnapshot(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load coarse snapshot")
		respondError(w, http.StatusNotFound, "no snapshot for date")
		return
	}

	// Fresh selector per request: the yearly refresh guard must not leak
	// between API calls
	selector := universe.NewSmallCapsLowPE(h.strategy.UniverseConfig(), h.logger)

	selection, err := selector.SelectCoarse(ctx, date, coarse)
	if err != nil {
		h.logger.WithError(err).Error("Coarse selection failed")
		respondError(w, http.StatusInternalServerError, "selection failed")
		return
	}

	excluded := selection.Excluded

	if selector.FilterFineData() {
		fine, err := h.store.FineSnapshot(ctx, date, selection.Symbols)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load fine snapshot")
			respondError(w, http.StatusInternalServerError, "selection failed")
			return
		}
		selection, err = selector.SelectFine(ctx, date, fine)
		if err != nil {
			h.logger.WithError(err).Error("Fine selection failed")
			respondError(w, http.StatusInternalServerError, "selection failed")
			return
		}
		// Merge both stages so every dropped symbol carries its reason
		for symbol, reason := range selection.Excluded {
			excluded[symbol] = reason
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"symbols":  selection.Symbols,
		"excluded": excluded,
	})
}
