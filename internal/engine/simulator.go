package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/capellaquant/capella/pkg/logger"
)

// Simulator simulates order execution against daily closing prices. It
// implements contracts.Holdings so the portfolio constructor can inspect
// the simulated book.
type Simulator struct {
	logger *logger.Logger

	cash       decimal.Decimal
	positions  map[string]*Position
	lastPrices map[string]float64
	trades     []Trade

	commissionRate decimal.Decimal
	slippageRate   decimal.Decimal

	totalTrades     int
	winningTrades   int
	losingTrades    int
	totalCommission decimal.Decimal
	totalSlippage   decimal.Decimal
}

// Position is an open position. Shares is signed: negative means short.
type Position struct {
	Symbol   string
	Shares   decimal.Decimal
	AvgPrice decimal.Decimal
}

// Trade records a single simulated fill.
type Trade struct {
	Symbol     string
	Side       string // "buy" or "sell"
	Shares     decimal.Decimal
	FillPrice  decimal.Decimal
	Value      decimal.Decimal
	Commission decimal.Decimal
	Slippage   decimal.Decimal
	PnL        decimal.Decimal // realized, closing trades only
}

// Stats summarizes simulated trading activity.
type Stats struct {
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	TotalCommission decimal.Decimal
	TotalSlippage   decimal.Decimal
}

// NewSimulator creates a simulator with empty state. Call Initialize
// before executing targets.
func NewSimulator(log *logger.Logger) *Simulator {
	return &Simulator{
		logger:     log,
		positions:  make(map[string]*Position),
		lastPrices: make(map[string]float64),
		trades:     make([]Trade, 0),
	}
}

// Initialize resets the simulator with starting capital and cost rates.
func (s *Simulator) Initialize(capital, commissionRate, slippageRate float64) {
	s.cash = decimal.NewFromFloat(capital)
	s.commissionRate = decimal.NewFromFloat(commissionRate)
	s.slippageRate = decimal.NewFromFloat(slippageRate)
	s.positions = make(map[string]*Position)
	s.lastPrices = make(map[string]float64)
	s.trades = make([]Trade, 0)
	s.totalTrades = 0
	s.winningTrades = 0
	s.losingTrades = 0
	s.totalCommission = decimal.Zero
	s.totalSlippage = decimal.Zero
}

// MarkToMarket records the day's closing prices. Symbols absent from the
// map keep their last known price so held positions stay valued.
func (s *Simulator) MarkToMarket(prices map[string]float64) {
	for symbol, price := range prices {
		s.lastPrices[symbol] = price
	}
}

// Invested reports whether the simulator holds a position in the symbol.
func (s *Simulator) Invested(symbol string) bool {
	pos, ok := s.positions[symbol]
	return ok && !pos.Shares.IsZero()
}

// IsLong reports whether the position in the symbol is long.
func (s *Simulator) IsLong(symbol string) bool {
	pos, ok := s.positions[symbol]
	return ok && pos.Shares.Sign() > 0
}

// IsShort reports whether the position in the symbol is short.
func (s *Simulator) IsShort(symbol string) bool {
	pos, ok := s.positions[symbol]
	return ok && pos.Shares.Sign() < 0
}

// PriceOf returns the last known price for the symbol.
func (s *Simulator) PriceOf(symbol string) (float64, bool) {
	price, ok := s.lastPrices[symbol]
	return price, ok
}

// Equity returns cash plus positions marked at last known prices.
func (s *Simulator) Equity() decimal.Decimal {
	equity := s.cash
	for symbol, pos := range s.positions {
		price, ok := s.lastPrices[symbol]
		if !ok {
			// No price yet: value at entry
			equity = equity.Add(pos.Shares.Mul(pos.AvgPrice))
			continue
		}
		equity = equity.Add(pos.Shares.Mul(decimal.NewFromFloat(price)))
	}
	return equity
}

// ExecuteTarget trades the symbol to the given fraction of current equity.
// A zero percent flattens the position.
func (s *Simulator) ExecuteTarget(symbol string, percent float64) error {
	price, ok := s.lastPrices[symbol]
	if !ok || price <= 0 {
		return fmt.Errorf("no price for %s", symbol)
	}
	priceDec := decimal.NewFromFloat(price)

	desired := s.Equity().Mul(decimal.NewFromFloat(percent)).Div(priceDec).Truncate(0)
	current := decimal.Zero
	if pos, exists := s.positions[symbol]; exists {
		current = pos.Shares
	}

	delta := desired.Sub(current)
	if delta.IsZero() {
		return nil
	}

	// A sign flip closes the existing position first, then opens the new one
	if current.Sign() != 0 && desired.Sign() != 0 && current.Sign() != desired.Sign() {
		if err := s.executeTrade(symbol, current.Neg(), priceDec); err != nil {
			return err
		}
		return s.executeTrade(symbol, desired, priceDec)
	}

	return s.executeTrade(symbol, delta, priceDec)
}

// executeTrade fills a signed share delta at the given reference price.
func (s *Simulator) executeTrade(symbol string, deltaShares, price decimal.Decimal) error {
	isBuy := deltaShares.Sign() > 0

	fillPrice := price
	if isBuy {
		fillPrice = price.Mul(decimal.NewFromInt(1).Add(s.slippageRate))
	} else {
		fillPrice = price.Mul(decimal.NewFromInt(1).Sub(s.slippageRate))
	}

	absShares := deltaShares.Abs()

	// Cap buys at available cash
	if isBuy {
		unitCost := fillPrice.Mul(decimal.NewFromInt(1).Add(s.commissionRate))
		affordable := s.cash.Div(unitCost).Truncate(0)
		if affordable.LessThan(absShares) {
			if affordable.Sign() <= 0 {
				s.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"cash":   s.cash.StringFixed(2),
				}).Warn("Insufficient cash, skipping order")
				return nil
			}
			absShares = affordable
			deltaShares = affordable
		}
	}

	grossValue := absShares.Mul(fillPrice)
	commission := grossValue.Mul(s.commissionRate)
	slippageCost := absShares.Mul(fillPrice.Sub(price).Abs())

	pos, exists := s.positions[symbol]
	if !exists {
		pos = &Position{Symbol: symbol}
		s.positions[symbol] = pos
	}

	trade := Trade{
		Symbol:     symbol,
		Shares:     absShares,
		FillPrice:  fillPrice,
		Value:      grossValue,
		Commission: commission,
		Slippage:   slippageCost,
	}
	if isBuy {
		trade.Side = "buy"
	} else {
		trade.Side = "sell"
	}

	reducing := pos.Shares.Sign() != 0 && deltaShares.Sign() != pos.Shares.Sign()

	if reducing {
		// Realized P&L on the closed shares
		perShare := fillPrice.Sub(pos.AvgPrice)
		if pos.Shares.Sign() < 0 {
			perShare = pos.AvgPrice.Sub(fillPrice)
		}
		pnl := perShare.Mul(absShares).Sub(commission)
		trade.PnL = pnl

		if pnl.Sign() > 0 {
			s.winningTrades++
		} else if pnl.Sign() < 0 {
			s.losingTrades++
		}
	} else {
		// Increasing the position: re-average the entry price
		oldAbs := pos.Shares.Abs()
		newAbs := oldAbs.Add(absShares)
		pos.AvgPrice = oldAbs.Mul(pos.AvgPrice).Add(absShares.Mul(fillPrice)).Div(newAbs)
	}

	if isBuy {
		s.cash = s.cash.Sub(grossValue).Sub(commission)
	} else {
		s.cash = s.cash.Add(grossValue).Sub(commission)
	}

	pos.Shares = pos.Shares.Add(deltaShares)
	if pos.Shares.IsZero() {
		delete(s.positions, symbol)
	}

	s.trades = append(s.trades, trade)
	s.totalTrades++
	s.totalCommission = s.totalCommission.Add(commission)
	s.totalSlippage = s.totalSlippage.Add(slippageCost)

	return nil
}

// Cash returns the current cash balance.
func (s *Simulator) Cash() decimal.Decimal {
	return s.cash
}

// Positions returns open positions keyed by symbol.
func (s *Simulator) Positions() map[string]*Position {
	out := make(map[string]*Position, len(s.positions))
	for symbol, pos := range s.positions {
		out[symbol] = pos
	}
	return out
}

// Trades returns all simulated fills in execution order.
func (s *Simulator) Trades() []Trade {
	return s.trades
}

// GetStats returns simulation statistics.
func (s *Simulator) GetStats() Stats {
	return Stats{
		TotalTrades:     s.totalTrades,
		WinningTrades:   s.winningTrades,
		LosingTrades:    s.losingTrades,
		TotalCommission: s.totalCommission,
		TotalSlippage:   s.totalSlippage,
	}
}
