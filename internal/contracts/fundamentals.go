package contracts

import "time"

// CoarseFundamental is the daily price/volume snapshot of one security used
// by the coarse selection stage
type CoarseFundamental struct {
	Symbol             string  `json:"symbol"`
	Price              float64 `json:"price"`
	DollarVolume       float64 `json:"dollar_volume"`
	HasFundamentalData bool    `json:"has_fundamental_data"`
}

// FineFundamental is the fundamental snapshot of one security used by the
// fine selection stage
type FineFundamental struct {
	Symbol    string  `json:"symbol"`
	MarketCap float64 `json:"market_cap"`
	PERatio   float64 `json:"pe_ratio"`
}

// Bar carries the close prices of the active universe for one trading day.
// Data is not fill-forwarded: a symbol without a trade that day is absent.
type Bar struct {
	Date   time.Time          `json:"date"`
	Prices map[string]float64 `json:"prices"`
}
