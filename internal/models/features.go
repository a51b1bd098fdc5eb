package models

// FeatureVector is the fixed set of trading features derived from one
// condition series. ProfitMargin is nil when no acquisition price is known.
type FeatureVector struct {
	RecentPrice  float64  `json:"recent_price"`
	OldPrice     float64  `json:"old_price"`
	TrendPct     float64  `json:"trend_pct"`
	RecentVolume float64  `json:"recent_volume"`
	AvgVolume    float64  `json:"avg_volume"`
	Volatility   float64  `json:"volatility"`
	ProfitMargin *float64 `json:"profit_margin"`
}
