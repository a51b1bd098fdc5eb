package models

import (
	"strings"
)

// PriceCondition is the card condition a price series was sampled for.
// Values match the condition strings of the TCGplayer price history feed.
type PriceCondition string

const (
	PriceConditionNM  PriceCondition = "Near Mint"
	PriceConditionLP  PriceCondition = "Lightly Played"
	PriceConditionMP  PriceCondition = "Moderately Played"
	PriceConditionHP  PriceCondition = "Heavily Played"
	PriceConditionDMG PriceCondition = "Damaged"
)

// AllPriceConditions returns all valid price conditions
func AllPriceConditions() []PriceCondition {
	return []PriceCondition{
		PriceConditionNM,
		PriceConditionLP,
		PriceConditionMP,
		PriceConditionHP,
		PriceConditionDMG,
	}
}

// NormalizeCondition maps feed and shorthand spellings ("NM", "near mint",
// "Near Mint Holofoil") to a PriceCondition. Unknown values return "".
func NormalizeCondition(condition string) PriceCondition {
	c := strings.ToUpper(strings.TrimSpace(condition))
	switch {
	case c == "NM" || strings.HasPrefix(c, "NEAR MINT"):
		return PriceConditionNM
	case c == "LP" || strings.HasPrefix(c, "LIGHTLY PLAYED"):
		return PriceConditionLP
	case c == "MP" || strings.HasPrefix(c, "MODERATELY PLAYED"):
		return PriceConditionMP
	case c == "HP" || strings.HasPrefix(c, "HEAVILY PLAYED"):
		return PriceConditionHP
	case c == "DMG" || strings.HasPrefix(c, "DAMAGED"):
		return PriceConditionDMG
	default:
		return ""
	}
}

// PriceBucket is one time bucket of market observations. A zero MarketPrice
// or TransactionCount means nothing traded in the bucket.
type PriceBucket struct {
	MarketPrice      float64 `json:"market_price"`
	TransactionCount int     `json:"transaction_count"`
	QuantitySold     int     `json:"quantity_sold"`
	BucketStartDate  string  `json:"bucket_start_date,omitempty"`
}

// ConditionSeries is the bucket sequence for one condition/variant, newest first.
type ConditionSeries struct {
	Condition PriceCondition `json:"condition"`
	Variant   string         `json:"variant,omitempty"`
	Language  string         `json:"language,omitempty"`
	Buckets   []PriceBucket  `json:"buckets"`
}

// PriceHistory is every condition series returned for one catalog identifier.
type PriceHistory struct {
	CatalogID string            `json:"catalog_id"`
	Series    []ConditionSeries `json:"series"`
}
