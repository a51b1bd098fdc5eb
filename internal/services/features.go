package services

import (
	"github.com/codyseavey/tcg-signals/internal/models"
)

// ExtractFeatures derives the feature vector from newest-first buckets.
// Prices and volumes are filtered independently to strictly positive values.
// acquisitionPrice is the buy price; nil or zero means unknown.
func ExtractFeatures(buckets []models.PriceBucket, acquisitionPrice *float64) (*models.FeatureVector, error) {
	var prices, volumes []float64
	for _, b := range buckets {
		if b.MarketPrice > 0 {
			prices = append(prices, b.MarketPrice)
		}
		if b.TransactionCount > 0 {
			volumes = append(volumes, float64(b.TransactionCount))
		}
	}

	if len(prices) == 0 {
		return nil, ErrEmptyFeatures
	}

	recent := prices[0]
	old := prices[len(prices)-1]

	fv := &models.FeatureVector{
		RecentPrice: recent,
		OldPrice:    old,
		Volatility:  volatility(prices),
	}
	if old != 0 {
		fv.TrendPct = (recent - old) / old * 100
	}
	if len(volumes) > 0 {
		fv.RecentVolume = volumes[0]
		fv.AvgVolume = mean(volumes)
	}
	if hasAcquisitionPrice(acquisitionPrice) {
		margin := (recent - *acquisitionPrice) / *acquisitionPrice * 100
		fv.ProfitMargin = &margin
	}
	return fv, nil
}

// ROI is the percentage return of recentPrice over the buy price, 0 when the
// buy price is unknown.
func ROI(recentPrice float64, acquisitionPrice *float64) float64 {
	if !hasAcquisitionPrice(acquisitionPrice) {
		return 0
	}
	return (recentPrice - *acquisitionPrice) / *acquisitionPrice * 100
}

func hasAcquisitionPrice(p *float64) bool {
	return p != nil && *p != 0
}

// volatility is the price range as a percentage of the mean price.
func volatility(prices []float64) float64 {
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	m := mean(prices)
	if m == 0 {
		return 0
	}
	return (hi - lo) / m * 100
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
