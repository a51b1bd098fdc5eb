package services

import (
	"fmt"

	"github.com/codyseavey/tcg-signals/internal/models"
)

// Decision policy thresholds, in percent.
const (
	TrendUpThresholdPct   = 5.0
	TrendDownThresholdPct = -5.0
	ProfitTargetPct       = 20.0
)

// Decide labels a feature vector SELL or HOLD. The ownership mode follows the
// acquisition price: known and non-zero means bought, otherwise pulled. The
// first matching rule wins.
func Decide(fv models.FeatureVector, acquisitionPrice *float64) models.Decision {
	if hasAcquisitionPrice(acquisitionPrice) {
		return decide(fv, models.ModeBought)
	}
	return decide(fv, models.ModePulled)
}

func decide(fv models.FeatureVector, mode models.OwnershipMode) models.Decision {
	result := func(label models.DecisionLabel, reason string) models.Decision {
		return models.Decision{Label: label, Reason: reason, Mode: mode}
	}

	if mode == models.ModeBought {
		if profitTargetReached(fv) {
			return result(models.LabelSell, fmt.Sprintf("profit target reached: price $%.2f, %.1f%% margin", fv.RecentPrice, *fv.ProfitMargin))
		}
		if trendingDown(fv) {
			return result(models.LabelSell, fmt.Sprintf("price falling (%.1f%% trend)", fv.TrendPct))
		}
		if risingOnVolume(fv) {
			return result(models.LabelHold, "price rising on increasing volume")
		}
		return result(models.LabelHold, "price stable")
	}

	if risingOnVolume(fv) {
		return result(models.LabelHold, "price rising on increasing volume")
	}
	if trendingDown(fv) {
		return result(models.LabelSell, fmt.Sprintf("price falling (%.1f%% trend)", fv.TrendPct))
	}
	return result(models.LabelHold, "price stable")
}

func profitTargetReached(fv models.FeatureVector) bool {
	return fv.ProfitMargin != nil && *fv.ProfitMargin >= ProfitTargetPct
}

func trendingDown(fv models.FeatureVector) bool {
	return fv.TrendPct < TrendDownThresholdPct
}

func risingOnVolume(fv models.FeatureVector) bool {
	return fv.TrendPct > TrendUpThresholdPct && fv.RecentVolume > fv.AvgVolume
}
