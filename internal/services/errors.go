package services

import (
	"errors"
	"fmt"
)

// Per-card failure kinds. All of them skip the card; none abort a run.
var (
	// ErrNotFound means no catalog identifier could be resolved for a name.
	ErrNotFound = errors.New("card not found")
	// ErrNoData means the history endpoint returned no usable series.
	ErrNoData = errors.New("no price data")
	// ErrNoNearMint means history exists but has no Near Mint series.
	ErrNoNearMint = fmt.Errorf("%w: no Near Mint series", ErrNoData)
	// ErrEmptyFeatures means no bucket carried a positive market price.
	ErrEmptyFeatures = errors.New("no positive prices to extract features from")
	// ErrTransientFetch wraps network failures and timeouts.
	ErrTransientFetch = errors.New("transient fetch error")
	// ErrMalformedResponse means a collaborator answered with an unreadable body.
	ErrMalformedResponse = errors.New("malformed response")
)

// SkipReason maps a per-card error to a short label for logs and metrics.
func SkipReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoNearMint):
		return "no_near_mint"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrEmptyFeatures):
		return "empty_features"
	case errors.Is(err, ErrTransientFetch):
		return "transient"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, errCardPanic):
		return "panic"
	default:
		return "error"
	}
}
