package services

import (
	"context"
	"errors"
	"sync"

	"github.com/codyseavey/tcg-signals/internal/models"
)

// fakeSearcher returns canned candidates per query and records every call.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]SearchCandidate
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]SearchCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeSearcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeHistory serves histories by catalog id. An id in panics makes
// GetHistory panic.
type fakeHistory struct {
	histories map[string]*models.PriceHistory
	errs      map[string]error
	panics    map[string]bool
}

func (f *fakeHistory) GetHistory(_ context.Context, catalogID string) (*models.PriceHistory, error) {
	if f.panics[catalogID] {
		panic("history decoder blew up")
	}
	if err := f.errs[catalogID]; err != nil {
		return nil, err
	}
	h, ok := f.histories[catalogID]
	if !ok {
		return nil, ErrNoData
	}
	return h, nil
}

type fakeMetadata map[string]models.CardMetadata

func (f fakeMetadata) GetMetadata(_ context.Context, catalogID string) models.CardMetadata {
	return f[catalogID]
}

type fakeSummarizer struct {
	text string
	err  error
}

func (f fakeSummarizer) Summarize(context.Context, string, models.FeatureVector, models.Decision) (string, error) {
	return f.text, f.err
}

var errSinkFull = errors.New("disk full")

// failingSink accepts okRows rows and fails the next write.
type failingSink struct {
	okRows int
	rows   []models.DatasetRow
}

func (f *failingSink) WriteRow(row models.DatasetRow) error {
	if len(f.rows) >= f.okRows {
		return errSinkFull
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *failingSink) Close() error { return nil }

// exampleBuckets is a newest-first Near Mint series: prices 12.49, 13.10,
// 12.80, 13.27 with 3, 5, 2, 4 sales.
func exampleBuckets() []models.PriceBucket {
	return []models.PriceBucket{
		{MarketPrice: 12.49, TransactionCount: 3, BucketStartDate: "2025-12-22"},
		{MarketPrice: 13.10, TransactionCount: 5, BucketStartDate: "2025-12-15"},
		{MarketPrice: 12.80, TransactionCount: 2, BucketStartDate: "2025-12-08"},
		{MarketPrice: 13.27, TransactionCount: 4, BucketStartDate: "2025-12-01"},
	}
}

func exampleHistory(catalogID string) *models.PriceHistory {
	return &models.PriceHistory{
		CatalogID: catalogID,
		Series: []models.ConditionSeries{
			{Condition: models.PriceConditionLP, Buckets: []models.PriceBucket{{MarketPrice: 9, TransactionCount: 1}}},
			{Condition: models.PriceConditionNM, Variant: "Holofoil", Buckets: exampleBuckets()},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }
