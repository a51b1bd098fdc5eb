package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-signals/internal/models"
)

const historyFixture = `{
  "count": 2,
  "result": [
    {
      "skuId": "7000001",
      "variant": "Holofoil",
      "language": "English",
      "condition": "Lightly Played",
      "buckets": [{"marketPrice": "9.10", "transactionCount": "1", "bucketStartDate": "2025-12-22"}]
    },
    {
      "skuId": "7000002",
      "variant": "Holofoil",
      "language": "English",
      "condition": "Near Mint",
      "buckets": [
        {"marketPrice": "12.49", "quantitySold": "4", "transactionCount": "3", "bucketStartDate": "2025-12-22"},
        {"marketPrice": 13.10, "quantitySold": 5, "transactionCount": 5, "bucketStartDate": "2025-12-15"},
        {"marketPrice": "0.00", "quantitySold": "0", "transactionCount": "0", "bucketStartDate": "2025-12-08"},
        {"marketPrice": "13.27", "quantitySold": "", "transactionCount": null, "bucketStartDate": "2025-12-01"}
      ]
    }
  ]
}`

func TestPriceHistoryServiceGetHistory(t *testing.T) {
	var gotPath, gotRange, gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte(historyFixture))
	}))
	defer server.Close()

	svc := NewPriceHistoryService(server.URL, "", HTTPOptions{})
	history, err := svc.GetHistory(context.Background(), "642113")
	require.NoError(t, err)

	assert.Equal(t, "/price/history/642113/detailed", gotPath)
	assert.Equal(t, "annual", gotRange)
	assert.Equal(t, tcgUserAgent, gotUA)
	assert.Equal(t, tcgReferer, gotReferer)

	require.Len(t, history.Series, 2)
	nm := history.Series[1]
	assert.Equal(t, models.PriceConditionNM, nm.Condition)
	require.Len(t, nm.Buckets, 4)
	assert.Equal(t, 12.49, nm.Buckets[0].MarketPrice)
	assert.Equal(t, 3, nm.Buckets[0].TransactionCount)
	assert.Equal(t, 13.10, nm.Buckets[1].MarketPrice)
	assert.Equal(t, 0.0, nm.Buckets[2].MarketPrice)
	assert.Equal(t, 0, nm.Buckets[3].TransactionCount)
}

func TestPriceHistoryServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"missing result", http.StatusOK, `{"count": 0}`, ErrNoData},
		{"empty result", http.StatusOK, `{"count": 0, "result": []}`, ErrNoData},
		{"not found status", http.StatusNotFound, `{"error": "no product"}`, ErrNoData},
		{"server error status", http.StatusBadGateway, ``, ErrNoData},
		{"malformed body", http.StatusOK, `<html>blocked</html>`, ErrMalformedResponse},
		{"bad number", http.StatusOK, `{"result": [{"condition": "Near Mint", "buckets": [{"marketPrice": "abc"}]}]}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewPriceHistoryService(server.URL, "annual", HTTPOptions{})
			_, err := svc.GetHistory(context.Background(), "1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetHistory() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriceHistoryServiceTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	svc := NewPriceHistoryService(url, "annual", HTTPOptions{})
	_, err := svc.GetHistory(context.Background(), "1")
	if !errors.Is(err, ErrTransientFetch) {
		t.Errorf("GetHistory() error = %v, want ErrTransientFetch", err)
	}
}

func TestSelectNearMint(t *testing.T) {
	t.Run("picks the first Near Mint series", func(t *testing.T) {
		history := &models.PriceHistory{Series: []models.ConditionSeries{
			{Condition: models.PriceConditionLP, Variant: "Normal"},
			{Condition: "near mint", Variant: "Holofoil", Buckets: exampleBuckets()},
			{Condition: models.PriceConditionNM, Variant: "Reverse Holofoil"},
		}}

		series, err := SelectNearMint(history)
		require.NoError(t, err)
		assert.Equal(t, "Holofoil", series.Variant)
		assert.Equal(t, exampleBuckets(), series.Buckets)
	})

	t.Run("no Near Mint series is a no-data error", func(t *testing.T) {
		history := &models.PriceHistory{CatalogID: "1", Series: []models.ConditionSeries{
			{Condition: models.PriceConditionDMG},
		}}

		_, err := SelectNearMint(history)
		assert.ErrorIs(t, err, ErrNoNearMint)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("oldest-first buckets are reversed", func(t *testing.T) {
		buckets := exampleBuckets()
		for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
			buckets[i], buckets[j] = buckets[j], buckets[i]
		}
		history := &models.PriceHistory{Series: []models.ConditionSeries{
			{Condition: models.PriceConditionNM, Buckets: buckets},
		}}

		series, err := SelectNearMint(history)
		require.NoError(t, err)
		assert.Equal(t, exampleBuckets(), series.Buckets)
	})
}

func TestNewestFirst(t *testing.T) {
	tests := []struct {
		name     string
		dates    []string
		expected []string
	}{
		{"already newest first", []string{"2025-03-01", "2025-02-01", "2025-01-01"}, []string{"2025-03-01", "2025-02-01", "2025-01-01"}},
		{"oldest first", []string{"2025-01-01", "2025-02-01", "2025-03-01"}, []string{"2025-03-01", "2025-02-01", "2025-01-01"}},
		{"unordered", []string{"2025-02-01", "2025-03-01", "2025-01-01"}, []string{"2025-03-01", "2025-02-01", "2025-01-01"}},
		{"rfc3339 dates", []string{"2025-01-01T00:00:00Z", "2025-02-01T00:00:00Z"}, []string{"2025-02-01T00:00:00Z", "2025-01-01T00:00:00Z"}},
		{"undated keeps feed order", []string{"2025-01-01", "", "2025-03-01"}, []string{"2025-01-01", "", "2025-03-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets := make([]models.PriceBucket, len(tt.dates))
			for i, d := range tt.dates {
				buckets[i] = models.PriceBucket{MarketPrice: float64(i + 1), BucketStartDate: d}
			}

			got := NewestFirst(buckets)
			for i := range got {
				if got[i].BucketStartDate != tt.expected[i] {
					t.Errorf("NewestFirst()[%d] = %q, want %q", i, got[i].BucketStartDate, tt.expected[i])
				}
			}
			if buckets[0].BucketStartDate != tt.dates[0] {
				t.Error("NewestFirst() modified its input")
			}
		})
	}
}
