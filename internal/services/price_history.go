package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/models"
)

const (
	tcgInfiniteBaseURL  = "https://infinite-api.tcgplayer.com"
	defaultHistoryRange = "annual"
)

// PriceHistoryService reads the detailed price history feed for a product.
type PriceHistoryService struct {
	client       *http.Client
	limiter      *rate.Limiter
	baseURL      string
	historyRange string
}

func NewPriceHistoryService(baseURL, historyRange string, opts HTTPOptions) *PriceHistoryService {
	if baseURL == "" {
		baseURL = tcgInfiniteBaseURL
	}
	if historyRange == "" {
		historyRange = defaultHistoryRange
	}
	return &PriceHistoryService{
		client:       newHTTPClient(opts),
		limiter:      newLimiter(opts.RequestsPerSecond),
		baseURL:      strings.TrimRight(baseURL, "/"),
		historyRange: historyRange,
	}
}

// historyResponse mirrors /price/history/{id}/detailed. Numbers in buckets
// arrive as JSON strings ("12.49") or plain numbers.
type historyResponse struct {
	Count  int              `json:"count"`
	Result *[]historySeries `json:"result"`
}

type historySeries struct {
	Variant   string          `json:"variant"`
	Language  string          `json:"language"`
	Condition string          `json:"condition"`
	Buckets   []historyBucket `json:"buckets"`
}

type historyBucket struct {
	MarketPrice      flexFloat `json:"marketPrice"`
	QuantitySold     flexFloat `json:"quantitySold"`
	TransactionCount flexFloat `json:"transactionCount"`
	BucketStartDate  string    `json:"bucketStartDate"`
}

// flexFloat decodes a number that may be quoted, empty, or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// GetHistory fetches every condition series for catalogID. A missing or
// empty result, or a non-2xx status, is ErrNoData.
func (s *PriceHistoryService) GetHistory(ctx context.Context, catalogID string) (*models.PriceHistory, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.CollaboratorRequestDuration.WithLabelValues("history").Observe(time.Since(start).Seconds())
	}()

	reqURL := fmt.Sprintf("%s/price/history/%s/detailed?range=%s",
		s.baseURL, url.PathEscape(catalogID), url.QueryEscape(s.historyRange))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setTCGHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("history", "network").Inc()
		return nil, classifyTransportError("failed to fetch price history", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CollaboratorErrorsTotal.WithLabelValues("history", "status").Inc()
		return nil, fmt.Errorf("price history for %s returned status %d: %w", catalogID, resp.StatusCode, ErrNoData)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("history", "decode").Inc()
		return nil, fmt.Errorf("failed to decode price history for %s: %w: %w", catalogID, ErrMalformedResponse, err)
	}

	if body.Result == nil || len(*body.Result) == 0 {
		metrics.CollaboratorErrorsTotal.WithLabelValues("history", "no_data").Inc()
		return nil, fmt.Errorf("price history for %s: %w", catalogID, ErrNoData)
	}

	history := &models.PriceHistory{CatalogID: catalogID}
	for _, rs := range *body.Result {
		series := models.ConditionSeries{
			Condition: models.NormalizeCondition(rs.Condition),
			Variant:   rs.Variant,
			Language:  rs.Language,
			Buckets:   make([]models.PriceBucket, 0, len(rs.Buckets)),
		}
		if series.Condition == "" {
			series.Condition = models.PriceCondition(rs.Condition)
		}
		for _, b := range rs.Buckets {
			series.Buckets = append(series.Buckets, models.PriceBucket{
				MarketPrice:      float64(b.MarketPrice),
				TransactionCount: int(math.Round(float64(b.TransactionCount))),
				QuantitySold:     int(math.Round(float64(b.QuantitySold))),
				BucketStartDate:  b.BucketStartDate,
			})
		}
		history.Series = append(history.Series, series)
	}
	return history, nil
}

// SelectNearMint returns the Near Mint series with buckets ordered newest
// first. When the feed carries several Near Mint series (one per printing)
// the first one in response order is used.
func SelectNearMint(history *models.PriceHistory) (models.ConditionSeries, error) {
	if history == nil {
		return models.ConditionSeries{}, ErrNoNearMint
	}

	var matches []models.ConditionSeries
	for _, series := range history.Series {
		if models.NormalizeCondition(string(series.Condition)) == models.PriceConditionNM {
			matches = append(matches, series)
		}
	}
	if len(matches) == 0 {
		return models.ConditionSeries{}, fmt.Errorf("catalog id %s: %w", history.CatalogID, ErrNoNearMint)
	}
	if len(matches) > 1 {
		zap.L().Debug("multiple Near Mint series, using first",
			zap.String("catalog_id", history.CatalogID),
			zap.Int("series", len(matches)),
			zap.String("variant", matches[0].Variant))
	}

	series := matches[0]
	series.Buckets = NewestFirst(series.Buckets)
	return series, nil
}

// NewestFirst checks bucket order by start date and returns a newest-first
// copy. Oldest-first input is reversed and unordered input is sorted. If any
// bucket lacks a parseable date the feed order is kept.
func NewestFirst(buckets []models.PriceBucket) []models.PriceBucket {
	out := make([]models.PriceBucket, len(buckets))
	copy(out, buckets)
	if len(out) < 2 {
		return out
	}

	dates := make([]time.Time, len(out))
	for i, b := range out {
		t, ok := parseBucketDate(b.BucketStartDate)
		if !ok {
			return out
		}
		dates[i] = t
	}

	descending, ascending := true, true
	for i := 1; i < len(dates); i++ {
		if dates[i].After(dates[i-1]) {
			descending = false
		}
		if dates[i].Before(dates[i-1]) {
			ascending = false
		}
	}

	switch {
	case descending:
		return out
	case ascending:
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out
	default:
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return dates[idx[a]].After(dates[idx[b]]) })
		sorted := make([]models.PriceBucket, len(out))
		for i, k := range idx {
			sorted[i] = out[k]
		}
		return sorted
	}
}

func parseBucketDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
