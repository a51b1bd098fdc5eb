package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/models"
)

// ProductMetadataService reads descriptive product fields (set, number,
// release date). Failures are never fatal to the pipeline.
type ProductMetadataService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

func NewProductMetadataService(baseURL string, opts HTTPOptions) *ProductMetadataService {
	if baseURL == "" {
		baseURL = tcgInfiniteBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	return &ProductMetadataService{
		client:  newHTTPClient(opts),
		limiter: newLimiter(opts.RequestsPerSecond),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type productResponse struct {
	Result struct {
		SetName     string `json:"setName"`
		Number      string `json:"number"`
		ReleaseDate string `json:"releaseDate"`
	} `json:"result"`
}

// FetchMetadata returns the product's metadata or an error.
func (s *ProductMetadataService) FetchMetadata(ctx context.Context, catalogID string) (models.CardMetadata, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return models.CardMetadata{}, err
	}

	start := time.Now()
	defer func() {
		metrics.CollaboratorRequestDuration.WithLabelValues("metadata").Observe(time.Since(start).Seconds())
	}()

	reqURL := fmt.Sprintf("%s/products/%s", s.baseURL, url.PathEscape(catalogID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.CardMetadata{}, fmt.Errorf("failed to create request: %w", err)
	}
	setTCGHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("metadata", "network").Inc()
		return models.CardMetadata{}, classifyTransportError("failed to fetch product", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CollaboratorErrorsTotal.WithLabelValues("metadata", "status").Inc()
		return models.CardMetadata{}, fmt.Errorf("product %s returned status %d: %w", catalogID, resp.StatusCode, ErrNoData)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("metadata", "decode").Inc()
		return models.CardMetadata{}, fmt.Errorf("failed to decode product %s: %w: %w", catalogID, ErrMalformedResponse, err)
	}

	return models.CardMetadata{
		SetName:     body.Result.SetName,
		Number:      body.Result.Number,
		ReleaseDate: body.Result.ReleaseDate,
	}, nil
}

// GetMetadata is FetchMetadata with failures logged and blanked out.
func (s *ProductMetadataService) GetMetadata(ctx context.Context, catalogID string) models.CardMetadata {
	meta, err := s.FetchMetadata(ctx, catalogID)
	if err != nil {
		zap.L().Debug("product metadata unavailable", zap.String("catalog_id", catalogID), zap.Error(err))
		return models.CardMetadata{}
	}
	return meta
}
