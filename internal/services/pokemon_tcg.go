package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/metrics"
)

const (
	pokemonTCGBaseURL     = "https://api.pokemontcg.io/v2"
	pokemonTCGDefaultPage = 250
	pokemonTCGPagePause   = 300 * time.Millisecond
)

// CatalogCard is one row of the exported card catalog.
type CatalogCard struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	SetName     string `json:"set"`
	ReleaseDate string `json:"release"`
}

// CardCatalogService pages through the Pokemon TCG API to build card lists
// for collection runs.
type CardCatalogService struct {
	client   *http.Client
	apiKey   string
	baseURL  string
	pageSize int
	pause    time.Duration
}

func NewCardCatalogService(apiKey string) *CardCatalogService {
	return &CardCatalogService{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:   apiKey,
		baseURL:  pokemonTCGBaseURL,
		pageSize: pokemonTCGDefaultPage,
		pause:    pokemonTCGPagePause,
	}
}

type pokemonCardsPage struct {
	Data []struct {
		Name   string `json:"name"`
		Number string `json:"number"`
		Set    struct {
			Name        string `json:"name"`
			ReleaseDate string `json:"releaseDate"`
		} `json:"set"`
	} `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Count      int `json:"count"`
	TotalCount int `json:"totalCount"`
}

// FetchCards pages until limit cards are collected (0 = no limit) or a short
// page signals the end. query is an optional Pokemon TCG API search filter
// such as `set.name:"Mega Evolution"`.
func (s *CardCatalogService) FetchCards(ctx context.Context, query string, limit int) ([]CatalogCard, error) {
	var cards []CatalogCard
	for page := 1; ; page++ {
		batch, err := s.fetchPage(ctx, query, page)
		if err != nil {
			return cards, err
		}
		for _, c := range batch.Data {
			cards = append(cards, CatalogCard{
				Name:        c.Name,
				Number:      c.Number,
				SetName:     c.Set.Name,
				ReleaseDate: c.Set.ReleaseDate,
			})
			if limit > 0 && len(cards) >= limit {
				return cards, nil
			}
		}
		zap.L().Info("card catalog page fetched", zap.Int("page", page), zap.Int("cards", len(cards)))

		if len(batch.Data) < s.pageSize {
			return cards, nil
		}
		if err := sleepContext(ctx, s.pause); err != nil {
			return cards, err
		}
	}
}

func (s *CardCatalogService) fetchPage(ctx context.Context, query string, page int) (*pokemonCardsPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(s.pageSize))
	if query != "" {
		params.Set("q", query)
	}
	reqURL := fmt.Sprintf("%s/cards?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.CollaboratorRequestDuration.WithLabelValues("catalog").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("catalog", "network").Inc()
		return nil, fmt.Errorf("failed to fetch card catalog page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CollaboratorErrorsTotal.WithLabelValues("catalog", "status").Inc()
		return nil, fmt.Errorf("pokemon tcg API returned status %d", resp.StatusCode)
	}

	var body pokemonCardsPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("catalog", "decode").Inc()
		return nil, fmt.Errorf("failed to decode pokemon tcg response: %w", err)
	}
	return &body, nil
}

// WriteCatalogCSV writes cards with a name,number,set,release header, the
// layout ParseCardCSV reads back.
func WriteCatalogCSV(w io.Writer, cards []CatalogCard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "number", "set", "release"}); err != nil {
		return err
	}
	for _, c := range cards {
		if err := cw.Write([]string{strings.TrimSpace(c.Name), c.Number, c.SetName, c.ReleaseDate}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
