package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-signals/internal/api"
	"github.com/codyseavey/tcg-signals/internal/database"
	"github.com/codyseavey/tcg-signals/internal/models"
	"github.com/codyseavey/tcg-signals/internal/services"
)

type mockResolver struct {
	ids      map[string]string
	lastHint string
}

func (m *mockResolver) Resolve(_ context.Context, name, setHint string) (string, error) {
	m.lastHint = setHint
	if id, ok := m.ids[name]; ok {
		return id, nil
	}
	return "", services.ErrNotFound
}

type mockHistory struct {
	histories map[string]*models.PriceHistory
}

func (m *mockHistory) GetHistory(_ context.Context, catalogID string) (*models.PriceHistory, error) {
	if h, ok := m.histories[catalogID]; ok {
		return h, nil
	}
	return nil, services.ErrNoData
}

type mockEvaluator struct {
	lastBuyPrice *float64
	err          error
}

func (m *mockEvaluator) Evaluate(_ context.Context, name string, buyPrice *float64) (*models.DatasetRow, error) {
	m.lastBuyPrice = buyPrice
	if m.err != nil {
		return nil, m.err
	}
	return &models.DatasetRow{CardName: name, CatalogID: "642113", RecentPrice: 12.49, Label: models.LabelSell}, nil
}

type testServer struct {
	router    *gin.Engine
	resolver  *mockResolver
	evaluator *mockEvaluator
	worker    *services.DatasetWorker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	identities := services.NewGormIdentityStore(db)
	require.NoError(t, identities.Put("Pikachu", "100"))

	ts := &testServer{
		resolver:  &mockResolver{ids: map[string]string{"Parasol Lady 255/182": "642113"}},
		evaluator: &mockEvaluator{},
		worker:    services.NewDatasetWorker(nil, db, ""),
	}
	ts.router = api.SetupRouter(api.Dependencies{
		Resolver: ts.resolver,
		History: &mockHistory{histories: map[string]*models.PriceHistory{
			"642113": {
				CatalogID: "642113",
				Series: []models.ConditionSeries{{
					Condition: models.PriceConditionNM,
					Buckets: []models.PriceBucket{
						{MarketPrice: 12.49, TransactionCount: 3, BucketStartDate: "2025-12-22"},
						{MarketPrice: 13.27, TransactionCount: 4, BucketStartDate: "2025-12-01"},
					},
				}},
			},
			"lp-only": {
				CatalogID: "lp-only",
				Series:    []models.ConditionSeries{{Condition: models.PriceConditionLP}},
			},
		}},
		Evaluator:  ts.evaluator,
		Worker:     ts.worker,
		Identities: identities,
		SetHint:    "Mega Evolution",
	})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tcg_http_requests_total")
}

func TestResolveCard(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantID   string
		wantHint string
	}{
		{"resolved with default hint", "/api/cards/resolve?name=Parasol+Lady+255/182", http.StatusOK, "642113", "Mega Evolution"},
		{"explicit hint", "/api/cards/resolve?name=Parasol+Lady+255/182&set_hint=Paldea", http.StatusOK, "642113", "Paldea"},
		{"unknown card", "/api/cards/resolve?name=Nobody", http.StatusNotFound, "", ""},
		{"missing name", "/api/cards/resolve", http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, decode(t, w)["catalog_id"])
				assert.Equal(t, tt.wantHint, ts.resolver.lastHint)
			}
		})
	}
}

func TestEvaluateCard(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/cards/evaluate", `{"name": "Parasol Lady 255/182", "buy_price": 10}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SELL", body["label"])
	require.NotNil(t, ts.evaluator.lastBuyPrice)
	assert.Equal(t, 10.0, *ts.evaluator.lastBuyPrice)

	w = ts.do(http.MethodPost, "/api/cards/evaluate", `{"name": "Pikachu"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, ts.evaluator.lastBuyPrice)

	w = ts.do(http.MethodPost, "/api/cards/evaluate", `{"name": "Pikachu", "buy_price": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/cards/evaluate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.evaluator.err = services.ErrNoNearMint
	w = ts.do(http.MethodPost, "/api/cards/evaluate", `{"name": "Pikachu"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no_near_mint", decode(t, w)["reason"])

	ts.evaluator.err = services.ErrTransientFetch
	w = ts.do(http.MethodPost, "/api/cards/evaluate", `{"name": "Pikachu"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetCardPrices(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/cards/642113/prices?buy_price=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Near Mint", body["condition"])
	assert.Len(t, body["buckets"], 2)

	features := body["features"].(map[string]any)
	assert.Equal(t, 12.49, features["recent_price"])
	decision := body["decision"].(map[string]any)
	assert.Equal(t, "SELL", decision["label"])

	w = ts.do(http.MethodGet, "/api/cards/lp-only/prices", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/api/cards/unknown/prices", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/api/cards/642113/prices?buy_price=ten", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuns(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/runs", `{"cards": ["Pikachu", "Parasol Lady 255/182"], "buy_price": 10}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, 1.0, body["queue_position"])
	run := body["run"].(map[string]any)
	runID := run["id"].(string)
	assert.Equal(t, "queued", run["status"])
	assert.Equal(t, "api", run["trigger"])

	w = ts.do(http.MethodPost, "/api/runs", `{"cards": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/runs/"+runID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["cards_total"])

	w = ts.do(http.MethodGet, "/api/runs/no-such-run", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["runs"], 1)

	w = ts.do(http.MethodGet, "/api/runs/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["queue_size"])

	w = ts.do(http.MethodGet, "/api/runs/"+runID+"/rows", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["rows"])

	w = ts.do(http.MethodGet, "/api/runs/"+runID+"/rows?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strings.Join(models.DatasetColumns, ",")+"\n", w.Body.String())
}

func TestListIdentities(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/identities", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 1.0, body["count"])

	w = ts.do(http.MethodGet, "/api/identities?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
