package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-signals/internal/config"
)

func TestNewPipeline(t *testing.T) {
	t.Run("file cache over http search", func(t *testing.T) {
		cfg := config.New()
		cfg.SearchMode = config.SearchModeHTTP
		cfg.CacheFile = filepath.Join(t.TempDir(), "cache_tcg_ids.json")
		cfg.IdentityLRUSize = 16

		p, err := NewPipeline(context.Background(), cfg, nil, PipelineOptions{Summaries: true})
		require.NoError(t, err)
		defer p.Close()

		assert.IsType(t, &CachedIdentityStore{}, p.Store)
		assert.IsType(t, &HTMLSearcher{}, p.Searcher)
		assert.Nil(t, p.Summarizer, "no Gemini key configured")
		assert.NotNil(t, p.Collector)
		assert.NotNil(t, p.Identities())
	})

	t.Run("sqlite cache needs a database", func(t *testing.T) {
		cfg := config.New()
		cfg.SearchMode = config.SearchModeHTTP
		cfg.CacheBackend = config.CacheBackendSQLite

		_, err := NewPipeline(context.Background(), cfg, nil, PipelineOptions{})
		assert.Error(t, err)

		db := openTestDB(t)
		defer closeTestDB(t, db)
		p, err := NewPipeline(context.Background(), cfg, db, PipelineOptions{})
		require.NoError(t, err)
		assert.NoError(t, p.Close())
	})
}
