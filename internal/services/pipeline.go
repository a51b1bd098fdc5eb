package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-signals/internal/config"
)

// Pipeline holds the collaborators built from configuration. Close releases
// the searcher (which may own a Chrome process) and flushes the identity
// store; call it on every exit path.
type Pipeline struct {
	Store      IdentityStore
	Searcher   Searcher
	Resolver   *IdentityResolver
	History    *PriceHistoryService
	Metadata   *ProductMetadataService
	Summarizer Summarizer
	Collector  *Collector

	closeSearcher func() error
}

// PipelineOptions toggles the optional parts of NewPipeline.
type PipelineOptions struct {
	// Summaries enables Gemini summaries when an API key is configured.
	Summaries bool
}

// NewPipeline wires the identity store, searcher, history, metadata and
// collector from cfg. db is required for the sqlite cache backend.
func NewPipeline(ctx context.Context, cfg *config.Config, db *gorm.DB, opts PipelineOptions) (*Pipeline, error) {
	store, err := newIdentityStore(cfg, db)
	if err != nil {
		return nil, err
	}

	httpOpts := HTTPOptions{
		Timeout:            cfg.HTTPTimeout,
		Proxy:              cfg.ProxyURL(),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RequestsPerSecond:  cfg.RequestsPerSecond,
	}

	p := &Pipeline{Store: store}

	switch cfg.SearchMode {
	case config.SearchModeBrowser:
		browser, err := NewBrowserSearcher(ctx, BrowserOptions{
			SearchURL:   cfg.SearchURL,
			Headless:    cfg.BrowserHeadless,
			Bin:         cfg.BrowserBin,
			WaitTimeout: cfg.SearchTimeout,
			Proxy:       cfg.ProxyURL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start browser searcher: %w", err)
		}
		p.Searcher = browser
		p.closeSearcher = browser.Close
	default:
		searchOpts := httpOpts
		if cfg.SearchTimeout > 0 {
			searchOpts.Timeout = cfg.SearchTimeout
		}
		p.Searcher = NewHTMLSearcher(cfg.SearchURL, searchOpts)
	}

	p.Resolver = NewIdentityResolver(store, p.Searcher, cfg.SearchMode, cfg.SetCode)
	p.History = NewPriceHistoryService(cfg.HistoryBaseURL, cfg.HistoryRange, httpOpts)

	metadataOpts := httpOpts
	metadataOpts.Timeout = cfg.MetadataTimeout
	p.Metadata = NewProductMetadataService(cfg.ProductBaseURL, metadataOpts)

	if opts.Summaries {
		gemini, err := NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			zap.L().Warn("decision summaries disabled", zap.Error(err))
		} else if gemini != nil {
			p.Summarizer = gemini
		} else {
			zap.L().Info("decision summaries disabled: no Gemini API key")
		}
	}

	p.Collector = NewCollector(p.Resolver, p.History, CollectorOptions{
		SetHint:    cfg.SetHint,
		Pause:      cfg.CardPause,
		Metadata:   p.Metadata,
		Summarizer: p.Summarizer,
	})
	return p, nil
}

func (p *Pipeline) Close() error {
	var errs []error
	if p.closeSearcher != nil {
		errs = append(errs, p.closeSearcher())
	}
	errs = append(errs, p.Store.Flush())
	return errors.Join(errs...)
}

// Identities returns the store as a lister, or nil if it cannot list.
func (p *Pipeline) Identities() IdentityLister {
	if lister, ok := p.Store.(IdentityLister); ok {
		return lister
	}
	return nil
}

func newIdentityStore(cfg *config.Config, db *gorm.DB) (IdentityStore, error) {
	var backing IdentityStore
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		if db == nil {
			return nil, errors.New("sqlite identity cache needs a database")
		}
		backing = NewGormIdentityStore(db)
	default:
		backing = NewFileIdentityStore(cfg.CacheFile)
	}

	if cfg.IdentityLRUSize <= 0 {
		return backing, nil
	}
	return NewCachedIdentityStore(backing, cfg.IdentityLRUSize)
}
