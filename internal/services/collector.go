package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/models"
)

var errCardPanic = errors.New("card processing panicked")

// Resolver maps a card name to its catalog identifier.
type Resolver interface {
	Resolve(ctx context.Context, cardName, setHint string) (string, error)
}

// HistoryFetcher returns every condition series for a catalog identifier.
type HistoryFetcher interface {
	GetHistory(ctx context.Context, catalogID string) (*models.PriceHistory, error)
}

// MetadataFetcher returns descriptive product fields, blank on failure.
type MetadataFetcher interface {
	GetMetadata(ctx context.Context, catalogID string) models.CardMetadata
}

// CollectorOptions holds the optional collaborators and pacing.
type CollectorOptions struct {
	SetHint    string
	Pause      time.Duration
	Metadata   MetadataFetcher
	Summarizer Summarizer
}

// Collector drives the valuation pipeline over a list of card names, one
// card at a time, writing one row per card that makes it through.
type Collector struct {
	resolver   Resolver
	history    HistoryFetcher
	metadata   MetadataFetcher
	summarizer Summarizer
	setHint    string
	pause      time.Duration
}

func NewCollector(resolver Resolver, history HistoryFetcher, opts CollectorOptions) *Collector {
	return &Collector{
		resolver:   resolver,
		history:    history,
		metadata:   opts.Metadata,
		summarizer: opts.Summarizer,
		setHint:    opts.SetHint,
		pause:      opts.Pause,
	}
}

// SkippedCard is a card that produced no row, with the reason.
type SkippedCard struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// RunSummary reports what a Run did.
type RunSummary struct {
	CardsTotal  int           `json:"cards_total"`
	RowsWritten int           `json:"rows_written"`
	Skipped     []SkippedCard `json:"skipped,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Run processes names in order. Per-card failures are logged and skipped;
// only a sink write failure or context cancellation ends the run early.
// buyPrice nil (or zero) runs in pulled mode.
func (c *Collector) Run(ctx context.Context, names []string, sink RowSink, buyPrice *float64) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}
	defer func() { summary.Duration = time.Since(start) }()

	buyPrice = normalizeBuyPrice(buyPrice)
	processed := 0
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		summary.CardsTotal++

		if processed > 0 {
			if err := sleepContext(ctx, c.pause); err != nil {
				return summary, err
			}
		}
		processed++

		row, err := c.Evaluate(ctx, name, buyPrice)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			reason := SkipReason(err)
			zap.L().Warn("skipping card", zap.String("card", name), zap.String("reason", reason), zap.Error(err))
			metrics.CardsProcessedTotal.WithLabelValues("skipped").Inc()
			metrics.CardSkipsTotal.WithLabelValues(reason).Inc()
			summary.Skipped = append(summary.Skipped, SkippedCard{Name: name, Reason: reason, Error: err.Error()})
			continue
		}

		row.Position = i
		if err := sink.WriteRow(*row); err != nil {
			return summary, fmt.Errorf("failed to write row for %q: %w", name, err)
		}
		summary.RowsWritten++
		metrics.CardsProcessedTotal.WithLabelValues("written").Inc()
		metrics.RowsWrittenTotal.Inc()
		zap.L().Info("card processed",
			zap.String("card", name),
			zap.String("catalog_id", row.CatalogID),
			zap.String("label", string(row.Label)),
			zap.Float64("recent_price", row.RecentPrice))
	}

	zap.L().Info("collection run finished",
		zap.Int("cards", summary.CardsTotal),
		zap.Int("rows", summary.RowsWritten),
		zap.Int("skipped", len(summary.Skipped)))
	return summary, nil
}

// Evaluate takes one card through the pipeline and returns its row. Panics
// inside the pipeline come back as errors.
func (c *Collector) Evaluate(ctx context.Context, name string, buyPrice *float64) (row *models.DatasetRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			row = nil
			err = fmt.Errorf("%w: %v", errCardPanic, r)
		}
	}()

	buyPrice = normalizeBuyPrice(buyPrice)

	catalogID, err := c.resolver.Resolve(ctx, name, c.setHint)
	if err != nil {
		return nil, err
	}

	history, err := c.history.GetHistory(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	series, err := SelectNearMint(history)
	if err != nil {
		return nil, err
	}

	fv, err := ExtractFeatures(series.Buckets, buyPrice)
	if err != nil {
		return nil, fmt.Errorf("catalog id %s: %w", catalogID, err)
	}

	var meta models.CardMetadata
	if c.metadata != nil {
		meta = c.metadata.GetMetadata(ctx, catalogID)
	}

	decision := Decide(*fv, buyPrice)
	metrics.DecisionLabelsTotal.WithLabelValues(string(decision.Mode), string(decision.Label)).Inc()

	r := models.NewDatasetRow(name, catalogID, meta, *fv, ROI(fv.RecentPrice, buyPrice), buyPrice, decision)
	if c.summarizer != nil {
		summary, err := c.summarizer.Summarize(ctx, name, *fv, decision)
		if err != nil {
			zap.L().Warn("decision summary failed", zap.String("card", name), zap.Error(err))
		} else {
			r.Summary = summary
		}
	}
	return &r, nil
}

func normalizeBuyPrice(p *float64) *float64 {
	if !hasAcquisitionPrice(p) {
		return nil
	}
	v := *p
	return &v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
