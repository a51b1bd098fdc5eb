package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/models"
)

// maxStatusSkipped caps how many skipped cards GetStatus reports.
const maxStatusSkipped = 100

// ErrNoCards is returned when a run request carries no card names.
var ErrNoCards = errors.New("run has no cards")

// RunRequest asks the worker for one dataset run.
type RunRequest struct {
	Cards    []string
	BuyPrice *float64
	Trigger  models.RunTrigger
}

type queuedRun struct {
	run   *models.DatasetRun
	cards []string
}

// DatasetWorker executes dataset runs one at a time in the background. Runs
// are queued from the API and the scheduler and recorded in dataset_runs;
// rows go to dataset_rows and, when outputDir is set, to <outputDir>/<id>.csv.
type DatasetWorker struct {
	collector *Collector
	db        *gorm.DB
	outputDir string

	queue   []queuedRun
	queueMu sync.Mutex
	wake    chan struct{}

	mu          sync.RWMutex
	current     *models.DatasetRun
	lastRun     *models.DatasetRun
	lastSkipped []SkippedCard
}

// WorkerStatus is the worker's state for the status endpoint.
type WorkerStatus struct {
	QueueSize  int                `json:"queue_size"`
	CurrentRun *models.DatasetRun `json:"current_run,omitempty"`
	LastRun    *models.DatasetRun `json:"last_run,omitempty"`

	// Cards the last run could not turn into rows
	SkippedCards []SkippedCard `json:"skipped_cards,omitempty"`
}

func NewDatasetWorker(collector *Collector, db *gorm.DB, outputDir string) *DatasetWorker {
	return &DatasetWorker{
		collector: collector,
		db:        db,
		outputDir: outputDir,
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue records a queued run and returns it with its 1-indexed queue position.
func (w *DatasetWorker) Enqueue(req RunRequest) (*models.DatasetRun, int, error) {
	if len(req.Cards) == 0 {
		return nil, 0, ErrNoCards
	}
	if req.Trigger == "" {
		req.Trigger = models.RunTriggerAPI
	}

	run := &models.DatasetRun{
		ID:         uuid.New().String(),
		Trigger:    req.Trigger,
		Status:     models.RunStatusQueued,
		BuyPrice:   normalizeBuyPrice(req.BuyPrice),
		CardsTotal: len(req.Cards),
	}
	if err := w.db.Create(run).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to record run: %w", err)
	}

	w.queueMu.Lock()
	w.queue = append(w.queue, queuedRun{run: run, cards: req.Cards})
	position := len(w.queue)
	w.queueMu.Unlock()
	metrics.RunQueueSize.Set(float64(position))

	select {
	case w.wake <- struct{}{}:
	default:
	}

	zap.L().Info("dataset run queued",
		zap.String("run_id", run.ID),
		zap.String("trigger", string(run.Trigger)),
		zap.Int("cards", run.CardsTotal),
		zap.Int("position", position))
	return run, position, nil
}

// GetQueueSize returns the number of runs waiting.
func (w *DatasetWorker) GetQueueSize() int {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	return len(w.queue)
}

// Start processes queued runs until ctx is cancelled.
func (w *DatasetWorker) Start(ctx context.Context) {
	zap.L().Info("dataset worker started")
	for {
		for {
			next, ok := w.dequeue()
			if !ok {
				break
			}
			w.processRun(ctx, next)
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			zap.L().Info("dataset worker stopping")
			return
		case <-w.wake:
		}
	}
}

func (w *DatasetWorker) dequeue() (queuedRun, bool) {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	if len(w.queue) == 0 {
		return queuedRun{}, false
	}
	next := w.queue[0]
	w.queue = w.queue[1:]
	metrics.RunQueueSize.Set(float64(len(w.queue)))
	return next, true
}

func (w *DatasetWorker) processRun(ctx context.Context, q queuedRun) {
	run := q.run
	started := time.Now()
	run.Status = models.RunStatusRunning
	run.StartedAt = &started
	w.db.Model(run).Updates(map[string]any{"status": run.Status, "started_at": run.StartedAt})

	snapshot := *run
	w.mu.Lock()
	w.current = &snapshot
	w.mu.Unlock()

	summary, err := w.execute(ctx, q)

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	if summary != nil {
		run.RowsWritten = summary.RowsWritten
		run.CardsSkipped = len(summary.Skipped)
	}
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		zap.L().Error("dataset run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	if dbErr := w.db.Save(run).Error; dbErr != nil {
		zap.L().Error("failed to save run", zap.String("run_id", run.ID), zap.Error(dbErr))
	}
	metrics.RunDuration.Observe(finished.Sub(started).Seconds())

	last := *run
	w.mu.Lock()
	w.current = nil
	w.lastRun = &last
	w.lastSkipped = nil
	if summary != nil {
		w.lastSkipped = summary.Skipped
	}
	w.mu.Unlock()
}

func (w *DatasetWorker) execute(ctx context.Context, q queuedRun) (*RunSummary, error) {
	sink := MultiSink{NewDBSink(w.db, q.run.ID)}
	if w.outputDir != "" {
		if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		fileSink, err := OpenFileSink(filepath.Join(w.outputDir, q.run.ID+".csv"))
		if err != nil {
			return nil, err
		}
		sink = append(sink, fileSink)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			zap.L().Warn("failed to close run output", zap.String("run_id", q.run.ID), zap.Error(err))
		}
	}()

	return w.collector.Run(ctx, q.cards, sink, q.run.BuyPrice)
}

// GetStatus returns the queue and the current and last runs.
func (w *DatasetWorker) GetStatus() WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := WorkerStatus{
		QueueSize:  w.GetQueueSize(),
		CurrentRun: w.current,
		LastRun:    w.lastRun,
	}
	skipped := w.lastSkipped
	if len(skipped) > maxStatusSkipped {
		skipped = skipped[:maxStatusSkipped]
	}
	status.SkippedCards = skipped
	return status
}

// GetRun loads a run by id. Returns nil when it does not exist.
func (w *DatasetWorker) GetRun(id string) (*models.DatasetRun, error) {
	var run models.DatasetRun
	result := w.db.Where("id = ?", id).Limit(1).Find(&run)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (w *DatasetWorker) ListRuns(limit int) ([]models.DatasetRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.DatasetRun
	if err := w.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRows returns a run's rows in input order.
func (w *DatasetWorker) GetRows(runID string) ([]models.DatasetRow, error) {
	var rows []models.DatasetRow
	if err := w.db.Where("run_id = ?", runID).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load rows for run %s: %w", runID, err)
	}
	return rows, nil
}
