package services

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/models"
)

// RunScheduler queues a dataset run over a card list file on a cron
// schedule (six fields, seconds first: "0 0 6 * * *").
type RunScheduler struct {
	cron     *cron.Cron
	worker   *DatasetWorker
	cardFile string
	buyPrice *float64
}

func NewRunScheduler(spec, cardFile string, worker *DatasetWorker, buyPrice *float64) (*RunScheduler, error) {
	s := &RunScheduler{
		cron:     cron.New(cron.WithSeconds()),
		worker:   worker,
		cardFile: cardFile,
		buyPrice: buyPrice,
	}
	if _, err := s.cron.AddFunc(spec, s.enqueue); err != nil {
		return nil, fmt.Errorf("register dataset run schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *RunScheduler) Start() {
	s.cron.Start()
	zap.L().Info("run scheduler started", zap.String("card_file", s.cardFile))
}

// Stop stops the scheduler and waits for a running enqueue to return.
func (s *RunScheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("run scheduler stopped")
}

func (s *RunScheduler) enqueue() {
	cards, err := ReadCardList(s.cardFile)
	if err != nil {
		zap.L().Error("scheduled run skipped", zap.String("card_file", s.cardFile), zap.Error(err))
		return
	}
	if _, _, err := s.worker.Enqueue(RunRequest{
		Cards:    cards,
		BuyPrice: s.buyPrice,
		Trigger:  models.RunTriggerSchedule,
	}); err != nil {
		zap.L().Error("scheduled run not queued", zap.Error(err))
	}
}
