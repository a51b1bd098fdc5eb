package models

import (
	"strconv"
	"time"
)

// RunStatus tracks a dataset run through the worker.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunTrigger records what started a dataset run.
type RunTrigger string

const (
	RunTriggerCLI      RunTrigger = "cli"
	RunTriggerAPI      RunTrigger = "api"
	RunTriggerSchedule RunTrigger = "schedule"
)

// DatasetRun stores one batch collection pass over a card list.
type DatasetRun struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Trigger      RunTrigger `json:"trigger"`
	Status       RunStatus  `json:"status" gorm:"index"`
	BuyPrice     *float64   `json:"buy_price"`
	CardsTotal   int        `json:"cards_total"`
	RowsWritten  int        `json:"rows_written"`
	CardsSkipped int        `json:"cards_skipped"`
	Error        string     `json:"error,omitempty"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// DatasetRow is one labeled card in a dataset. The CSV view carries the
// fixed column set; Reason and Summary only reach JSON and the database.
type DatasetRow struct {
	ID        uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	RunID     string `json:"run_id,omitempty" gorm:"index"`
	Position  int    `json:"position"`
	CardName  string `json:"card_name" gorm:"not null;index"`
	CatalogID string `json:"catalog_id"`

	SetName     string `json:"set_name"`
	Number      string `json:"number"`
	ReleaseDate string `json:"release_date"`

	RecentPrice  float64  `json:"recent_price"`
	OldPrice     float64  `json:"old_price"`
	TrendPct     float64  `json:"trend_pct"`
	RecentVolume float64  `json:"recent_volume"`
	AvgVolume    float64  `json:"avg_volume"`
	Volatility   float64  `json:"volatility"`
	ProfitMargin *float64 `json:"profit_margin"`
	ROIPct       float64  `json:"roi_pct"`
	BuyPrice     *float64 `json:"buy_price"`

	Label   DecisionLabel `json:"label"`
	Reason  string        `json:"reason,omitempty"`
	Summary string        `json:"summary,omitempty"`

	CreatedAt time.Time `json:"-"`
}

// DatasetColumns is the CSV header, in column order.
var DatasetColumns = []string{
	"card_name",
	"set_name",
	"number",
	"release_date",
	"recent_price",
	"old_price",
	"trend_pct",
	"recent_volume",
	"avg_volume",
	"volatility",
	"profit_margin",
	"roi_pct",
	"buy_price",
	"label",
}

// NewDatasetRow assembles a row from the pipeline outputs for one card.
func NewDatasetRow(name, catalogID string, meta CardMetadata, fv FeatureVector, roi float64, buyPrice *float64, decision Decision) DatasetRow {
	return DatasetRow{
		CardName:     name,
		CatalogID:    catalogID,
		SetName:      meta.SetName,
		Number:       meta.Number,
		ReleaseDate:  meta.ReleaseDate,
		RecentPrice:  fv.RecentPrice,
		OldPrice:     fv.OldPrice,
		TrendPct:     fv.TrendPct,
		RecentVolume: fv.RecentVolume,
		AvgVolume:    fv.AvgVolume,
		Volatility:   fv.Volatility,
		ProfitMargin: fv.ProfitMargin,
		ROIPct:       roi,
		BuyPrice:     buyPrice,
		Label:        decision.Label,
		Reason:       decision.Reason,
	}
}

// CSVRecord renders the row in DatasetColumns order. Absent optional values
// are written as empty cells.
func (r DatasetRow) CSVRecord() []string {
	return []string{
		r.CardName,
		r.SetName,
		r.Number,
		r.ReleaseDate,
		formatFloat(r.RecentPrice),
		formatFloat(r.OldPrice),
		formatFloat(r.TrendPct),
		formatFloat(r.RecentVolume),
		formatFloat(r.AvgVolume),
		formatFloat(r.Volatility),
		formatOptional(r.ProfitMargin),
		formatFloat(r.ROIPct),
		formatOptional(r.BuyPrice),
		string(r.Label),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
