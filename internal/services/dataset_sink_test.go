package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-signals/internal/database"
	"github.com/codyseavey/tcg-signals/internal/models"
)

func sampleRow() models.DatasetRow {
	return models.DatasetRow{
		CardName:     "Parasol Lady 255/182",
		CatalogID:    "642113",
		SetName:      "ME01: Mega Evolution",
		Number:       "255/182",
		ReleaseDate:  "2025-09-26",
		RecentPrice:  12.49,
		OldPrice:     13.27,
		TrendPct:     -5.5,
		RecentVolume: 3,
		AvgVolume:    3.5,
		Volatility:   6,
		ProfitMargin: floatPtr(24.9),
		ROIPct:       24.9,
		BuyPrice:     floatPtr(10),
		Label:        models.LabelSell,
		Reason:       "profit target reached: price $12.49, 24.9% margin",
		Summary:      "Sell while you are ahead.",
	}
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewCSVSink(&buf)
	require.NoError(t, err)

	// The header is on disk before any row arrives.
	assert.Equal(t, strings.Join(models.DatasetColumns, ",")+"\n", buf.String())

	require.NoError(t, sink.WriteRow(sampleRow()))
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Parasol Lady 255/182,ME01: Mega Evolution,255/182,2025-09-26,12.49,13.27,-5.5,3,3.5,6,24.9,24.9,10,SELL", lines[1])
}

func TestOpenFileSink(t *testing.T) {
	t.Run("jsonl keeps reason and summary", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "dataset.jsonl")
		sink, err := OpenFileSink(path)
		require.NoError(t, err)
		require.IsType(t, &JSONLSink{}, sink)

		require.NoError(t, sink.WriteRow(sampleRow()))
		require.NoError(t, sink.Close())

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		scanner := bufio.NewScanner(f)
		require.True(t, scanner.Scan())

		var got models.DatasetRow
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
		assert.Equal(t, "Sell while you are ahead.", got.Summary)
		assert.Equal(t, models.LabelSell, got.Label)
		assert.False(t, scanner.Scan())
	})

	t.Run("anything else is csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "card_dataset.csv")
		sink, err := OpenFileSink(path)
		require.NoError(t, err)
		require.IsType(t, &CSVSink{}, sink)
		require.NoError(t, sink.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "card_name,set_name,"))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := OpenFileSink("")
		assert.Error(t, err)
	})
}

func TestIsJSONLPath(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"out/dataset.jsonl", true},
		{"dataset.NDJSON", true},
		{"card_dataset.csv", false},
		{"dataset", false},
		{"dataset.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsJSONLPath(tt.path))
		})
	}
}

func TestDBSinkAndMultiSink(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "sink.db"))
	require.NoError(t, err)

	mem := &MemorySink{}
	sink := MultiSink{NewDBSink(db, "run-1"), mem}

	first := sampleRow()
	second := sampleRow()
	second.CardName = "Pikachu"
	second.Position = 1
	require.NoError(t, sink.WriteRow(first))
	require.NoError(t, sink.WriteRow(second))
	require.NoError(t, sink.Close())

	assert.Len(t, mem.Rows, 2)

	var stored []models.DatasetRow
	require.NoError(t, db.Where("run_id = ?", "run-1").Order("position").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, "Parasol Lady 255/182", stored[0].CardName)
	assert.Equal(t, "Pikachu", stored[1].CardName)
	require.NotNil(t, stored[0].ProfitMargin)
	assert.Equal(t, 24.9, *stored[0].ProfitMargin)
}

func TestMultiSinkReportsEveryFailure(t *testing.T) {
	mem := &MemorySink{}
	sink := MultiSink{&failingSink{okRows: 0}, mem}

	err := sink.WriteRow(sampleRow())
	assert.ErrorIs(t, err, errSinkFull)
	assert.Len(t, mem.Rows, 1)
}
