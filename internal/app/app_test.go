package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analog-exit/internal/config"
	"analog-exit/internal/decision"
	"analog-exit/internal/series"
	"analog-exit/internal/service"
	"analog-exit/internal/storage"
)

func testApp(t *testing.T) *App {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Engine.Workers = 2
	return NewApp(cfg, zerolog.Nop())
}

func trajectory(id string, n int, slope, amp float64) *series.Series {
	base := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)
	s := &series.Series{OrderID: id}
	for i := 0; i < n; i++ {
		r := amp*math.Sin(float64(i)/7) + slope*float64(i)
		c := 1.1 + r/1000
		s.Returns = append(s.Returns, r)
		s.Close = append(s.Close, c)
		s.Open = append(s.Open, c-0.0002)
		s.ATR = append(s.ATR, 0.001*amp)
		s.ChannelHigh = append(s.ChannelHigh, c+0.003)
		s.ChannelLow = append(s.ChannelLow, c-0.003)
		s.ValueTime = append(s.ValueTime, base.Add(time.Duration(i)*time.Hour).Format(series.TimeLayout))
	}
	return s
}

func writeInput(t *testing.T) string {
	t.Helper()
	var items []*series.Series
	for k := 1; k <= 5; k++ {
		items = append(items, trajectory(fmt.Sprintf("up-%d", k), 90, 0.4, float64(k)))
		items = append(items, trajectory(fmt.Sprintf("down-%d", k), 90, -0.4, float64(k)))
	}
	data, err := json.Marshal(items)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestEvaluateDryRunWritesBatch(t *testing.T) {
	a := testApp(t)
	input := writeInput(t)

	var out bytes.Buffer
	err := a.Evaluate(context.Background(), EvaluateOptions{InputPath: input, Limit: 4, DryRun: true, Output: &out})
	require.NoError(t, err)

	var batch service.Batch
	require.NoError(t, json.Unmarshal(out.Bytes(), &batch))
	require.Len(t, batch.Results, 4)
	assert.Equal(t, 4, batch.Summary.Total)
	for _, r := range batch.Results {
		assert.Contains(t, []decision.Decision{decision.Hold, decision.Close}, r.Decision)
	}
}

func TestEvaluateRejectsMetricOverride(t *testing.T) {
	a := testApp(t)
	err := a.Evaluate(context.Background(), EvaluateOptions{InputPath: writeInput(t), Metric: "hamming", DryRun: true, Output: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestEvaluateNeedsInputOrStore(t *testing.T) {
	a := testApp(t)
	err := a.Evaluate(context.Background(), EvaluateOptions{DryRun: true, Output: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--input")
}

func TestExportWritesCSVAndPNG(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "up-1.csv")
	pngPath := filepath.Join(dir, "out", "up-1.png")

	err := a.Export(context.Background(), ExportOptions{
		OrderID:   "up-1",
		InputPath: writeInput(t),
		CSVPath:   csvPath,
		PNGPath:   pngPath,
		MaxSeries: 3,
	})
	require.NoError(t, err)

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 91)
	assert.Len(t, rows[0], 4)
	assert.Equal(t, "target up-1", rows[0][1])
	assert.True(t, strings.HasPrefix(rows[0][2], "neighbor "))

	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportValidatesFlags(t *testing.T) {
	a := testApp(t)
	assert.Error(t, a.Export(context.Background(), ExportOptions{CSVPath: "x.csv"}))
	assert.Error(t, a.Export(context.Background(), ExportOptions{OrderID: "1"}))
}

func TestCollectTracesHonoursLimit(t *testing.T) {
	pool, err := series.NewPool(trajectory("a", 5, 1, 1), trajectory("b", 5, 1, 2), trajectory("c", 3, 1, 3))
	require.NoError(t, err)
	result := decision.Result{OrderID: "a", Neighbors: []decision.NeighborWeight{{OrderID: "b", Weight: 0.6}, {OrderID: "c", Weight: 0.4}}}

	traces := collectTraces(pool, result, 2)
	require.Len(t, traces, 2)
	assert.Equal(t, "target a", traces[0].Label)
	assert.Equal(t, "neighbor b (w=0.60)", traces[1].Label)

	assert.Len(t, collectTraces(pool, result, 0), 3)
}

func TestWriteDecisions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDecisions(&buf, nil))
	assert.Equal(t, "no decisions found\n", buf.String())

	buf.Reset()
	records := []storage.DecisionRecord{{
		OrderID:        "77",
		Decision:       "close",
		IsCorrect:      true,
		HoldScore:      decimal.NewFromFloat(0.3),
		CloseScore:     decimal.NewFromFloat(0.7),
		Time1Value:     decimal.NewFromFloat(12.5),
		Time2Value:     decimal.NewFromFloat(9),
		ConsensusValue: decimal.NewFromFloat(4),
		TrendLabel:     "wide-range",
		Neighbors:      json.RawMessage(`[{"orderId":"5","weight":0.5},{"orderId":"6","weight":0.5}]`),
		EvaluatedAt:    time.Date(2024, 8, 5, 12, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, writeDecisions(&buf, records))
	out := buf.String()
	assert.Contains(t, out, "2024-08-05T12:00:00Z")
	assert.Contains(t, out, "12.500")
	assert.Contains(t, out, "5,6")
	assert.Contains(t, out, "wide-range")
}

type failingSeriesStore struct {
	storage.SeriesStore
	stored []string
}

func (f *failingSeriesStore) UpsertSeries(_ context.Context, rec storage.SeriesRecord) error {
	if rec.OrderID == "b" {
		return errors.New("disk full")
	}
	f.stored = append(f.stored, rec.OrderID)
	return nil
}

func TestIngestPool(t *testing.T) {
	a := testApp(t)
	pool, err := series.NewPool(trajectory("a", 5, 1, 1), trajectory("b", 5, 1, 1), trajectory("c", 5, 1, 1))
	require.NoError(t, err)

	store := &failingSeriesStore{}
	stored, failed := a.ingestPool(context.Background(), store, pool)
	assert.Equal(t, 2, stored)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"a", "c"}, store.stored)
}

func TestIngestDryRun(t *testing.T) {
	a := testApp(t)
	require.NoError(t, a.Ingest(context.Background(), IngestOptions{InputPath: writeInput(t), DryRun: true}))
	assert.Error(t, a.Ingest(context.Background(), IngestOptions{InputPath: writeInput(t)}))
}
