package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"analog-exit/internal/decision"
	"analog-exit/internal/series"
)

// trace is one returns trajectory drawn in an export.
type trace struct {
	Label  string
	Values []float64
}

// Export evaluates one order and renders its trajectory next to its
// consensus neighbours as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.OrderID == "" {
		return errors.New("--order-id is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	opts.MaxSeries = a.Config.ResolveMaxSeries(opts.MaxSeries)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc, err := a.newService(a.Config, store, nil, nil)
	if err != nil {
		return err
	}
	pool, err := a.loadPool(ctx, opts.InputPath, svc)
	if err != nil {
		return err
	}

	result, err := svc.EvaluateOrder(ctx, pool, opts.OrderID)
	if err != nil {
		return err
	}
	traces := collectTraces(pool, result, opts.MaxSeries)
	a.Logger.Info().
		Str("order_id", result.OrderID).
		Str("decision", string(result.Decision)).
		Int("series", len(traces)).
		Msg("exporting trajectories")

	if opts.CSVPath != "" {
		if err := writeTracesCSV(opts.CSVPath, traces); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeTracesPNG(opts.PNGPath, traces, result); err != nil {
			return err
		}
	}

	return nil
}

// collectTraces returns the target followed by neighbours, limit traces in total.
func collectTraces(pool *series.Pool, result decision.Result, limit int) []trace {
	var traces []trace
	if s, ok := pool.Get(result.OrderID); ok {
		traces = append(traces, trace{Label: "target " + result.OrderID, Values: s.Returns})
	}
	for _, n := range result.Neighbors {
		if limit > 0 && len(traces) >= limit {
			break
		}
		if s, ok := pool.Get(n.OrderID); ok {
			label := "neighbor " + n.OrderID + " (w=" + strconv.FormatFloat(n.Weight, 'f', 2, 64) + ")"
			traces = append(traces, trace{Label: label, Values: s.Returns})
		}
	}
	return traces
}

func writeTracesCSV(path string, traces []trace) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"index"}
	longest := 0
	for _, tr := range traces {
		header = append(header, tr.Label)
		longest = max(longest, len(tr.Values))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i := 0; i < longest; i++ {
		record := []string{strconv.Itoa(i)}
		for _, tr := range traces {
			cell := ""
			if i < len(tr.Values) {
				cell = strconv.FormatFloat(tr.Values[i], 'f', -1, 64)
			}
			record = append(record, cell)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeTracesPNG(path string, traces []trace, result decision.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	longest := 0
	var lines []chart.Series
	for i, tr := range traces {
		x := make([]float64, len(tr.Values))
		for j := range x {
			x[j] = float64(j)
		}
		style := chart.Style{StrokeWidth: 1.5}
		if i == 0 {
			style.StrokeWidth = 3
		}
		lines = append(lines, chart.ContinuousSeries{
			Name:    tr.Label,
			XValues: x,
			YValues: tr.Values,
			Style:   style,
		})
		longest = max(longest, len(tr.Values))
	}
	if longest > 1 {
		lines = append(lines, chart.ContinuousSeries{
			Name:    "consensus at checkpoint",
			XValues: []float64{0, float64(longest - 1)},
			YValues: []float64{result.ConsensusValue, result.ConsensusValue},
			Style:   chart.Style{StrokeWidth: 1, StrokeDashArray: []float64{5, 5}},
		})
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  "Order " + result.OrderID + ": " + string(result.Decision) + " (" + string(result.TrendLabel) + ")",
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Observation",
		},
		YAxis: chart.YAxis{
			Name:           "Return",
			ValueFormatter: valueFormatter,
		},
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
