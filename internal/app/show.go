package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"analog-exit/internal/decision"
	"analog-exit/internal/storage"
)

// Show prints recent decisions.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show decisions")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.OrderID != "" {
		record, err := store.GetDecision(ctx, opts.OrderID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no decision stored for order %s", opts.OrderID)
		}
		if err != nil {
			return err
		}
		return writeDecisions(os.Stdout, []storage.DecisionRecord{record})
	}

	records, err := store.ListRecentDecisions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return writeDecisions(os.Stdout, records)
}

func writeDecisions(w io.Writer, records []storage.DecisionRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "no decisions found")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Evaluated (UTC)\tOrder\tDecision\tCorrect\tT1\tConsensus\tT2\tHold\tClose\tTrend\tNeighbors")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%t\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.EvaluatedAt.UTC().Format(time.RFC3339),
			rec.OrderID,
			rec.Decision,
			rec.IsCorrect,
			rec.Time1Value.StringFixed(3),
			rec.ConsensusValue.StringFixed(3),
			rec.Time2Value.StringFixed(3),
			rec.HoldScore.StringFixed(2),
			rec.CloseScore.StringFixed(2),
			rec.TrendLabel,
			neighborList(rec.Neighbors),
		)
	}

	return writer.Flush()
}

func neighborList(raw json.RawMessage) string {
	var neighbors []decision.NeighborWeight
	if err := json.Unmarshal(raw, &neighbors); err != nil {
		return "?"
	}
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.OrderID
	}
	return strings.Join(ids, ",")
}
