package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Evaluate runs one evaluation batch over an input file or the stored series
// and writes the batch as JSON. Dry runs neither persist nor alert.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions) error {
	cfg := *a.Config
	if opts.Metric != "" {
		cfg.Engine.Metric = opts.Metric
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc, err := a.newService(&cfg, store, nil, a.newNotifier())
	if err != nil {
		return err
	}

	pool, err := a.loadPool(ctx, opts.InputPath, svc)
	if err != nil {
		return err
	}
	a.Logger.Info().Int("series", pool.Len()).Str("metric", cfg.Engine.Metric).Msg("evaluating pool")

	batch, err := svc.EvaluateAll(ctx, pool, cfg.ResolveLimit(opts.Limit))
	if err != nil {
		return err
	}

	if opts.DryRun {
		a.Logger.Warn().Msg("dry-run: results not persisted and no alerts sent")
	} else {
		if store == nil {
			a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
		}
		svc.Persist(ctx, batch)
		svc.Alert(ctx, batch, pool)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
