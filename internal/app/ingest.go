package app

import (
	"context"
	"errors"
	"os"

	"analog-exit/internal/series"
	"analog-exit/internal/storage"
)

// Ingest validates series from a JSON file and stores them for scheduled runs.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	file, err := os.Open(opts.InputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	pool, err := series.ReadPool(file)
	if err != nil {
		return err
	}

	if opts.DryRun {
		a.Logger.Warn().Int("series", pool.Len()).Msg("ingest dry-run: nothing written")
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; cannot ingest")
	}
	defer closeStore()

	stored, failed := a.ingestPool(ctx, store, pool)
	event := a.Logger.Info().Int("stored", stored).Int("failed", failed)
	if total, err := store.CountSeries(ctx); err == nil {
		event = event.Int64("total", total)
	}
	event.Msg("ingest complete")
	if failed > 0 {
		return errors.New("some series failed to store; check the logs")
	}
	return nil
}

func (a *App) ingestPool(ctx context.Context, store storage.SeriesStore, pool *series.Pool) (stored, failed int) {
	for _, id := range pool.IDs() {
		if ctx.Err() != nil {
			return stored, failed
		}
		s, _ := pool.Get(id)
		payload, err := series.Marshal(s)
		if err == nil {
			err = store.UpsertSeries(ctx, storage.SeriesRecord{OrderID: id, Points: s.Len(), Payload: payload})
		}
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("order_id", id).Msg("failed to store series")
			continue
		}
		stored++
	}
	return stored, failed
}
