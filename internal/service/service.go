package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"analog-exit/internal/alerting"
	"analog-exit/internal/config"
	"analog-exit/internal/decision"
	"analog-exit/internal/distance"
	"analog-exit/internal/scheduler"
	"analog-exit/internal/series"
	"analog-exit/internal/similarity"
	"analog-exit/internal/storage"
	"analog-exit/internal/trend"
	"analog-exit/internal/workers"
)

// Batch is the outcome of one evaluation pass.
type Batch struct {
	Results []decision.Result      `json:"results"`
	Updates []decision.OrderUpdate `json:"updates"`
	Skipped []string               `json:"skipped"`
	Summary decision.Summary       `json:"summary"`
}

// Service orchestrates neighbour matching, evaluation, persistence and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	aggregator *similarity.Aggregator
	evaluator  *decision.Evaluator
	series     storage.SeriesStore
	decisions  storage.DecisionStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	matchRatio float64
	minPoints  int
	limit      int

	channels  []string
	alertsOn  bool
	cooldown  time.Duration
	retention time.Duration
	locker    storage.AdvisoryLocker
	lockKey   int64
}

// Deps bundles optional collaborators. Nil stores disable persistence.
type Deps struct {
	Scheduler  *scheduler.Scheduler
	Series     storage.SeriesStore
	Decisions  storage.DecisionStore
	AlertStore storage.AlertStore
	Notifier   alerting.Notifier
}

// New builds the engine from configuration and wires collaborators.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Service, error) {
	aggregator, err := NewAggregator(cfg.Engine, logger)
	if err != nil {
		return nil, err
	}
	evaluator, err := NewEvaluator(cfg.Decision)
	if err != nil {
		return nil, err
	}

	var locker storage.AdvisoryLocker
	if l, ok := deps.Series.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  deps.Scheduler,
		aggregator: aggregator,
		evaluator:  evaluator,
		series:     deps.Series,
		decisions:  deps.Decisions,
		alertStore: deps.AlertStore,
		notifier:   deps.Notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		matchRatio: cfg.Engine.MatchRatio,
		minPoints:  cfg.Engine.MinPoints,
		limit:      cfg.Engine.Limit,
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		cooldown:   cfg.Alerting.Cooldown,
		retention:  cfg.Alerting.Retention,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
	}, nil
}

// NewAggregator translates engine settings into a similarity aggregator.
func NewAggregator(cfg config.EngineConfig, logger zerolog.Logger) (*similarity.Aggregator, error) {
	metric, err := distance.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}
	return similarity.NewAggregator(similarity.Options{
		Metric:         metric,
		Ratio:          cfg.PartialRatio,
		Band:           cfg.Band,
		TopN:           cfg.TopN,
		ConsensusSize:  cfg.ConsensusSize,
		MinAppearances: cfg.MinAppearances,
	}, workers.New(cfg.Workers), logger)
}

// NewEvaluator translates decision settings into an evaluator.
func NewEvaluator(cfg config.DecisionConfig) (*decision.Evaluator, error) {
	profile, err := trend.LookupProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	return decision.NewEvaluator(cfg.Checkpoint, cfg.TrendRatio, profile)
}

// Run begins the scheduled evaluation loop over stored series.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if s.series == nil {
		return fmt.Errorf("series store not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessRun)
}

// ProcessRun evaluates every stored series once, guarded by the advisory lock.
func (s *Service) ProcessRun(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("at", at).Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	pool, err := s.LoadPool(ctx)
	if err != nil {
		return err
	}
	batch, err := s.EvaluateAll(ctx, pool, s.limit)
	if err != nil {
		return err
	}
	s.Persist(ctx, batch)
	s.Alert(ctx, batch, pool)
	s.pruneAlerts(ctx, at)
	return nil
}

func (s *Service) pruneAlerts(ctx context.Context, at time.Time) {
	if s.alertStore == nil || s.retention <= 0 {
		return
	}
	if err := s.alertStore.DeleteAlertsBefore(ctx, at.Add(-s.retention)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune alert records")
	}
}

// LoadPool decodes all stored series. Undecodable rows are logged and skipped.
func (s *Service) LoadPool(ctx context.Context) (*series.Pool, error) {
	if s.series == nil {
		return nil, storage.ErrNotConfigured
	}
	records, err := s.series.ListSeries(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	pool := &series.Pool{}
	for _, rec := range records {
		item, err := series.Unmarshal(rec.Payload)
		if err == nil {
			err = pool.Add(item)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", rec.OrderID).Msg("skip stored series")
		}
	}
	return pool, nil
}

// EvaluateAll matches each target against its outcome bucket on the leading
// matchRatio of history and evaluates it on the full series. Orders without
// enough data are skipped; cancellation and configuration errors abort.
func (s *Service) EvaluateAll(ctx context.Context, pool *series.Pool, limit int) (Batch, error) {
	var batch Batch
	eligible := pool.Filter(s.minPoints)
	for _, id := range pool.IDs() {
		if eligible.Index(id) < 0 {
			batch.Skipped = append(batch.Skipped, id)
			s.logger.Debug().Str("order_id", id).Int("min_points", s.minPoints).Msg("skip short series")
		}
	}

	views, err := eligible.Truncate(s.matchRatio)
	if err != nil {
		return Batch{}, err
	}
	up, down := views.SplitByOutcome()

	for _, id := range views.IDs() {
		if limit > 0 && len(batch.Results) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}

		result, err := s.evaluateOne(ctx, id, pool, up, down)
		switch {
		case err == nil:
			batch.Results = append(batch.Results, result)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Batch{}, err
		case errors.Is(err, similarity.ErrTargetNotFound), errors.Is(err, decision.ErrNeighborMissing),
			errors.Is(err, decision.ErrNoNeighbors):
			batch.Skipped = append(batch.Skipped, id)
			s.logger.Debug().Err(err).Str("order_id", id).Msg("skip order without match")
		case errors.Is(err, distance.ErrInvalidRatio), errors.Is(err, distance.ErrUnknownMetric):
			return Batch{}, err
		default:
			batch.Skipped = append(batch.Skipped, id)
			s.logger.Warn().Err(err).Str("order_id", id).Msg("skip order")
		}
	}

	batch.Updates = decision.BuildOrderUpdates(batch.Results, pool, s.evaluator.Checkpoint())
	batch.Summary = decision.Summarize(batch.Results)
	s.logger.Info().
		Int("evaluated", batch.Summary.Total).
		Int("closes", batch.Summary.Closes).
		Int("skipped", len(batch.Skipped)).
		Float64("accuracy", batch.Summary.Accuracy).
		Msg("evaluation batch complete")
	return batch, nil
}

// EvaluateOrder evaluates a single order of pool under the same matching rules
// as EvaluateAll.
func (s *Service) EvaluateOrder(ctx context.Context, pool *series.Pool, id string) (decision.Result, error) {
	eligible := pool.Filter(s.minPoints)
	if eligible.Index(id) < 0 {
		return decision.Result{}, fmt.Errorf("%w: %s has fewer than %d points or is absent", similarity.ErrTargetNotFound, id, s.minPoints)
	}
	views, err := eligible.Truncate(s.matchRatio)
	if err != nil {
		return decision.Result{}, err
	}
	up, down := views.SplitByOutcome()
	return s.evaluateOne(ctx, id, pool, up, down)
}

func (s *Service) evaluateOne(ctx context.Context, id string, full, up, down *series.Pool) (decision.Result, error) {
	bucket := up
	if up.Index(id) < 0 {
		bucket = down
	}
	neighbors, err := s.aggregator.FindNeighbors(ctx, id, bucket)
	if err != nil {
		return decision.Result{}, err
	}
	target, ok := full.Get(id)
	if !ok {
		return decision.Result{}, fmt.Errorf("%w: %s", similarity.ErrTargetNotFound, id)
	}
	return s.evaluator.Evaluate(target, neighbors, full)
}

// Persist stores results and order updates. Store errors are logged.
func (s *Service) Persist(ctx context.Context, batch Batch) {
	if s.decisions == nil {
		return
	}
	now := time.Now().UTC()
	for _, r := range batch.Results {
		rec, err := DecisionRecord(r, now)
		if err == nil {
			err = s.decisions.UpsertDecision(ctx, rec)
		}
		if err != nil {
			s.logger.Error().Err(err).Str("order_id", r.OrderID).Msg("failed to persist decision")
		}
	}
	for _, u := range batch.Updates {
		rec := storage.OrderUpdateRecord{
			OrderID:    u.OrderID,
			Direction:  string(u.Direction),
			StartPrice: u.StartPrice,
			EndPrice:   u.EndPrice,
			UpdatedAt:  now,
		}
		if err := s.decisions.UpsertOrderUpdate(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("order_id", u.OrderID).Msg("failed to persist order update")
		}
	}
}

// Alert notifies close decisions, respecting the per-order cooldown.
func (s *Service) Alert(ctx context.Context, batch Batch, pool *series.Pool) {
	if !s.alertsOn || s.notifier == nil {
		return
	}
	now := time.Now().UTC()
	for _, r := range batch.Results {
		if r.Decision != decision.Close {
			continue
		}
		if s.inCooldown(ctx, r.OrderID, now) {
			continue
		}

		note := Notification(r, pool, now)
		note.Channels = s.channels
		if s.alertStore != nil {
			record := storage.AlertRecord{OrderID: r.OrderID, Decision: string(r.Decision), Channels: s.channels}
			if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("order_id", r.OrderID).Msg("failed to persist alert record")
			}
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("order_id", r.OrderID).Msg("failed to dispatch alert")
		}
	}
}

func (s *Service) inCooldown(ctx context.Context, orderID string, now time.Time) bool {
	if s.alertStore == nil || s.cooldown <= 0 {
		return false
	}
	last, ok, err := s.alertStore.LastAlertAt(ctx, orderID)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("cannot read last alert")
		return false
	}
	return ok && now.Sub(last) < s.cooldown
}

// DecisionRecord maps a result onto its stored form.
func DecisionRecord(r decision.Result, at time.Time) (storage.DecisionRecord, error) {
	neighbors, err := json.Marshal(r.Neighbors)
	if err != nil {
		return storage.DecisionRecord{}, fmt.Errorf("encode neighbors: %w", err)
	}
	return storage.DecisionRecord{
		OrderID:        r.OrderID,
		Decision:       string(r.Decision),
		IsCorrect:      r.IsCorrect,
		HoldScore:      decimal.NewFromFloat(r.HoldScore),
		CloseScore:     decimal.NewFromFloat(r.CloseScore),
		Time1Value:     decimal.NewFromFloat(r.Time1Value),
		Time2Value:     decimal.NewFromFloat(r.Time2Value),
		ConsensusValue: decimal.NewFromFloat(r.ConsensusValue),
		TrendLabel:     string(r.TrendLabel),
		Neighbors:      neighbors,
		EvaluatedAt:    at,
	}, nil
}

// Notification renders a close result for the notifier.
func Notification(r decision.Result, pool *series.Pool, at time.Time) alerting.Notification {
	direction := series.DirectionUnknown
	var overall trend.Overall
	if s, ok := pool.Get(r.OrderID); ok {
		direction = s.Direction
		if direction == "" || direction == series.DirectionUnknown {
			direction = series.DetectDirection(s)
		}
		overall = trend.EvaluateOverall(s.Returns)
	}
	ids := make([]string, len(r.Neighbors))
	for i, n := range r.Neighbors {
		ids[i] = n.OrderID
	}
	return alerting.Notification{
		OrderID:        r.OrderID,
		Decision:       string(r.Decision),
		Direction:      string(direction),
		TrendLabel:     string(r.TrendLabel),
		Persistence:    string(overall.Persistence),
		Hurst:          decimal.NewFromFloat(overall.Hurst),
		Time1Value:     decimal.NewFromFloat(r.Time1Value),
		ConsensusValue: decimal.NewFromFloat(r.ConsensusValue),
		HoldScore:      decimal.NewFromFloat(r.HoldScore),
		CloseScore:     decimal.NewFromFloat(r.CloseScore),
		Neighbors:      ids,
		EvaluatedAt:    at,
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
