package app

import (
	"context"
	"errors"
	"time"

	"analog-exit/internal/config"
	"analog-exit/internal/service"
)

// SimulateAlert evaluates one order from the input and pushes its
// notification through the configured channels whatever the decision.
func (a *App) SimulateAlert(ctx context.Context, inputPath, orderID string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	svc, err := a.newService(a.Config, nil, nil, nil)
	if err != nil {
		return err
	}
	pool, err := a.loadPool(ctx, inputPath, svc)
	if err != nil {
		return err
	}
	result, err := svc.EvaluateOrder(ctx, pool, orderID)
	if err != nil {
		return err
	}

	note := service.Notification(result, pool, time.Now().UTC())
	note.Channels = simulatedChannels(a.Config.Alerting)
	note.AdditionalMsg = "(simulated)"
	return notifier.Notify(ctx, note)
}

func simulatedChannels(cfg config.AlertingConfig) []string {
	if len(cfg.Channels) == 0 {
		return []string{"telegram"}
	}
	return cfg.Channels
}
