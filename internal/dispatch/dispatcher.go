package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskboard-app/taskboard/internal/channels"
	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/models"
	"go.uber.org/zap"
)

// Config controls the delivery worker pools
type Config struct {
	// WorkersPerChannel is the fixed pool size for each delivery channel
	WorkersPerChannel int
	// BatchSize bounds how many notifications one claim call takes
	BatchSize int
	// PollInterval is how long an idle worker sleeps between claim attempts
	PollInterval time.Duration
	// DeliveryTimeout bounds a single adapter delivery call
	DeliveryTimeout time.Duration
}

// DefaultConfig holds the dispatcher defaults
var DefaultConfig = Config{
	WorkersPerChannel: 2,
	BatchSize:         20,
	PollInterval:      5 * time.Second,
	DeliveryTimeout:   15 * time.Second,
}

// Dispatcher runs a fixed-size worker pool per channel. Workers coordinate
// only through the repository's atomic claim, so multiple dispatcher
// instances can run against the same store.
type Dispatcher struct {
	notifications database.NotificationRepositoryInterface
	tasks         database.TaskRepositoryInterface
	prefs         database.PreferencesRepositoryInterface
	adapters      map[models.Channel]channels.Adapter
	cfg           Config
	logger        *zap.Logger
	now           func() time.Time
}

// New creates a dispatcher over the given channel adapters
func New(
	notifications database.NotificationRepositoryInterface,
	tasks database.TaskRepositoryInterface,
	prefs database.PreferencesRepositoryInterface,
	adapters []channels.Adapter,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.WorkersPerChannel <= 0 {
		cfg.WorkersPerChannel = DefaultConfig.WorkersPerChannel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig.PollInterval
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultConfig.DeliveryTimeout
	}

	byChannel := make(map[models.Channel]channels.Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}

	return &Dispatcher{
		notifications: notifications,
		tasks:         tasks,
		prefs:         prefs,
		adapters:      byChannel,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Run starts the worker pools and blocks until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for channel, adapter := range d.adapters {
		for i := 0; i < d.cfg.WorkersPerChannel; i++ {
			wg.Add(1)
			go func(channel models.Channel, adapter channels.Adapter, worker int) {
				defer wg.Done()
				d.workerLoop(ctx, channel, adapter, worker)
			}(channel, adapter, i)
		}
	}
	wg.Wait()
}

// workerLoop claims and delivers batches until ctx is cancelled
func (d *Dispatcher) workerLoop(ctx context.Context, channel models.Channel, adapter channels.Adapter, worker int) {
	log := d.logger.With(
		zap.String("channel", string(channel)),
		zap.Int("worker", worker),
	)
	log.Info("dispatch_worker_started")

	for {
		processed, err := d.RunBatch(ctx, channel, adapter)
		if err != nil {
			// Repository unreachable: back off the whole cycle, nothing is lost
			log.Error("claim_cycle_failed", zap.Error(err))
		}

		if processed == 0 || err != nil {
			select {
			case <-ctx.Done():
				log.Info("dispatch_worker_stopped")
				return
			case <-time.After(d.cfg.PollInterval):
			}
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("dispatch_worker_stopped")
			return
		default:
		}
	}
}

// RunBatch claims one batch of due notifications on the channel and delivers
// them. Returns how many were processed.
func (d *Dispatcher) RunBatch(ctx context.Context, channel models.Channel, adapter channels.Adapter) (int, error) {
	claimed, err := d.notifications.ClaimDue(ctx, channel, d.now(), d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, n := range claimed {
		d.deliverOne(ctx, adapter, n)
	}
	return len(claimed), nil
}

// deliverOne delivers a single claimed notification and writes the outcome back
func (d *Dispatcher) deliverOne(ctx context.Context, adapter channels.Adapter, n *models.Notification) {
	log := d.logger.With(
		zap.String("notification_id", n.ID.String()),
		zap.String("channel", string(n.Channel)),
		zap.String("type", string(n.Type)),
	)

	// Cause re-check: a cancel may have raced our claim. A stale row is
	// dropped here instead of delivered late.
	if stale, err := d.isStale(ctx, n); err != nil {
		log.Error("cause_check_failed", zap.Error(err))
		if markErr := d.notifications.MarkFailed(ctx, n.ID, true, err.Error()); markErr != nil {
			log.Error("failed_to_record_outcome", zap.Error(markErr))
		}
		return
	} else if stale {
		if n.TaskID != nil {
			if _, err := d.notifications.Cancel(ctx, *n.TaskID, n.Type); err != nil {
				log.Error("failed_to_drop_stale_notification", zap.Error(err))
			}
		}
		log.Info("dropped_stale_notification")
		return
	}

	prefs, err := d.prefs.GetByUserID(ctx, n.UserID)
	if err != nil {
		log.Error("preference_lookup_failed", zap.Error(err))
		if markErr := d.notifications.MarkFailed(ctx, n.ID, true, err.Error()); markErr != nil {
			log.Error("failed_to_record_outcome", zap.Error(markErr))
		}
		return
	}
	if !prefs.Enabled(n.Channel) {
		// Channel disabled since scheduling: terminal, not retryable
		if err := d.notifications.MarkFailed(ctx, n.ID, false, "channel disabled"); err != nil {
			log.Error("failed_to_record_outcome", zap.Error(err))
		}
		log.Info("channel_disabled_terminal")
		return
	}

	dctx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	outcome := adapter.Deliver(dctx, n, prefs.Address(n.Channel))
	cancel()

	// A delivery that ran out of time is transient regardless of how the
	// adapter classified it
	if outcome.Kind != channels.OutcomeSuccess && errors.Is(outcome.Err, context.DeadlineExceeded) {
		outcome = channels.Retryable(outcome.Err)
	}

	switch outcome.Kind {
	case channels.OutcomeSuccess:
		if err := d.notifications.MarkSent(ctx, n.ID); err != nil {
			log.Error("failed_to_mark_sent", zap.Error(err))
			return
		}
		log.Info("notification_delivered", zap.Int("retry_count", n.RetryCount))

	case channels.OutcomeRetryable:
		if err := d.notifications.MarkFailed(ctx, n.ID, true, errString(outcome.Err)); err != nil {
			log.Error("failed_to_record_outcome", zap.Error(err))
			return
		}
		log.Warn("delivery_failed_will_retry",
			zap.Int("retry_count", n.RetryCount),
			zap.Error(outcome.Err),
		)

	case channels.OutcomePermanent:
		if err := d.notifications.MarkFailed(ctx, n.ID, false, errString(outcome.Err)); err != nil {
			log.Error("failed_to_record_outcome", zap.Error(err))
			return
		}
		log.Error("delivery_failed_terminally", zap.Error(outcome.Err))
	}
}

// isStale reports whether the notification's cause no longer holds: the task
// is gone, finished or archived
func (d *Dispatcher) isStale(ctx context.Context, n *models.Notification) (bool, error) {
	if n.TaskID == nil {
		return false, nil
	}
	task, err := d.tasks.GetByID(ctx, *n.TaskID)
	if errors.Is(err, database.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !task.IsActive(), nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
