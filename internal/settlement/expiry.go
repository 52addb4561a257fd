package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transaction-ledger-go/internal/metrics"
	"transaction-ledger-go/internal/models"
	"transaction-ledger-go/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Ledger is the subset of the ledger service the sweeper drives.
type Ledger interface {
	ListTransactions(ctx context.Context, params store.ListParams) ([]models.Transaction, error)
	TransitionTransaction(ctx context.Context, params store.TransitionParams) (*models.Transaction, error)
}

// Expirer fails PENDING transactions older than a TTL on a cron schedule.
type Expirer struct {
	ledger   Ledger
	ttl      time.Duration
	batch    int
	schedule string
	now      func() time.Time
	cron     *cron.Cron
}

func NewExpirer(ledger Ledger, cfg models.SettlementConfig) (*Expirer, error) {
	if cfg.ExpiryTTL <= 0 {
		return nil, fmt.Errorf("pending expiry ttl must be positive, got %v", cfg.ExpiryTTL)
	}
	if cfg.ExpiryBatch <= 0 {
		return nil, fmt.Errorf("pending expiry batch must be positive, got %d", cfg.ExpiryBatch)
	}
	if _, err := cron.ParseStandard(cfg.ExpirySchedule); err != nil {
		return nil, fmt.Errorf("invalid pending expiry schedule %q: %w", cfg.ExpirySchedule, err)
	}

	return &Expirer{
		ledger:   ledger,
		ttl:      cfg.ExpiryTTL,
		batch:    cfg.ExpiryBatch,
		schedule: cfg.ExpirySchedule,
		now:      time.Now,
	}, nil
}

// RunOnce expires one batch and reports how many records moved to FAILED. Records that
// changed state since they were listed are skipped.
func (e *Expirer) RunOnce(ctx context.Context) (int, error) {
	cutoff := e.now().UTC().Add(-e.ttl)

	pending, err := e.ledger.ListTransactions(ctx, store.ListParams{
		Status:        models.StatusPending,
		CreatedBefore: cutoff,
		Limit:         e.batch,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	expired := 0
	for _, tx := range pending {
		_, err := e.ledger.TransitionTransaction(ctx, store.TransitionParams{
			Id:                    tx.Id,
			TargetStatus:          models.StatusFailed,
			ExpectedCurrentStatus: models.StatusPending,
		})
		switch {
		case err == nil:
			expired++
			metrics.PendingExpired.Inc()
		case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInvalidTransition):
			zap.L().Debug("Pending transaction settled before expiry", zap.String("transaction_id", tx.Id))
		default:
			return expired, fmt.Errorf("failed to expire transaction %s: %w", tx.Id, err)
		}
	}

	if expired > 0 {
		zap.L().Info("Expired pending transactions",
			zap.Int("count", expired),
			zap.Time("cutoff", cutoff))
	}
	return expired, nil
}

// Start schedules RunOnce; the sweep runs with its own context until Stop.
func (e *Expirer) Start() error {
	e.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := e.cron.AddFunc(e.schedule, func() {
		if _, err := e.RunOnce(context.Background()); err != nil {
			zap.L().Error("Pending expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pending expiry: %w", err)
	}

	zap.L().Info("Starting pending expiry sweep",
		zap.String("schedule", e.schedule),
		zap.Duration("ttl", e.ttl),
		zap.Int("batch", e.batch))
	e.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (e *Expirer) Stop(ctx context.Context) {
	if e.cron == nil {
		return
	}
	select {
	case <-e.cron.Stop().Done():
	case <-ctx.Done():
		zap.L().Warn("Pending expiry sweep did not stop in time")
	}
}
