package worker

import (
	"context"
	"time"

	"shop-svc/gateway"
	"shop-svc/middleware"
	"shop-svc/store"

	"go.uber.org/zap"
)

// ReconciliationWorker periodically re-checks payments that never reached a
// terminal state, covering for webhook notifications that were dropped or
// never sent. Overwriting status from provider truth is idempotent, so the
// sweep is safe to run alongside live webhooks.
type ReconciliationWorker struct {
	payments  *store.PaymentStore
	gateway   gateway.Client
	interval  time.Duration
	olderThan time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewReconciliationWorker(
	payments *store.PaymentStore,
	gw gateway.Client,
	interval time.Duration,
	olderThan time.Duration,
	logger *zap.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		payments:  payments,
		gateway:   gw,
		interval:  interval,
		olderThan: olderThan,
		batchSize: 50,
		logger:    logger,
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Reconciliation worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("older_than", w.olderThan),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("Reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep reconciles one batch of stale payments. Per-payment failures are
// logged and skipped; the next sweep picks them up again.
func (w *ReconciliationWorker) Sweep(ctx context.Context) error {
	stale, err := w.payments.FindStale(ctx, w.olderThan, w.batchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	w.logger.Info("Found stale payments", zap.Int("count", len(stale)))

	for i := range stale {
		payment := &stale[i]
		before := payment.Status
		if err := w.payments.Reconcile(ctx, w.gateway, payment); err != nil {
			w.logger.Error("Failed to reconcile stale payment",
				zap.String("payment_id", payment.ID),
				zap.Error(err))
			continue
		}
		middleware.RecordPaymentReconciled(string(payment.Status))
		if payment.Status != before {
			w.logger.Info("Stale payment updated",
				zap.String("payment_id", payment.ID),
				zap.String("from", string(before)),
				zap.String("to", string(payment.Status)),
			)
		}
	}
	return nil
}
