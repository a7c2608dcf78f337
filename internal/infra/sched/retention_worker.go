package sched

import (
	"context"
	"time"

	"telegram-channel-admin/internal/infra/metrics"
	"telegram-channel-admin/internal/usecase"

	"github.com/rs/zerolog"
)

// RetentionWorker periodically prunes audit entries older than the
// configured retention. It is only started when retention is enabled;
// the owner's explicit /clearlogs command is the default mechanism.
type RetentionWorker struct {
	interval time.Duration
	days     int
	ownerID  int64
	auditUC  *usecase.AuditUseCase
	log      *zerolog.Logger
}

func NewRetentionWorker(interval time.Duration, days int, ownerID int64, auditUC *usecase.AuditUseCase, logger *zerolog.Logger) *RetentionWorker {
	wl := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{
		interval: interval,
		days:     days,
		ownerID:  ownerID,
		auditUC:  auditUC,
		log:      &wl,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Int("retention_days", w.days).Msg("starting audit retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping audit retention worker")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -w.days)
			n, err := w.auditUC.Prune(ctx, w.ownerID, cutoff)
			if err != nil {
				w.log.Error().Err(err).Msg("audit retention sweep failed")
				continue
			}
			if n > 0 {
				metrics.AddAuditPruned(n)
				w.log.Info().Int64("count", n).Msg("audit entries pruned")
			}
		}
	}
}
