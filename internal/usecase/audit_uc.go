package usecase

import (
	"context"
	"time"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// AuditUseCase records and maintains the append-only action log.
type AuditUseCase struct {
	entries repository.AuditRepository
	log     *zerolog.Logger
}

func NewAuditUseCase(entries repository.AuditRepository, logger *zerolog.Logger) *AuditUseCase {
	return &AuditUseCase{entries: entries, log: logger}
}

// Log appends an entry. Best-effort: a store failure is logged and
// swallowed so bookkeeping never fails the action it records.
func (uc *AuditUseCase) Log(ctx context.Context, ownerID int64, action string, details map[string]any) {
	e := &model.AuditEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
		OwnerID:   ownerID,
	}
	if err := uc.entries.Append(ctx, e); err != nil {
		uc.log.Error().Err(err).Str("action", action).Msg("failed to append audit entry")
	}
}

// Clear deletes entries older than the given number of days (0 means
// everything before now) and records the clearing itself.
func (uc *AuditUseCase) Clear(ctx context.Context, ownerID int64, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := uc.entries.DeleteOlderThan(ctx, ownerID, cutoff)
	if err != nil {
		return 0, err
	}
	uc.Log(ctx, ownerID, model.ActionLogsCleared, map[string]any{"days": days, "deleted": n})
	return n, nil
}

// Prune is Clear without the follow-up audit entry; used by the
// retention worker so sweeps do not spam the log they are trimming.
func (uc *AuditUseCase) Prune(ctx context.Context, ownerID int64, cutoff time.Time) (int64, error) {
	return uc.entries.DeleteOlderThan(ctx, ownerID, cutoff)
}

func (uc *AuditUseCase) Count(ctx context.Context, ownerID int64) (int64, error) {
	return uc.entries.Count(ctx, ownerID)
}
