package repository

import (
	"context"
	"time"

	"telegram-channel-admin/internal/domain/model"
)

// AuditRepository is the append-only action log.
type AuditRepository interface {
	Append(ctx context.Context, e *model.AuditEntry) error
	Count(ctx context.Context, ownerID int64) (int64, error)
	// DeleteOlderThan removes entries with timestamp strictly before
	// cutoff and returns how many were deleted.
	DeleteOlderThan(ctx context.Context, ownerID int64, cutoff time.Time) (int64, error)
}
