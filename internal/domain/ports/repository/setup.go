package repository

import (
	"context"

	"telegram-channel-admin/internal/domain/model"
)

// SetupRepository is the port for per-channel configuration.
type SetupRepository interface {
	// Upsert writes or updates the setup keyed by owner+channel. When
	// s.IsActive is set, every sibling setup is deactivated in a
	// follow-up write (not atomic across documents).
	Upsert(ctx context.Context, s *model.Setup) error
	// Activate flips is_active on an existing setup and clears it on
	// siblings. Returns derror.ErrNotFound if the setup was never created.
	Activate(ctx context.Context, ownerID int64, channelID string) error
	// FindActive returns the active setup, falling back to the first
	// stored one when no document carries the flag. derror.ErrNotFound
	// when the owner has no setups at all.
	FindActive(ctx context.Context, ownerID int64) (*model.Setup, error)
	Find(ctx context.Context, ownerID int64, channelID string) (*model.Setup, error)
	ListAll(ctx context.Context, ownerID int64) ([]*model.Setup, error)
}
