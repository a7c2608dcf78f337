package repository

import (
	"context"

	"telegram-channel-admin/internal/domain/model"
)

// MembershipRepository is the port for the per-channel tracked bot set.
type MembershipRepository interface {
	// Count returns the number of tracked bots, 0 when the channel has
	// no membership document yet.
	Count(ctx context.Context, channelID string) (int, error)
	Find(ctx context.Context, channelID string) (*model.Membership, error)
	// Add is an idempotent set-insert; re-adding an existing id is a no-op.
	Add(ctx context.Context, channelID string, botID int64, username string) error
	// Remove reports whether a removal actually happened. false means
	// the id was never tracked, which is not an error.
	Remove(ctx context.Context, channelID string, botID int64) (bool, error)
}
