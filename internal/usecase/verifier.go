package usecase

import (
	"context"

	"telegram-channel-admin/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// Verifier re-checks that a promoted account actually holds the required
// privileges. Verification is advisory: any lookup failure reads as false
// and never aborts the caller's larger operation.
type Verifier struct {
	api adapter.TelegramAPI
	log *zerolog.Logger
}

func NewVerifier(api adapter.TelegramAPI, logger *zerolog.Logger) *Verifier {
	return &Verifier{api: api, log: logger}
}

func (v *Verifier) Verify(ctx context.Context, channelID string, accountID int64) bool {
	m, err := v.api.GetChatMember(ctx, channelID, accountID)
	if err != nil {
		v.log.Debug().Err(err).Str("channel_id", channelID).Int64("account_id", accountID).
			Msg("member lookup failed during verification")
		return false
	}
	return m.Status == "administrator" &&
		m.CanManageChat &&
		m.CanDeleteMessages &&
		m.CanPromoteMembers
}
