package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/adapter"
	"telegram-channel-admin/internal/domain/ports/repository"
	derror "telegram-channel-admin/internal/error"

	"github.com/rs/zerolog"
)

// RosterUseCase reads the tracked bot set and resolves it into
// human-readable listings and CSV exports.
type RosterUseCase struct {
	members repository.MembershipRepository
	api     adapter.TelegramAPI
	log     *zerolog.Logger
}

func NewRosterUseCase(members repository.MembershipRepository, api adapter.TelegramAPI, logger *zerolog.Logger) *RosterUseCase {
	return &RosterUseCase{members: members, api: api, log: logger}
}

func (uc *RosterUseCase) Count(ctx context.Context, channelID string) (int, error) {
	return uc.members.Count(ctx, channelID)
}

// List resolves each tracked id through the platform. A failed lookup
// yields a placeholder row instead of aborting the listing.
func (uc *RosterUseCase) List(ctx context.Context, channelID string) ([]model.RosterEntry, error) {
	m, err := uc.members.Find(ctx, channelID)
	if errors.Is(err, derror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]model.RosterEntry, 0, len(m.Bots))
	for _, id := range m.Bots {
		acct, err := uc.api.AccountByID(ctx, id)
		if err != nil {
			uc.log.Debug().Err(err).Int64("bot_id", id).Msg("account lookup failed, using placeholder")
			entries = append(entries, model.RosterEntry{ID: id, Username: "unknown", FirstName: "Unknown"})
			continue
		}
		entries = append(entries, model.RosterEntry{ID: id, Username: acct.Username, FirstName: acct.FirstName})
	}
	return entries, nil
}

// ExportCSV renders the roster as `Username,First Name,ID` rows.
func (uc *RosterUseCase) ExportCSV(ctx context.Context, channelID string) ([]byte, error) {
	entries, err := uc.List(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("export roster: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Username", "First Name", "ID"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Username, e.FirstName, strconv.FormatInt(e.ID, 10)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
