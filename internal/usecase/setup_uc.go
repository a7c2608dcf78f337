package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/repository"
	derror "telegram-channel-admin/internal/error"
	"telegram-channel-admin/internal/logging"

	"github.com/rs/zerolog"
)

// SetupUseCase manages per-channel configuration and the active selection.
type SetupUseCase struct {
	setups         repository.SetupRepository
	audit          *AuditUseCase
	defaultMaxBots int
	log            *zerolog.Logger
}

func NewSetupUseCase(setups repository.SetupRepository, audit *AuditUseCase, defaultMaxBots int, logger *zerolog.Logger) *SetupUseCase {
	if defaultMaxBots <= 0 {
		defaultMaxBots = model.DefaultMaxBots
	}
	return &SetupUseCase{
		setups:         setups,
		audit:          audit,
		defaultMaxBots: defaultMaxBots,
		log:            logger,
	}
}

// Register upserts a channel setup and makes it the active selection.
func (uc *SetupUseCase) Register(ctx context.Context, ownerID int64, channelID, display, postLink string, maxBots int) (*model.Setup, error) {
	defer logging.TraceDuration(uc.log, "SetupUC.Register")()

	if maxBots <= 0 {
		maxBots = uc.defaultMaxBots
	}
	s := model.NewSetup(ownerID, channelID, display, postLink, maxBots)
	s.IsActive = true
	if err := uc.setups.Upsert(ctx, s); err != nil {
		return nil, fmt.Errorf("register channel: %w", err)
	}
	uc.audit.Log(ctx, ownerID, model.ActionSetupSaved, map[string]any{
		"channel_id": channelID,
		"channel":    display,
		"is_active":  true,
	})
	return s, nil
}

// Switch activates an already-registered channel. Display and link fields
// are left untouched; an unknown channel id is rejected.
func (uc *SetupUseCase) Switch(ctx context.Context, ownerID int64, channelID string) (*model.Setup, error) {
	defer logging.TraceDuration(uc.log, "SetupUC.Switch")()

	s, err := uc.setups.Find(ctx, ownerID, channelID)
	if errors.Is(err, derror.ErrNotFound) {
		return nil, derror.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := uc.setups.Activate(ctx, ownerID, channelID); err != nil {
		return nil, fmt.Errorf("activate channel: %w", err)
	}
	uc.audit.Log(ctx, ownerID, model.ActionChannelSwitched, map[string]any{"channel_id": channelID})
	return s, nil
}

// Active returns the current selection, or derror.ErrNoActiveChannel when
// the owner has no channels at all.
func (uc *SetupUseCase) Active(ctx context.Context, ownerID int64) (*model.Setup, error) {
	s, err := uc.setups.FindActive(ctx, ownerID)
	if errors.Is(err, derror.ErrNotFound) {
		return nil, derror.ErrNoActiveChannel
	}
	return s, err
}

func (uc *SetupUseCase) List(ctx context.Context, ownerID int64) ([]*model.Setup, error) {
	return uc.setups.ListAll(ctx, ownerID)
}
