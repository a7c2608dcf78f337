package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/adapter"
	"telegram-channel-admin/internal/domain/ports/repository"
	derror "telegram-channel-admin/internal/error"
	"telegram-channel-admin/internal/infra/metrics"
	"telegram-channel-admin/internal/logging"

	"github.com/rs/zerolog"
)

// PromotionUseCase is the composite add/remove workflow: resolve the
// candidate, check capacity and duplicates, promote on the platform,
// verify the resulting privileges, then persist and audit. Membership is
// recorded only after verification succeeds.
type PromotionUseCase struct {
	setups   repository.SetupRepository
	members  repository.MembershipRepository
	audit    *AuditUseCase
	api      adapter.TelegramAPI
	verifier *Verifier
	log      *zerolog.Logger
}

func NewPromotionUseCase(
	setups repository.SetupRepository,
	members repository.MembershipRepository,
	audit *AuditUseCase,
	api adapter.TelegramAPI,
	verifier *Verifier,
	logger *zerolog.Logger,
) *PromotionUseCase {
	return &PromotionUseCase{
		setups:   setups,
		members:  members,
		audit:    audit,
		api:      api,
		verifier: verifier,
		log:      logger,
	}
}

// AddReport describes one verified, persisted promotion.
type AddReport struct {
	Account *model.Account
	Setup   *model.Setup
}

// BulkReport accumulates per-candidate outcomes of a bulk add. One bad
// candidate never blocks the others.
type BulkReport struct {
	Added    int
	Failures []string
	Setup    *model.Setup
}

// RemoveReport distinguishes tracking removal from platform demotion;
// the two are independent best-effort steps.
type RemoveReport struct {
	Account *model.Account
	Setup   *model.Setup
	Demoted bool
}

// Add runs the single-candidate workflow against the active channel (or
// an explicit override). Typed errors describe every refusal.
func (uc *PromotionUseCase) Add(ctx context.Context, ownerID int64, username, channelOverride string) (*AddReport, error) {
	defer logging.TraceDuration(uc.log, "PromotionUC.Add")()

	setup, err := uc.target(ctx, ownerID, channelOverride)
	if err != nil {
		return nil, err
	}
	count, err := uc.members.Count(ctx, setup.ChannelID)
	if err != nil {
		return nil, err
	}
	if count >= setup.MaxBots {
		return nil, &derror.CapacityError{Free: 0, Max: setup.MaxBots}
	}

	acct, err := uc.candidate(ctx, setup.ChannelID, username)
	if err != nil {
		return nil, err
	}
	if err := uc.api.Promote(ctx, setup.ChannelID, acct.ID); err != nil {
		metrics.IncPromotion("failed")
		return nil, fmt.Errorf("promote %s: %w", username, err)
	}
	if !uc.verifier.Verify(ctx, setup.ChannelID, acct.ID) {
		// Promoted on the platform but not recorded as tracked.
		metrics.IncPromotion("verify_failed")
		return nil, derror.ErrVerifyFailed
	}

	if err := uc.members.Add(ctx, setup.ChannelID, acct.ID, ensureAt(username)); err != nil {
		return nil, err
	}
	metrics.IncPromotion("added")
	uc.audit.Log(ctx, ownerID, model.ActionBotAdded, map[string]any{
		"channel_id":   setup.ChannelID,
		"bot_id":       acct.ID,
		"bot_username": ensureAt(username),
	})
	return &AddReport{Account: acct, Setup: setup}, nil
}

// BulkAdd processes every candidate sequentially, collecting failures
// instead of aborting. The capacity check runs once, up front, before
// any platform call.
func (uc *PromotionUseCase) BulkAdd(ctx context.Context, ownerID int64, usernames []string, channelOverride string) (*BulkReport, error) {
	defer logging.TraceDuration(uc.log, "PromotionUC.BulkAdd")()

	setup, err := uc.target(ctx, ownerID, channelOverride)
	if err != nil {
		return nil, err
	}
	count, err := uc.members.Count(ctx, setup.ChannelID)
	if err != nil {
		return nil, err
	}
	free := setup.MaxBots - count
	if len(usernames) > free {
		if free < 0 {
			free = 0
		}
		return nil, &derror.CapacityError{Free: free, Max: setup.MaxBots}
	}

	report := &BulkReport{Setup: setup}
	for _, raw := range usernames {
		name := ensureAt(strings.TrimSpace(raw))

		acct, err := uc.candidate(ctx, setup.ChannelID, name)
		switch {
		case errors.Is(err, derror.ErrNotABot):
			report.Failures = append(report.Failures, name+": Not a bot")
			continue
		case errors.Is(err, derror.ErrAlreadyTracked):
			report.Failures = append(report.Failures, name+": Already added")
			continue
		case err != nil:
			report.Failures = append(report.Failures, name+": "+truncate(err.Error(), 50))
			continue
		}

		if err := uc.api.Promote(ctx, setup.ChannelID, acct.ID); err != nil {
			metrics.IncPromotion("failed")
			report.Failures = append(report.Failures, name+": "+truncate(err.Error(), 50))
			continue
		}
		if !uc.verifier.Verify(ctx, setup.ChannelID, acct.ID) {
			metrics.IncPromotion("verify_failed")
			report.Failures = append(report.Failures, name+": Promotion failed (verify perms)")
			continue
		}

		if err := uc.members.Add(ctx, setup.ChannelID, acct.ID, name); err != nil {
			report.Failures = append(report.Failures, name+": "+truncate(err.Error(), 50))
			continue
		}
		metrics.IncPromotion("added")
		uc.audit.Log(ctx, ownerID, model.ActionBotBulkAdded, map[string]any{
			"channel_id":   setup.ChannelID,
			"bot_id":       acct.ID,
			"bot_username": name,
		})
		report.Added++
	}
	return report, nil
}

// Remove drops the account from tracking and then tries to demote it on
// the platform. Demotion failure never re-adds the tracking entry; the
// report carries both outcomes so the caller can tell the owner.
func (uc *PromotionUseCase) Remove(ctx context.Context, ownerID int64, username, channelOverride string) (*RemoveReport, error) {
	defer logging.TraceDuration(uc.log, "PromotionUC.Remove")()

	setup, err := uc.target(ctx, ownerID, channelOverride)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithChannelID(ctx, setup.ChannelID)
	acct, err := uc.api.ResolveAccount(ctx, ensureAt(username))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", username, err)
	}

	removed, err := uc.members.Remove(ctx, setup.ChannelID, acct.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, derror.ErrNotTracked
	}

	report := &RemoveReport{Account: acct, Setup: setup, Demoted: true}
	if err := uc.api.Demote(ctx, setup.ChannelID, acct.ID); err != nil {
		logging.With(ctx, uc.log).Warn().Err(err).Int64("bot_id", acct.ID).
			Msg("demotion failed after tracking removal")
		report.Demoted = false
	}
	if report.Demoted {
		metrics.IncDemotion("ok")
	} else {
		metrics.IncDemotion("failed")
	}
	uc.audit.Log(ctx, ownerID, model.ActionBotRemoved, map[string]any{
		"channel_id": setup.ChannelID,
		"bot_id":     acct.ID,
	})
	return report, nil
}

// candidate resolves a username and applies the is-bot and duplicate
// checks shared by single and bulk adds.
func (uc *PromotionUseCase) candidate(ctx context.Context, channelID, username string) (*model.Account, error) {
	acct, err := uc.api.ResolveAccount(ctx, ensureAt(username))
	if err != nil {
		return nil, err
	}
	if !acct.IsBot {
		return nil, derror.ErrNotABot
	}
	m, err := uc.members.Find(ctx, channelID)
	if err != nil && !errors.Is(err, derror.ErrNotFound) {
		return nil, err
	}
	if m != nil && m.Has(acct.ID) {
		return nil, derror.ErrAlreadyTracked
	}
	return acct, nil
}

// target picks the setup the operation runs against: an explicit
// override when registered, otherwise the active selection. An override
// that was never registered borrows the active setup's budget, applied
// to the overridden channel id.
func (uc *PromotionUseCase) target(ctx context.Context, ownerID int64, channelOverride string) (*model.Setup, error) {
	if channelOverride != "" {
		s, err := uc.setups.Find(ctx, ownerID, channelOverride)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, derror.ErrNotFound) {
			return nil, err
		}
		active, err := uc.active(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		borrowed := *active
		borrowed.ChannelID = channelOverride
		return &borrowed, nil
	}
	return uc.active(ctx, ownerID)
}

func (uc *PromotionUseCase) active(ctx context.Context, ownerID int64) (*model.Setup, error) {
	s, err := uc.setups.FindActive(ctx, ownerID)
	if errors.Is(err, derror.ErrNotFound) {
		return nil, derror.ErrNoActiveChannel
	}
	return s, err
}

func ensureAt(username string) string {
	if strings.HasPrefix(username, "@") {
		return username
	}
	return "@" + username
}

// truncate caps s at n runes; cutting on bytes could split a
// multi-byte character and produce invalid UTF-8 in failure reports.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
