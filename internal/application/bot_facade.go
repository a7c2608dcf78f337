package application

import (
	"context"
	"fmt"
	"strings"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/adapter"
	"telegram-channel-admin/internal/usecase"
)

// BotFacade composes usecases into the reply strings the Telegram
// dispatcher forwards to the owner. Typed errors bubble up so the
// dispatcher's middleware can map them to fixed user messages.
type BotFacade struct {
	SetupUC  *usecase.SetupUseCase
	RosterUC *usecase.RosterUseCase
	PromoUC  *usecase.PromotionUseCase
	AuditUC  *usecase.AuditUseCase

	api adapter.TelegramAPI
}

func NewBotFacade(
	setupUC *usecase.SetupUseCase,
	rosterUC *usecase.RosterUseCase,
	promoUC *usecase.PromotionUseCase,
	auditUC *usecase.AuditUseCase,
	api adapter.TelegramAPI,
) *BotFacade {
	return &BotFacade{
		SetupUC:  setupUC,
		RosterUC: rosterUC,
		PromoUC:  promoUC,
		AuditUC:  auditUC,
		api:      api,
	}
}

// HandleAddChannel registers a channel from /addchannel arguments.
// Numeric -100… ids are taken as-is; usernames go through the platform.
func (b *BotFacade) HandleAddChannel(ctx context.Context, ownerID int64, channelRef string, postID, maxBots int) (string, error) {
	channelID := ""
	if strings.HasPrefix(channelRef, "-") {
		channelID = channelRef
	} else {
		chat, err := b.api.ResolveChannel(ctx, channelRef)
		if err != nil {
			return "", fmt.Errorf("resolve channel %s: %w", channelRef, err)
		}
		channelID = fmt.Sprintf("%d", chat.ID)
	}

	postLink := fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(channelRef, "@"), postID)
	s, err := b.SetupUC.Register(ctx, ownerID, channelID, channelRef, postLink, maxBots)
	if err != nil {
		return "", err
	}
	b.AuditUC.Log(ctx, ownerID, model.ActionChannelAddedManual, map[string]any{
		"channel_id": channelID,
		"channel":    channelRef,
	})
	return fmt.Sprintf("✅ Channel added and set active: %s\nMax bots: %d\nStored post: %s",
		channelRef, s.MaxBots, postLink), nil
}

// HandleForward registers a channel from a forwarded post.
func (b *BotFacade) HandleForward(ctx context.Context, ownerID int64, chat adapter.ChatInfo, forwardMsgID int) (string, error) {
	channelID := fmt.Sprintf("%d", chat.ID)
	var display, postLink string
	if chat.Username != "" {
		display = "@" + chat.Username
		postLink = fmt.Sprintf("https://t.me/%s/%d", chat.Username, forwardMsgID)
	} else {
		display = channelID
		id := chat.ID
		if id < 0 {
			id = -id
		}
		postLink = fmt.Sprintf("https://t.me/c/%d/%d", id, forwardMsgID)
	}

	if _, err := b.SetupUC.Register(ctx, ownerID, channelID, display, postLink, 0); err != nil {
		return "", err
	}
	b.AuditUC.Log(ctx, ownerID, model.ActionChannelSetForward, map[string]any{
		"channel_id": channelID,
		"channel":    display,
	})
	return fmt.Sprintf("✅ Channel added/set as active: %s\nStored post link: %s\n\nNow you can add bots!",
		display, postLink), nil
}

// HandleSwitch activates a registered channel.
func (b *BotFacade) HandleSwitch(ctx context.Context, ownerID int64, channelID string) (string, error) {
	s, err := b.SetupUC.Switch(ctx, ownerID, channelID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Switched to active channel: %s", s.Channel), nil
}

// ListChannels feeds the /switchchannel button keyboard.
func (b *BotFacade) ListChannels(ctx context.Context, ownerID int64) ([]*model.Setup, error) {
	return b.SetupUC.List(ctx, ownerID)
}

// HandleStatus renders all channels with counts plus the audit total.
func (b *BotFacade) HandleStatus(ctx context.Context, ownerID int64) (string, error) {
	setups, err := b.SetupUC.List(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if len(setups) == 0 {
		return "❌ No channels set up yet.", nil
	}

	var sb strings.Builder
	sb.WriteString("📊 All Channel Statuses\n\n")
	for _, s := range setups {
		count, err := b.RosterUC.Count(ctx, s.ChannelID)
		if err != nil {
			return "", err
		}
		link := s.PostLink
		if len(link) > 50 {
			link = link[:50] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s (%s)\n  Added: %d/%d\n  Post: %s\n\n",
			s.Channel, s.ChannelID, count, s.MaxBots, link))
	}

	activeName := "None"
	if active, err := b.SetupUC.Active(ctx, ownerID); err == nil {
		activeName = active.Channel
	}
	total, err := b.AuditUC.Count(ctx, ownerID)
	if err != nil {
		return "", err
	}
	sb.WriteString(fmt.Sprintf("• Active: %s\n", activeName))
	sb.WriteString(fmt.Sprintf("• Total Logs: %d", total))

	b.AuditUC.Log(ctx, ownerID, model.ActionStatusViewed, map[string]any{"channels_count": len(setups)})
	return sb.String(), nil
}

// HandleListBots lists the tracked bots for the given channel (the
// active one when override is empty). hasBots gates the export button.
func (b *BotFacade) HandleListBots(ctx context.Context, ownerID int64, override string) (text, channelID string, hasBots bool, err error) {
	channelID = override
	if channelID == "" {
		active, err := b.SetupUC.Active(ctx, ownerID)
		if err != nil {
			return "", "", false, err
		}
		channelID = active.ChannelID
	}

	entries, err := b.RosterUC.List(ctx, channelID)
	if err != nil {
		return "", "", false, err
	}
	if len(entries) == 0 {
		return "No bots added yet.", channelID, false, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🤖 Bots for %s (%d):\n\n", channelID, len(entries)))
	for _, e := range entries {
		name := e.Username
		if name == "" {
			name = e.FirstName
		}
		sb.WriteString(fmt.Sprintf("• @%s (ID: %d)\n", name, e.ID))
	}

	b.AuditUC.Log(ctx, ownerID, model.ActionBotsListed, map[string]any{
		"channel_id": channelID,
		"count":      len(entries),
	})
	return sb.String(), channelID, true, nil
}

// HandleExport renders the roster CSV as a document attachment.
func (b *BotFacade) HandleExport(ctx context.Context, channelID string) (adapter.Document, error) {
	data, err := b.RosterUC.ExportCSV(ctx, channelID)
	if err != nil {
		return adapter.Document{}, err
	}
	return adapter.Document{
		Name:    fmt.Sprintf("bots_%s.csv", channelID),
		Data:    data,
		Caption: fmt.Sprintf("📊 Exported bots for %s", channelID),
	}, nil
}

// HandleAddSingle runs the single-add workflow for a free-text username.
func (b *BotFacade) HandleAddSingle(ctx context.Context, ownerID int64, username string) (string, error) {
	report, err := b.PromoUC.Add(ctx, ownerID, username, "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Bot @%s added & verified as admin in %s!\n\n🔗 Post: %s",
		report.Account.Username, report.Setup.Channel, report.Setup.PostLink), nil
}

// HandleBulkAdd runs the bulk workflow. It returns the summary message
// and a second failures message (empty when every candidate succeeded).
func (b *BotFacade) HandleBulkAdd(ctx context.Context, ownerID int64, list, override string) (summary, failures string, err error) {
	usernames := strings.Split(list, ",")
	report, err := b.PromoUC.BulkAdd(ctx, ownerID, usernames, override)
	if err != nil {
		return "", "", err
	}
	if report.Added == 0 {
		return "❌ No bots added successfully.", joinFailures(report.Failures), nil
	}
	summary = fmt.Sprintf("✅ Bulk added %d bots to %s.\nFailed: %d\n\n🔗 Post: %s",
		report.Added, report.Setup.ChannelID, len(report.Failures), report.Setup.PostLink)
	return summary, joinFailures(report.Failures), nil
}

// HandleRemoveBot removes tracking and attempts demotion.
func (b *BotFacade) HandleRemoveBot(ctx context.Context, ownerID int64, username, override string) (string, error) {
	report, err := b.PromoUC.Remove(ctx, ownerID, username, override)
	if err != nil {
		return "", err
	}
	if !report.Demoted {
		return fmt.Sprintf("✅ Bot %s removed from tracking, but demotion failed.", username), nil
	}
	return fmt.Sprintf("✅ Bot %s removed from %s.", username, report.Setup.ChannelID), nil
}

// HandleClearLogs deletes audit entries older than the given age.
func (b *BotFacade) HandleClearLogs(ctx context.Context, ownerID int64, days int) (string, error) {
	n, err := b.AuditUC.Clear(ctx, ownerID, days)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🧹 Cleared %d old logs (> %d days).", n, days), nil
}

func joinFailures(failures []string) string {
	if len(failures) == 0 {
		return ""
	}
	return "❌ Failures:\n" + strings.Join(failures, "\n")
}
