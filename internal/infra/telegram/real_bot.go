package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-channel-admin/internal/application"
	"telegram-channel-admin/internal/config"
	"telegram-channel-admin/internal/domain/ports/adapter"
	derror "telegram-channel-admin/internal/error"
	"telegram-channel-admin/internal/infra/metrics"
	red "telegram-channel-admin/internal/infra/redis"
	"telegram-channel-admin/internal/logging"
)

const (
	accessDeniedReply = "👋 Contact owner for access."
	genericFailReply  = "❌ Something went wrong. Try again later."

	commandLimit  = 20
	callbackLimit = 30
)

// usernameRe fences the free-text add path: only something that looks
// like a handle is treated as "add this bot", anything else gets a hint.
var usernameRe = regexp.MustCompile(`^@?[A-Za-z0-9_]{3,32}$`)

// Bot polls updates through a worker pool and dispatches commands,
// forwarded posts, free-text adds and button callbacks to the facade.
// Every privileged path checks the sender against the configured owner.
type Bot struct {
	api     *API
	cfg     *config.BotConfig
	facade  *application.BotFacade
	limiter *red.RateLimiter
	log     *zerolog.Logger

	workers       int
	cancelPolling context.CancelFunc
}

func NewBot(cfg *config.BotConfig, api *API, facade *application.BotFacade, limiter *red.RateLimiter, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if api == nil {
		return nil, errors.New("telegram api is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Bot{
		api:     api,
		cfg:     cfg,
		facade:  facade,
		limiter: limiter,
		log:     logger,
		workers: workers,
	}, nil
}

func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := b.handleUpdate(ctx, up); err != nil {
						b.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (b *Bot) StopPolling() {
	if b.cancelPolling != nil {
		b.cancelPolling()
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if update.CallbackQuery != nil {
		metrics.IncUpdate("callback")
		return b.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		metrics.IncUpdate("ignored")
		return nil
	}
	metrics.IncUpdate("message")

	msg := update.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID
	ctx = logging.WithOwnerID(ctx, userID)

	args := strings.Fields(msg.Text)
	command := "message"
	if len(args) > 0 && strings.HasPrefix(args[0], "/") {
		command = args[0]
	}

	if b.limiter != nil {
		allowed, err := b.limiter.Allow(ctx, red.UserCommandKey(userID, command), commandLimit, time.Minute)
		if err != nil {
			b.log.Warn().Err(err).Msg("rate limiter unavailable, allowing")
		} else if !allowed {
			return b.api.SendMessage(ctx, chatID, "Rate limit exceeded. Please try again later.")
		}
	}

	if userID != b.cfg.OwnerID {
		metrics.IncCommand(strings.TrimPrefix(command, "/"), "denied")
		return b.api.SendMessage(ctx, chatID, accessDeniedReply)
	}

	// Forwarded channel post registers that channel as the selection.
	if msg.ForwardFromChat != nil {
		fc := msg.ForwardFromChat
		if fc.Type != "channel" && fc.Type != "supergroup" {
			return b.api.SendMessage(ctx, chatID, "❌ Forward a message from a channel/supergroup to add/set it.")
		}
		return b.run(ctx, "forward", chatID, func() (string, error) {
			info := adapter.ChatInfo{ID: fc.ID, Username: fc.UserName, Title: fc.Title, Type: fc.Type}
			return b.facade.HandleForward(ctx, userID, info, msg.ForwardFromMessageID)
		})
	}

	switch command {
	case "/start":
		return b.sendMainMenu(ctx, chatID)

	case "/addchannel":
		if len(args) < 3 {
			return b.api.SendMessage(ctx, chatID, "Usage: /addchannel <@username> <post_message_id> [max_bots]")
		}
		postID, err := strconv.Atoi(args[2])
		if err != nil {
			return b.api.SendMessage(ctx, chatID, "❌ post_message_id must be a number.")
		}
		maxBots := 0
		if len(args) > 3 {
			if maxBots, err = strconv.Atoi(args[3]); err != nil {
				return b.api.SendMessage(ctx, chatID, "❌ max_bots must be a number.")
			}
		}
		return b.run(ctx, "addchannel", chatID, func() (string, error) {
			return b.facade.HandleAddChannel(ctx, userID, args[1], postID, maxBots)
		})

	case "/switchchannel":
		if len(args) > 1 {
			return b.run(ctx, "switchchannel", chatID, func() (string, error) {
				return b.facade.HandleSwitch(ctx, userID, args[1])
			})
		}
		return b.sendSwitchMenu(ctx, userID, chatID)

	case "/status":
		return b.run(ctx, "status", chatID, func() (string, error) {
			return b.facade.HandleStatus(ctx, userID)
		})

	case "/listbots":
		override := ""
		if len(args) > 1 {
			override = args[1]
		}
		return b.sendBotList(ctx, userID, chatID, override)

	case "/removebot":
		if len(args) < 2 {
			return b.api.SendMessage(ctx, chatID, "Usage: /removebot <@username> [channel_id]")
		}
		override := ""
		if len(args) > 2 {
			override = args[2]
		}
		return b.run(ctx, "removebot", chatID, func() (string, error) {
			return b.facade.HandleRemoveBot(ctx, userID, args[1], override)
		})

	case "/bulkadd":
		if len(args) < 2 {
			return b.api.SendMessage(ctx, chatID, "Usage: /bulkadd <@u1,@u2,...> [channel_id]")
		}
		override := ""
		if len(args) > 2 {
			override = args[2]
		}
		return b.runBulk(ctx, chatID, userID, args[1], override)

	case "/clearlogs":
		days := 30
		if len(args) > 1 {
			d, err := strconv.Atoi(args[1])
			if err != nil || d < 0 {
				return b.api.SendMessage(ctx, chatID, "❌ days must be a non-negative number.")
			}
			days = d
		}
		return b.run(ctx, "clearlogs", chatID, func() (string, error) {
			return b.facade.HandleClearLogs(ctx, userID, days)
		})

	case "/help":
		return b.api.SendMessage(ctx, chatID, helpText())

	default:
		if command != "message" {
			return b.api.SendMessage(ctx, chatID, "❌ Unknown command. See /help.")
		}
		return b.handleFreeText(ctx, userID, chatID, msg.Text)
	}
}

// handleFreeText treats a bare handle from the owner as a single-add
// request against the active channel. Anything else gets a usage hint.
func (b *Bot) handleFreeText(ctx context.Context, userID, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !usernameRe.MatchString(text) {
		return b.api.SendMessage(ctx, chatID, "Send a bot @username to add it, or see /help for commands.")
	}
	return b.run(ctx, "add", chatID, func() (string, error) {
		return b.facade.HandleAddSingle(ctx, userID, text)
	})
}

// run is the middleware boundary around a handler: the returned typed
// error decides the user-facing reply, and nothing below this point
// leaks raw error text to the chat.
func (b *Bot) run(ctx context.Context, command string, chatID int64, fn func() (string, error)) error {
	text, err := fn()
	if err != nil {
		metrics.IncCommand(command, "error")
		logging.With(ctx, b.log).Error().Err(err).Str("command", command).Msg("command failed")
		return b.api.SendMessage(ctx, chatID, userMessage(err))
	}
	metrics.IncCommand(command, "ok")
	return b.api.SendMessage(ctx, chatID, text)
}

func (b *Bot) runBulk(ctx context.Context, chatID, userID int64, list, override string) error {
	summary, failures, err := b.facade.HandleBulkAdd(ctx, userID, list, override)
	if err != nil {
		metrics.IncCommand("bulkadd", "error")
		logging.With(ctx, b.log).Error().Err(err).Str("command", "bulkadd").Msg("command failed")
		return b.api.SendMessage(ctx, chatID, userMessage(err))
	}
	metrics.IncCommand("bulkadd", "ok")
	if err := b.api.SendMessage(ctx, chatID, summary); err != nil {
		return err
	}
	if failures != "" {
		return b.api.SendMessage(ctx, chatID, failures)
	}
	return nil
}

// userMessage maps typed domain errors onto the fixed replies shown to
// the owner. Unknown failures collapse into one generic line.
func userMessage(err error) string {
	var capErr *derror.CapacityError
	switch {
	case errors.As(err, &capErr):
		if capErr.Free <= 0 {
			return fmt.Sprintf("❌ Channel full (%d bots). Use /bulkadd or remove some.", capErr.Max)
		}
		return fmt.Sprintf("❌ Only %d slots left. Max: %d", capErr.Free, capErr.Max)
	case errors.Is(err, derror.ErrNoActiveChannel):
		return "❌ No active channel. Forward a post from your channel or use /addchannel first."
	case errors.Is(err, derror.ErrChannelNotFound):
		return "❌ Channel not found. Register it with /addchannel or forward a post first."
	case errors.Is(err, derror.ErrNotABot):
		return "❌ That account is not a bot."
	case errors.Is(err, derror.ErrAlreadyTracked):
		return "❌ Bot already added to this channel."
	case errors.Is(err, derror.ErrNotTracked):
		return "❌ Bot not found in the tracked list."
	case errors.Is(err, derror.ErrVerifyFailed):
		return "❌ Promotion could not be verified. Bot was not recorded as tracked."
	case errors.Is(err, derror.ErrPlatformPermission):
		return "❌ Not enough rights in that channel. Make me an admin with promote permissions first."
	case errors.Is(err, derror.ErrInvalidTarget):
		return "❌ Invalid channel or username."
	default:
		return genericFailReply
	}
}

type cbHandler func(ctx context.Context, query *tgbotapi.CallbackQuery) error

// Exact-match callbacks driving the /start menu.
func (b *Bot) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		"menu_status": func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
			chatID := q.Message.Chat.ID
			return b.run(ctx, "status", chatID, func() (string, error) {
				return b.facade.HandleStatus(ctx, q.From.ID)
			})
		},
		"menu_switch": func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
			return b.sendSwitchMenu(ctx, q.From.ID, q.Message.Chat.ID)
		},
		"menu_listbots": func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
			return b.sendBotList(ctx, q.From.ID, q.Message.Chat.ID, "")
		},
		"menu_addchannel": func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
			_, err := b.api.bot.Request(tgbotapi.NewCallbackWithAlert(q.ID,
				"Use /addchannel @channel <post_id> [max_bots], or forward a post from the channel."))
			return err
		},
		"menu_export": func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
			_, err := b.api.bot.Request(tgbotapi.NewCallbackWithAlert(q.ID,
				"Use /listbots first, then tap the Export button."))
			return err
		},
	}
}

// Prefix-match callbacks carrying a channel id payload.
func (b *Bot) cbPrefixRoutes() []struct {
	Prefix string
	Fn     cbHandler
} {
	return []struct {
		Prefix string
		Fn     cbHandler
	}{
		{
			Prefix: "switch_",
			Fn: func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
				channelID := strings.TrimPrefix(q.Data, "switch_")
				chatID := q.Message.Chat.ID
				text, err := b.facade.HandleSwitch(ctx, q.From.ID, channelID)
				if err != nil {
					metrics.IncCommand("switchchannel", "error")
					return b.api.SendMessage(ctx, chatID, userMessage(err))
				}
				metrics.IncCommand("switchchannel", "ok")
				return b.api.EditMessage(ctx, chatID, q.Message.MessageID, text)
			},
		},
		{
			Prefix: "export_",
			Fn: func(ctx context.Context, q *tgbotapi.CallbackQuery) error {
				channelID := strings.TrimPrefix(q.Data, "export_")
				chatID := q.Message.Chat.ID
				doc, err := b.facade.HandleExport(ctx, channelID)
				if err != nil {
					metrics.IncCommand("export", "error")
					return b.api.SendMessage(ctx, chatID, userMessage(err))
				}
				if err := b.api.SendDocument(ctx, chatID, doc); err != nil {
					metrics.IncCommand("export", "error")
					return b.api.SendMessage(ctx, chatID, userMessage(err))
				}
				metrics.IncCommand("export", "ok")
				return b.api.SendMessage(ctx, chatID, "✅ CSV exported and sent!")
			},
		},
	}
}

func (b *Bot) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		return errors.New("invalid callback query")
	}

	// Stop the telegram spinner when we return.
	defer func() { _, _ = b.api.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	chatID := query.Message.Chat.ID
	data := strings.TrimSpace(query.Data)

	if b.limiter != nil {
		if allowed, err := b.limiter.Allow(ctx, red.UserCommandKey(query.From.ID, "cb:"+data), callbackLimit, time.Minute); err == nil && !allowed {
			return b.api.SendMessage(ctx, chatID, "Rate limit exceeded. Please try again later.")
		}
	}
	if query.From.ID != b.cfg.OwnerID {
		metrics.IncCommand("callback", "denied")
		return b.api.SendMessage(ctx, chatID, accessDeniedReply)
	}

	if fn, ok := b.cbRoutes()[data]; ok {
		return fn(ctx, query)
	}
	for _, pr := range b.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, query)
		}
	}
	return fmt.Errorf("unknown callback data %q", data)
}

func (b *Bot) sendMainMenu(ctx context.Context, chatID int64) error {
	rows := [][]adapter.InlineButton{
		{{Text: "📊 Status", Data: "menu_status"}},
		{{Text: "➕ Add Channel", Data: "menu_addchannel"}},
		{{Text: "🔄 Switch Channel", Data: "menu_switch"}},
		{{Text: "🤖 List Bots", Data: "menu_listbots"}},
		{{Text: "📤 Export CSV", Data: "menu_export"}},
	}
	intro := "👋 Welcome! Manage your channels and bot admins:\n\n" + helpText()
	return b.api.SendButtons(ctx, chatID, intro, rows)
}

// sendSwitchMenu lists registered channels as one button per row.
func (b *Bot) sendSwitchMenu(ctx context.Context, userID, chatID int64) error {
	setups, err := b.facade.ListChannels(ctx, userID)
	if err != nil {
		return b.api.SendMessage(ctx, chatID, userMessage(err))
	}
	if len(setups) == 0 {
		return b.api.SendMessage(ctx, chatID, "❌ No channels set up yet.")
	}
	rows := make([][]adapter.InlineButton, 0, len(setups))
	for _, s := range setups {
		label := s.Channel
		if s.IsActive {
			label += " ✅"
		}
		rows = append(rows, []adapter.InlineButton{{Text: label, Data: "switch_" + s.ChannelID}})
	}
	return b.api.SendButtons(ctx, chatID, "Select a channel to activate:", rows)
}

// sendBotList renders the roster and, when non-empty, an export button.
func (b *Bot) sendBotList(ctx context.Context, userID, chatID int64, override string) error {
	text, channelID, hasBots, err := b.facade.HandleListBots(ctx, userID, override)
	if err != nil {
		metrics.IncCommand("listbots", "error")
		return b.api.SendMessage(ctx, chatID, userMessage(err))
	}
	metrics.IncCommand("listbots", "ok")
	if !hasBots {
		return b.api.SendMessage(ctx, chatID, text)
	}
	rows := [][]adapter.InlineButton{{{Text: "📤 Export CSV", Data: "export_" + channelID}}}
	return b.api.SendButtons(ctx, chatID, text, rows)
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"/addchannel <@username> <post_message_id> [max_bots] - register a channel",
		"/switchchannel [channel_id] - pick the active channel",
		"/status - all channels with counts",
		"/listbots [channel_id] - tracked bots",
		"/removebot <@username> [channel_id] - remove and demote",
		"/bulkadd <@u1,@u2,...> [channel_id] - bulk promote",
		"/clearlogs [days=30] - prune the audit log",
		"",
		"Forward a post from a channel to register it.",
		"Send a bot @username to add it to the active channel.",
	}, "\n")
}
