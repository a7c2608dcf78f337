package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-channel-admin/internal/domain/model"
	"telegram-channel-admin/internal/domain/ports/adapter"
)

var _ adapter.TelegramAPI = (*API)(nil)

// API implements the TelegramAPI port on top of tgbotapi. Every outgoing
// call goes through do(), which honors a single flood-wait sleep-and-retry
// and classifies client errors into the domain error classes.
type API struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewAPI(token string, logger *zerolog.Logger) (*API, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &API{bot: bot, log: logger}, nil
}

// do runs op, sleeping out one flood-wait signal and retrying exactly
// once. Deeper retry loops are intentionally absent.
func (a *API) do(ctx context.Context, op func() error) error {
	err := op()
	if wait, ok := floodWait(err); ok {
		a.log.Warn().Dur("wait", wait).Msg("flood wait signaled, retrying once")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		err = op()
	}
	return classifyError(err)
}

// chatRef splits a channel id string into the numeric-id or username
// form the client expects.
func chatRef(channelID string) (int64, string) {
	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return id, ""
	}
	if !strings.HasPrefix(channelID, "@") {
		return 0, "@" + channelID
	}
	return 0, channelID
}

func (a *API) getChat(ctx context.Context, id int64, username string) (*tgbotapi.Chat, error) {
	var chat tgbotapi.Chat
	err := a.do(ctx, func() error {
		c, err := a.bot.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: id, SuperGroupUsername: username},
		})
		if err != nil {
			return err
		}
		chat = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (a *API) ResolveAccount(ctx context.Context, username string) (*model.Account, error) {
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	chat, err := a.getChat(ctx, 0, username)
	if err != nil {
		return nil, err
	}
	return accountFromChat(chat), nil
}

func (a *API) AccountByID(ctx context.Context, id int64) (*model.Account, error) {
	chat, err := a.getChat(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return accountFromChat(chat), nil
}

// accountFromChat maps a chat lookup onto an account. The Bot API does
// not expose is_bot on chats, so the platform rule that bot usernames
// end in "bot" stands in for it.
func accountFromChat(chat *tgbotapi.Chat) *model.Account {
	return &model.Account{
		ID:        chat.ID,
		Username:  chat.UserName,
		FirstName: chat.FirstName,
		IsBot:     strings.HasSuffix(strings.ToLower(chat.UserName), "bot"),
	}
}

func (a *API) ResolveChannel(ctx context.Context, ref string) (*adapter.ChatInfo, error) {
	id, username := chatRef(ref)
	chat, err := a.getChat(ctx, id, username)
	if err != nil {
		return nil, err
	}
	return &adapter.ChatInfo{
		ID:       chat.ID,
		Username: chat.UserName,
		Title:    chat.Title,
		Type:     chat.Type,
	}, nil
}

func (a *API) GetChatMember(ctx context.Context, channelID string, accountID int64) (*adapter.MemberInfo, error) {
	id, username := chatRef(channelID)
	var member tgbotapi.ChatMember
	err := a.do(ctx, func() error {
		m, err := a.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID:             id,
				SuperGroupUsername: username,
				UserID:             accountID,
			},
		})
		if err != nil {
			return err
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &adapter.MemberInfo{
		Status:            member.Status,
		CanManageChat:     member.CanManageChat,
		CanDeleteMessages: member.CanDeleteMessages,
		CanPromoteMembers: member.CanPromoteMembers,
	}, nil
}

// Administrator privileges granted on promotion and revoked on demotion.
// Sent as raw parameters because the typed config predates post-stories.
var adminPrivileges = []string{
	"can_manage_chat",
	"can_delete_messages",
	"can_manage_video_chats",
	"can_restrict_members",
	"can_promote_members",
	"can_change_info",
	"can_invite_users",
	"can_pin_messages",
	"can_post_stories",
}

func (a *API) Promote(ctx context.Context, channelID string, accountID int64) error {
	return a.setPrivileges(ctx, channelID, accountID, true)
}

func (a *API) Demote(ctx context.Context, channelID string, accountID int64) error {
	return a.setPrivileges(ctx, channelID, accountID, false)
}

func (a *API) setPrivileges(ctx context.Context, channelID string, accountID int64, grant bool) error {
	id, username := chatRef(channelID)
	params := make(tgbotapi.Params)
	if username != "" {
		params["chat_id"] = username
	} else {
		params.AddNonZero64("chat_id", id)
	}
	params.AddNonZero64("user_id", accountID)
	params["is_anonymous"] = "false"
	for _, p := range adminPrivileges {
		params[p] = strconv.FormatBool(grant)
	}
	return a.do(ctx, func() error {
		_, err := a.bot.MakeRequest("promoteChatMember", params)
		return err
	})
}

func (a *API) SendMessage(ctx context.Context, chatID int64, text string) error {
	return a.do(ctx, func() error {
		_, err := a.bot.Send(tgbotapi.NewMessage(chatID, text))
		return err
	})
}

func (a *API) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return a.do(ctx, func() error {
		_, err := a.bot.Send(msg)
		return err
	})
}

func (a *API) SendDocument(ctx context.Context, chatID int64, doc adapter.Document) error {
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Data})
	msg.Caption = doc.Caption
	return a.do(ctx, func() error {
		_, err := a.bot.Send(msg)
		return err
	})
}

func (a *API) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	return a.do(ctx, func() error {
		_, err := a.bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
		return err
	})
}
