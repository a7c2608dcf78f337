package adapter

import (
	"context"

	"telegram-channel-admin/internal/domain/model"
)

// ChatInfo describes a resolved chat (channel or supergroup).
type ChatInfo struct {
	ID       int64
	Username string
	Title    string
	Type     string
}

// MemberInfo is the subset of chat-member state the verifier needs.
type MemberInfo struct {
	Status            string
	CanManageChat     bool
	CanDeleteMessages bool
	CanPromoteMembers bool
}

// InlineButton is one inline keyboard button. URL and Data are mutually
// exclusive; Data wins when both are empty-checked by the adapter.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// Document is an in-memory file attachment.
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// TelegramAPI decouples usecases and the dispatcher from the bot client
// library. The real implementation classifies client errors into
// derror.ErrPlatformPermission / derror.ErrInvalidTarget and performs one
// sleep-and-retry when the platform signals a flood wait.
type TelegramAPI interface {
	// ResolveAccount resolves a @username to an account.
	ResolveAccount(ctx context.Context, username string) (*model.Account, error)
	// AccountByID looks up an account the bot has already seen.
	AccountByID(ctx context.Context, id int64) (*model.Account, error)
	// ResolveChannel resolves a channel @username or numeric id string.
	ResolveChannel(ctx context.Context, ref string) (*ChatInfo, error)
	GetChatMember(ctx context.Context, channelID string, accountID int64) (*MemberInfo, error)
	// Promote grants the full administrator privilege set.
	Promote(ctx context.Context, channelID string, accountID int64) error
	// Demote revokes every administrator privilege.
	Demote(ctx context.Context, channelID string, accountID int64) error

	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
	SendDocument(ctx context.Context, chatID int64, doc Document) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
}
