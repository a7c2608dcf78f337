package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	derror "telegram-channel-admin/internal/error"
)

// Substrings the Bot API uses for errors we can recover from locally.
// Everything else stays an opaque failure for the outer handler boundary.
var (
	permissionMarkers = []string{
		"not enough rights",
		"need administrator rights",
		"chat_admin_required",
		"user_not_participant",
		"user is not a member",
		"bot is not a member",
		"privacy",
		"can't promote",
		"can't demote",
	}
	invalidTargetMarkers = []string{
		"chat not found",
		"user not found",
		"username_invalid",
		"username_not_occupied",
		"peer_id_invalid",
		"wrong type of chat",
		"invalid user_id",
	}
)

// floodWait extracts the platform's rate-limit signal, if any.
func floodWait(err error) (time.Duration, bool) {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second, true
	}
	return 0, false
}

// classifyError maps Bot API errors into the domain error classes so
// callers above the adapter never match on client error strings.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", derror.ErrPlatformPermission, err)
		}
	}
	for _, marker := range invalidTargetMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", derror.ErrInvalidTarget, err)
		}
	}
	return err
}
