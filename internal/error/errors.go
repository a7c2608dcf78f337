package derror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoActiveChannel = errors.New("no active channel configured")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotABot         = errors.New("account is not a bot")
	ErrAlreadyTracked  = errors.New("bot already added")
	ErrNotTracked      = errors.New("bot not in tracked list")
	ErrVerifyFailed    = errors.New("promotion not verified")

	// Platform error classes; the telegram adapter wraps client errors
	// into these so handlers never depend on the client library.
	ErrPlatformPermission = errors.New("insufficient channel permissions")
	ErrInvalidTarget      = errors.New("invalid channel or username")
)

// CapacityError reports a rejected add because the channel slot budget
// would be exceeded. Free may be zero.
type CapacityError struct {
	Free int
	Max  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity reached: %d free of %d", e.Free, e.Max)
}
