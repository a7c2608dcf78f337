package model

import "time"

// Audit actions recorded by the bot.
const (
	ActionSetupSaved         = "setup_saved"
	ActionChannelSetForward  = "channel_set_forward"
	ActionChannelAddedManual = "channel_added_manual"
	ActionChannelSwitched    = "channel_switched"
	ActionBotAdded           = "bot_added"
	ActionBotBulkAdded       = "bot_bulk_added"
	ActionBotRemoved         = "bot_removed"
	ActionBotsListed         = "bots_listed"
	ActionStatusViewed       = "status_viewed"
	ActionLogsCleared        = "logs_cleared"
)

// AuditEntry is an append-only record of one administrative action.
type AuditEntry struct {
	ID        string         `bson:"_id,omitempty"`
	Timestamp time.Time      `bson:"timestamp"`
	Action    string         `bson:"action"`
	Details   map[string]any `bson:"details"`
	OwnerID   int64          `bson:"owner_id"`
}
