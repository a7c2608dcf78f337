package model

import "time"

// Membership is the tracked set of promoted bot accounts for one channel.
// Bots never holds duplicates; the store's set-insert guarantees it.
type Membership struct {
	ChannelID       string    `bson:"channel_id"`
	Bots            []int64   `bson:"bots"`
	LastBotUsername string    `bson:"last_bot_username"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func (m *Membership) Has(botID int64) bool {
	for _, id := range m.Bots {
		if id == botID {
			return true
		}
	}
	return false
}

// RosterEntry is one row of a resolved membership listing. A failed
// account lookup yields the placeholder values instead of dropping the row.
type RosterEntry struct {
	ID        int64
	Username  string
	FirstName string
}
