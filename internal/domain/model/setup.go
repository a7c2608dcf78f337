package model

import "time"

// DefaultMaxBots caps how many bots a channel tracks unless the owner
// picked a different limit at registration time.
const DefaultMaxBots = 20

// Setup is one registered channel for an owner. At most one setup per
// owner carries IsActive; the store enforces this with a follow-up write,
// so readers must tolerate a brief zero-or-two-active window.
type Setup struct {
	OwnerID   int64     `bson:"owner_id"`
	ChannelID string    `bson:"channel_id"`
	Channel   string    `bson:"channel"` // display handle (@name) or numeric id
	PostLink  string    `bson:"post_link"`
	MaxBots   int       `bson:"max_bots"`
	IsActive  bool      `bson:"is_active"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewSetup(ownerID int64, channelID, channel, postLink string, maxBots int) *Setup {
	if maxBots <= 0 {
		maxBots = DefaultMaxBots
	}
	return &Setup{
		OwnerID:   ownerID,
		ChannelID: channelID,
		Channel:   channel,
		PostLink:  postLink,
		MaxBots:   maxBots,
		UpdatedAt: time.Now().UTC(),
	}
}
