package model

// Account is a platform account resolved through the messaging client.
// It is never persisted; Membership stores only the numeric id.
type Account struct {
	ID        int64
	Username  string
	FirstName string
	IsBot     bool
}
