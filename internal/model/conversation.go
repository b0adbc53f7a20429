package model

import "time"

// Conversation statuses.
const (
	ConversationOpen    = "open"
	ConversationMatched = "matched"
	ConversationPassed  = "passed"
)

// Conversation is the two-party container the reveal flow resolves.  The
// participants are stored in canonical order.  RevealedAt is written at most
// once; after that the participants may see each other's primary photo.
type Conversation struct {
	ID         string
	UserLow    string
	UserHigh   string
	Status     string
	RevealedAt *time.Time
	CreatedAt  time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.UserLow == userID || c.UserHigh == userID)
}

// Other returns the participant that is not userID.
func (c Conversation) Other(userID string) string {
	if c.UserLow == userID {
		return c.UserHigh
	}
	return c.UserLow
}
