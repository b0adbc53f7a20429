package model

import "time"

// Decision values accepted by the reveal flow.
const (
	DecisionMeet = "meet"
	DecisionPass = "pass"
)

// ValidDecision reports whether d is one of the accepted decision values.
func ValidDecision(d string) bool {
	return d == DecisionMeet || d == DecisionPass
}

// RevealDecision models a row in `reveal_decision`, one per
// (conversation, user).  Resubmission overwrites the previous value.
type RevealDecision struct {
	ConversationID string
	UserID         string
	OtherUserID    string
	Decision       string
	DecidedAt      time.Time
}
