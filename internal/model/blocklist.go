package model

import "time"

// BlockReasonPassed is recorded when either side of a conversation passes.
const BlockReasonPassed = "passed"

// BlocklistEntry models a row in `pair_blocklist`.  The pair is stored in
// canonical order (UserLow < UserHigh) so one row covers both directions.
type BlocklistEntry struct {
	UserLow            string    `msgpack:"low"`
	UserHigh           string    `msgpack:"high"`
	Reason             string    `msgpack:"reason"`
	LastConversationID string    `msgpack:"cid"`
	CreatedAt          time.Time `msgpack:"created_at"`
	UpdatedAt          time.Time `msgpack:"updated_at"`
}
