package model

import "time"

// PushToken is a registered Expo push token for one of a user's devices.
type PushToken struct {
	UserID    string
	Token     string
	Platform  string
	DeviceID  string
	UpdatedAt time.Time
}
