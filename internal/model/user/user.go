package user

import "time"

// User is created on first successful passcode verification and is
// immutable afterwards.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Passcode is a single-use, time-bounded login code. At most one live
// passcode exists per email; issuing a new one replaces the old.
type Passcode struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}
