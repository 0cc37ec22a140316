// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a poll participant.
//
// WHY ID string (not int64)?
// Identity comes from whatever transport fronts the poll — a chat network's
// numeric user ID, a GitHub account, or a server-minted xid. We treat it as
// an opaque, stable string and never interpret its contents, so swapping
// transports never forces a schema migration.
//
// Username may be empty — some networks let users hide it. We use the empty
// string as the zero value rather than a nullable pointer; it is safe to
// display and simple to work with.
//
// Users are created on first interaction ("upsert on sight") and never
// deleted. The stored username is whatever the user carried when first seen;
// re-interactions do not overwrite it.
type User struct {
	ID        string    `json:"id"        db:"user_id"`
	Username  string    `json:"username"  db:"username"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
