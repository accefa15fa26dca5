// Package models contains the domain entities shared by the storage and
// service layers: users, workspaces, subscriptions and payment events.
package models

import "time"

// User is a registered account. PasswordDigest is never serialized to JSON.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
