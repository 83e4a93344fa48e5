// Package model defines the data structures shared by the storage, service
// and HTTP layers.
package model

import "time"

// UserAccount is a registered user.
//
// ExternalID is the identity provider's uid (a Firebase uid). It is the key
// every other part of the system correlates on, and the users table keeps it
// UNIQUE, so one provider identity maps to exactly one account. ID is our own
// numeric key, used only as the foreign key from transactions.
type UserAccount struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
}
