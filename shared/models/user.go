// shared/models/user.go
package models

import "time"

// User is an account that can sign in and administer teams.
type User struct {
	ID           string     `bson:"_id" json:"uid"`
	Email        string     `bson:"email" json:"email"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	DisplayName  string     `bson:"display_name,omitempty" json:"displayName,omitempty"`
	CreatedAt    *time.Time `bson:"created_at,omitempty" json:"createdAt,omitempty"`
}

// Identity is what the rest of the system knows about an authenticated caller.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
