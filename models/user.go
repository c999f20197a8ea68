package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role gates the admin back-office. Storefront shoppers browse anonymously
// and have no account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleAdmin
}

// User is a back-office operator.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash" json:"-"`
	Role         Role          `bson:"role" json:"role"`
	IsActive     bool          `bson:"isActive" json:"isActive"`
	LastLoginAt  *time.Time    `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// CanSignIn reports whether the account may obtain or refresh tokens.
func (u *User) CanSignIn() bool {
	return u.IsActive && u.Role.Valid()
}

// RefreshToken stores the SHA-256 of an issued refresh token, never the token.
type RefreshToken struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	UserID     bson.ObjectID `bson:"userId"`
	TokenHash  string        `bson:"tokenHash"`
	ExpiresAt  time.Time     `bson:"expiresAt"`
	CreatedAt  time.Time     `bson:"createdAt"`
	RevokedAt  *time.Time    `bson:"revokedAt,omitempty"`
	ReplacedBy *string       `bson:"replacedBy,omitempty"`
}
