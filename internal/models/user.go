package models

import (
	"time"
)

// Role is the closed set of back-office user roles
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSupport  Role = "support"
	RoleCustomer Role = "customer"
)

// ValidRole reports whether s names a known role
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleSupport, RoleCustomer:
		return true
	}
	return false
}

// User represents a back-office user account
type User struct {
	ID           string    `db:"id" json:"id" bson:"_id"`
	Email        string    `db:"email" json:"email" bson:"email"`
	Name         string    `db:"name" json:"name" bson:"name"`
	PasswordHash string    `db:"password_hash" json:"-" bson:"password_hash"`
	Role         Role      `db:"role" json:"role" bson:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at" bson:"updated_at"`
}

// NewUser creates a new user with an already-hashed password
func NewUser(email, name, passwordHash string, role Role) *User {
	now := GetCurrentTime()

	return &User{
		ID:           GenerateID("usr"),
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
