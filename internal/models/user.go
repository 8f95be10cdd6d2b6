package models

import (
	"time"

	"github.com/google/uuid"
)

// Provider represents how a user signs in
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGitHub Provider = "GITHUB"
	ProviderGoogle Provider = "GOOGLE"
)

// User represents a user in the system
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID string    `db:"providerId" json:"providerId"`
	Provider   Provider  `db:"provider" json:"provider"`
	Username   string    `db:"username" json:"username"`
	Password   string    `db:"password" json:"-"`
	Email      string    `db:"email" json:"email"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `db:"updatedAt" json:"updatedAt"`
}

// DisplayName is what the pages greet the user with
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the provider is valid
func (p Provider) IsValid() bool {
	return p == ProviderLocal || p == ProviderGitHub || p == ProviderGoogle
}
