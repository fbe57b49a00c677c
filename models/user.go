package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Profile is the account record owned by the identity store.
// ReferredBy is set at most once and never changes afterwards.
type Profile struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	ReferredBy   *string   `json:"referred_by,omitempty" db:"referred_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

var ErrEmailTaken = errors.New("email already registered")

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func (p *Profile) HasReferrer() bool {
	return p.ReferredBy != nil && *p.ReferredBy != ""
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword reports whether password matches the profile's hash.
// Profiles created through an identity provider have no hash and never match.
func (p *Profile) CheckPassword(password string) bool {
	if p.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) == nil
}
