package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// RoleUser is the default role for registered principals.
	RoleUser = "user"
	// RoleAdmin grants whitelist administration rights.
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the enumerated principal roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User represents an authenticated principal with role-based access control.
// Principals are never hard-deleted; Enabled gates the account instead.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	UUID         string `json:"uuid" gorm:"uniqueIndex"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // Never serialize password hash
	Role         string `json:"role" gorm:"default:'user'"`
	Enabled      bool   `json:"enabled" gorm:"default:true"`

	// RefreshToken holds the single currently valid refresh credential.
	// Issuing a new pair overwrites it; a presented refresh token that does
	// not match byte-for-byte is treated as revoked.
	RefreshToken string `json:"-"`

	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SetPassword hashes and sets the user's password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the provided password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
