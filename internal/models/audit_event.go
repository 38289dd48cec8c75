package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit event types. The set is closed; Record rejects anything else.
const (
	EventWhitelistCreate = "WHITELIST_CREATE"
	EventWhitelistUpdate = "WHITELIST_UPDATE"
	EventWhitelistDelete = "WHITELIST_DELETE"
	EventAccessGranted   = "ACCESS_GRANTED"
	EventAccessDenied    = "ACCESS_DENIED"
	EventUserLogin       = "USER_LOGIN"
	EventUserRegister    = "USER_REGISTER"
	EventAuthFailure     = "AUTH_FAILURE"
	EventSystemError     = "SYSTEM_ERROR"
)

// Entity kinds an audit event may reference.
const (
	EntityWhitelistRule = "WhitelistRule"
	EntityUser          = "User"
)

var validEventTypes = map[string]bool{
	EventWhitelistCreate: true,
	EventWhitelistUpdate: true,
	EventWhitelistDelete: true,
	EventAccessGranted:   true,
	EventAccessDenied:    true,
	EventUserLogin:       true,
	EventUserRegister:    true,
	EventAuthFailure:     true,
	EventSystemError:     true,
}

var (
	ErrInvalidEventType = errors.New("invalid audit event type")
	ErrDanglingEntity   = errors.New("audit entity reference requires both id and kind")
)

// AuditEvent is an immutable, append-only record of a security-relevant
// decision or mutation. Rows are never updated or deleted once written.
type AuditEvent struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	UUID      string `json:"uuid" gorm:"uniqueIndex"`
	EventType string `json:"event_type" gorm:"index"`

	// ActorID is nil for anonymous attempts.
	ActorID  *uint  `json:"actor_id,omitempty"`
	SourceIP string `json:"source_ip"`

	// EntityID/EntityKind reference the affected rule or principal.
	// Either both are set or neither is.
	EntityID   *uint  `json:"entity_id,omitempty"`
	EntityKind string `json:"entity_kind,omitempty"`

	Details string `json:"details" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate validates the closed event type set and the entity reference
// invariant, and assigns a UUID when the caller did not.
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if !validEventTypes[e.EventType] {
		return ErrInvalidEventType
	}
	if (e.EntityID == nil) != (e.EntityKind == "") {
		return ErrDanglingEntity
	}
	if e.EntityKind != "" && e.EntityKind != EntityWhitelistRule && e.EntityKind != EntityUser {
		return ErrDanglingEntity
	}
	if e.UUID == "" {
		e.UUID = uuid.New().String()
	}
	return nil
}
