package models

import (
	"time"
)

// WhitelistRule permits callers from a single IP address or CIDR range to
// reach the named service. AddressSpec is unique server-wide so two rules
// can never disagree about the same address.
type WhitelistRule struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	UUID        string `json:"uuid" gorm:"uniqueIndex"`
	ServiceName string `json:"service_name" gorm:"index"` // stored lowercased
	AddressSpec string `json:"address_spec" gorm:"uniqueIndex"`
	Description string `json:"description"`

	CreatedByID uint `json:"created_by_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
