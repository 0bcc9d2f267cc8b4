package models

import (
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Authentication events
	EventAuthenticationSuccess EventType = "AUTHENTICATION_SUCCESS"
	EventAuthenticationFailure EventType = "AUTHENTICATION_FAILURE"
	EventLogout                EventType = "LOGOUT"

	// Reconciliation events
	EventUserProvisioned           EventType = "USER_PROVISIONED"
	EventDuplicateIdentityRejected EventType = "DUPLICATE_IDENTITY_REJECTED"
	EventEmailRequested            EventType = "EMAIL_REQUESTED"
	EventGroupSyncFailed           EventType = "GROUP_SYNC_FAILED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "INFO"
	SeverityWarning EventSeverity = "WARNING"
	SeverityError   EventSeverity = "ERROR"
)

// AuditLog records a single security-relevant event.
type AuditLog struct {
	ID        string        `gorm:"primaryKey"`
	EventType EventType     `gorm:"index;not null"`
	Severity  EventSeverity `gorm:"index;not null"`

	// Actor information
	ActorUserID   string `gorm:"index"`
	ActorUsername string
	ActorIP       string

	// Event details
	AuthMethod   string // which backend produced the event
	Action       string
	Success      bool
	ErrorMessage string

	CreatedAt time.Time `gorm:"index"`
}
