package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names the kind of entity an audit record refers to.
type EntityType string

const (
	EntityAccount     EntityType = "account"
	EntityCompany     EntityType = "company"
	EntityDrive       EntityType = "drive"
	EntityEligibility EntityType = "eligibility"
	EntityApplication EntityType = "application"
	EntityInterview   EntityType = "interview"
)

// AuditRecord is emitted on every mutating engine operation.
type AuditRecord struct {
	ActorID    uuid.UUID  `json:"actor_id"`
	Action     string     `json:"action"`
	EntityType EntityType `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NotificationType classifies notification messages.
type NotificationType string

const (
	NotifyCompanyApproval   NotificationType = "company_approval"
	NotifyDriveApproval     NotificationType = "drive_approval"
	NotifyApplicationStatus NotificationType = "application_status"
)

// Notification is a message addressed to an account.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_user_id"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}
