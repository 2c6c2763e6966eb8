package models

import (
	"time"

	"github.com/google/uuid"
)

// Application links one student to one drive. At most one exists per
// (StudentID, DriveID) pair.
type Application struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	DriveID   uuid.UUID
	AppliedAt time.Time
	Status    ApplicationStatus
	Remarks   string
	UpdatedAt time.Time
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	StudentID *uuid.UUID
	DriveID   *uuid.UUID
	CompanyID *uuid.UUID
	Status    *ApplicationStatus
}

// StatusChange describes a compare-and-set on an application's status.
type StatusChange struct {
	ApplicationID uuid.UUID
	From          ApplicationStatus
	To            ApplicationStatus
	Remarks       string
	// MarkPlaced requests the owning student's placement status be set to
	// Placed in the same transaction.
	MarkPlaced bool
}

// Interview is a scheduled interview for an application.
type Interview struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	InterviewDate time.Time
	Mode          InterviewMode
	Result        string
	Notes         string
	CreatedAt     time.Time
}

// DashboardStats are the admin dashboard counters.
type DashboardStats struct {
	TotalStudents     int64 `json:"total_students"`
	TotalCompanies    int64 `json:"total_companies"`
	TotalDrives       int64 `json:"total_drives"`
	TotalApplications int64 `json:"total_applications"`
}
