package models

import (
	"time"

	"github.com/google/uuid"
)

// Drive is a company's placement drive (job posting cycle).
type Drive struct {
	ID                  uuid.UUID
	CompanyID           uuid.UUID
	Title               string
	Description         string
	Salary              int
	Location            string
	DriveDate           time.Time
	ApplicationDeadline time.Time
	Status              ApprovalStatus
	CreatedAt           time.Time
}

// VisibleToStudents reports whether the drive may be shown to students.
func (d *Drive) VisibleToStudents() bool {
	return d.Status == ApprovalApproved
}

// DeadlinePassed reports whether applications are closed at now. A zero
// deadline never closes.
func (d *Drive) DeadlinePassed(now time.Time) bool {
	if d.ApplicationDeadline.IsZero() {
		return false
	}
	// The deadline date itself is still open.
	return now.After(d.ApplicationDeadline.AddDate(0, 0, 1))
}

// DriveFields are the company-supplied fields of a new drive.
type DriveFields struct {
	Title               string
	Description         string
	Salary              int
	Location            string
	DriveDate           time.Time
	ApplicationDeadline time.Time
}

// Eligibility holds the optional criteria gating applications to a drive.
// A nil MinCGPA or PassingYear imposes no restriction; an empty
// AllowedBranches imposes no branch restriction.
type Eligibility struct {
	DriveID         uuid.UUID
	AllowedBranches []string
	MinCGPA         *float64
	PassingYear     *int
}

// DriveFilter narrows drive listings.
type DriveFilter struct {
	Status    *ApprovalStatus
	CompanyID *uuid.UUID
}
