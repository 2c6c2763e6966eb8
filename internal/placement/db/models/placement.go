// Package models contains the persistence rows of the placement engine,
// configured to work using GORM as the ORM. Rows are converted to and from
// the domain models at the repository boundary.
package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Account is a row of the identity registry. Accounts are soft-disabled
// through flags, never deleted.
type Account struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:100;index"`
	Email       string    `gorm:"size:120;uniqueIndex;not null"`
	Role        string    `gorm:"size:20;not null;index"`
	Active      bool      `gorm:"not null"`
	Blacklisted bool      `gorm:"not null"`
	CreatedAt   time.Time
}

// StudentProfile is owned 1:1 by a STUDENT account.
type StudentProfile struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	RollNumber      string    `gorm:"size:50"`
	Branch          string    `gorm:"size:50"`
	Year            int
	CGPA            float64 `gorm:"column:cgpa"`
	PlacementStatus string  `gorm:"size:20;not null"`
}

// CompanyProfile is owned 1:1 by a COMPANY account.
type CompanyProfile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	CompanyName    string    `gorm:"size:100"`
	Website        string    `gorm:"size:200"`
	Description    string    `gorm:"size:3000"`
	ApprovalStatus string    `gorm:"size:20;not null;index"`
	Blacklisted    bool      `gorm:"not null"`
	CreatedAt      time.Time
}

// PlacementDrive is a company's job posting cycle.
type PlacementDrive struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Title               string    `gorm:"size:100"`
	Description         string    `gorm:"size:3000"`
	Salary              int       `gorm:"check:salary >= 0"`
	Location            string    `gorm:"size:100"`
	DriveDate           datatypes.Date
	ApplicationDeadline datatypes.Date
	Status              string `gorm:"size:20;not null;index"`
	CreatedAt           time.Time
}

// DriveEligibility holds the optional criteria of a drive, at most one per
// drive.
type DriveEligibility struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	DriveID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	AllowedBranches Branches
	MinCGPA         *float64 `gorm:"column:min_cgpa"`
	PassingYear     *int
}

// TableName keeps the table name singular.
func (DriveEligibility) TableName() string {
	return "drive_eligibility"
}

// Application is unique per (student_id, drive_id).
type Application struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_student_drive"`
	DriveID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_student_drive;index"`
	AppliedAt time.Time
	Status    string `gorm:"size:20;not null;index"`
	Remarks   string `gorm:"size:3000"`
	UpdatedAt time.Time
}

// Interview belongs to an application.
type Interview struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;index"`
	InterviewDate time.Time
	Mode          string `gorm:"size:20;not null"`
	Result        string `gorm:"size:50"`
	Notes         string `gorm:"size:3000"`
	CreatedAt     time.Time
}

// ActivityLog is the persisted audit trail.
type ActivityLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ActorID    uuid.UUID `gorm:"type:uuid;index"`
	Action     string    `gorm:"size:200"`
	EntityType string    `gorm:"size:50"`
	EntityID   uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt  time.Time
}

// Notification is a message stored for a recipient account.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Message   string    `gorm:"size:1000"`
	Type      string    `gorm:"size:50"`
	Read      bool      `gorm:"column:is_read;not null"`
	CreatedAt time.Time
}

// All lists every row type for migration.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&StudentProfile{},
		&CompanyProfile{},
		&PlacementDrive{},
		&DriveEligibility{},
		&Application{},
		&Interview{},
		&ActivityLog{},
		&Notification{},
	}
}

// Branches is a set of branch names stored as a Postgres text[] column
// (array literal text elsewhere).
type Branches []string

// Value implements driver.Valuer.
func (b Branches) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return pq.StringArray(b).Value()
}

// Scan implements sql.Scanner.
func (b *Branches) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*b = Branches(arr)
	return nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (Branches) GormDataType() string {
	return "text[]"
}

// GormDBDataType picks the column type per dialect.
func (Branches) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
