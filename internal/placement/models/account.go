// Package models defines the core domain models of the placement engine:
// accounts and their role profiles, placement drives with their eligibility
// criteria, applications and interviews, together with the status enumerations
// and transition tables that govern them.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles. A role is fixed at registration.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
	RoleCompany Role = "COMPANY"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleCompany:
		return true
	default:
		return false
	}
}

// Capability names an action a role may be allowed to perform.
type Capability string

const (
	CapModerate          Capability = "moderate"
	CapViewReports       Capability = "view_reports"
	CapApply             Capability = "apply"
	CapWithdraw          Capability = "withdraw"
	CapManageDrives      Capability = "manage_drives"
	CapReviewApplication Capability = "review_application"
	CapManageInterviews  Capability = "manage_interviews"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapModerate:          true,
		CapViewReports:       true,
		CapWithdraw:          true,
		CapManageDrives:      true,
		CapReviewApplication: true,
		CapManageInterviews:  true,
	},
	RoleStudent: {
		CapApply:    true,
		CapWithdraw: true,
	},
	RoleCompany: {
		CapManageDrives:      true,
		CapReviewApplication: true,
		CapManageInterviews:  true,
	},
}

// Can reports whether the role carries the capability.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// Actor is the authenticated caller of an engine operation, as supplied by
// the transport layer.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Account is an identity in the registry. Accounts are never deleted; they
// are disabled through the Active and Blacklisted flags.
type Account struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Role        Role
	Active      bool
	Blacklisted bool
	CreatedAt   time.Time
}

// Blocked reports whether the account is prevented from acting.
func (a *Account) Blocked() bool {
	return !a.Active || a.Blacklisted
}

// PlacementStatus tracks whether a student has been placed.
type PlacementStatus string

const (
	NotPlaced PlacementStatus = "NotPlaced"
	Placed    PlacementStatus = "Placed"
)

// StudentProfile is the academic record owned 1:1 by a STUDENT account.
type StudentProfile struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	RollNumber      string
	Branch          string
	Year            int
	CGPA            float64
	PlacementStatus PlacementStatus
}

// StudentListing is a student profile with the owning account's identity.
type StudentListing struct {
	StudentProfile
	Name        string
	Email       string
	Blacklisted bool
}

// CompanyProfile is the company descriptor owned 1:1 by a COMPANY account.
type CompanyProfile struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	CompanyName    string
	Website        string
	Description    string
	ApprovalStatus ApprovalStatus
	// Blacklisted mirrors Account.Blacklisted and is updated together with it.
	Blacklisted bool
	CreatedAt   time.Time
}

// CanPostDrives reports whether the company may create new drives.
func (c *CompanyProfile) CanPostDrives() bool {
	return c.ApprovalStatus == ApprovalApproved && !c.Blacklisted
}

// Registration carries the fields needed to create an account and its
// role profile.
type Registration struct {
	Name  string
	Email string
	Role  Role

	// Student fields.
	RollNumber string
	Branch     string
	Year       int
	CGPA       float64

	// Company fields.
	CompanyName string
	Website     string
	Description string
}
