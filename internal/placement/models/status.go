package models

// ApprovalStatus is the moderation state shared by companies and drives.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

var approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalPending: {ApprovalApproved, ApprovalRejected},
}

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the edge s -> to is in the approval table.
// Approved and Rejected are terminal.
func (s ApprovalStatus) CanTransition(to ApprovalStatus) bool {
	for _, next := range approvalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	ApplicationApplied     ApplicationStatus = "Applied"
	ApplicationShortlisted ApplicationStatus = "Shortlisted"
	ApplicationSelected    ApplicationStatus = "Selected"
	ApplicationRejected    ApplicationStatus = "Rejected"
	ApplicationWithdrawn   ApplicationStatus = "Withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationApplied:     {ApplicationShortlisted, ApplicationRejected, ApplicationWithdrawn},
	ApplicationShortlisted: {ApplicationSelected, ApplicationRejected, ApplicationWithdrawn},
}

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationApplied, ApplicationShortlisted, ApplicationSelected,
		ApplicationRejected, ApplicationWithdrawn:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted from s.
func (s ApplicationStatus) Terminal() bool {
	return len(applicationTransitions[s]) == 0
}

// CanTransition reports whether the edge s -> to is in the application table.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	for _, next := range applicationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Interviewable reports whether interviews may be scheduled for an
// application in status s.
func (s ApplicationStatus) Interviewable() bool {
	return s == ApplicationShortlisted || s == ApplicationSelected
}

// InterviewMode is how an interview is conducted.
type InterviewMode string

const (
	ModeOnline  InterviewMode = "Online"
	ModeOffline InterviewMode = "Offline"
)

// Valid reports whether m is a known interview mode.
func (m InterviewMode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}
