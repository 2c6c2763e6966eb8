package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplicationStatus_CanTransition(t *testing.T) {
	all := []ApplicationStatus{
		ApplicationApplied, ApplicationShortlisted, ApplicationSelected,
		ApplicationRejected, ApplicationWithdrawn,
	}
	allowed := map[ApplicationStatus]map[ApplicationStatus]bool{
		ApplicationApplied: {
			ApplicationShortlisted: true,
			ApplicationRejected:    true,
			ApplicationWithdrawn:   true,
		},
		ApplicationShortlisted: {
			ApplicationSelected:  true,
			ApplicationRejected:  true,
			ApplicationWithdrawn: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[from][to], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestApplicationStatus_Terminal(t *testing.T) {
	assert.False(t, ApplicationApplied.Terminal())
	assert.False(t, ApplicationShortlisted.Terminal())
	assert.True(t, ApplicationSelected.Terminal())
	assert.True(t, ApplicationRejected.Terminal())
	assert.True(t, ApplicationWithdrawn.Terminal())
}

func TestApprovalStatus_CanTransition(t *testing.T) {
	assert.True(t, ApprovalPending.CanTransition(ApprovalApproved))
	assert.True(t, ApprovalPending.CanTransition(ApprovalRejected))
	assert.False(t, ApprovalPending.CanTransition(ApprovalPending))
	assert.False(t, ApprovalApproved.CanTransition(ApprovalApproved))
	assert.False(t, ApprovalApproved.CanTransition(ApprovalRejected))
	assert.False(t, ApprovalRejected.CanTransition(ApprovalApproved))
}

func TestRole_Can(t *testing.T) {
	assert.True(t, RoleAdmin.Can(CapModerate))
	assert.False(t, RoleStudent.Can(CapModerate))
	assert.False(t, RoleCompany.Can(CapModerate))
	assert.True(t, RoleStudent.Can(CapApply))
	assert.False(t, RoleCompany.Can(CapApply))
	assert.False(t, RoleStudent.Can(CapReviewApplication))
	assert.False(t, Role("GUEST").Can(CapApply))
	assert.False(t, Role("GUEST").Valid())
}

func TestDrive_DeadlinePassed(t *testing.T) {
	deadline := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	d := &Drive{ApplicationDeadline: deadline}

	assert.False(t, d.DeadlinePassed(deadline.Add(12*time.Hour)), "deadline day is still open")
	assert.True(t, d.DeadlinePassed(deadline.AddDate(0, 0, 2)))
	assert.False(t, (&Drive{}).DeadlinePassed(time.Now()), "zero deadline never closes")
}
