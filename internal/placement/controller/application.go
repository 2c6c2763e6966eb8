package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/placement/internal/placement/eligibility"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRemarksLength = 2000

// ApplicationService manages the application lifecycle: submission,
// status transitions and the placement cascade.
type ApplicationService struct {
	base
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(repo Repository, producer EventProducer, logger *zap.Logger, opts ...Option) *ApplicationService {
	return &ApplicationService{base: newBase(repo, producer, logger, "application_service", opts)}
}

// Apply submits the student's application to a drive. Checks run in order:
// the drive must be Approved and open, the student's account must not be
// blocked, the student must meet the drive's criteria, and no application
// may exist for the pair. Uniqueness is enforced by the store, so of two
// concurrent submissions exactly one succeeds.
func (s *ApplicationService) Apply(ctx context.Context, actor models.Actor, studentID, driveID uuid.UUID) (app *models.Application, err error) {
	ctx, done := s.observe(ctx, "application.apply")
	defer done(&err)

	if !actor.Role.Can(models.CapApply) {
		return nil, fmt.Errorf("%w: role %s cannot apply", e.ErrForbidden, actor.Role)
	}
	student, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return nil, wrap(err, "failed to get student")
	}
	if student.AccountID != actor.ID {
		return nil, fmt.Errorf("%w: students apply only for themselves", e.ErrForbidden)
	}

	drive, err := s.repo.GetDrive(ctx, driveID)
	if err != nil {
		return nil, wrap(err, "failed to get drive")
	}
	if drive.Status != models.ApprovalApproved {
		return nil, fmt.Errorf("%w: drive is %s", e.ErrNotEligible, drive.Status)
	}
	now := s.now()
	if drive.DeadlinePassed(now) {
		return nil, fmt.Errorf("%w: application deadline has passed", e.ErrNotEligible)
	}

	if _, err := s.actorAccount(ctx, actor); err != nil {
		return nil, err
	}

	criteria, err := s.repo.GetEligibility(ctx, driveID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to get eligibility: %w", err)
	}
	if result := eligibility.Evaluate(student, criteria); !result.Eligible {
		return nil, fmt.Errorf("%w: %s", e.ErrNotEligible, strings.Join(result.Reasons, "; "))
	}

	app = &models.Application{
		ID:        uuid.New(),
		StudentID: studentID,
		DriveID:   driveID,
		AppliedAt: now,
		Status:    models.ApplicationApplied,
		UpdatedAt: now,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		return nil, wrap(err, "failed to create application")
	}

	s.logger.Info("Application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("drive_id", driveID.String()),
	)
	s.emit(events.NewAudit(actor.ID, "application_created", models.EntityApplication, app.ID))
	s.invalidateStats(ctx)
	return app, nil
}

// ApplySelf applies to a drive with the acting student's own profile.
func (s *ApplicationService) ApplySelf(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Application, error) {
	if !actor.Role.Can(models.CapApply) {
		return nil, fmt.Errorf("%w: role %s cannot apply", e.ErrForbidden, actor.Role)
	}
	student, err := s.repo.GetStudentByAccount(ctx, actor.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: no student profile", e.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to load student profile: %w", err)
	}
	return s.Apply(ctx, actor, student.ID, driveID)
}

// Transition moves an application to a new status. Students may only
// withdraw their own applications; the owning company or an admin may
// shortlist, select or reject. Selecting marks the student Placed in the
// same atomic step. The status is compare-and-set, so a concurrent change
// yields ErrInvalidTransition rather than a lost update.
func (s *ApplicationService) Transition(ctx context.Context, actor models.Actor, applicationID uuid.UUID, to models.ApplicationStatus, remarks string) (app *models.Application, err error) {
	ctx, done := s.observe(ctx, "application.transition")
	defer done(&err)

	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", e.ErrInvalidInput, to)
	}
	capability := models.CapReviewApplication
	if to == models.ApplicationWithdrawn {
		capability = models.CapWithdraw
	}
	if _, err := s.authorize(ctx, actor, capability); err != nil {
		return nil, err
	}
	if len(remarks) > maxRemarksLength {
		return nil, fmt.Errorf("%w: remarks too long", e.ErrInvalidInput)
	}

	current, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, wrap(err, "failed to get application")
	}
	drive, err := s.repo.GetDrive(ctx, current.DriveID)
	if err != nil {
		return nil, wrap(err, "failed to get drive")
	}
	student, err := s.repo.GetStudent(ctx, current.StudentID)
	if err != nil {
		return nil, wrap(err, "failed to get student")
	}

	switch actor.Role {
	case models.RoleStudent:
		if student.AccountID != actor.ID {
			return nil, fmt.Errorf("%w: not your application", e.ErrForbidden)
		}
	default:
		if err := s.ownsDrive(ctx, actor, drive); err != nil {
			return nil, err
		}
	}

	if !current.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: application %s -> %s", e.ErrInvalidTransition, current.Status, to)
	}

	app, err = s.repo.ChangeApplicationStatus(ctx, models.StatusChange{
		ApplicationID: applicationID,
		From:          current.Status,
		To:            to,
		Remarks:       remarks,
		MarkPlaced:    to == models.ApplicationSelected,
	})
	if err != nil {
		return nil, wrap(err, "failed to change application status")
	}

	s.emit(
		events.NewAudit(actor.ID, "application_"+strings.ToLower(string(to)), models.EntityApplication, applicationID),
		events.NewNotification(student.AccountID, models.NotifyApplicationStatus,
			fmt.Sprintf("Your application for %q is now %s", drive.Title, to)),
	)
	return app, nil
}

// List returns the applications the actor may see: a student's own, a
// company's applications to its drives, or any for an admin. filter
// narrows the result further.
func (s *ApplicationService) List(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) (apps []models.Application, err error) {
	ctx, done := s.observe(ctx, "application.list")
	defer done(&err)

	if _, err := s.actorAccount(ctx, actor); err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.repo.GetStudentByAccount(ctx, actor.ID)
		if err != nil {
			return nil, wrap(err, "failed to load student profile")
		}
		filter.StudentID = &student.ID
	case models.RoleCompany:
		company, err := s.repo.GetCompanyByAccount(ctx, actor.ID)
		if err != nil {
			return nil, wrap(err, "failed to load company profile")
		}
		filter.CompanyID = &company.ID
	}

	apps, err = s.repo.ListApplications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// Get returns one application if the actor may see it.
func (s *ApplicationService) Get(ctx context.Context, actor models.Actor, applicationID uuid.UUID) (*models.Application, error) {
	if _, err := s.actorAccount(ctx, actor); err != nil {
		return nil, err
	}
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, wrap(err, "failed to get application")
	}
	if err := s.canView(ctx, actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

// canView hides applications the actor has no stake in behind ErrNotFound.
func (b *base) canView(ctx context.Context, actor models.Actor, app *models.Application) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := b.repo.GetStudent(ctx, app.StudentID)
		if err != nil {
			return wrap(err, "failed to get student")
		}
		if student.AccountID != actor.ID {
			return e.ErrNotFound
		}
		return nil
	default:
		drive, err := b.repo.GetDrive(ctx, app.DriveID)
		if err != nil {
			return wrap(err, "failed to get drive")
		}
		if err := b.ownsDrive(ctx, actor, drive); err != nil {
			return e.ErrNotFound
		}
		return nil
	}
}
