package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxResultLength = 200

// InterviewService schedules interviews for shortlisted or selected
// applications and records their results.
type InterviewService struct {
	base
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(repo Repository, producer EventProducer, logger *zap.Logger, opts ...Option) *InterviewService {
	return &InterviewService{base: newBase(repo, producer, logger, "interview_service", opts)}
}

// Schedule creates an interview for the application. The application must
// be Shortlisted or Selected when the interview is stored.
func (s *InterviewService) Schedule(ctx context.Context, actor models.Actor, applicationID uuid.UUID, at time.Time, mode models.InterviewMode) (iv *models.Interview, err error) {
	ctx, done := s.observe(ctx, "interview.schedule")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapManageInterviews); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown interview mode %q", e.ErrInvalidInput, mode)
	}
	if at.IsZero() {
		return nil, fmt.Errorf("%w: interview date required", e.ErrInvalidInput)
	}
	if err := s.ownsApplication(ctx, actor, applicationID); err != nil {
		return nil, err
	}

	iv = &models.Interview{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		InterviewDate: at.UTC(),
		Mode:          mode,
		CreatedAt:     s.now(),
	}
	err = s.repo.CreateInterview(ctx, iv, func(app *models.Application) error {
		if !app.Status.Interviewable() {
			return fmt.Errorf("%w: application is %s", e.ErrInvalidState, app.Status)
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "failed to create interview")
	}

	s.emit(events.NewAudit(actor.ID, "interview_scheduled", models.EntityInterview, iv.ID))
	return iv, nil
}

// RecordResult stores the outcome of an interview.
func (s *InterviewService) RecordResult(ctx context.Context, actor models.Actor, interviewID uuid.UUID, result, notes string) (iv *models.Interview, err error) {
	ctx, done := s.observe(ctx, "interview.record_result")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapManageInterviews); err != nil {
		return nil, err
	}
	result = strings.TrimSpace(result)
	if result == "" || len(result) > maxResultLength {
		return nil, fmt.Errorf("%w: invalid result", e.ErrInvalidInput)
	}
	if len(notes) > maxRemarksLength {
		return nil, fmt.Errorf("%w: notes too long", e.ErrInvalidInput)
	}

	current, err := s.repo.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, wrap(err, "failed to get interview")
	}
	if err := s.ownsApplication(ctx, actor, current.ApplicationID); err != nil {
		return nil, err
	}

	iv, err = s.repo.UpdateInterviewResult(ctx, interviewID, result, notes)
	if err != nil {
		return nil, wrap(err, "failed to record interview result")
	}

	s.emit(events.NewAudit(actor.ID, "interview_result_recorded", models.EntityInterview, interviewID))
	return iv, nil
}

// List returns the interviews of an application the actor may see.
func (s *InterviewService) List(ctx context.Context, actor models.Actor, applicationID uuid.UUID) ([]models.Interview, error) {
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
	interviews, err := s.repo.ListInterviews(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	return interviews, nil
}

func (s *InterviewService) ownsApplication(ctx context.Context, actor models.Actor, applicationID uuid.UUID) error {
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return wrap(err, "failed to get application")
	}
	drive, err := s.repo.GetDrive(ctx, app.DriveID)
	if err != nil {
		return wrap(err, "failed to get drive")
	}
	return s.ownsDrive(ctx, actor, drive)
}
