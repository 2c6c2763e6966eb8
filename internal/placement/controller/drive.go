package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxCGPA              = 10.0
)

// DriveService manages the drive lifecycle: creation by approved
// companies, eligibility criteria and admin approval.
type DriveService struct {
	base
}

// NewDriveService constructs a DriveService.
func NewDriveService(repo Repository, producer EventProducer, logger *zap.Logger, opts ...Option) *DriveService {
	return &DriveService{base: newBase(repo, producer, logger, "drive_service", opts)}
}

// CreateDrive creates a Pending drive owned by the acting company. The
// company must be Approved and not blacklisted.
func (s *DriveService) CreateDrive(ctx context.Context, actor models.Actor, fields models.DriveFields) (drive *models.Drive, err error) {
	ctx, done := s.observe(ctx, "drive.create")
	defer done(&err)

	if actor.Role != models.RoleCompany {
		return nil, fmt.Errorf("%w: only companies create drives", e.ErrForbidden)
	}
	if _, err := s.authorize(ctx, actor, models.CapManageDrives); err != nil {
		if errors.Is(err, e.ErrAccountBlocked) {
			return nil, fmt.Errorf("%w: company is blacklisted", e.ErrForbidden)
		}
		return nil, err
	}
	if err := validateDriveFields(&fields); err != nil {
		return nil, err
	}

	company, err := s.repo.GetCompanyByAccount(ctx, actor.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: no company profile", e.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to load company profile: %w", err)
	}
	if !company.CanPostDrives() {
		return nil, fmt.Errorf("%w: company is %s", e.ErrForbidden, company.ApprovalStatus)
	}

	drive = &models.Drive{
		ID:                  uuid.New(),
		CompanyID:           company.ID,
		Title:               fields.Title,
		Description:         fields.Description,
		Salary:              fields.Salary,
		Location:            fields.Location,
		DriveDate:           fields.DriveDate,
		ApplicationDeadline: fields.ApplicationDeadline,
		Status:              models.ApprovalPending,
		CreatedAt:           s.now(),
	}
	if err := s.repo.CreateDrive(ctx, drive); err != nil {
		return nil, fmt.Errorf("failed to create drive: %w", err)
	}

	s.emit(events.NewAudit(actor.ID, "drive_created", models.EntityDrive, drive.ID))
	s.invalidateStats(ctx)
	return drive, nil
}

func validateDriveFields(f *models.DriveFields) error {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" || len(f.Title) > maxTitleLength {
		return fmt.Errorf("%w: invalid title", e.ErrInvalidInput)
	}
	if len(f.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description too long", e.ErrInvalidInput)
	}
	if f.Salary < 0 {
		return fmt.Errorf("%w: salary must not be negative", e.ErrInvalidInput)
	}
	if !f.DriveDate.IsZero() && !f.ApplicationDeadline.IsZero() && f.ApplicationDeadline.After(f.DriveDate) {
		return fmt.Errorf("%w: application deadline after drive date", e.ErrInvalidInput)
	}
	return nil
}

// SetEligibility replaces the drive's eligibility criteria. Criteria may
// change while the drive is Pending or Approved; applications already
// submitted are not re-evaluated.
func (s *DriveService) SetEligibility(ctx context.Context, actor models.Actor, driveID uuid.UUID, criteria models.Eligibility) (err error) {
	ctx, done := s.observe(ctx, "drive.set_eligibility")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapManageDrives); err != nil {
		return err
	}
	drive, err := s.repo.GetDrive(ctx, driveID)
	if err != nil {
		return wrap(err, "failed to get drive")
	}
	if err := s.ownsDrive(ctx, actor, drive); err != nil {
		return err
	}
	if err := normalizeCriteria(&criteria); err != nil {
		return err
	}
	criteria.DriveID = driveID

	err = s.repo.SaveEligibility(ctx, &criteria, func(current *models.Drive) error {
		if current.Status == models.ApprovalRejected {
			return fmt.Errorf("%w: drive is Rejected", e.ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return wrap(err, "failed to save eligibility")
	}

	s.emit(events.NewAudit(actor.ID, "eligibility_set", models.EntityEligibility, driveID))
	return nil
}

// normalizeCriteria trims and deduplicates branches and range-checks the
// numeric criteria.
func normalizeCriteria(c *models.Eligibility) error {
	branches := make([]string, 0, len(c.AllowedBranches))
	seen := make(map[string]bool, len(c.AllowedBranches))
	for _, b := range c.AllowedBranches {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		branches = append(branches, b)
	}
	c.AllowedBranches = branches

	if c.MinCGPA != nil && (*c.MinCGPA < 0 || *c.MinCGPA > maxCGPA) {
		return fmt.Errorf("%w: min_cgpa out of range", e.ErrInvalidInput)
	}
	if c.PassingYear != nil && *c.PassingYear <= 0 {
		return fmt.Errorf("%w: passing_year must be positive", e.ErrInvalidInput)
	}
	return nil
}

// Approve moves a Pending drive to Approved. ADMIN only.
func (s *DriveService) Approve(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, error) {
	return s.moderate(ctx, actor, driveID, models.ApprovalApproved)
}

// Reject moves a Pending drive to Rejected. ADMIN only.
func (s *DriveService) Reject(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, error) {
	return s.moderate(ctx, actor, driveID, models.ApprovalRejected)
}

func (s *DriveService) moderate(ctx context.Context, actor models.Actor, driveID uuid.UUID, to models.ApprovalStatus) (drive *models.Drive, err error) {
	ctx, done := s.observe(ctx, "drive.moderate")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapModerate); err != nil {
		return nil, err
	}
	return s.setDriveStatus(ctx, actor, driveID, to)
}

// setDriveStatus performs the approval transition for an already authorized
// admin and notifies the owning company.
func (b *base) setDriveStatus(ctx context.Context, actor models.Actor, driveID uuid.UUID, to models.ApprovalStatus) (*models.Drive, error) {
	drive, err := b.repo.GetDrive(ctx, driveID)
	if err != nil {
		return nil, wrap(err, "failed to get drive")
	}
	if !drive.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: drive %s -> %s", e.ErrInvalidTransition, drive.Status, to)
	}
	if err := b.repo.SetDriveStatus(ctx, driveID, drive.Status, to); err != nil {
		return nil, wrap(err, "failed to update drive status")
	}
	drive.Status = to

	action := "drive_approved"
	if to == models.ApprovalRejected {
		action = "drive_rejected"
	}
	b.emit(events.NewAudit(actor.ID, action, models.EntityDrive, driveID))

	company, err := b.repo.GetCompany(ctx, drive.CompanyID)
	if err != nil {
		b.logger.Error("Failed to get company for notification",
			zap.Error(err),
			zap.String("drive_id", driveID.String()),
		)
		return drive, nil
	}
	b.emit(events.NewNotification(company.AccountID, models.NotifyDriveApproval,
		fmt.Sprintf("Your drive %q was %s", drive.Title, strings.ToLower(string(to)))))
	return drive, nil
}

// ListVisible lists the drives the actor may see. Students only ever see
// Approved drives; companies see their own drives in any status; admins see
// everything. status optionally narrows the result.
func (s *DriveService) ListVisible(ctx context.Context, actor models.Actor, status *models.ApprovalStatus) (drives []models.Drive, err error) {
	ctx, done := s.observe(ctx, "drive.list")
	defer done(&err)

	if _, err := s.actorAccount(ctx, actor); err != nil {
		return nil, err
	}
	filter := models.DriveFilter{Status: status}
	switch actor.Role {
	case models.RoleStudent:
		if status != nil && *status != models.ApprovalApproved {
			return []models.Drive{}, nil
		}
		approved := models.ApprovalApproved
		filter.Status = &approved
	case models.RoleCompany:
		company, err := s.repo.GetCompanyByAccount(ctx, actor.ID)
		if err != nil {
			return nil, wrap(err, "failed to load company profile")
		}
		filter.CompanyID = &company.ID
	}

	drives, err = s.repo.ListDrives(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list drives: %w", err)
	}
	return drives, nil
}

// GetDrive returns a drive and its eligibility criteria. A drive the actor
// may not see is reported as not found.
func (s *DriveService) GetDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, *models.Eligibility, error) {
	if _, err := s.actorAccount(ctx, actor); err != nil {
		return nil, nil, err
	}
	drive, err := s.repo.GetDrive(ctx, driveID)
	if err != nil {
		return nil, nil, wrap(err, "failed to get drive")
	}
	switch actor.Role {
	case models.RoleStudent:
		if !drive.VisibleToStudents() {
			return nil, nil, e.ErrNotFound
		}
	case models.RoleCompany:
		if err := s.ownsDrive(ctx, actor, drive); err != nil && !drive.VisibleToStudents() {
			return nil, nil, e.ErrNotFound
		}
	}

	criteria, err := s.repo.GetEligibility(ctx, driveID)
	if err != nil {
		if !isNotFound(err) {
			return nil, nil, fmt.Errorf("failed to get eligibility: %w", err)
		}
		criteria = &models.Eligibility{DriveID: driveID}
	}
	return drive, criteria, nil
}
