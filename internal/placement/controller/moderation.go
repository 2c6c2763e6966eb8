package controller

import (
	"context"
	"fmt"
	"strings"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ModerationService holds the admin moderation operations. Every operation
// checks the ADMIN role before touching storage.
type ModerationService struct {
	base
}

// NewModerationService constructs a ModerationService.
func NewModerationService(repo Repository, producer EventProducer, logger *zap.Logger, opts ...Option) *ModerationService {
	return &ModerationService{base: newBase(repo, producer, logger, "moderation_service", opts)}
}

// ApproveCompany moves a Pending company to Approved.
func (s *ModerationService) ApproveCompany(ctx context.Context, actor models.Actor, companyID uuid.UUID) (*models.CompanyProfile, error) {
	return s.moderateCompany(ctx, actor, companyID, models.ApprovalApproved)
}

// RejectCompany moves a Pending company to Rejected.
func (s *ModerationService) RejectCompany(ctx context.Context, actor models.Actor, companyID uuid.UUID) (*models.CompanyProfile, error) {
	return s.moderateCompany(ctx, actor, companyID, models.ApprovalRejected)
}

func (s *ModerationService) moderateCompany(ctx context.Context, actor models.Actor, companyID uuid.UUID, to models.ApprovalStatus) (company *models.CompanyProfile, err error) {
	ctx, done := s.observe(ctx, "moderation.company")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapModerate); err != nil {
		return nil, err
	}
	company, err = s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, wrap(err, "failed to get company")
	}
	if !company.ApprovalStatus.CanTransition(to) {
		return nil, fmt.Errorf("%w: company %s -> %s", e.ErrInvalidTransition, company.ApprovalStatus, to)
	}
	if err := s.repo.SetCompanyStatus(ctx, companyID, company.ApprovalStatus, to); err != nil {
		return nil, wrap(err, "failed to update company status")
	}
	company.ApprovalStatus = to

	action := "company_approved"
	if to == models.ApprovalRejected {
		action = "company_rejected"
	}
	s.emit(
		events.NewAudit(actor.ID, action, models.EntityCompany, companyID),
		events.NewNotification(company.AccountID, models.NotifyCompanyApproval,
			fmt.Sprintf("Your company %q was %s", company.CompanyName, strings.ToLower(string(to)))),
	)
	return company, nil
}

// BlacklistAccount disables an account. For a company account the company
// profile is blacklisted in the same atomic step. Blacklisting an already
// blacklisted account succeeds without emitting events.
func (s *ModerationService) BlacklistAccount(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.setBlacklisted(ctx, actor, accountID, true)
}

// ActivateAccount clears the blacklist flag of an account and, for a
// company account, of its company profile.
func (s *ModerationService) ActivateAccount(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error) {
	return s.setBlacklisted(ctx, actor, accountID, false)
}

func (s *ModerationService) setBlacklisted(ctx context.Context, actor models.Actor, accountID uuid.UUID, blacklisted bool) (account *models.Account, err error) {
	ctx, done := s.observe(ctx, "moderation.blacklist")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapModerate); err != nil {
		return nil, err
	}
	target, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, wrap(err, "failed to get account")
	}
	if target.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be blacklisted", e.ErrForbidden)
	}

	account, err = s.repo.SetBlacklisted(ctx, accountID, blacklisted)
	if err != nil {
		return nil, wrap(err, "failed to update account")
	}
	if target.Blacklisted == blacklisted {
		return account, nil
	}

	action := "account_blacklisted"
	if !blacklisted {
		action = "account_activated"
	}
	s.logger.Info("Account moderation",
		zap.String("account_id", accountID.String()),
		zap.String("action", action),
	)
	s.emit(events.NewAudit(actor.ID, action, models.EntityAccount, accountID))
	return account, nil
}

// ApproveDrive moves a Pending drive to Approved.
func (s *ModerationService) ApproveDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, error) {
	return s.moderateDrive(ctx, actor, driveID, models.ApprovalApproved)
}

// RejectDrive moves a Pending drive to Rejected.
func (s *ModerationService) RejectDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, error) {
	return s.moderateDrive(ctx, actor, driveID, models.ApprovalRejected)
}

func (s *ModerationService) moderateDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID, to models.ApprovalStatus) (drive *models.Drive, err error) {
	ctx, done := s.observe(ctx, "moderation.drive")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapModerate); err != nil {
		return nil, err
	}
	return s.setDriveStatus(ctx, actor, driveID, to)
}
