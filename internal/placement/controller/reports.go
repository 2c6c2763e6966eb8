package controller

import (
	"context"
	"fmt"
	"strings"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"go.uber.org/zap"
)

// ReportService serves read-only admin reporting and per-account
// notifications.
type ReportService struct {
	base
}

// NewReportService constructs a ReportService.
func NewReportService(repo Repository, logger *zap.Logger, opts ...Option) *ReportService {
	return &ReportService{base: newBase(repo, nil, logger, "report_service", opts)}
}

// Dashboard returns the global counters, through the stats cache when one
// is configured.
func (s *ReportService) Dashboard(ctx context.Context, actor models.Actor) (stats *models.DashboardStats, err error) {
	ctx, done := s.observe(ctx, "report.dashboard")
	defer done(&err)

	if _, err := s.authorize(ctx, actor, models.CapViewReports); err != nil {
		return nil, err
	}
	if s.cache != nil {
		return s.cache.Stats(ctx, s.repo.DashboardStats)
	}
	return s.repo.DashboardStats(ctx)
}

// Students lists every student profile with its account identity.
func (s *ReportService) Students(ctx context.Context, actor models.Actor) ([]models.StudentListing, error) {
	if _, err := s.authorize(ctx, actor, models.CapViewReports); err != nil {
		return nil, err
	}
	return s.repo.ListStudents(ctx)
}

// Companies lists every company profile.
func (s *ReportService) Companies(ctx context.Context, actor models.Actor) ([]models.CompanyProfile, error) {
	if _, err := s.authorize(ctx, actor, models.CapViewReports); err != nil {
		return nil, err
	}
	return s.repo.ListCompanies(ctx)
}

// Drives lists drives in any status, optionally narrowed by filter.
func (s *ReportService) Drives(ctx context.Context, actor models.Actor, filter models.DriveFilter) ([]models.Drive, error) {
	if _, err := s.authorize(ctx, actor, models.CapViewReports); err != nil {
		return nil, err
	}
	return s.repo.ListDrives(ctx, filter)
}

// Applications lists applications, optionally narrowed by filter.
func (s *ReportService) Applications(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.Application, error) {
	if _, err := s.authorize(ctx, actor, models.CapViewReports); err != nil {
		return nil, err
	}
	return s.repo.ListApplications(ctx, filter)
}

// Search finds accounts whose name contains query, case-insensitively.
func (s *ReportService) Search(ctx context.Context, actor models.Actor, query string) ([]models.Account, error) {
	if _, err := s.authorize(ctx, actor, models.CapViewReports); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", e.ErrInvalidInput)
	}
	return s.repo.SearchAccounts(ctx, query)
}

// Notifications lists the notifications addressed to the actor, newest
// first.
func (s *ReportService) Notifications(ctx context.Context, actor models.Actor) ([]models.Notification, error) {
	if _, err := s.actorAccount(ctx, actor); err != nil {
		return nil, err
	}
	return s.repo.ListNotifications(ctx, actor.ID)
}
