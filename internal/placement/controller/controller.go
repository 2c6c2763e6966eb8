// Package controller implements the placement engine (service layer):
// drive and application lifecycles, interview tracking, moderation and the
// identity registry, orchestrating repository operations and emitting audit
// and notification events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/gartstein/placement/internal/placement/controller"

type EventProducer interface {
	Produce(event events.Event)
}

// AccountStore is the identity registry and profile store.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account, student *models.StudentProfile, company *models.CompanyProfile) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	CountAccountsByRole(ctx context.Context, role models.Role) (int64, error)
	SearchAccounts(ctx context.Context, query string) ([]models.Account, error)
	SetBlacklisted(ctx context.Context, accountID uuid.UUID, blacklisted bool) (*models.Account, error)
	GetStudent(ctx context.Context, id uuid.UUID) (*models.StudentProfile, error)
	GetStudentByAccount(ctx context.Context, accountID uuid.UUID) (*models.StudentProfile, error)
	ListStudents(ctx context.Context) ([]models.StudentListing, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*models.CompanyProfile, error)
	GetCompanyByAccount(ctx context.Context, accountID uuid.UUID) (*models.CompanyProfile, error)
	ListCompanies(ctx context.Context) ([]models.CompanyProfile, error)
	SetCompanyStatus(ctx context.Context, id uuid.UUID, from, to models.ApprovalStatus) error
}

// DriveStore persists drives and their eligibility criteria.
type DriveStore interface {
	CreateDrive(ctx context.Context, drive *models.Drive) error
	GetDrive(ctx context.Context, id uuid.UUID) (*models.Drive, error)
	ListDrives(ctx context.Context, filter models.DriveFilter) ([]models.Drive, error)
	SetDriveStatus(ctx context.Context, id uuid.UUID, from, to models.ApprovalStatus) error
	GetEligibility(ctx context.Context, driveID uuid.UUID) (*models.Eligibility, error)
	SaveEligibility(ctx context.Context, elig *models.Eligibility, guard func(*models.Drive) error) error
}

// ApplicationStore persists applications and interviews. CreateApplication
// must enforce (student, drive) uniqueness atomically.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	ChangeApplicationStatus(ctx context.Context, change models.StatusChange) (*models.Application, error)
	CreateInterview(ctx context.Context, iv *models.Interview, guard func(*models.Application) error) error
	GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	ListInterviews(ctx context.Context, applicationID uuid.UUID) ([]models.Interview, error)
	UpdateInterviewResult(ctx context.Context, id uuid.UUID, result, notes string) (*models.Interview, error)
}

// ReportStore serves admin reporting and stored notifications.
type ReportStore interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
}

// Repository defines the storage interface of the engine.
type Repository interface {
	AccountStore
	DriveStore
	ApplicationStore
	ReportStore
}

// Recorder observes engine operations (duration and outcome).
type Recorder interface {
	ObserveOperation(op string, duration time.Duration, err error)
}

// StatsCache caches the admin dashboard counters.
type StatsCache interface {
	Stats(ctx context.Context, load func(context.Context) (*models.DashboardStats, error)) (*models.DashboardStats, error)
	Invalidate(ctx context.Context)
}

// Option configures the optional collaborators of a service.
type Option func(*base)

// WithRecorder reports every operation to rec.
func WithRecorder(rec Recorder) Option {
	return func(b *base) { b.recorder = rec }
}

// WithStatsCache routes dashboard reads through cache and invalidates it
// on mutations that change the counters.
func WithStatsCache(cache StatsCache) Option {
	return func(b *base) { b.cache = cache }
}

// WithTracerProvider sends operation spans to tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *base) { b.tracer = tp.Tracer(tracerName) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base carries the collaborators shared by every service.
type base struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	recorder Recorder
	cache    StatsCache
	tracer   trace.Tracer
	now      func() time.Time
}

func newBase(repo Repository, producer EventProducer, logger *zap.Logger, name string, opts []Option) base {
	b := base{
		repo:     repo,
		producer: producer,
		logger:   logger.Named(name),
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// observe starts a span for op and returns a function that ends it,
// records the outcome and reports it to the recorder.
func (b *base) observe(ctx context.Context, op string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := b.tracer.Start(ctx, op)
	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, e.Kind(err))
		}
		span.End()
		if b.recorder != nil {
			b.recorder.ObserveOperation(op, time.Since(start), err)
		}
	}
}

func (b *base) emit(evts ...events.Event) {
	for _, ev := range evts {
		b.producer.Produce(ev)
	}
}

func (b *base) invalidateStats(ctx context.Context) {
	if b.cache != nil {
		b.cache.Invalidate(ctx)
	}
}

// authorize checks that the actor's role carries capability and that the
// actor's own account may act. The role check happens before any read.
func (b *base) authorize(ctx context.Context, actor models.Actor, capability models.Capability) (*models.Account, error) {
	if !actor.Role.Can(capability) {
		return nil, fmt.Errorf("%w: role %s cannot %s", e.ErrForbidden, actor.Role, capability)
	}
	return b.actorAccount(ctx, actor)
}

// actorAccount loads the acting account and rejects disabled ones.
func (b *base) actorAccount(ctx context.Context, actor models.Actor) (*models.Account, error) {
	account, err := b.repo.GetAccount(ctx, actor.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: unknown actor", e.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to load actor account: %w", err)
	}
	if account.Role != actor.Role {
		return nil, fmt.Errorf("%w: role mismatch", e.ErrForbidden)
	}
	if account.Blocked() {
		return nil, e.ErrAccountBlocked
	}
	return account, nil
}

// ownsDrive reports whether the actor may manage the drive: admins always,
// companies only for their own drives.
func (b *base) ownsDrive(ctx context.Context, actor models.Actor, drive *models.Drive) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCompany:
		company, err := b.repo.GetCompanyByAccount(ctx, actor.ID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: no company profile", e.ErrForbidden)
			}
			return fmt.Errorf("failed to load company profile: %w", err)
		}
		if company.ID != drive.CompanyID {
			return fmt.Errorf("%w: drive belongs to another company", e.ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("%w: role %s cannot manage drives", e.ErrForbidden, actor.Role)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, e.ErrNotFound)
}

// wrap keeps engine sentinels intact and annotates infrastructure failures.
func wrap(err error, msg string) error {
	if e.Kind(err) != "internal" {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
