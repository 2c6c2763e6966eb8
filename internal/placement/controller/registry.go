package controller

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNameLength = 100

// RegistryService is the identity registry: self-registration of students
// and companies and the admin bootstrap.
type RegistryService struct {
	base
}

// NewRegistryService constructs a RegistryService.
func NewRegistryService(repo Repository, producer EventProducer, logger *zap.Logger, opts ...Option) *RegistryService {
	return &RegistryService{base: newBase(repo, producer, logger, "registry_service", opts)}
}

// Register creates an account with its role profile. Students start
// NotPlaced; companies start Pending. ADMIN accounts cannot self-register.
func (s *RegistryService) Register(ctx context.Context, reg models.Registration) (account *models.Account, err error) {
	ctx, done := s.observe(ctx, "registry.register")
	defer done(&err)

	if err := validateRegistration(&reg); err != nil {
		return nil, err
	}

	now := s.now()
	account = &models.Account{
		ID:        uuid.New(),
		Name:      reg.Name,
		Email:     reg.Email,
		Role:      reg.Role,
		Active:    true,
		CreatedAt: now,
	}

	var student *models.StudentProfile
	var company *models.CompanyProfile
	switch reg.Role {
	case models.RoleStudent:
		student = &models.StudentProfile{
			ID:              uuid.New(),
			AccountID:       account.ID,
			RollNumber:      reg.RollNumber,
			Branch:          reg.Branch,
			Year:            reg.Year,
			CGPA:            reg.CGPA,
			PlacementStatus: models.NotPlaced,
		}
	case models.RoleCompany:
		company = &models.CompanyProfile{
			ID:             uuid.New(),
			AccountID:      account.ID,
			CompanyName:    reg.CompanyName,
			Website:        reg.Website,
			Description:    reg.Description,
			ApprovalStatus: models.ApprovalPending,
			CreatedAt:      now,
		}
	}

	if err := s.repo.CreateAccount(ctx, account, student, company); err != nil {
		return nil, wrap(err, "failed to create account")
	}

	s.logger.Info("Account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", string(account.Role)),
	)
	s.emit(events.NewAudit(account.ID, "account_registered", models.EntityAccount, account.ID))
	s.invalidateStats(ctx)
	return account, nil
}

func validateRegistration(reg *models.Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	if reg.Name == "" || len(reg.Name) > maxNameLength {
		return fmt.Errorf("%w: invalid name", e.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return fmt.Errorf("%w: invalid email", e.ErrInvalidInput)
	}

	switch reg.Role {
	case models.RoleStudent:
		reg.RollNumber = strings.TrimSpace(reg.RollNumber)
		reg.Branch = strings.TrimSpace(reg.Branch)
		if reg.RollNumber == "" || reg.Branch == "" {
			return fmt.Errorf("%w: roll number and branch required", e.ErrInvalidInput)
		}
		if reg.Year <= 0 {
			return fmt.Errorf("%w: invalid passing year", e.ErrInvalidInput)
		}
		if reg.CGPA < 0 || reg.CGPA > maxCGPA {
			return fmt.Errorf("%w: cgpa out of range", e.ErrInvalidInput)
		}
	case models.RoleCompany:
		reg.CompanyName = strings.TrimSpace(reg.CompanyName)
		if reg.CompanyName == "" || len(reg.CompanyName) > maxTitleLength {
			return fmt.Errorf("%w: invalid company name", e.ErrInvalidInput)
		}
		if len(reg.Description) > maxDescriptionLength {
			return fmt.Errorf("%w: description too long", e.ErrInvalidInput)
		}
	case models.RoleAdmin:
		return fmt.Errorf("%w: admin accounts cannot self-register", e.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", e.ErrInvalidInput, reg.Role)
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account when no admin exists and
// returns nil otherwise.
func (s *RegistryService) EnsureAdmin(ctx context.Context, name, email string) (*models.Account, error) {
	count, err := s.repo.CountAccountsByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	account := &models.Account{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: s.now(),
	}
	if account.Name == "" || account.Email == "" {
		return nil, fmt.Errorf("%w: admin name and email required", e.ErrInvalidInput)
	}
	if err := s.repo.CreateAccount(ctx, account, nil, nil); err != nil {
		return nil, wrap(err, "failed to create admin")
	}
	s.logger.Info("Bootstrap admin created", zap.String("account_id", account.ID.String()))
	return account, nil
}

// Account returns an account by ID.
func (s *RegistryService) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, wrap(err, "failed to get account")
	}
	return account, nil
}
