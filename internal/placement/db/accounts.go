package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rows "github.com/gartstein/placement/internal/placement/db/models"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateAccount stores an account together with its role profile. At most
// one of student and company may be set.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account, student *models.StudentProfile, company *models.CompanyProfile) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.db.Create(accountRow(account)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: email already registered", e.ErrInvalidInput)
			}
			return err
		}
		if student != nil {
			if err := tx.db.Create(studentRow(student)).Error; err != nil {
				return err
			}
		}
		if company != nil {
			if err := tx.db.Create(companyRow(company)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	row, err := first[rows.Account](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return accountModel(row), nil
}

func (r *Repository) CountAccountsByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&rows.Account{}).
		Where("role = ?", string(role)).
		Count(&count)
	return count, result.Error
}

// SearchAccounts matches accounts whose name contains query, case-insensitively.
func (r *Repository) SearchAccounts(ctx context.Context, query string) ([]models.Account, error) {
	var found []rows.Account
	pattern := "%" + strings.ToLower(query) + "%"
	result := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Order("name").
		Find(&found)
	if result.Error != nil {
		return nil, result.Error
	}
	accounts := make([]models.Account, 0, len(found))
	for i := range found {
		accounts = append(accounts, *accountModel(&found[i]))
	}
	return accounts, nil
}

// SetBlacklisted sets the blacklist flag on the account and, for company
// accounts, on the company profile in the same transaction.
func (r *Repository) SetBlacklisted(ctx context.Context, accountID uuid.UUID, blacklisted bool) (*models.Account, error) {
	var account *models.Account
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		row, err := first[rows.Account](ctx, tx.db, "id = ?", accountID)
		if err != nil {
			return err
		}
		if err := tx.db.Model(&rows.Account{}).
			Where("id = ?", accountID).
			Update("blacklisted", blacklisted).Error; err != nil {
			return err
		}
		if models.Role(row.Role) == models.RoleCompany {
			if err := tx.db.Model(&rows.CompanyProfile{}).
				Where("account_id = ?", accountID).
				Update("blacklisted", blacklisted).Error; err != nil {
				return err
			}
		}
		row.Blacklisted = blacklisted
		account = accountModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *Repository) GetStudent(ctx context.Context, id uuid.UUID) (*models.StudentProfile, error) {
	row, err := first[rows.StudentProfile](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return studentModel(row), nil
}

func (r *Repository) GetStudentByAccount(ctx context.Context, accountID uuid.UUID) (*models.StudentProfile, error) {
	row, err := first[rows.StudentProfile](ctx, r.db, "account_id = ?", accountID)
	if err != nil {
		return nil, err
	}
	return studentModel(row), nil
}

// studentListingRow is a student profile joined with its account.
type studentListingRow struct {
	rows.StudentProfile
	Name        string
	Email       string
	Blacklisted bool
}

// ListStudents returns every student profile with its account's name,
// email and blacklist flag, ordered by roll number.
func (r *Repository) ListStudents(ctx context.Context) ([]models.StudentListing, error) {
	var found []studentListingRow
	err := r.db.WithContext(ctx).
		Table("student_profiles").
		Select("student_profiles.*, accounts.name, accounts.email, accounts.blacklisted").
		Joins("JOIN accounts ON accounts.id = student_profiles.account_id").
		Order("student_profiles.roll_number").
		Scan(&found).Error
	if err != nil {
		return nil, err
	}
	students := make([]models.StudentListing, 0, len(found))
	for i := range found {
		students = append(students, models.StudentListing{
			StudentProfile: *studentModel(&found[i].StudentProfile),
			Name:           found[i].Name,
			Email:          found[i].Email,
			Blacklisted:    found[i].Blacklisted,
		})
	}
	return students, nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.CompanyProfile, error) {
	row, err := first[rows.CompanyProfile](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return companyModel(row), nil
}

func (r *Repository) GetCompanyByAccount(ctx context.Context, accountID uuid.UUID) (*models.CompanyProfile, error) {
	row, err := first[rows.CompanyProfile](ctx, r.db, "account_id = ?", accountID)
	if err != nil {
		return nil, err
	}
	return companyModel(row), nil
}

func (r *Repository) ListCompanies(ctx context.Context) ([]models.CompanyProfile, error) {
	var found []rows.CompanyProfile
	if err := r.db.WithContext(ctx).Order("created_at").Find(&found).Error; err != nil {
		return nil, err
	}
	companies := make([]models.CompanyProfile, 0, len(found))
	for i := range found {
		companies = append(companies, *companyModel(&found[i]))
	}
	return companies, nil
}

// SetCompanyStatus moves a company from one approval status to another only
// if it is still in from.
func (r *Repository) SetCompanyStatus(ctx context.Context, id uuid.UUID, from, to models.ApprovalStatus) error {
	result := r.db.WithContext(ctx).Model(&rows.CompanyProfile{}).
		Where("id = ? AND approval_status = ?", id, string(from)).
		Update("approval_status", string(to))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetCompany(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: company is no longer %s", e.ErrInvalidTransition, from)
	}
	return nil
}
