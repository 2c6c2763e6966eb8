package db

import (
	"context"
	"errors"
	"time"

	rows "github.com/gartstein/placement/internal/placement/db/models"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateApplication inserts a new application. The unique index on
// (student_id, drive_id) rejects a second application for the same pair,
// including concurrent ones, with ErrDuplicateApplication.
func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) error {
	result := r.db.WithContext(ctx).Create(applicationRow(app))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateApplication
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	row, err := first[rows.Application](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return applicationModel(row), nil
}

func (r *Repository) ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Model(&rows.Application{})
	if filter.StudentID != nil {
		query = query.Where("applications.student_id = ?", *filter.StudentID)
	}
	if filter.DriveID != nil {
		query = query.Where("applications.drive_id = ?", *filter.DriveID)
	}
	if filter.Status != nil {
		query = query.Where("applications.status = ?", string(*filter.Status))
	}
	if filter.CompanyID != nil {
		query = query.
			Joins("JOIN placement_drives ON placement_drives.id = applications.drive_id").
			Where("placement_drives.company_id = ?", *filter.CompanyID)
	}

	var found []rows.Application
	if err := query.Order("applications.applied_at").Find(&found).Error; err != nil {
		return nil, err
	}
	apps := make([]models.Application, 0, len(found))
	for i := range found {
		apps = append(apps, *applicationModel(&found[i]))
	}
	return apps, nil
}

// ChangeApplicationStatus applies change as a compare-and-set on the current
// status. When change.MarkPlaced is set the owning student is marked Placed
// in the same transaction; an already placed student is left untouched.
func (r *Repository) ChangeApplicationStatus(ctx context.Context, change models.StatusChange) (*models.Application, error) {
	var updated *models.Application
	err := r.WithTransaction(ctx, func(tx *Repository) error {
		err := casStatus(ctx, tx.db, &rows.Application{}, change.ApplicationID,
			string(change.From), string(change.To),
			map[string]interface{}{
				"remarks":    change.Remarks,
				"updated_at": time.Now().UTC(),
			})
		if err != nil {
			return err
		}

		row, err := first[rows.Application](ctx, tx.db, "id = ?", change.ApplicationID)
		if err != nil {
			return err
		}

		if change.MarkPlaced {
			if err := tx.db.Model(&rows.StudentProfile{}).
				Where("id = ? AND placement_status <> ?", row.StudentID, string(models.Placed)).
				Update("placement_status", string(models.Placed)).Error; err != nil {
				return err
			}
		}

		updated = applicationModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CreateInterview stores an interview. guard runs inside the transaction
// against the current application and aborts the insert when it returns an
// error.
func (r *Repository) CreateInterview(ctx context.Context, iv *models.Interview, guard func(*models.Application) error) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		app, err := first[rows.Application](ctx, tx.db, "id = ?", iv.ApplicationID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(applicationModel(app)); err != nil {
				return err
			}
		}
		return tx.db.Create(interviewRow(iv)).Error
	})
}

func (r *Repository) GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	row, err := first[rows.Interview](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return interviewModel(row), nil
}

func (r *Repository) ListInterviews(ctx context.Context, applicationID uuid.UUID) ([]models.Interview, error) {
	var found []rows.Interview
	result := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("interview_date").
		Find(&found)
	if result.Error != nil {
		return nil, result.Error
	}
	interviews := make([]models.Interview, 0, len(found))
	for i := range found {
		interviews = append(interviews, *interviewModel(&found[i]))
	}
	return interviews, nil
}

func (r *Repository) UpdateInterviewResult(ctx context.Context, id uuid.UUID, result, notes string) (*models.Interview, error) {
	res := r.db.WithContext(ctx).Model(&rows.Interview{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"result": result, "notes": notes})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, e.ErrNotFound
	}
	return r.GetInterview(ctx, id)
}
