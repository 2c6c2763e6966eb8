package db

import (
	"context"
	"errors"

	rows "github.com/gartstein/placement/internal/placement/db/models"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateDrive(ctx context.Context, drive *models.Drive) error {
	return r.db.WithContext(ctx).Create(driveRow(drive)).Error
}

func (r *Repository) GetDrive(ctx context.Context, id uuid.UUID) (*models.Drive, error) {
	row, err := first[rows.PlacementDrive](ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}
	return driveModel(row), nil
}

func (r *Repository) ListDrives(ctx context.Context, filter models.DriveFilter) ([]models.Drive, error) {
	query := r.db.WithContext(ctx).Model(&rows.PlacementDrive{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}

	var found []rows.PlacementDrive
	if err := query.Order("created_at").Find(&found).Error; err != nil {
		return nil, err
	}
	drives := make([]models.Drive, 0, len(found))
	for i := range found {
		drives = append(drives, *driveModel(&found[i]))
	}
	return drives, nil
}

// SetDriveStatus moves a drive from one status to another only if it is
// still in from.
func (r *Repository) SetDriveStatus(ctx context.Context, id uuid.UUID, from, to models.ApprovalStatus) error {
	return casStatus(ctx, r.db, &rows.PlacementDrive{}, id, string(from), string(to), nil)
}

// GetEligibility returns the drive criteria or ErrNotFound when the drive
// has none.
func (r *Repository) GetEligibility(ctx context.Context, driveID uuid.UUID) (*models.Eligibility, error) {
	row, err := first[rows.DriveEligibility](ctx, r.db, "drive_id = ?", driveID)
	if err != nil {
		return nil, err
	}
	return eligibilityModel(row), nil
}

// SaveEligibility attaches or replaces the criteria of a drive. guard runs
// inside the transaction against the current drive and aborts the write
// when it returns an error.
func (r *Repository) SaveEligibility(ctx context.Context, elig *models.Eligibility, guard func(*models.Drive) error) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		drive, err := first[rows.PlacementDrive](ctx, tx.db, "id = ?", elig.DriveID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(driveModel(drive)); err != nil {
				return err
			}
		}

		row := eligibilityRow(elig)
		existing, err := first[rows.DriveEligibility](ctx, tx.db, "drive_id = ?", elig.DriveID)
		switch {
		case err == nil:
			row.ID = existing.ID
		case errors.Is(err, e.ErrNotFound):
			row.ID = uuid.New()
		default:
			return err
		}

		return tx.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "drive_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"allowed_branches", "min_cgpa", "passing_year"}),
		}).Create(row).Error
	})
}
