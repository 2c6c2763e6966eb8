package db

import (
	"time"

	rows "github.com/gartstein/placement/internal/placement/db/models"
	"github.com/gartstein/placement/internal/placement/models"
	"gorm.io/datatypes"
)

func accountRow(a *models.Account) *rows.Account {
	return &rows.Account{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        string(a.Role),
		Active:      a.Active,
		Blacklisted: a.Blacklisted,
		CreatedAt:   a.CreatedAt,
	}
}

func accountModel(r *rows.Account) *models.Account {
	return &models.Account{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Role:        models.Role(r.Role),
		Active:      r.Active,
		Blacklisted: r.Blacklisted,
		CreatedAt:   r.CreatedAt,
	}
}

func studentRow(s *models.StudentProfile) *rows.StudentProfile {
	return &rows.StudentProfile{
		ID:              s.ID,
		AccountID:       s.AccountID,
		RollNumber:      s.RollNumber,
		Branch:          s.Branch,
		Year:            s.Year,
		CGPA:            s.CGPA,
		PlacementStatus: string(s.PlacementStatus),
	}
}

func studentModel(r *rows.StudentProfile) *models.StudentProfile {
	return &models.StudentProfile{
		ID:              r.ID,
		AccountID:       r.AccountID,
		RollNumber:      r.RollNumber,
		Branch:          r.Branch,
		Year:            r.Year,
		CGPA:            r.CGPA,
		PlacementStatus: models.PlacementStatus(r.PlacementStatus),
	}
}

func companyRow(c *models.CompanyProfile) *rows.CompanyProfile {
	return &rows.CompanyProfile{
		ID:             c.ID,
		AccountID:      c.AccountID,
		CompanyName:    c.CompanyName,
		Website:        c.Website,
		Description:    c.Description,
		ApprovalStatus: string(c.ApprovalStatus),
		Blacklisted:    c.Blacklisted,
		CreatedAt:      c.CreatedAt,
	}
}

func companyModel(r *rows.CompanyProfile) *models.CompanyProfile {
	return &models.CompanyProfile{
		ID:             r.ID,
		AccountID:      r.AccountID,
		CompanyName:    r.CompanyName,
		Website:        r.Website,
		Description:    r.Description,
		ApprovalStatus: models.ApprovalStatus(r.ApprovalStatus),
		Blacklisted:    r.Blacklisted,
		CreatedAt:      r.CreatedAt,
	}
}

func driveRow(d *models.Drive) *rows.PlacementDrive {
	return &rows.PlacementDrive{
		ID:                  d.ID,
		CompanyID:           d.CompanyID,
		Title:               d.Title,
		Description:         d.Description,
		Salary:              d.Salary,
		Location:            d.Location,
		DriveDate:           datatypes.Date(d.DriveDate),
		ApplicationDeadline: datatypes.Date(d.ApplicationDeadline),
		Status:              string(d.Status),
		CreatedAt:           d.CreatedAt,
	}
}

func driveModel(r *rows.PlacementDrive) *models.Drive {
	return &models.Drive{
		ID:                  r.ID,
		CompanyID:           r.CompanyID,
		Title:               r.Title,
		Description:         r.Description,
		Salary:              r.Salary,
		Location:            r.Location,
		DriveDate:           dateOf(r.DriveDate),
		ApplicationDeadline: dateOf(r.ApplicationDeadline),
		Status:              models.ApprovalStatus(r.Status),
		CreatedAt:           r.CreatedAt,
	}
}

// dateOf normalizes a stored date back to a UTC midnight, keeping the zero
// value zero.
func dateOf(d datatypes.Date) time.Time {
	t := time.Time(d)
	if t.IsZero() || t.Year() <= 1 {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func eligibilityRow(el *models.Eligibility) *rows.DriveEligibility {
	return &rows.DriveEligibility{
		DriveID:         el.DriveID,
		AllowedBranches: rows.Branches(el.AllowedBranches),
		MinCGPA:         el.MinCGPA,
		PassingYear:     el.PassingYear,
	}
}

func eligibilityModel(r *rows.DriveEligibility) *models.Eligibility {
	return &models.Eligibility{
		DriveID:         r.DriveID,
		AllowedBranches: []string(r.AllowedBranches),
		MinCGPA:         r.MinCGPA,
		PassingYear:     r.PassingYear,
	}
}

func applicationRow(a *models.Application) *rows.Application {
	return &rows.Application{
		ID:        a.ID,
		StudentID: a.StudentID,
		DriveID:   a.DriveID,
		AppliedAt: a.AppliedAt,
		Status:    string(a.Status),
		Remarks:   a.Remarks,
		UpdatedAt: a.UpdatedAt,
	}
}

func applicationModel(r *rows.Application) *models.Application {
	return &models.Application{
		ID:        r.ID,
		StudentID: r.StudentID,
		DriveID:   r.DriveID,
		AppliedAt: r.AppliedAt,
		Status:    models.ApplicationStatus(r.Status),
		Remarks:   r.Remarks,
		UpdatedAt: r.UpdatedAt,
	}
}

func interviewRow(iv *models.Interview) *rows.Interview {
	return &rows.Interview{
		ID:            iv.ID,
		ApplicationID: iv.ApplicationID,
		InterviewDate: iv.InterviewDate,
		Mode:          string(iv.Mode),
		Result:        iv.Result,
		Notes:         iv.Notes,
		CreatedAt:     iv.CreatedAt,
	}
}

func interviewModel(r *rows.Interview) *models.Interview {
	return &models.Interview{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		InterviewDate: r.InterviewDate,
		Mode:          models.InterviewMode(r.Mode),
		Result:        r.Result,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
}
