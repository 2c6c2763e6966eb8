package handlers

import (
	"time"

	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Requests.

type registerRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Email       string  `json:"email" validate:"required,email"`
	Role        string  `json:"role" validate:"required,oneof=STUDENT COMPANY ADMIN"`
	RollNumber  string  `json:"roll_number" validate:"required_if=Role STUDENT"`
	Branch      string  `json:"branch" validate:"required_if=Role STUDENT"`
	Year        int     `json:"year" validate:"required_if=Role STUDENT,omitempty,gte=1900,lte=2100"`
	CGPA        float64 `json:"cgpa" validate:"gte=0,lte=10"`
	CompanyName string  `json:"company_name" validate:"required_if=Role COMPANY,max=200"`
	Website     string  `json:"website" validate:"omitempty,url"`
	Description string  `json:"description" validate:"max=5000"`
}

type createDriveRequest struct {
	Title               string `json:"title" validate:"required,max=200"`
	Description         string `json:"description" validate:"max=5000"`
	Salary              int    `json:"salary" validate:"gte=0"`
	Location            string `json:"location" validate:"max=200"`
	DriveDate           string `json:"drive_date" validate:"omitempty,datetime=2006-01-02"`
	ApplicationDeadline string `json:"application_deadline" validate:"omitempty,datetime=2006-01-02"`
}

type eligibilityRequest struct {
	AllowedBranches []string `json:"allowed_branches" validate:"dive,max=50"`
	MinCGPA         *float64 `json:"min_cgpa" validate:"omitempty,gte=0,lte=10"`
	PassingYear     *int     `json:"passing_year" validate:"omitempty,gte=1900,lte=2100"`
}

type statusRequest struct {
	Status  string `json:"status" validate:"required"`
	Remarks string `json:"remarks" validate:"max=2000"`
}

type scheduleRequest struct {
	InterviewDate time.Time `json:"interview_date" validate:"required"`
	Mode          string    `json:"mode" validate:"required,oneof=Online Offline"`
}

type resultRequest struct {
	Result string `json:"result" validate:"required,max=200"`
	Notes  string `json:"notes" validate:"max=2000"`
}

func (r *registerRequest) toModel() models.Registration {
	return models.Registration{
		Name:        r.Name,
		Email:       r.Email,
		Role:        models.Role(r.Role),
		RollNumber:  r.RollNumber,
		Branch:      r.Branch,
		Year:        r.Year,
		CGPA:        r.CGPA,
		CompanyName: r.CompanyName,
		Website:     r.Website,
		Description: r.Description,
	}
}

// toModel parses dates; the validator has already checked their layout.
func (r *createDriveRequest) toModel() models.DriveFields {
	return models.DriveFields{
		Title:               r.Title,
		Description:         r.Description,
		Salary:              r.Salary,
		Location:            r.Location,
		DriveDate:           parseDate(r.DriveDate),
		ApplicationDeadline: parseDate(r.ApplicationDeadline),
	}
}

func (r *eligibilityRequest) toModel() models.Eligibility {
	return models.Eligibility{
		AllowedBranches: r.AllowedBranches,
		MinCGPA:         r.MinCGPA,
		PassingYear:     r.PassingYear,
	}
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// Responses.

type accountResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	Blacklisted bool      `json:"blacklisted"`
}

type studentResponse struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"user_id"`
	RollNumber      string    `json:"roll_number"`
	Branch          string    `json:"branch"`
	Year            int       `json:"year"`
	CGPA            float64   `json:"cgpa"`
	PlacementStatus string    `json:"placement_status"`
}

type studentListingResponse struct {
	studentResponse
	Name        string `json:"name"`
	Email       string `json:"email"`
	Blacklisted bool   `json:"blacklisted"`
}

type companyResponse struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"user_id"`
	CompanyName    string    `json:"company_name"`
	Website        string    `json:"website,omitempty"`
	Description    string    `json:"description,omitempty"`
	ApprovalStatus string    `json:"approval_status"`
	Blacklisted    bool      `json:"is_blacklisted"`
}

type driveResponse struct {
	ID                  uuid.UUID            `json:"id"`
	CompanyID           uuid.UUID            `json:"company_id"`
	Title               string               `json:"title"`
	Description         string               `json:"description,omitempty"`
	Salary              int                  `json:"salary"`
	Location            string               `json:"location,omitempty"`
	DriveDate           string               `json:"drive_date,omitempty"`
	ApplicationDeadline string               `json:"application_deadline,omitempty"`
	Status              string               `json:"status"`
	Eligibility         *eligibilityResponse `json:"eligibility,omitempty"`
}

type eligibilityResponse struct {
	AllowedBranches []string `json:"allowed_branches"`
	MinCGPA         *float64 `json:"min_cgpa"`
	PassingYear     *int     `json:"passing_year"`
}

type applicationResponse struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	DriveID   uuid.UUID `json:"drive_id"`
	AppliedAt time.Time `json:"applied_at"`
	Status    string    `json:"status"`
	Remarks   string    `json:"remarks,omitempty"`
}

type interviewResponse struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	InterviewDate time.Time `json:"interview_date"`
	Mode          string    `json:"mode"`
	Result        string    `json:"result,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

func toAccount(a *models.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        string(a.Role),
		Active:      a.Active,
		Blacklisted: a.Blacklisted,
	}
}

func toStudent(s *models.StudentProfile) studentResponse {
	return studentResponse{
		ID:              s.ID,
		AccountID:       s.AccountID,
		RollNumber:      s.RollNumber,
		Branch:          s.Branch,
		Year:            s.Year,
		CGPA:            s.CGPA,
		PlacementStatus: string(s.PlacementStatus),
	}
}

func toStudentListing(s *models.StudentListing) studentListingResponse {
	return studentListingResponse{
		studentResponse: toStudent(&s.StudentProfile),
		Name:            s.Name,
		Email:           s.Email,
		Blacklisted:     s.Blacklisted,
	}
}

func toCompany(c *models.CompanyProfile) companyResponse {
	return companyResponse{
		ID:             c.ID,
		AccountID:      c.AccountID,
		CompanyName:    c.CompanyName,
		Website:        c.Website,
		Description:    c.Description,
		ApprovalStatus: string(c.ApprovalStatus),
		Blacklisted:    c.Blacklisted,
	}
}

func toDrive(d *models.Drive, criteria *models.Eligibility) driveResponse {
	resp := driveResponse{
		ID:                  d.ID,
		CompanyID:           d.CompanyID,
		Title:               d.Title,
		Description:         d.Description,
		Salary:              d.Salary,
		Location:            d.Location,
		DriveDate:           formatDate(d.DriveDate),
		ApplicationDeadline: formatDate(d.ApplicationDeadline),
		Status:              string(d.Status),
	}
	if criteria != nil {
		branches := criteria.AllowedBranches
		if branches == nil {
			branches = []string{}
		}
		resp.Eligibility = &eligibilityResponse{
			AllowedBranches: branches,
			MinCGPA:         criteria.MinCGPA,
			PassingYear:     criteria.PassingYear,
		}
	}
	return resp
}

func toApplication(a *models.Application) applicationResponse {
	return applicationResponse{
		ID:        a.ID,
		StudentID: a.StudentID,
		DriveID:   a.DriveID,
		AppliedAt: a.AppliedAt,
		Status:    string(a.Status),
		Remarks:   a.Remarks,
	}
}

func toInterview(iv *models.Interview) interviewResponse {
	return interviewResponse{
		ID:            iv.ID,
		ApplicationID: iv.ApplicationID,
		InterviewDate: iv.InterviewDate,
		Mode:          string(iv.Mode),
		Result:        iv.Result,
		Notes:         iv.Notes,
	}
}

// mapSlice converts each element of in with fn.
func mapSlice[T, R any](in []T, fn func(*T) R) []R {
	out := make([]R, 0, len(in))
	for i := range in {
		out = append(out, fn(&in[i]))
	}
	return out
}
