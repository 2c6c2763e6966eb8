package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/placement/internal/pkg/utils"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// SetupTestDB initializes an in-memory SQLite database for testing.
func SetupTestDB(t *testing.T) *Repository {
	repo, err := NewRepository(&Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedStudent(t *testing.T, repo *Repository, name string) (*models.Account, *models.StudentProfile) {
	t.Helper()
	account := &models.Account{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@campus.test",
		Role:   models.RoleStudent,
		Active: true,
	}
	student := &models.StudentProfile{
		ID:              uuid.New(),
		AccountID:       account.ID,
		RollNumber:      "R-" + name,
		Branch:          "CS",
		Year:            2024,
		CGPA:            8.2,
		PlacementStatus: models.NotPlaced,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account, student, nil))
	return account, student
}

func seedCompany(t *testing.T, repo *Repository, name string, status models.ApprovalStatus) (*models.Account, *models.CompanyProfile) {
	t.Helper()
	account := &models.Account{
		ID:     uuid.New(),
		Name:   name,
		Email:  name + "@corp.test",
		Role:   models.RoleCompany,
		Active: true,
	}
	company := &models.CompanyProfile{
		ID:             uuid.New(),
		AccountID:      account.ID,
		CompanyName:    name,
		ApprovalStatus: status,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account, nil, company))
	return account, company
}

func seedDrive(t *testing.T, repo *Repository, companyID uuid.UUID, status models.ApprovalStatus) *models.Drive {
	t.Helper()
	drive := &models.Drive{
		ID:                  uuid.New(),
		CompanyID:           companyID,
		Title:               "Backend Engineer",
		Salary:              1200000,
		Location:            "Pune",
		DriveDate:           time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		ApplicationDeadline: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		Status:              status,
		CreatedAt:           time.Now(),
	}
	require.NoError(t, repo.CreateDrive(context.Background(), drive))
	return drive
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedStudent(t, repo, "asha")

	dup := &models.Account{ID: uuid.New(), Name: "other", Email: "asha@campus.test", Role: models.RoleStudent, Active: true}
	err := repo.CreateAccount(ctx, dup, nil, nil)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestGetAccountNotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.GetAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestSetBlacklisted_CascadesToCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	account, company := seedCompany(t, repo, "acme", models.ApprovalApproved)

	updated, err := repo.SetBlacklisted(ctx, account.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Blacklisted)

	stored, err := repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.True(t, stored.Blacklisted, "company profile must follow the account flag")

	_, err = repo.SetBlacklisted(ctx, account.ID, false)
	require.NoError(t, err)
	stored, err = repo.GetCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.False(t, stored.Blacklisted)
}

func TestListStudents_IncludesAccount(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	zoya, _ := seedStudent(t, repo, "zoya")
	_, amal := seedStudent(t, repo, "amal")
	seedCompany(t, repo, "hooli", models.ApprovalApproved)
	_, err := repo.SetBlacklisted(ctx, zoya.ID, true)
	require.NoError(t, err)

	students, err := repo.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)

	assert.Equal(t, amal.ID, students[0].ID)
	assert.Equal(t, "R-amal", students[0].RollNumber)
	assert.Equal(t, 8.2, students[0].CGPA)
	assert.Equal(t, "amal", students[0].Name)
	assert.Equal(t, "amal@campus.test", students[0].Email)
	assert.False(t, students[0].Blacklisted)

	assert.Equal(t, zoya.ID, students[1].AccountID)
	assert.True(t, students[1].Blacklisted)
}

func TestSetBlacklisted_NotFound(t *testing.T) {
	repo := SetupTestDB(t)

	_, err := repo.SetBlacklisted(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestSetCompanyStatus(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, company := seedCompany(t, repo, "globex", models.ApprovalPending)

	require.NoError(t, repo.SetCompanyStatus(ctx, company.ID, models.ApprovalPending, models.ApprovalApproved))

	err := repo.SetCompanyStatus(ctx, company.ID, models.ApprovalPending, models.ApprovalRejected)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	err = repo.SetCompanyStatus(ctx, uuid.New(), models.ApprovalPending, models.ApprovalApproved)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestDriveRoundTripAndStatus(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, company := seedCompany(t, repo, "initech", models.ApprovalApproved)
	drive := seedDrive(t, repo, company.ID, models.ApprovalPending)

	stored, err := repo.GetDrive(ctx, drive.ID)
	require.NoError(t, err)
	assert.Equal(t, drive.Title, stored.Title)
	assert.True(t, drive.DriveDate.Equal(stored.DriveDate), "drive date should survive storage")

	require.NoError(t, repo.SetDriveStatus(ctx, drive.ID, models.ApprovalPending, models.ApprovalApproved))
	err = repo.SetDriveStatus(ctx, drive.ID, models.ApprovalPending, models.ApprovalApproved)
	assert.ErrorIs(t, err, e.ErrInvalidTransition, "re-approval must fail")

	approved := models.ApprovalApproved
	drives, err := repo.ListDrives(ctx, models.DriveFilter{Status: &approved})
	require.NoError(t, err)
	assert.Len(t, drives, 1)

	pending := models.ApprovalPending
	drives, err = repo.ListDrives(ctx, models.DriveFilter{Status: &pending})
	require.NoError(t, err)
	assert.Empty(t, drives)
}

func TestSaveEligibility(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, company := seedCompany(t, repo, "umbrella", models.ApprovalApproved)
	drive := seedDrive(t, repo, company.ID, models.ApprovalPending)

	_, err := repo.GetEligibility(ctx, drive.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	elig := &models.Eligibility{
		DriveID:         drive.ID,
		AllowedBranches: []string{"CS", "IT"},
		MinCGPA:         utils.Ptr(7.5),
	}
	require.NoError(t, repo.SaveEligibility(ctx, elig, nil))

	stored, err := repo.GetEligibility(ctx, drive.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS", "IT"}, stored.AllowedBranches)
	assert.Equal(t, 7.5, *stored.MinCGPA)
	assert.Nil(t, stored.PassingYear)

	// Replacing keeps a single row.
	elig.AllowedBranches = nil
	elig.PassingYear = utils.Ptr(2024)
	require.NoError(t, repo.SaveEligibility(ctx, elig, nil))
	stored, err = repo.GetEligibility(ctx, drive.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AllowedBranches)
	assert.Equal(t, 2024, *stored.PassingYear)

	guardErr := e.ErrInvalidTransition
	err = repo.SaveEligibility(ctx, elig, func(*models.Drive) error { return guardErr })
	assert.ErrorIs(t, err, guardErr)
}

func TestCreateApplication_Unique(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, student := seedStudent(t, repo, "ravi")
	_, company := seedCompany(t, repo, "hooli", models.ApprovalApproved)
	drive := seedDrive(t, repo, company.ID, models.ApprovalApproved)

	app := &models.Application{
		ID:        uuid.New(),
		StudentID: student.ID,
		DriveID:   drive.ID,
		AppliedAt: time.Now().UTC(),
		Status:    models.ApplicationApplied,
	}
	require.NoError(t, repo.CreateApplication(ctx, app))

	again := *app
	again.ID = uuid.New()
	assert.ErrorIs(t, repo.CreateApplication(ctx, &again), e.ErrDuplicateApplication)
}

func TestCreateApplication_ConcurrentSinglePair(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, student := seedStudent(t, repo, "meera")
	_, company := seedCompany(t, repo, "pied", models.ApprovalApproved)
	drive := seedDrive(t, repo, company.ID, models.ApprovalApproved)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateApplication(ctx, &models.Application{
				ID:        uuid.New(),
				StudentID: student.ID,
				DriveID:   drive.ID,
				AppliedAt: time.Now().UTC(),
				Status:    models.ApplicationApplied,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, e.ErrDuplicateApplication)
	}
	assert.Equal(t, 1, succeeded)

	apps, err := repo.ListApplications(ctx, models.ApplicationFilter{StudentID: &student.ID})
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestChangeApplicationStatus_MarksPlaced(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, student := seedStudent(t, repo, "kiran")
	_, company := seedCompany(t, repo, "vandelay", models.ApprovalApproved)
	drive := seedDrive(t, repo, company.ID, models.ApprovalApproved)

	app := &models.Application{
		ID:        uuid.New(),
		StudentID: student.ID,
		DriveID:   drive.ID,
		AppliedAt: time.Now().UTC(),
		Status:    models.ApplicationShortlisted,
	}
	require.NoError(t, repo.CreateApplication(ctx, app))

	updated, err := repo.ChangeApplicationStatus(ctx, models.StatusChange{
		ApplicationID: app.ID,
		From:          models.ApplicationShortlisted,
		To:            models.ApplicationSelected,
		Remarks:       "strong system design",
		MarkPlaced:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSelected, updated.Status)
	assert.Equal(t, "strong system design", updated.Remarks)

	stored, err := repo.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Placed, stored.PlacementStatus)

	_, err = repo.ChangeApplicationStatus(ctx, models.StatusChange{
		ApplicationID: app.ID,
		From:          models.ApplicationShortlisted,
		To:            models.ApplicationRejected,
	})
	assert.ErrorIs(t, err, e.ErrInvalidTransition, "stale from status must lose")
}

func TestListApplicationsByCompany(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, student := seedStudent(t, repo, "dev")
	_, mine := seedCompany(t, repo, "mine", models.ApprovalApproved)
	_, other := seedCompany(t, repo, "other", models.ApprovalApproved)
	myDrive := seedDrive(t, repo, mine.ID, models.ApprovalApproved)
	otherDrive := seedDrive(t, repo, other.ID, models.ApprovalApproved)

	for _, d := range []*models.Drive{myDrive, otherDrive} {
		require.NoError(t, repo.CreateApplication(ctx, &models.Application{
			ID:        uuid.New(),
			StudentID: student.ID,
			DriveID:   d.ID,
			AppliedAt: time.Now().UTC(),
			Status:    models.ApplicationApplied,
		}))
	}

	apps, err := repo.ListApplications(ctx, models.ApplicationFilter{CompanyID: &mine.ID})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, myDrive.ID, apps[0].DriveID)
}

func TestInterviews(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, student := seedStudent(t, repo, "neha")
	_, company := seedCompany(t, repo, "stark", models.ApprovalApproved)
	drive := seedDrive(t, repo, company.ID, models.ApprovalApproved)
	app := &models.Application{
		ID:        uuid.New(),
		StudentID: student.ID,
		DriveID:   drive.ID,
		AppliedAt: time.Now().UTC(),
		Status:    models.ApplicationShortlisted,
	}
	require.NoError(t, repo.CreateApplication(ctx, app))

	iv := &models.Interview{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		InterviewDate: time.Now().Add(48 * time.Hour).UTC(),
		Mode:          models.ModeOnline,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateInterview(ctx, iv, nil))

	updated, err := repo.UpdateInterviewResult(ctx, iv.ID, "Cleared", "good fundamentals")
	require.NoError(t, err)
	assert.Equal(t, "Cleared", updated.Result)

	list, err := repo.ListInterviews(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.UpdateInterviewResult(ctx, uuid.New(), "Cleared", "")
	assert.ErrorIs(t, err, e.ErrNotFound)

	err = repo.CreateInterview(ctx, &models.Interview{ID: uuid.New(), ApplicationID: uuid.New(), Mode: models.ModeOffline}, nil)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestSearchAccountsAndStats(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	seedStudent(t, repo, "Arjun")
	seedStudent(t, repo, "arjuna")
	seedStudent(t, repo, "bala")
	seedCompany(t, repo, "wayne", models.ApprovalPending)

	found, err := repo.SearchAccounts(ctx, "ARJ")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	stats, err := repo.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalStudents)
	assert.Equal(t, int64(1), stats.TotalCompanies)
	assert.Equal(t, int64(0), stats.TotalDrives)

	admins, err := repo.CountAccountsByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, admins)
}

func TestNotificationsAndActivity(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	entity := uuid.New()

	require.NoError(t, repo.SaveNotification(ctx, &models.Notification{
		RecipientID: user,
		Message:     "Your company was approved",
		Type:        models.NotifyCompanyApproval,
		CreatedAt:   time.Now().UTC(),
	}))
	list, err := repo.ListNotifications(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifyCompanyApproval, list[0].Type)

	require.NoError(t, repo.SaveActivity(ctx, &models.AuditRecord{
		ActorID:    user,
		Action:     "drive_approved",
		EntityType: models.EntityDrive,
		EntityID:   entity,
		Timestamp:  time.Now().UTC(),
	}))
	records, err := repo.ListActivity(ctx, entity)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "drive_approved", records[0].Action)
}

// TestWithTransaction ensures transactions work correctly.
func TestWithTransaction(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, company := seedCompany(t, repo, "tyrell", models.ApprovalApproved)

	drive := &models.Drive{ID: uuid.New(), CompanyID: company.ID, Title: "SRE", Status: models.ApprovalPending}
	err := repo.WithTransaction(ctx, func(txRepo *Repository) error {
		return txRepo.CreateDrive(ctx, drive)
	})
	assert.NoError(t, err, "WithTransaction should execute successfully")

	_, err = repo.GetDrive(ctx, drive.ID)
	assert.NoError(t, err, "drive should exist after transaction")

	rolledBack := &models.Drive{ID: uuid.New(), CompanyID: company.ID, Title: "SRE", Status: models.ApprovalPending}
	err = repo.WithTransaction(ctx, func(txRepo *Repository) error {
		require.NoError(t, txRepo.CreateDrive(ctx, rolledBack))
		return e.ErrInvalidState
	})
	assert.ErrorIs(t, err, e.ErrInvalidState)
	_, err = repo.GetDrive(ctx, rolledBack.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestSaveEligibility_GuardRollsBack(t *testing.T) {
	repo := SetupTestDB(t)
	ctx := context.Background()
	_, company := seedCompany(t, repo, "initech", models.ApprovalApproved)
	drive := &models.Drive{ID: uuid.New(), CompanyID: company.ID, Title: "SRE", Status: models.ApprovalApproved}
	require.NoError(t, repo.CreateDrive(ctx, drive))

	err := repo.SaveEligibility(ctx, &models.Eligibility{DriveID: drive.ID, AllowedBranches: []string{"CS"}},
		func(*models.Drive) error { return e.ErrInvalidState })
	assert.ErrorIs(t, err, e.ErrInvalidState)

	_, err = repo.GetEligibility(ctx, drive.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestNewRepository_QuietOnMissingRows(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	repo, err := NewRepository(&Config{Driver: "sqlite", Path: ":memory:", Logger: zap.New(core)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.GetEligibility(context.Background(), uuid.New())
	require.ErrorIs(t, err, e.ErrNotFound)
	_, err = repo.GetAccount(context.Background(), uuid.New())
	require.ErrorIs(t, err, e.ErrNotFound)

	assert.Zero(t, recorded.Len())
}
