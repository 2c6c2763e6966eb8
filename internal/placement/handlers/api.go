package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/placement/internal/placement/auth"
	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// RegistryController registers accounts.
type RegistryController interface {
	Register(ctx context.Context, reg models.Registration) (*models.Account, error)
}

// DriveController is the drive lifecycle.
type DriveController interface {
	CreateDrive(ctx context.Context, actor models.Actor, fields models.DriveFields) (*models.Drive, error)
	SetEligibility(ctx context.Context, actor models.Actor, driveID uuid.UUID, criteria models.Eligibility) error
	ListVisible(ctx context.Context, actor models.Actor, status *models.ApprovalStatus) ([]models.Drive, error)
	GetDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, *models.Eligibility, error)
}

// ApplicationController is the application lifecycle.
type ApplicationController interface {
	ApplySelf(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Application, error)
	Transition(ctx context.Context, actor models.Actor, applicationID uuid.UUID, to models.ApplicationStatus, remarks string) (*models.Application, error)
	List(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.Application, error)
	Get(ctx context.Context, actor models.Actor, applicationID uuid.UUID) (*models.Application, error)
}

// InterviewController tracks interviews.
type InterviewController interface {
	Schedule(ctx context.Context, actor models.Actor, applicationID uuid.UUID, at time.Time, mode models.InterviewMode) (*models.Interview, error)
	RecordResult(ctx context.Context, actor models.Actor, interviewID uuid.UUID, result, notes string) (*models.Interview, error)
	List(ctx context.Context, actor models.Actor, applicationID uuid.UUID) ([]models.Interview, error)
}

// ModerationController holds the admin moderation actions.
type ModerationController interface {
	ApproveCompany(ctx context.Context, actor models.Actor, companyID uuid.UUID) (*models.CompanyProfile, error)
	RejectCompany(ctx context.Context, actor models.Actor, companyID uuid.UUID) (*models.CompanyProfile, error)
	BlacklistAccount(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error)
	ActivateAccount(ctx context.Context, actor models.Actor, accountID uuid.UUID) (*models.Account, error)
	ApproveDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, error)
	RejectDrive(ctx context.Context, actor models.Actor, driveID uuid.UUID) (*models.Drive, error)
}

// ReportController serves admin reports and notifications.
type ReportController interface {
	Dashboard(ctx context.Context, actor models.Actor) (*models.DashboardStats, error)
	Students(ctx context.Context, actor models.Actor) ([]models.StudentListing, error)
	Companies(ctx context.Context, actor models.Actor) ([]models.CompanyProfile, error)
	Drives(ctx context.Context, actor models.Actor, filter models.DriveFilter) ([]models.Drive, error)
	Applications(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.Application, error)
	Search(ctx context.Context, actor models.Actor, query string) ([]models.Account, error)
	Notifications(ctx context.Context, actor models.Actor) ([]models.Notification, error)
}

// Services groups the controllers served by the API.
type Services struct {
	Registry     RegistryController
	Drives       DriveController
	Applications ApplicationController
	Interviews   InterviewController
	Moderation   ModerationController
	Reports      ReportController
}

// API maps the placement HTTP routes onto the controllers.
type API struct {
	services Services
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAPI constructs an API for services.
func NewAPI(services Services, logger *zap.Logger) *API {
	return &API{
		services: services,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("http_api"),
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func (a *API) routes() []route {
	return []route{
		{http.MethodPost, "/v1/register", a.register},

		{http.MethodGet, "/v1/drives", a.listDrives},
		{http.MethodPost, "/v1/drives", a.createDrive},
		{http.MethodGet, "/v1/drives/{id}", a.getDrive},
		{http.MethodPut, "/v1/drives/{id}/eligibility", a.setEligibility},
		{http.MethodPost, "/v1/drives/{id}/applications", a.apply},

		{http.MethodGet, "/v1/applications", a.listApplications},
		{http.MethodGet, "/v1/applications/{id}", a.getApplication},
		{http.MethodPut, "/v1/applications/{id}/status", a.transition},
		{http.MethodPost, "/v1/applications/{id}/interviews", a.scheduleInterview},
		{http.MethodGet, "/v1/applications/{id}/interviews", a.listInterviews},
		{http.MethodPut, "/v1/interviews/{id}/result", a.recordResult},

		{http.MethodPut, "/v1/admin/companies/{id}/approve", a.companyDecision(ModerationController.ApproveCompany)},
		{http.MethodPut, "/v1/admin/companies/{id}/reject", a.companyDecision(ModerationController.RejectCompany)},
		{http.MethodPut, "/v1/admin/drives/{id}/approve", a.driveDecision(ModerationController.ApproveDrive)},
		{http.MethodPut, "/v1/admin/drives/{id}/reject", a.driveDecision(ModerationController.RejectDrive)},
		{http.MethodPut, "/v1/admin/accounts/{id}/blacklist", a.accountDecision(ModerationController.BlacklistAccount)},
		{http.MethodPut, "/v1/admin/accounts/{id}/activate", a.accountDecision(ModerationController.ActivateAccount)},

		{http.MethodGet, "/v1/admin/dashboard", a.dashboard},
		{http.MethodGet, "/v1/admin/students", a.adminStudents},
		{http.MethodGet, "/v1/admin/companies", a.adminCompanies},
		{http.MethodGet, "/v1/admin/drives", a.adminDrives},
		{http.MethodGet, "/v1/admin/applications", a.adminApplications},
		{http.MethodGet, "/v1/admin/search", a.search},

		{http.MethodGet, "/v1/notifications", a.notifications},
	}
}

// Register adds every route to mux.
func (a *API) Register(mux *runtime.ServeMux) error {
	for _, rt := range a.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

func (a *API) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}
	account, err := a.services.Registry.Register(r.Context(), req.toModel())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccount(account))
}

func (a *API) listDrives(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	status, ok := approvalQuery(w, r)
	if !ok {
		return
	}
	drives, err := a.services.Drives.ListVisible(r.Context(), actor, status)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(drives, func(d *models.Drive) driveResponse { return toDrive(d, nil) }))
}

func (a *API) createDrive(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req createDriveRequest
	if !a.decode(w, r, &req) {
		return
	}
	drive, err := a.services.Drives.CreateDrive(r.Context(), actor, req.toModel())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDrive(drive, nil))
}

func (a *API) getDrive(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	drive, criteria, err := a.services.Drives.GetDrive(r.Context(), actor, id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDrive(drive, criteria))
}

func (a *API) setEligibility(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	var req eligibilityRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.services.Drives.SetEligibility(r.Context(), actor, id, req.toModel()); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) apply(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	app, err := a.services.Applications.ApplySelf(r.Context(), actor, id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplication(app))
}

func (a *API) listApplications(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	filter, ok := applicationQuery(w, r)
	if !ok {
		return
	}
	apps, err := a.services.Applications.List(r.Context(), actor, filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(apps, toApplication))
}

func (a *API) getApplication(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	app, err := a.services.Applications.Get(r.Context(), actor, id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplication(app))
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	app, err := a.services.Applications.Transition(r.Context(), actor, id, models.ApplicationStatus(req.Status), req.Remarks)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplication(app))
}

func (a *API) scheduleInterview(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	var req scheduleRequest
	if !a.decode(w, r, &req) {
		return
	}
	iv, err := a.services.Interviews.Schedule(r.Context(), actor, id, req.InterviewDate, models.InterviewMode(req.Mode))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInterview(iv))
}

func (a *API) listInterviews(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	interviews, err := a.services.Interviews.List(r.Context(), actor, id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(interviews, toInterview))
}

func (a *API) recordResult(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, id, ok := a.actorAndID(w, r, params)
	if !ok {
		return
	}
	var req resultRequest
	if !a.decode(w, r, &req) {
		return
	}
	iv, err := a.services.Interviews.RecordResult(r.Context(), actor, id, req.Result, req.Notes)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInterview(iv))
}

// decision is a moderation action taken on one entity.
type decision[T any] func(m ModerationController, ctx context.Context, actor models.Actor, id uuid.UUID) (*T, error)

func (a *API) companyDecision(fn decision[models.CompanyProfile]) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		actor, id, ok := a.actorAndID(w, r, params)
		if !ok {
			return
		}
		company, err := fn(a.services.Moderation, r.Context(), actor, id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCompany(company))
	}
}

func (a *API) driveDecision(fn decision[models.Drive]) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		actor, id, ok := a.actorAndID(w, r, params)
		if !ok {
			return
		}
		drive, err := fn(a.services.Moderation, r.Context(), actor, id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDrive(drive, nil))
	}
}

func (a *API) accountDecision(fn decision[models.Account]) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		actor, id, ok := a.actorAndID(w, r, params)
		if !ok {
			return
		}
		account, err := fn(a.services.Moderation, r.Context(), actor, id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccount(account))
	}
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	stats, err := a.services.Reports.Dashboard(r.Context(), actor)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) adminStudents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	students, err := a.services.Reports.Students(r.Context(), actor)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(students, toStudentListing))
}

func (a *API) adminCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	companies, err := a.services.Reports.Companies(r.Context(), actor)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(companies, toCompany))
}

func (a *API) adminDrives(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	status, ok := approvalQuery(w, r)
	if !ok {
		return
	}
	drives, err := a.services.Reports.Drives(r.Context(), actor, models.DriveFilter{Status: status})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(drives, func(d *models.Drive) driveResponse { return toDrive(d, nil) }))
}

func (a *API) adminApplications(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	filter, ok := applicationQuery(w, r)
	if !ok {
		return
	}
	apps, err := a.services.Reports.Applications(r.Context(), actor, filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(apps, toApplication))
}

func (a *API) search(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	accounts, err := a.services.Reports.Search(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(accounts, toAccount))
}

func (a *API) notifications(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	notifications, err := a.services.Reports.Notifications(r.Context(), actor)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// actor returns the authenticated actor or writes 401.
func (a *API) actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
	}
	return actor, ok
}

func (a *API) actorAndID(w http.ResponseWriter, r *http.Request, params map[string]string) (models.Actor, uuid.UUID, bool) {
	actor, ok := a.actor(w, r)
	if !ok {
		return models.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(params["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid id")
		return models.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// decode reads a JSON body into dst and validates it, writing 400 on
// failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed request body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "invalid_input",
				fmt.Sprintf("field %s failed %s", verrs[0].Field(), verrs[0].Tag()))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return false
	}
	return true
}

func approvalQuery(w http.ResponseWriter, r *http.Request) (*models.ApprovalStatus, bool) {
	v := r.URL.Query().Get("status")
	if v == "" {
		return nil, true
	}
	status := models.ApprovalStatus(v)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid status filter")
		return nil, false
	}
	return &status, true
}

func applicationQuery(w http.ResponseWriter, r *http.Request) (models.ApplicationFilter, bool) {
	var filter models.ApplicationFilter
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := models.ApplicationStatus(v)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid status filter")
			return filter, false
		}
		filter.Status = &status
	}
	if v := q.Get("drive_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid drive_id filter")
			return filter, false
		}
		filter.DriveID = &id
	}
	return filter, true
}

// fail maps a service error onto the response.
func (a *API) fail(w http.ResponseWriter, err error) {
	code := mapServiceError(err)
	if code == http.StatusInternalServerError {
		a.logger.Error("Request failed", zap.Error(err))
		writeError(w, code, "internal", "internal error")
		return
	}
	writeError(w, code, e.Kind(err), err.Error())
}

// mapServiceError maps domain errors to HTTP status codes.
func mapServiceError(err error) int {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, e.ErrAccountBlocked):
		return http.StatusForbidden
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, e.ErrDuplicateApplication),
		errors.Is(err, e.ErrInvalidTransition),
		errors.Is(err, e.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, e.ErrNotEligible):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, errorResponse{Error: kind, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
