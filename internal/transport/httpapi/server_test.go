package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/service/directory"
	"medsched/backend/internal/service/scheduling"
	"medsched/backend/internal/store"
)

var (
	testPractitionerID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	testPatientID      = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	testAppointmentID  = uuid.MustParse("00000000-0000-0000-0000-000000000901")
)

type fakeScheduling struct {
	createFn       func(ctx context.Context, actor domain.Actor, in scheduling.CreateInput) (domain.Appointment, error)
	listFn         func(ctx context.Context, actor domain.Actor) ([]domain.Appointment, error)
	getFn          func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	transitionFn   func(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action) (domain.Appointment, error)
	updateReasonFn func(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (domain.Appointment, error)
	deleteFn       func(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

func (f *fakeScheduling) Create(ctx context.Context, actor domain.Actor, in scheduling.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, actor, in)
}

func (f *fakeScheduling) List(ctx context.Context, actor domain.Actor) ([]domain.Appointment, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, actor)
}

func (f *fakeScheduling) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, actor, id)
}

func (f *fakeScheduling) Transition(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action) (domain.Appointment, error) {
	if f.transitionFn == nil {
		panic("Transition not configured")
	}
	return f.transitionFn(ctx, actor, id, action)
}

func (f *fakeScheduling) UpdateReason(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (domain.Appointment, error) {
	if f.updateReasonFn == nil {
		panic("UpdateReason not configured")
	}
	return f.updateReasonFn(ctx, actor, id, reason)
}

func (f *fakeScheduling) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, actor, id)
}

type fakeDirectory struct {
	resolveFn func(ctx context.Context, subject string) (domain.Actor, error)
}

func (f *fakeDirectory) Resolve(ctx context.Context, subject string) (domain.Actor, error) {
	if f.resolveFn == nil {
		panic("Resolve not configured")
	}
	return f.resolveFn(ctx, subject)
}

func (f *fakeDirectory) WindowFor(ctx context.Context, practitionerID uuid.UUID) (domain.TimeOfDay, domain.TimeOfDay, error) {
	return domain.NewTimeOfDay(8, 0), domain.NewTimeOfDay(17, 0), nil
}

func (f *fakeDirectory) ListPractitioners(ctx context.Context) ([]domain.Practitioner, error) {
	return nil, nil
}

func (f *fakeDirectory) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	return nil, nil
}

func (f *fakeDirectory) ListSpecialties(ctx context.Context) ([]domain.Specialty, error) {
	return nil, nil
}

func (f *fakeDirectory) ProvisionPractitioner(ctx context.Context, in directory.ProvisionPractitionerInput) (domain.Practitioner, error) {
	return domain.Practitioner{}, nil
}

func (f *fakeDirectory) ProvisionPatient(ctx context.Context, in directory.ProvisionPatientInput) (domain.Patient, error) {
	return domain.Patient{}, nil
}

func (f *fakeDirectory) ProvisionAdmin(ctx context.Context, subject string) (domain.Identity, error) {
	return domain.Identity{}, nil
}

func (f *fakeDirectory) CreateSpecialty(ctx context.Context, in directory.CreateSpecialtyInput) (domain.Specialty, error) {
	return domain.Specialty{}, nil
}

func resolveAs(actor domain.Actor) *fakeDirectory {
	return &fakeDirectory{
		resolveFn: func(ctx context.Context, subject string) (domain.Actor, error) {
			return actor, nil
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, h http.Handler, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if subject != "" {
		req.Header.Set(subjectHeader, subject)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out
}

func TestServer_MissingSubjectIsUnauthorized(t *testing.T) {
	srv := NewServer(&fakeScheduling{}, resolveAs(domain.Actor{Role: domain.RoleAdmin}), testLogger())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/appointments", "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := decodeError(t, rec); got.Code != "unauthenticated" {
		t.Fatalf("code = %q, want %q", got.Code, "unauthenticated")
	}
}

func TestServer_HealthzSkipsAuth(t *testing.T) {
	srv := NewServer(&fakeScheduling{}, &fakeDirectory{}, testLogger())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_CreateAppointment(t *testing.T) {
	actor := domain.Actor{Role: domain.RolePatient, PatientID: testPatientID}
	var gotActor domain.Actor
	var gotInput scheduling.CreateInput

	sched := &fakeScheduling{
		createFn: func(ctx context.Context, a domain.Actor, in scheduling.CreateInput) (domain.Appointment, error) {
			gotActor, gotInput = a, in
			return domain.Appointment{
				ID:             testAppointmentID,
				PractitionerID: in.PractitionerID,
				PatientID:      testPatientID,
				Date:           in.Date,
				StartAt:        in.StartAt,
				Status:         domain.AppointmentPending,
			}, nil
		},
	}

	srv := NewServer(sched, resolveAs(actor), testLogger())
	rec := doRequest(t, srv.Router(), http.MethodPost, "/appointments", "p@clinic", map[string]string{
		"practitioner_id": testPractitionerID.String(),
		"date":            "2026-02-03",
		"time":            "10:30",
		"reason":          "checkup",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body)
	}
	if gotActor != actor {
		t.Fatalf("actor = %+v, want %+v", gotActor, actor)
	}
	if gotInput.PractitionerID != testPractitionerID {
		t.Fatalf("practitioner id = %s", gotInput.PractitionerID)
	}
	if gotInput.StartAt != domain.NewTimeOfDay(10, 30) {
		t.Fatalf("start at = %v", gotInput.StartAt)
	}

	var resp appointmentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Time != "10:30" || resp.Date != "2026-02-03" || resp.Status != "pending" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestServer_CreateAppointmentBadPayloads(t *testing.T) {
	srv := NewServer(&fakeScheduling{}, resolveAs(domain.Actor{Role: domain.RolePatient, PatientID: testPatientID}), testLogger())

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing practitioner", map[string]string{"date": "2026-02-03", "time": "10:30"}},
		{"bad uuid", map[string]string{"practitioner_id": "nope", "date": "2026-02-03", "time": "10:30"}},
		{"bad date", map[string]string{"practitioner_id": testPractitionerID.String(), "date": "03/02/2026", "time": "10:30"}},
		{"bad time", map[string]string{"practitioner_id": testPractitionerID.String(), "date": "2026-02-03", "time": "late"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv.Router(), http.MethodPost, "/appointments", "p@clinic", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := decodeError(t, rec); got.Code != "validation" {
				t.Fatalf("code = %q, want %q", got.Code, "validation")
			}
		})
	}
}

func TestServer_ErrorStatusMapping(t *testing.T) {
	actor := domain.Actor{Role: domain.RolePatient, PatientID: testPatientID}

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"conflict", store.ErrConflict, http.StatusConflict, "conflict"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "not-found"},
		{"role denied", &scheduling.PermissionError{Reason: scheduling.PermissionRole}, http.StatusForbidden, "forbidden-role"},
		{"ownership denied", &scheduling.PermissionError{Reason: scheduling.PermissionOwnership}, http.StatusForbidden, "forbidden-ownership"},
		{"invalid state", &scheduling.TransitionError{Current: domain.AppointmentConfirmed, Action: domain.ActionConfirm}, http.StatusUnprocessableEntity, "invalid-state"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := &fakeScheduling{
				transitionFn: func(ctx context.Context, a domain.Actor, id uuid.UUID, action domain.Action) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			srv := NewServer(sched, resolveAs(actor), testLogger())
			rec := doRequest(t, srv.Router(), http.MethodPut, "/appointments/"+testAppointmentID.String()+"/confirm", "p@clinic", nil)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := decodeError(t, rec); got.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", got.Code, tc.wantCode)
			}
		})
	}
}

func TestServer_TransitionRoutesCarryAction(t *testing.T) {
	actor := domain.Actor{Role: domain.RolePractitioner, PractitionerID: testPractitionerID}

	var gotAction domain.Action
	sched := &fakeScheduling{
		transitionFn: func(ctx context.Context, a domain.Actor, id uuid.UUID, action domain.Action) (domain.Appointment, error) {
			gotAction = action
			return domain.Appointment{ID: id, Status: domain.AppointmentConfirmed}, nil
		},
	}
	srv := NewServer(sched, resolveAs(actor), testLogger())

	for path, want := range map[string]domain.Action{
		"/confirm":  domain.ActionConfirm,
		"/cancel":   domain.ActionCancel,
		"/complete": domain.ActionComplete,
	} {
		rec := doRequest(t, srv.Router(), http.MethodPut, "/appointments/"+testAppointmentID.String()+path, "dr@clinic", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
		if gotAction != want {
			t.Fatalf("%s action = %q, want %q", path, gotAction, want)
		}
	}
}

func TestServer_DeleteAppointment(t *testing.T) {
	sched := &fakeScheduling{
		deleteFn: func(ctx context.Context, a domain.Actor, id uuid.UUID) error {
			return nil
		},
	}
	srv := NewServer(sched, resolveAs(domain.Actor{Role: domain.RoleAdmin}), testLogger())
	rec := doRequest(t, srv.Router(), http.MethodDelete, "/appointments/"+testAppointmentID.String(), "admin@clinic", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestServer_ProvisioningRequiresAdmin(t *testing.T) {
	srv := NewServer(&fakeScheduling{}, resolveAs(domain.Actor{Role: domain.RolePatient, PatientID: testPatientID}), testLogger())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/practitioners"},
		{http.MethodPost, "/patients"},
		{http.MethodPost, "/specialties"},
		{http.MethodPost, "/admins"},
		{http.MethodGet, "/patients"},
	}

	for _, p := range paths {
		rec := doRequest(t, srv.Router(), p.method, p.path, "p@clinic", map[string]string{})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s status = %d, want %d", p.method, p.path, rec.Code, http.StatusForbidden)
		}
		if got := decodeError(t, rec); got.Code != "forbidden-role" {
			t.Fatalf("%s %s code = %q, want %q", p.method, p.path, got.Code, "forbidden-role")
		}
	}
}

func TestServer_ListPractitionersOpenToAllRoles(t *testing.T) {
	srv := NewServer(&fakeScheduling{}, resolveAs(domain.Actor{Role: domain.RolePatient, PatientID: testPatientID}), testLogger())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/practitioners", "p@clinic", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_PractitionerHours(t *testing.T) {
	srv := NewServer(&fakeScheduling{}, resolveAs(domain.Actor{Role: domain.RolePatient, PatientID: testPatientID}), testLogger())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/practitioners/"+testPractitionerID.String()+"/hours", "p@clinic", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["work_start"] != "08:00" || out["work_end"] != "17:00" {
		t.Fatalf("window = %+v", out)
	}
}

func TestServer_BrokenProvisioningIsServerError(t *testing.T) {
	dir := &fakeDirectory{
		resolveFn: func(ctx context.Context, subject string) (domain.Actor, error) {
			return domain.Actor{}, &directory.ConfigError{}
		},
	}
	srv := NewServer(&fakeScheduling{}, dir, testLogger())
	rec := doRequest(t, srv.Router(), http.MethodGet, "/appointments", "broken@clinic", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if got := decodeError(t, rec); got.Code != "provisioning" {
		t.Fatalf("code = %q, want %q", got.Code, "provisioning")
	}
}
