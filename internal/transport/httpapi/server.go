package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/service/directory"
	"medsched/backend/internal/service/scheduling"
)

type schedulingService interface {
	Create(ctx context.Context, actor domain.Actor, in scheduling.CreateInput) (domain.Appointment, error)
	List(ctx context.Context, actor domain.Actor) ([]domain.Appointment, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	Transition(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action) (domain.Appointment, error)
	UpdateReason(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (domain.Appointment, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type directoryService interface {
	Resolve(ctx context.Context, subject string) (domain.Actor, error)
	WindowFor(ctx context.Context, practitionerID uuid.UUID) (domain.TimeOfDay, domain.TimeOfDay, error)
	ListPractitioners(ctx context.Context) ([]domain.Practitioner, error)
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	ListSpecialties(ctx context.Context) ([]domain.Specialty, error)
	ProvisionPractitioner(ctx context.Context, in directory.ProvisionPractitionerInput) (domain.Practitioner, error)
	ProvisionPatient(ctx context.Context, in directory.ProvisionPatientInput) (domain.Patient, error)
	ProvisionAdmin(ctx context.Context, subject string) (domain.Identity, error)
	CreateSpecialty(ctx context.Context, in directory.CreateSpecialtyInput) (domain.Specialty, error)
}

type Server struct {
	scheduling schedulingService
	directory  directoryService
	log        *slog.Logger
	validate   *validator.Validate
}

func NewServer(schedulingSvc schedulingService, directorySvc directoryService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		scheduling: schedulingSvc,
		directory:  directorySvc,
		log:        log.With(slog.String("component", "http.api")),
		validate:   validator.New(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withActor)

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", s.createAppointment)
			r.Get("/", s.listAppointments)
			r.Route("/{appointmentID}", func(r chi.Router) {
				r.Get("/", s.getAppointment)
				r.Delete("/", s.deleteAppointment)
				r.Put("/confirm", s.transitionHandler(domain.ActionConfirm))
				r.Put("/cancel", s.transitionHandler(domain.ActionCancel))
				r.Put("/complete", s.transitionHandler(domain.ActionComplete))
				r.Put("/reason", s.updateAppointmentReason)
			})
		})

		r.Route("/practitioners", func(r chi.Router) {
			r.Get("/", s.listPractitioners)
			r.Post("/", s.provisionPractitioner)
			r.Get("/{practitionerID}/hours", s.practitionerHours)
		})
		r.Route("/patients", func(r chi.Router) {
			r.Get("/", s.listPatients)
			r.Post("/", s.provisionPatient)
		})
		r.Route("/specialties", func(r chi.Router) {
			r.Get("/", s.listSpecialties)
			r.Post("/", s.createSpecialty)
		})
		r.Post("/admins", s.provisionAdmin)
	})

	return r
}
