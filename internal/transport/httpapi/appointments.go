package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/service/scheduling"
)

type createAppointmentRequest struct {
	PractitionerID string `json:"practitioner_id" validate:"required,uuid"`
	// patient_id is only honored for admin callers; the service pins patient
	// actors to their own identity.
	PatientID string `json:"patient_id" validate:"omitempty,uuid"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required"`
	Reason    string `json:"reason" validate:"max=2000"`
}

type updateReasonRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type appointmentResponse struct {
	ID             string    `json:"id"`
	PractitionerID string    `json:"practitioner_id"`
	PatientID      string    `json:"patient_id"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Reason         string    `json:"reason"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID.String(),
		PractitionerID: a.PractitionerID.String(),
		PatientID:      a.PatientID.String(),
		Date:           a.Date.UTC().Format("2006-01-02"),
		Time:           a.StartAt.String(),
		Reason:         a.Reason,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "CreateAppointment"))

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "practitioner_id must be a UUID")
		return
	}
	var patientID uuid.UUID
	if req.PatientID != "" {
		patientID, err = uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "patient_id must be a UUID")
			return
		}
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "date must be YYYY-MM-DD")
		return
	}
	startAt, err := domain.ParseTimeOfDay(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "time must be HH:MM")
		return
	}

	actor := actorFrom(r.Context())
	appt, err := s.scheduling.Create(r.Context(), actor, scheduling.CreateInput{
		PractitionerID: practitionerID,
		PatientID:      patientID,
		Date:           date,
		StartAt:        startAt,
		Reason:         req.Reason,
	})
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("practitioner_id", appt.PractitionerID.String()),
		slog.String("patient_id", appt.PatientID.String()),
	)
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ListAppointments"))

	appts, err := s.scheduling.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	log.Debug("appointments listed", slog.Int("count", len(out)))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "GetAppointment"))

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := s.scheduling.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) transitionHandler(action domain.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With(slog.String("handler", "TransitionAppointment"), slog.String("action", string(action)))

		id, ok := appointmentID(w, r)
		if !ok {
			return
		}
		appt, err := s.scheduling.Transition(r.Context(), actorFrom(r.Context()), id, action)
		if err != nil {
			s.writeServiceError(w, log, err)
			return
		}

		log.Info("appointment transitioned",
			slog.String("appointment_id", appt.ID.String()),
			slog.String("status", string(appt.Status)),
		)
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func (s *Server) updateAppointmentReason(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "UpdateAppointmentReason"))

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req updateReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	appt, err := s.scheduling.UpdateReason(r.Context(), actorFrom(r.Context()), id, req.Reason)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "DeleteAppointment"))

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := s.scheduling.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("appointment deleted", slog.String("appointment_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "appointment id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
