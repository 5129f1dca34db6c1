package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/service/directory"
)

type provisionPractitionerRequest struct {
	Subject     string `json:"subject" validate:"required"`
	FullName    string `json:"full_name" validate:"required"`
	SpecialtyID string `json:"specialty_id" validate:"omitempty,uuid"`
	Phone       string `json:"phone" validate:"max=32"`
	WorkStart   string `json:"work_start" validate:"required"`
	WorkEnd     string `json:"work_end" validate:"required"`
}

type provisionPatientRequest struct {
	Subject    string `json:"subject" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	DocumentID string `json:"document_id" validate:"required"`
	Phone      string `json:"phone" validate:"max=32"`
	BirthDate  string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

type provisionAdminRequest struct {
	Subject string `json:"subject" validate:"required"`
}

type createSpecialtyRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type practitionerResponse struct {
	ID          string  `json:"id"`
	FullName    string  `json:"full_name"`
	SpecialtyID *string `json:"specialty_id,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	WorkStart   string  `json:"work_start"`
	WorkEnd     string  `json:"work_end"`
}

type patientResponse struct {
	ID         string  `json:"id"`
	FullName   string  `json:"full_name"`
	DocumentID string  `json:"document_id"`
	Phone      string  `json:"phone,omitempty"`
	BirthDate  *string `json:"birth_date,omitempty"`
}

type specialtyResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type identityResponse struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

func toPractitionerResponse(p domain.Practitioner) practitionerResponse {
	out := practitionerResponse{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		Phone:     p.Phone,
		WorkStart: p.WorkStart.String(),
		WorkEnd:   p.WorkEnd.String(),
	}
	if p.SpecialtyID != nil {
		id := p.SpecialtyID.String()
		out.SpecialtyID = &id
	}
	return out
}

func toPatientResponse(p domain.Patient) patientResponse {
	out := patientResponse{
		ID:         p.ID.String(),
		FullName:   p.FullName,
		DocumentID: p.DocumentID,
		Phone:      p.Phone,
	}
	if p.BirthDate != nil {
		d := p.BirthDate.UTC().Format("2006-01-02")
		out.BirthDate = &d
	}
	return out
}

// requireAdmin gates profile provisioning, which the original system kept
// admin-only. Appointment authorization lives in the domain policy instead.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if actorFrom(r.Context()).Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden-role", "administrator role required")
		return false
	}
	return true
}

func (s *Server) listPractitioners(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ListPractitioners"))

	rows, err := s.directory.ListPractitioners(r.Context())
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	out := make([]practitionerResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, toPractitionerResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) provisionPractitioner(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ProvisionPractitioner"))

	if !requireAdmin(w, r) {
		return
	}
	var req provisionPractitionerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	workStart, err := domain.ParseTimeOfDay(req.WorkStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "work_start must be HH:MM")
		return
	}
	workEnd, err := domain.ParseTimeOfDay(req.WorkEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "work_end must be HH:MM")
		return
	}
	var specialtyID *uuid.UUID
	if req.SpecialtyID != "" {
		id, err := uuid.Parse(req.SpecialtyID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "specialty_id must be a UUID")
			return
		}
		specialtyID = &id
	}

	p, err := s.directory.ProvisionPractitioner(r.Context(), directory.ProvisionPractitionerInput{
		Subject:     req.Subject,
		FullName:    req.FullName,
		SpecialtyID: specialtyID,
		Phone:       req.Phone,
		WorkStart:   workStart,
		WorkEnd:     workEnd,
	})
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("practitioner provisioned", slog.String("practitioner_id", p.ID.String()))
	writeJSON(w, http.StatusCreated, toPractitionerResponse(p))
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ListPatients"))

	if !requireAdmin(w, r) {
		return
	}
	rows, err := s.directory.ListPatients(r.Context())
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	out := make([]patientResponse, 0, len(rows))
	for _, p := range rows {
		out = append(out, toPatientResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) provisionPatient(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ProvisionPatient"))

	if !requireAdmin(w, r) {
		return
	}
	var req provisionPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var birthDate *time.Time
	if req.BirthDate != "" {
		d, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "birth_date must be YYYY-MM-DD")
			return
		}
		birthDate = &d
	}

	p, err := s.directory.ProvisionPatient(r.Context(), directory.ProvisionPatientInput{
		Subject:    req.Subject,
		FullName:   req.FullName,
		DocumentID: req.DocumentID,
		Phone:      req.Phone,
		BirthDate:  birthDate,
	})
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("patient provisioned", slog.String("patient_id", p.ID.String()))
	writeJSON(w, http.StatusCreated, toPatientResponse(p))
}

func (s *Server) practitionerHours(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "PractitionerHours"))

	id, err := uuid.Parse(chi.URLParam(r, "practitionerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "practitioner id must be a UUID")
		return
	}
	start, end, err := s.directory.WindowFor(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"work_start": start.String(),
		"work_end":   end.String(),
	})
}

func (s *Server) provisionAdmin(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ProvisionAdmin"))

	if !requireAdmin(w, r) {
		return
	}
	var req provisionAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	ident, err := s.directory.ProvisionAdmin(r.Context(), req.Subject)
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("admin provisioned", slog.String("subject", ident.Subject))
	writeJSON(w, http.StatusCreated, identityResponse{
		ID:      ident.ID.String(),
		Subject: ident.Subject,
		Role:    string(ident.Role),
	})
}

func (s *Server) listSpecialties(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ListSpecialties"))

	rows, err := s.directory.ListSpecialties(r.Context())
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}
	out := make([]specialtyResponse, 0, len(rows))
	for _, sp := range rows {
		out = append(out, specialtyResponse{
			ID:          sp.ID.String(),
			Name:        sp.Name,
			Description: sp.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSpecialty(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "CreateSpecialty"))

	if !requireAdmin(w, r) {
		return
	}
	var req createSpecialtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	sp, err := s.directory.CreateSpecialty(r.Context(), directory.CreateSpecialtyInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceError(w, log, err)
		return
	}

	log.Info("specialty created", slog.String("specialty_id", sp.ID.String()))
	writeJSON(w, http.StatusCreated, specialtyResponse{
		ID:          sp.ID.String(),
		Name:        sp.Name,
		Description: sp.Description,
	})
}
