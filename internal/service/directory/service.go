package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ConfigError marks broken provisioning: an authenticated subject whose
// declared role has no usable linked record. It is not a policy denial and
// must never be reported as one.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}

func configError(msg string) error {
	return &ConfigError{msg: msg}
}

// Service is the actor directory: it resolves authenticated subjects to
// actors, answers availability lookups, and provisions profiles together
// with their identity records in one explicit step.
type Service struct {
	repo store.DirectoryRepository
}

func NewService(repo store.DirectoryRepository) *Service {
	return &Service{repo: repo}
}

// Resolve maps an authenticated subject to a role plus linked identity. It
// never mutates anything: identities are provisioned once, not corrected on
// reads.
func (s *Service) Resolve(ctx context.Context, subject string) (domain.Actor, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.Actor{}, validationError("subject is required")
	}

	ident, err := s.repo.GetIdentity(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, configError(fmt.Sprintf("no identity provisioned for subject %q", subject))
		}
		return domain.Actor{}, err
	}

	switch ident.Role {
	case domain.RoleAdmin:
		return domain.Actor{Role: domain.RoleAdmin}, nil

	case domain.RolePractitioner:
		if ident.PractitionerID == nil {
			return domain.Actor{}, configError(fmt.Sprintf("identity %q has no linked practitioner record", subject))
		}
		if _, err := s.repo.GetPractitioner(ctx, *ident.PractitionerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Actor{}, configError(fmt.Sprintf("practitioner record for identity %q is missing", subject))
			}
			return domain.Actor{}, err
		}
		return domain.Actor{Role: domain.RolePractitioner, PractitionerID: *ident.PractitionerID}, nil

	case domain.RolePatient:
		if ident.PatientID == nil {
			return domain.Actor{}, configError(fmt.Sprintf("identity %q has no linked patient record", subject))
		}
		if _, err := s.repo.GetPatient(ctx, *ident.PatientID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Actor{}, configError(fmt.Sprintf("patient record for identity %q is missing", subject))
			}
			return domain.Actor{}, err
		}
		return domain.Actor{Role: domain.RolePatient, PatientID: *ident.PatientID}, nil
	}

	return domain.Actor{}, configError(fmt.Sprintf("identity %q has unknown role %q", subject, ident.Role))
}

// WindowFor returns the practitioner's daily working-hours window.
func (s *Service) WindowFor(ctx context.Context, practitionerID uuid.UUID) (domain.TimeOfDay, domain.TimeOfDay, error) {
	p, err := s.repo.GetPractitioner(ctx, practitionerID)
	if err != nil {
		return 0, 0, err
	}
	return p.WorkStart, p.WorkEnd, nil
}

type ProvisionPractitionerInput struct {
	Subject     string
	FullName    string
	SpecialtyID *uuid.UUID
	Phone       string
	WorkStart   domain.TimeOfDay
	WorkEnd     domain.TimeOfDay
}

func (s *Service) ProvisionPractitioner(ctx context.Context, in ProvisionPractitionerInput) (domain.Practitioner, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return domain.Practitioner{}, validationError("subject is required")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return domain.Practitioner{}, validationError("full_name is required")
	}
	if !in.WorkStart.Valid() || !in.WorkEnd.Valid() {
		return domain.Practitioner{}, validationError("working hours are out of range")
	}
	if !in.WorkStart.Before(in.WorkEnd) {
		return domain.Practitioner{}, validationError("work_start must be before work_end")
	}

	return s.repo.CreatePractitioner(ctx, domain.Practitioner{
		FullName:    fullName,
		SpecialtyID: in.SpecialtyID,
		Phone:       strings.TrimSpace(in.Phone),
		WorkStart:   in.WorkStart,
		WorkEnd:     in.WorkEnd,
	}, subject)
}

type ProvisionPatientInput struct {
	Subject    string
	FullName   string
	DocumentID string
	Phone      string
	BirthDate  *time.Time
}

func (s *Service) ProvisionPatient(ctx context.Context, in ProvisionPatientInput) (domain.Patient, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return domain.Patient{}, validationError("subject is required")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return domain.Patient{}, validationError("full_name is required")
	}
	documentID := strings.TrimSpace(in.DocumentID)
	if documentID == "" {
		return domain.Patient{}, validationError("document_id is required")
	}

	return s.repo.CreatePatient(ctx, domain.Patient{
		FullName:   fullName,
		DocumentID: documentID,
		Phone:      strings.TrimSpace(in.Phone),
		BirthDate:  in.BirthDate,
	}, subject)
}

// ProvisionAdmin creates an administrative identity. The admin role is fixed
// here, at provisioning time, and never inferred again.
func (s *Service) ProvisionAdmin(ctx context.Context, subject string) (domain.Identity, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.Identity{}, validationError("subject is required")
	}
	return s.repo.CreateAdminIdentity(ctx, subject)
}

type CreateSpecialtyInput struct {
	Name        string
	Description string
}

func (s *Service) CreateSpecialty(ctx context.Context, in CreateSpecialtyInput) (domain.Specialty, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Specialty{}, validationError("name is required")
	}
	return s.repo.CreateSpecialty(ctx, domain.Specialty{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	})
}

func (s *Service) ListPractitioners(ctx context.Context) ([]domain.Practitioner, error) {
	return s.repo.ListPractitioners(ctx)
}

func (s *Service) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	return s.repo.ListPatients(ctx)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]domain.Specialty, error) {
	return s.repo.ListSpecialties(ctx)
}
