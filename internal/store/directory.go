package store

import (
	"context"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
)

// DirectoryRepository holds the identity and profile records the scheduler
// reads: who a subject is, and each practitioner's working hours. Profile
// provisioning creates the profile row and its identity record in one
// explicit transaction; nothing is created as a side effect of other writes.
type DirectoryRepository interface {
	GetIdentity(ctx context.Context, subject string) (domain.Identity, error)

	GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error)
	ListPractitioners(ctx context.Context) ([]domain.Practitioner, error)
	CreatePractitioner(ctx context.Context, p domain.Practitioner, subject string) (domain.Practitioner, error)

	GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error)
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	CreatePatient(ctx context.Context, p domain.Patient, subject string) (domain.Patient, error)

	CreateAdminIdentity(ctx context.Context, subject string) (domain.Identity, error)

	ListSpecialties(ctx context.Context) ([]domain.Specialty, error)
	CreateSpecialty(ctx context.Context, s domain.Specialty) (domain.Specialty, error)
}
