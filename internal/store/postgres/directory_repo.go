package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) GetIdentity(ctx context.Context, subject string) (domain.Identity, error) {
	var id domain.Identity
	err := r.db.NewSelect().
		Model(&id).
		Where("subject = ?", subject).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Identity{}, store.ErrNotFound
		}
		return domain.Identity{}, err
	}
	return id, nil
}

func (r *DirectoryRepo) GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error) {
	var p domain.Practitioner
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Practitioner{}, store.ErrNotFound
		}
		return domain.Practitioner{}, err
	}
	return p, nil
}

func (r *DirectoryRepo) ListPractitioners(ctx context.Context) ([]domain.Practitioner, error) {
	var rows []domain.Practitioner
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("full_name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreatePractitioner inserts the profile row and its identity record in one
// transaction. Replaces the original system's save-signal side effects with
// one explicit provisioning step.
func (r *DirectoryRepo) CreatePractitioner(ctx context.Context, p domain.Practitioner, subject string) (domain.Practitioner, error) {
	m := p
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return mapUniqueViolation(err)
		}
		ident := domain.Identity{
			Subject:        subject,
			Role:           domain.RolePractitioner,
			PractitionerID: &m.ID,
		}
		if _, err := tx.NewInsert().Model(&ident).Exec(ctx); err != nil {
			return mapUniqueViolation(err)
		}
		return nil
	})
	if err != nil {
		return domain.Practitioner{}, err
	}
	return m, nil
}

func (r *DirectoryRepo) GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	var p domain.Patient
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Patient{}, store.ErrNotFound
		}
		return domain.Patient{}, err
	}
	return p, nil
}

func (r *DirectoryRepo) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	var rows []domain.Patient
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("full_name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DirectoryRepo) CreatePatient(ctx context.Context, p domain.Patient, subject string) (domain.Patient, error) {
	m := p
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return mapUniqueViolation(err)
		}
		ident := domain.Identity{
			Subject:   subject,
			Role:      domain.RolePatient,
			PatientID: &m.ID,
		}
		if _, err := tx.NewInsert().Model(&ident).Exec(ctx); err != nil {
			return mapUniqueViolation(err)
		}
		return nil
	})
	if err != nil {
		return domain.Patient{}, err
	}
	return m, nil
}

// CreateAdminIdentity provisions an administrative identity once; the admin
// role is never inferred or corrected on later reads.
func (r *DirectoryRepo) CreateAdminIdentity(ctx context.Context, subject string) (domain.Identity, error) {
	ident := domain.Identity{
		Subject: subject,
		Role:    domain.RoleAdmin,
	}
	if _, err := r.db.NewInsert().Model(&ident).Exec(ctx); err != nil {
		return domain.Identity{}, mapUniqueViolation(err)
	}
	return ident, nil
}

func (r *DirectoryRepo) ListSpecialties(ctx context.Context) ([]domain.Specialty, error) {
	var rows []domain.Specialty
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("name ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DirectoryRepo) CreateSpecialty(ctx context.Context, s domain.Specialty) (domain.Specialty, error) {
	m := s
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Specialty{}, mapUniqueViolation(err)
	}
	return m, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}
