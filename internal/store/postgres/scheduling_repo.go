package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/store"
)

// slotActiveIndex is the partial unique index over non-terminal appointments.
// It is the backstop when two bookings race past the advisory locks of two
// separate service instances.
const slotActiveIndex = "appointments_slot_active_idx"

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

type slotTx struct {
	tx bun.Tx
}

type appointmentTx struct {
	tx bun.Tx
}

func (r *SchedulingRepo) InSlotTransaction(ctx context.Context, practitionerID uuid.UUID, date time.Time, startAt domain.TimeOfDay, fn func(ctx context.Context, tx store.SlotTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockSlot(ctx, tx, practitionerID, date, startAt); err != nil {
			return err
		}
		return fn(ctx, slotTx{tx: tx})
	})
}

func (r *SchedulingRepo) InAppointmentTransaction(ctx context.Context, fn func(ctx context.Context, tx store.AppointmentTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, appointmentTx{tx: tx})
	})
}

func lockSlot(ctx context.Context, tx bun.Tx, practitionerID uuid.UUID, date time.Time, startAt domain.TimeOfDay) error {
	key := slotLockKey(practitionerID, date, startAt)
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return err
}

func slotLockKey(practitionerID uuid.UUID, date time.Time, startAt domain.TimeOfDay) string {
	return fmt.Sprintf("slot:%s:%s:%s", practitionerID, date.UTC().Format("2006-01-02"), startAt)
}

func (r *SchedulingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r *SchedulingRepo) ListAppointments(ctx context.Context, q store.AppointmentQuery) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	sel := r.db.NewSelect().Model(&rows)
	if q.PractitionerID != uuid.Nil {
		sel = sel.Where("practitioner_id = ?", q.PractitionerID)
	}
	if q.PatientID != uuid.Nil {
		sel = sel.Where("patient_id = ?", q.PatientID)
	}
	err := sel.
		OrderExpr("date ASC, start_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r slotTx) GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error) {
	var p domain.Practitioner
	err := r.tx.NewSelect().
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

func (r slotTx) GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	var p domain.Patient
	err := r.tx.NewSelect().
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

func (r slotTx) HasSlotConflict(ctx context.Context, practitionerID uuid.UUID, date time.Time, startAt domain.TimeOfDay, excludeID uuid.UUID) (bool, error) {
	q := r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("practitioner_id = ?", practitionerID).
		Where("date = ?", date.UTC().Format("2006-01-02")).
		Where("start_at = ?", startAt).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.AppointmentPending, domain.AppointmentConfirmed}))
	if excludeID != uuid.Nil {
		q = q.Where("id != ?", excludeID)
	}
	return q.Exists(ctx)
}

func (r slotTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == slotActiveIndex {
			// A competing booking committed between our advisory lock and
			// theirs (separate service instances). Same answer as the
			// in-transaction check: the slot is taken.
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r appointmentTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("id = ?", id).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r appointmentTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("status", "reason", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}
