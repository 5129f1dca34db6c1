package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
)

// AppointmentQuery narrows a listing to one side of the appointment. Zero
// values mean "all" (admin scope).
type AppointmentQuery struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
}

// SchedulingRepository owns appointment persistence. The two transaction
// helpers delimit the critical sections of the scheduler: booking serializes
// on the slot, transitions serialize on the appointment row.
type SchedulingRepository interface {
	// InSlotTransaction runs fn inside a transaction that holds an exclusive
	// lock on the (practitioner, date, time) slot, so a conflict check and
	// the insert that depends on it form one atomic unit.
	InSlotTransaction(ctx context.Context, practitionerID uuid.UUID, date time.Time, startAt domain.TimeOfDay, fn func(ctx context.Context, tx SlotTx) error) error

	// InAppointmentTransaction runs fn inside a transaction; fn re-reads the
	// appointment with a row lock before writing its new state.
	InAppointmentTransaction(ctx context.Context, fn func(ctx context.Context, tx AppointmentTx) error) error

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAppointments(ctx context.Context, q AppointmentQuery) ([]domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

// SlotTx is the view of the store available while the slot lock is held.
type SlotTx interface {
	GetPractitioner(ctx context.Context, id uuid.UUID) (domain.Practitioner, error)
	GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error)
	// HasSlotConflict reports whether a non-terminal appointment already
	// occupies the slot. excludeID, when non-nil, skips one appointment so a
	// slot can be re-validated during an update without self-conflicting.
	HasSlotConflict(ctx context.Context, practitionerID uuid.UUID, date time.Time, startAt domain.TimeOfDay, excludeID uuid.UUID) (bool, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}

// AppointmentTx is the view of the store inside a per-appointment critical
// section.
type AppointmentTx interface {
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
