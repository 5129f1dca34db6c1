package scheduling

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

// Service is the scheduling façade. Every operation takes the acting caller
// explicitly; there is no ambient request context. The authorization policy
// is consulted before any write reaches the state machine, and every
// read-validate-write sequence runs inside one repository transaction.
type Service struct {
	repo store.SchedulingRepository
	now  func() time.Time
}

func NewService(repo store.SchedulingRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	PractitionerID uuid.UUID
	// PatientID is honored for admin actors only; patient actors always book
	// for themselves regardless of what the caller supplied.
	PatientID uuid.UUID
	Date      time.Time
	StartAt   domain.TimeOfDay
	Reason    string
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (domain.Appointment, error) {
	if v := domain.Authorize(actor, domain.ActionCreate, nil); v != domain.VerdictAllow {
		return domain.Appointment{}, roleDenied(actor, domain.ActionCreate)
	}

	patientID := in.PatientID
	if actor.Role == domain.RolePatient {
		patientID = actor.PatientID
	}

	if in.PractitionerID == uuid.Nil {
		return domain.Appointment{}, validationError("practitioner_id is required")
	}
	if patientID == uuid.Nil {
		return domain.Appointment{}, validationError("patient_id is required")
	}
	if in.Date.IsZero() {
		return domain.Appointment{}, validationError("date is required")
	}
	if !in.StartAt.Valid() {
		return domain.Appointment{}, validationError("time is out of range")
	}

	d := in.Date.UTC()
	date := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if in.StartAt.At(date).Before(s.now().UTC()) {
		return domain.Appointment{}, validationError("cannot book a slot in the past")
	}

	var out domain.Appointment
	err := s.repo.InSlotTransaction(ctx, in.PractitionerID, date, in.StartAt, func(ctx context.Context, tx store.SlotTx) error {
		p, err := tx.GetPractitioner(ctx, in.PractitionerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return validationError("practitioner does not exist")
			}
			return err
		}
		if !p.InWorkingHours(in.StartAt) {
			return validationError(fmt.Sprintf(
				"time %s is outside working hours %s-%s", in.StartAt, p.WorkStart, p.WorkEnd,
			))
		}

		if _, err := tx.GetPatient(ctx, patientID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return validationError("patient does not exist")
			}
			return err
		}

		occupied, err := tx.HasSlotConflict(ctx, in.PractitionerID, date, in.StartAt, uuid.Nil)
		if err != nil {
			return err
		}
		if occupied {
			return store.ErrConflict
		}

		a, err := tx.CreateAppointment(ctx, domain.Appointment{
			PractitionerID: in.PractitionerID,
			PatientID:      patientID,
			Date:           date,
			StartAt:        in.StartAt,
			Reason:         strings.TrimSpace(in.Reason),
			Status:         domain.AppointmentPending,
		})
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// List returns all appointments for admins and the actor's own appointments
// for practitioners and patients. Scoping is filtering, never a denial.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Appointment, error) {
	q := store.AppointmentQuery{}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RolePractitioner:
		q.PractitionerID = actor.PractitionerID
	case domain.RolePatient:
		q.PatientID = actor.PatientID
	default:
		return nil, roleDenied(actor, domain.ActionList)
	}
	return s.repo.ListAppointments(ctx, q)
}

// Get returns a single appointment. Ownership misses read as not-found so
// appointment ids cannot be probed for existence.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !domain.Owns(actor, &appt) {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

// Transition applies confirm, cancel or complete. The appointment's current
// state is re-read under a row lock in the same transaction that writes the
// new state, so two racing transitions serialize and the loser sees the
// winner's state.
func (s *Service) Transition(ctx context.Context, actor domain.Actor, id uuid.UUID, action domain.Action) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if !action.TransitionAction() {
		return domain.Appointment{}, validationError(fmt.Sprintf("unsupported transition %q", action))
	}

	var out domain.Appointment
	err := s.repo.InAppointmentTransaction(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch domain.Authorize(actor, action, &appt) {
		case domain.VerdictAllow:
		case domain.VerdictDenyOwnership:
			return ownershipDenied(action)
		case domain.VerdictDenyState:
			return &TransitionError{Current: appt.Status, Action: action}
		default:
			return roleDenied(actor, action)
		}

		next, ok := appt.Status.Next(action)
		if !ok {
			return &TransitionError{Current: appt.Status, Action: action}
		}
		appt.Status = next

		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// UpdateReason edits the free-text reason of a non-terminal appointment.
func (s *Service) UpdateReason(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	var out domain.Appointment
	err := s.repo.InAppointmentTransaction(ctx, func(ctx context.Context, tx store.AppointmentTx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch domain.Authorize(actor, domain.ActionUpdateReason, &appt) {
		case domain.VerdictAllow:
		case domain.VerdictDenyOwnership:
			return ownershipDenied(domain.ActionUpdateReason)
		case domain.VerdictDenyState:
			return &TransitionError{Current: appt.Status, Action: domain.ActionUpdateReason}
		default:
			return roleDenied(actor, domain.ActionUpdateReason)
		}

		appt.Reason = strings.TrimSpace(reason)

		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Delete is the administrative hard removal, independent of the state
// machine and distinct from cancellation.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if v := domain.Authorize(actor, domain.ActionDelete, nil); v != domain.VerdictAllow {
		return roleDenied(actor, domain.ActionDelete)
	}
	if id == uuid.Nil {
		return validationError("appointment_id is required")
	}
	return s.repo.DeleteAppointment(ctx, id)
}
