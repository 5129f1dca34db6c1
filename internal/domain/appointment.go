package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether the status no longer occupies its slot.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// Action is one of the named operations the authorization policy and the
// state machine reason about.
type Action string

const (
	ActionCreate       Action = "create"
	ActionList         Action = "list"
	ActionRetrieve     Action = "retrieve"
	ActionConfirm      Action = "confirm"
	ActionCancel       Action = "cancel"
	ActionComplete     Action = "complete"
	ActionUpdateReason Action = "update_reason"
	ActionDelete       Action = "delete"
)

// TransitionAction reports whether the action is a state-machine transition.
func (a Action) TransitionAction() bool {
	return a == ActionConfirm || a == ActionCancel || a == ActionComplete
}

// Next returns the status the action leads to from s. ok is false when the
// transition is illegal, including re-applying an already applied transition:
// confirming a confirmed appointment is an error, never a silent success.
func (s AppointmentStatus) Next(a Action) (AppointmentStatus, bool) {
	switch a {
	case ActionConfirm:
		if s == AppointmentPending {
			return AppointmentConfirmed, true
		}
	case ActionCancel:
		if s == AppointmentPending || s == AppointmentConfirmed {
			return AppointmentCancelled, true
		}
	case ActionComplete:
		if s == AppointmentConfirmed {
			return AppointmentCompleted, true
		}
	}
	return s, false
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             uuid.UUID         `bun:"id,pk,type:uuid"`
	PractitionerID uuid.UUID         `bun:"practitioner_id,notnull,type:uuid"`
	PatientID      uuid.UUID         `bun:"patient_id,notnull,type:uuid"`
	Date           time.Time         `bun:"date,notnull,type:date"`
	StartAt        TimeOfDay         `bun:"start_at,notnull,type:time"`
	Reason         string            `bun:"reason"`
	Status         AppointmentStatus `bun:"status,notnull"`
	CreatedAt      time.Time         `bun:"created_at,notnull"`
	UpdatedAt      time.Time         `bun:"updated_at,notnull"`
}

// StartsAt is the appointment instant, anchored in UTC.
func (a *Appointment) StartsAt() time.Time {
	return a.StartAt.At(a.Date)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = AppointmentPending
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
