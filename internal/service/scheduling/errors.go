package scheduling

import (
	"fmt"

	"medsched/backend/internal/domain"
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

// PermissionReason distinguishes which class of policy rule denied the call.
type PermissionReason string

const (
	PermissionRole      PermissionReason = "role"
	PermissionOwnership PermissionReason = "ownership"
)

type PermissionError struct {
	Reason PermissionReason
	msg    string
}

func (e *PermissionError) Error() string {
	return e.msg
}

func roleDenied(actor domain.Actor, action domain.Action) error {
	return &PermissionError{
		Reason: PermissionRole,
		msg:    fmt.Sprintf("role %q may not %s appointments", actor.Role, action),
	}
}

func ownershipDenied(action domain.Action) error {
	return &PermissionError{
		Reason: PermissionOwnership,
		msg:    fmt.Sprintf("may not %s an appointment belonging to someone else", action),
	}
}

// TransitionError reports a state-machine guard failure: the appointment's
// current state does not admit the attempted action.
type TransitionError struct {
	Current domain.AppointmentStatus
	Action  domain.Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an appointment in state %q", e.Action, e.Current)
}
