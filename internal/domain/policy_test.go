package domain

import (
	"testing"

	"github.com/google/uuid"
)

var (
	practitionerA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	practitionerB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	patientX      = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	patientY      = uuid.MustParse("00000000-0000-0000-0000-0000000000bb")
)

func appt(status AppointmentStatus) *Appointment {
	return &Appointment{
		PractitionerID: practitionerA,
		PatientID:      patientX,
		Status:         status,
	}
}

func TestAuthorize(t *testing.T) {
	admin := Actor{Role: RoleAdmin}
	ownerPractitioner := Actor{Role: RolePractitioner, PractitionerID: practitionerA}
	otherPractitioner := Actor{Role: RolePractitioner, PractitionerID: practitionerB}
	ownerPatient := Actor{Role: RolePatient, PatientID: patientX}
	otherPatient := Actor{Role: RolePatient, PatientID: patientY}

	cases := []struct {
		name   string
		actor  Actor
		action Action
		target *Appointment
		want   Verdict
	}{
		{"admin create", admin, ActionCreate, nil, VerdictAllow},
		{"admin delete", admin, ActionDelete, appt(AppointmentPending), VerdictAllow},
		{"admin complete any", admin, ActionComplete, appt(AppointmentConfirmed), VerdictAllow},

		{"patient create", ownerPatient, ActionCreate, nil, VerdictAllow},
		{"practitioner create", ownerPractitioner, ActionCreate, nil, VerdictDenyRole},

		{"patient list", ownerPatient, ActionList, nil, VerdictAllow},
		{"practitioner retrieve", ownerPractitioner, ActionRetrieve, appt(AppointmentPending), VerdictAllow},

		{"owner practitioner confirm", ownerPractitioner, ActionConfirm, appt(AppointmentPending), VerdictAllow},
		{"other practitioner confirm", otherPractitioner, ActionConfirm, appt(AppointmentPending), VerdictDenyOwnership},
		{"patient confirm", ownerPatient, ActionConfirm, appt(AppointmentPending), VerdictDenyRole},

		{"owner practitioner complete", ownerPractitioner, ActionComplete, appt(AppointmentConfirmed), VerdictAllow},
		{"other practitioner complete", otherPractitioner, ActionComplete, appt(AppointmentConfirmed), VerdictDenyOwnership},
		{"patient complete", ownerPatient, ActionComplete, appt(AppointmentConfirmed), VerdictDenyRole},

		{"owner patient cancel pending", ownerPatient, ActionCancel, appt(AppointmentPending), VerdictAllow},
		{"owner patient cancel confirmed", ownerPatient, ActionCancel, appt(AppointmentConfirmed), VerdictAllow},
		{"owner patient cancel completed", ownerPatient, ActionCancel, appt(AppointmentCompleted), VerdictDenyState},
		{"owner patient cancel cancelled", ownerPatient, ActionCancel, appt(AppointmentCancelled), VerdictDenyState},
		{"other patient cancel", otherPatient, ActionCancel, appt(AppointmentPending), VerdictDenyOwnership},
		{"owner practitioner cancel", ownerPractitioner, ActionCancel, appt(AppointmentConfirmed), VerdictAllow},
		{"other practitioner cancel", otherPractitioner, ActionCancel, appt(AppointmentConfirmed), VerdictDenyOwnership},

		{"owner practitioner update reason", ownerPractitioner, ActionUpdateReason, appt(AppointmentPending), VerdictAllow},
		{"other practitioner update reason", otherPractitioner, ActionUpdateReason, appt(AppointmentPending), VerdictDenyOwnership},
		{"owner practitioner update reason terminal", ownerPractitioner, ActionUpdateReason, appt(AppointmentCompleted), VerdictDenyState},
		{"patient update reason", ownerPatient, ActionUpdateReason, appt(AppointmentPending), VerdictDenyRole},

		{"practitioner delete", ownerPractitioner, ActionDelete, appt(AppointmentPending), VerdictDenyRole},
		{"patient delete", ownerPatient, ActionDelete, appt(AppointmentPending), VerdictDenyRole},

		{"unknown role", Actor{Role: Role("ghost")}, ActionCancel, appt(AppointmentPending), VerdictDenyRole},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Authorize(tc.actor, tc.action, tc.target)
			if got != tc.want {
				t.Fatalf("Authorize = %q, want %q", got, tc.want)
			}
		})
	}
}

// Ownership is checked before state, so a foreign terminal appointment reads
// as an ownership denial rather than leaking its state.
func TestAuthorize_OwnershipCheckedBeforeState(t *testing.T) {
	otherPatient := Actor{Role: RolePatient, PatientID: patientY}
	got := Authorize(otherPatient, ActionCancel, appt(AppointmentCompleted))
	if got != VerdictDenyOwnership {
		t.Fatalf("Authorize = %q, want %q", got, VerdictDenyOwnership)
	}
}

func TestOwns(t *testing.T) {
	a := appt(AppointmentPending)

	if !Owns(Actor{Role: RoleAdmin}, a) {
		t.Fatalf("admin must own everything for read scoping")
	}
	if !Owns(Actor{Role: RolePractitioner, PractitionerID: practitionerA}, a) {
		t.Fatalf("assigned practitioner must own the appointment")
	}
	if Owns(Actor{Role: RolePractitioner, PractitionerID: practitionerB}, a) {
		t.Fatalf("other practitioner must not own the appointment")
	}
	if !Owns(Actor{Role: RolePatient, PatientID: patientX}, a) {
		t.Fatalf("booking patient must own the appointment")
	}
	if Owns(Actor{Role: RolePatient, PatientID: patientY}, a) {
		t.Fatalf("other patient must not own the appointment")
	}
	if Owns(Actor{Role: Role("ghost")}, a) {
		t.Fatalf("unknown role must not own anything")
	}
}
