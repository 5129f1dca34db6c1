package domain

// Verdict is the tri-state-plus-allow outcome of the authorization policy.
// Denials carry the rule class that failed so callers can produce actionable
// errors without re-deriving it.
type Verdict string

const (
	VerdictAllow         Verdict = "allow"
	VerdictDenyRole      Verdict = "deny-role"
	VerdictDenyOwnership Verdict = "deny-ownership"
	VerdictDenyState     Verdict = "deny-state"
)

// Authorize is the single policy decision point consulted before any write
// reaches the state machine. It is a pure function of the actor, the action
// and the target appointment; target is nil for create and list.
func Authorize(actor Actor, action Action, target *Appointment) Verdict {
	if actor.Role == RoleAdmin {
		return VerdictAllow
	}

	switch action {
	case ActionCreate:
		// Patients book for themselves; admins may book on behalf of anyone.
		if actor.Role == RolePatient {
			return VerdictAllow
		}
		return VerdictDenyRole

	case ActionList, ActionRetrieve:
		// Never a denial: the scheduling service narrows the result set to
		// the actor's own appointments instead.
		return VerdictAllow

	case ActionConfirm, ActionComplete:
		if actor.Role != RolePractitioner {
			return VerdictDenyRole
		}
		if target == nil || target.PractitionerID != actor.PractitionerID {
			return VerdictDenyOwnership
		}
		return VerdictAllow

	case ActionCancel:
		switch actor.Role {
		case RolePatient:
			if target == nil || target.PatientID != actor.PatientID {
				return VerdictDenyOwnership
			}
			if target.Status.Terminal() {
				return VerdictDenyState
			}
			return VerdictAllow
		case RolePractitioner:
			if target == nil || target.PractitionerID != actor.PractitionerID {
				return VerdictDenyOwnership
			}
			return VerdictAllow
		}
		return VerdictDenyRole

	case ActionUpdateReason:
		if actor.Role != RolePractitioner {
			return VerdictDenyRole
		}
		if target == nil || target.PractitionerID != actor.PractitionerID {
			return VerdictDenyOwnership
		}
		if target.Status.Terminal() {
			return VerdictDenyState
		}
		return VerdictAllow

	case ActionDelete:
		// Hard delete is an administrative operation, not a lifecycle one.
		return VerdictDenyRole
	}

	return VerdictDenyRole
}

// Owns reports whether the actor's identity matches the appointment's
// practitioner or patient reference. Admins own everything for the purposes
// of read scoping.
func Owns(actor Actor, appt *Appointment) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RolePractitioner:
		return appt.PractitionerID == actor.PractitionerID
	case RolePatient:
		return appt.PatientID == actor.PatientID
	}
	return false
}
