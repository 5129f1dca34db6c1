package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RolePractitioner Role = "practitioner"
	RolePatient      Role = "patient"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePractitioner || r == RolePatient
}

// Actor is the authenticated caller of a single operation. For non-admin
// roles exactly one of PractitionerID / PatientID is set.
type Actor struct {
	Role           Role
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
}

// Identity links an authenticated subject (issued by the out-of-scope auth
// layer) to a role and, for non-admin roles, the profile row it acts as.
type Identity struct {
	bun.BaseModel `bun:"table:identities"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	Subject        string     `bun:"subject,notnull,unique"`
	Role           Role       `bun:"role,notnull"`
	PractitionerID *uuid.UUID `bun:"practitioner_id,type:uuid"`
	PatientID      *uuid.UUID `bun:"patient_id,type:uuid"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
}

func (i *Identity) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if i.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		i.ID = id
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	return nil
}
