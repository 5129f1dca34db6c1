package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Specialty struct {
	bun.BaseModel `bun:"table:specialties"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type Practitioner struct {
	bun.BaseModel `bun:"table:practitioners"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	FullName    string     `bun:"full_name,notnull"`
	SpecialtyID *uuid.UUID `bun:"specialty_id,type:uuid"`
	Phone       string     `bun:"phone"`
	WorkStart   TimeOfDay  `bun:"work_start,notnull,type:time"`
	WorkEnd     TimeOfDay  `bun:"work_end,notnull,type:time"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

// InWorkingHours reports whether t falls inside the practitioner's daily
// window. The end of the window is exclusive.
func (p *Practitioner) InWorkingHours(t TimeOfDay) bool {
	return !t.Before(p.WorkStart) && t.Before(p.WorkEnd)
}

func (s *Specialty) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if s.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (p *Practitioner) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			p.ID = id
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}
