package models

import (
	"time"

	"github.com/google/uuid"
)

// Exhibitor is a registered account that owns at most one exhibition listing.
type Exhibitor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExhibitorPublic is Exhibitor without sensitive fields for API responses.
type ExhibitorPublic struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts Exhibitor to ExhibitorPublic.
func (e *Exhibitor) ToPublic() ExhibitorPublic {
	return ExhibitorPublic{
		ID:        e.ID,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
	}
}
