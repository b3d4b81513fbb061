package models

import (
	"time"

	"github.com/google/uuid"
)

// ArDesign points at an augmented-reality asset. Reference data, never mutated here.
type ArDesign struct {
	ID        uuid.UUID `json:"id"`
	URL       *string   `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
