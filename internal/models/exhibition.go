package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the publication state of an exhibition.
type State string

const (
	StateDraft       State = "draft"
	StateUnpublished State = "unpublished"
	StatePublished   State = "published"
)

// Flags projects the state onto the legacy (is_draft, is_published) column pair.
func (s State) Flags() (isDraft, isPublished int16) {
	switch s {
	case StateDraft:
		return 1, 0
	case StatePublished:
		return 0, 1
	default:
		return 0, 0
	}
}

// StateFromFlags is the inverse of Flags. Both flags set is rejected.
func StateFromFlags(isDraft, isPublished int16) (State, error) {
	switch {
	case isDraft == 1 && isPublished == 0:
		return StateDraft, nil
	case isDraft == 0 && isPublished == 1:
		return StatePublished, nil
	case isDraft == 0 && isPublished == 0:
		return StateUnpublished, nil
	default:
		return "", fmt.Errorf("invalid state flags is_draft=%d is_published=%d", isDraft, isPublished)
	}
}

// Exhibition is the lifecycle and ownership wrapper around an ExhibitionInformation.
type Exhibition struct {
	ID            uuid.UUID  `json:"id"`
	ExhibitorID   uuid.UUID  `json:"exhibitor_id"`
	InformationID *uuid.UUID `json:"exhibition_information_id"`
	State         State      `json:"state"`
	PublishedAt   *time.Time `json:"published_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsOwnedBy reports whether exhibitorID owns the exhibition.
func (e *Exhibition) IsOwnedBy(exhibitorID uuid.UUID) bool {
	return e.ExhibitorID == exhibitorID
}

// IsDraft mirrors the legacy is_draft flag.
func (e *Exhibition) IsDraft() bool { return e.State == StateDraft }

// IsPublished mirrors the legacy is_published flag.
func (e *Exhibition) IsPublished() bool { return e.State == StatePublished }
