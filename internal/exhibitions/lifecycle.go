package exhibitions

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
)

// ErrInvalidTransition is wrapped by every lifecycle rejection.
var ErrInvalidTransition = errors.New("invalid state transition")

var (
	ErrAlreadyPublished   = fmt.Errorf("%w: exhibition is already published", ErrInvalidTransition)
	ErrAlreadyUnpublished = fmt.Errorf("%w: exhibition is already unpublished", ErrInvalidTransition)
	ErrMustUnpublishFirst = fmt.Errorf("%w: unpublish the exhibition before returning it to draft", ErrInvalidTransition)
	ErrMissingInformation = fmt.Errorf("%w: exhibition information is required to publish", ErrInvalidTransition)
)

const (
	opPublish   = "exhibitions.Publish"
	opUnpublish = "exhibitions.Unpublish"
	opDraft     = "exhibitions.Draft"
)

// NewExhibition returns a draft exhibition referencing informationID.
func NewExhibition(exhibitorID, informationID uuid.UUID, now time.Time) models.Exhibition {
	return models.Exhibition{
		ID:            uuid.New(),
		ExhibitorID:   exhibitorID,
		InformationID: &informationID,
		State:         models.StateDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Publish moves a draft or unpublished exhibition that has information to Published.
func Publish(ex models.Exhibition, now time.Time) (models.Exhibition, error) {
	if ex.State == models.StatePublished {
		return ex, apperr.Wrap(apperr.KindConflict, opPublish, ErrAlreadyPublished)
	}
	if ex.InformationID == nil {
		return ex, &apperr.Error{
			Kind:    apperr.KindValidation,
			Op:      opPublish,
			Message: ErrMissingInformation.Error(),
			Fields:  map[string]string{"exhibition_information_id": "is required to publish"},
			Cause:   ErrMissingInformation,
		}
	}
	published := now
	ex.State = models.StatePublished
	ex.PublishedAt = &published
	ex.UpdatedAt = now
	return ex, nil
}

// Unpublish moves a published exhibition to Unpublished and clears PublishedAt.
func Unpublish(ex models.Exhibition, now time.Time) (models.Exhibition, error) {
	if ex.State != models.StatePublished {
		return ex, apperr.Wrap(apperr.KindConflict, opUnpublish, ErrAlreadyUnpublished)
	}
	ex.State = models.StateUnpublished
	ex.PublishedAt = nil
	ex.UpdatedAt = now
	return ex, nil
}

// Draft moves an unpublished exhibition back to Draft. Draft is a no-op on a draft
// and rejected on a published exhibition, which has to be unpublished first.
func Draft(ex models.Exhibition, now time.Time) (models.Exhibition, error) {
	switch ex.State {
	case models.StateDraft:
		return ex, nil
	case models.StatePublished:
		return ex, apperr.Wrap(apperr.KindConflict, opDraft, ErrMustUnpublishFirst)
	}
	ex.State = models.StateDraft
	ex.UpdatedAt = now
	return ex, nil
}
