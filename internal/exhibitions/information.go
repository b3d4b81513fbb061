package exhibitions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
)

const (
	MaxTitleLength    = 200
	MaxLocationLength = 100
	MaxCommentLength  = 100
)

// InformationInput is the content supplied when an exhibition is created.
type InformationInput struct {
	Title        string
	Category     models.Category
	Location     string
	Price        *int
	RequiredTime *int
	Comment      *string
	ArDesignID   *uuid.UUID
	Image        []byte
}

// InformationUpdate is a partial update. Every field defaults to Keep.
type InformationUpdate struct {
	Title        models.Field[string]          `json:"title"`
	Category     models.Field[models.Category] `json:"category"`
	Location     models.Field[string]          `json:"location"`
	Price        models.Field[int]             `json:"price"`
	RequiredTime models.Field[int]             `json:"required_time"`
	Comment      models.Field[string]          `json:"comment"`
	ArDesignID   models.Field[uuid.UUID]       `json:"ar_design_id"`
	Image        models.Field[[]byte]          `json:"image"`
}

// NewInformation builds a validated information record for an exhibitor.
func NewInformation(exhibitorID uuid.UUID, exhibitorName string, in InformationInput, now time.Time) (models.ExhibitionInformation, error) {
	info := models.ExhibitionInformation{
		ID:            uuid.New(),
		ExhibitorID:   exhibitorID,
		ExhibitorName: exhibitorName,
		Title:         strings.TrimSpace(in.Title),
		Category:      in.Category,
		Location:      strings.TrimSpace(in.Location),
		Price:         in.Price,
		RequiredTime:  in.RequiredTime,
		Comment:       trimPtr(in.Comment),
		ArDesignID:    in.ArDesignID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	setImage(&info, in.Image)
	if err := validateInformation("exhibitions.NewInformation", &info); err != nil {
		return models.ExhibitionInformation{}, err
	}
	return info, nil
}

// ApplyUpdate returns existing with upd applied and UpdatedAt refreshed. existing is
// not modified.
func ApplyUpdate(existing models.ExhibitionInformation, upd InformationUpdate, now time.Time) (models.ExhibitionInformation, error) {
	const op = "exhibitions.ApplyUpdate"
	cleared := map[string]string{}
	next := existing

	switch upd.Title.Op() {
	case models.FieldSet:
		v, _ := upd.Title.Value()
		next.Title = strings.TrimSpace(v)
	case models.FieldClear:
		cleared["title"] = "cannot be cleared"
	}
	switch upd.Category.Op() {
	case models.FieldSet:
		next.Category, _ = upd.Category.Value()
	case models.FieldClear:
		cleared["category"] = "cannot be cleared"
	}
	switch upd.Location.Op() {
	case models.FieldSet:
		v, _ := upd.Location.Value()
		next.Location = strings.TrimSpace(v)
	case models.FieldClear:
		cleared["location"] = "cannot be cleared"
	}
	if len(cleared) > 0 {
		return existing, apperr.Validation(op, cleared)
	}

	next.Price = upd.Price.ApplyPtr(existing.Price)
	next.RequiredTime = upd.RequiredTime.ApplyPtr(existing.RequiredTime)
	next.Comment = trimPtr(upd.Comment.ApplyPtr(existing.Comment))
	next.ArDesignID = upd.ArDesignID.ApplyPtr(existing.ArDesignID)
	switch upd.Image.Op() {
	case models.FieldSet:
		img, _ := upd.Image.Value()
		setImage(&next, img)
	case models.FieldClear:
		setImage(&next, nil)
	}
	next.UpdatedAt = now

	if err := validateInformation(op, &next); err != nil {
		return existing, err
	}
	return next, nil
}

func validateInformation(op string, info *models.ExhibitionInformation) error {
	categories := make([]interface{}, 0, len(models.Categories))
	for _, c := range models.Categories {
		categories = append(categories, c)
	}
	err := validation.ValidateStruct(info,
		validation.Field(&info.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&info.Category, validation.Required, validation.In(categories...)),
		validation.Field(&info.Location, validation.Required, validation.RuneLength(1, MaxLocationLength)),
		validation.Field(&info.Price, validation.Min(0)),
		validation.Field(&info.RequiredTime, validation.By(positive)),
		validation.Field(&info.Comment, validation.RuneLength(0, MaxCommentLength)),
	)
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fe := range fieldErrs {
			fields[name] = fe.Error()
		}
		return apperr.Validation(op, fields)
	}
	return fmt.Errorf("%s: validate: %w", op, err)
}

// positive accepts nil; Min treats zero as empty and would let it through.
func positive(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if n, ok := v.(int); ok && n <= 0 {
		return errors.New("must be a positive number of minutes")
	}
	return nil
}

func setImage(info *models.ExhibitionInformation, img []byte) {
	if len(img) == 0 {
		info.Image = nil
		info.ImageSize = 0
		return
	}
	info.Image = img
	info.ImageSize = len(img)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
