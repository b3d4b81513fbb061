package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies an exhibition listing.
type Category string

const (
	CategoryFood       Category = "Food"
	CategoryExhibition Category = "Exhibition"
	CategoryExperience Category = "Experience"
	CategoryStage      Category = "Stage"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryFood, CategoryExhibition, CategoryExperience, CategoryStage}

// ParseCategory returns the category named s, if any.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ExhibitionInformation is the content record referenced by an Exhibition.
type ExhibitionInformation struct {
	ID            uuid.UUID  `json:"id"`
	ExhibitorID   uuid.UUID  `json:"exhibitor_id"`
	ExhibitorName string     `json:"exhibitor_name"`
	Title         string     `json:"title"`
	Category      Category   `json:"category"`
	Location      string     `json:"location"`
	Price         *int       `json:"price"`
	RequiredTime  *int       `json:"required_time"`
	Comment       *string    `json:"comment"`
	ArDesignID    *uuid.UUID `json:"ar_design_id"`
	Image         []byte     `json:"-"`
	// ImageSize is set even when a query leaves the blob out.
	ImageSize     int        `json:"image_size"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasImage reports whether an image blob is stored.
func (i *ExhibitionInformation) HasImage() bool { return i.ImageSize > 0 }

// CategoryCount is the number of published exhibitions in a category.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}
