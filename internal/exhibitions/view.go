package exhibitions

import (
	"github.com/expo-directory/backend/internal/models"
)

// View joins an exhibition with its information and AR design.
type View struct {
	models.Exhibition
	DraftFlag     int16                         `json:"is_draft"`
	PublishedFlag int16                         `json:"is_published"`
	Information   *models.ExhibitionInformation `json:"information"`
	HasImage      bool                          `json:"has_image"`
	ImageURL      string                        `json:"image_url,omitempty"`
	ArDesign      *models.ArDesign              `json:"ar_design"`
}

// Image is a stored image with its signature-inferred content type.
type Image struct {
	Data        []byte
	ContentType string
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// TotalPages is ceil(total/perPage), or 0 when there is nothing to show.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

func newView(ex models.Exhibition, info *models.ExhibitionInformation, ar *models.ArDesign) *View {
	draft, published := ex.State.Flags()
	v := &View{
		Exhibition:    ex,
		DraftFlag:     draft,
		PublishedFlag: published,
		Information:   info,
		ArDesign:      ar,
	}
	if info != nil {
		v.HasImage = info.HasImage()
	}
	return v
}
