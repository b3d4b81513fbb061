package exhibitions

import (
	"context"

	"github.com/google/uuid"

	"github.com/expo-directory/backend/internal/models"
)

// Repository lookups return (nil, nil) when the row does not exist; the service
// decides whether absence is an error.

// ExhibitionRepository persists Exhibition records.
type ExhibitionRepository interface {
	Save(ctx context.Context, ex *models.Exhibition) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Exhibition, error)
	FindByExhibitorID(ctx context.Context, exhibitorID uuid.UUID) (*models.Exhibition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindPublished(ctx context.Context, filter ListFilter) (PublishedPage, error)
	FindPublishedByID(ctx context.Context, id uuid.UUID) (*models.Exhibition, error)
	FindCategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
}

// InformationRepository persists ExhibitionInformation records. FindByIDs leaves the
// image blob out (ImageSize is still populated); records passed to Save must come from
// FindByID or FindByExhibitorID.
type InformationRepository interface {
	Save(ctx context.Context, info *models.ExhibitionInformation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ExhibitionInformation, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ExhibitionInformation, error)
	FindByExhibitorID(ctx context.Context, exhibitorID uuid.UUID) (*models.ExhibitionInformation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ArDesignRepository reads AR design reference data.
type ArDesignRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ArDesign, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ArDesign, error)
	FindAll(ctx context.Context) ([]models.ArDesign, error)
}

// ExhibitorRepository resolves the caller's account.
type ExhibitorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Exhibitor, error)
}

// Store groups the repositories. WithinTx runs fn against a Store bound to a single
// transaction; an error from fn rolls every write back.
type Store interface {
	Exhibitions() ExhibitionRepository
	Informations() InformationRepository
	ArDesigns() ArDesignRepository
	Exhibitors() ExhibitorRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// ImageSyncer schedules mirroring of a published exhibition image.
type ImageSyncer interface {
	EnqueueImageSync(ctx context.Context, exhibitionID uuid.UUID) error
}

// ListFilter selects published exhibitions. Page and PerPage are already validated.
type ListFilter struct {
	Category *models.Category
	Search   string
	Page     int
	PerPage  int
}

// Offset is the number of rows skipped before the page.
func (f ListFilter) Offset() int { return (f.Page - 1) * f.PerPage }

// PublishedPage is one page of published exhibitions plus the unpaged total.
type PublishedPage struct {
	Items []models.Exhibition
	Total int
}
