package exhibitions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PublishedQuery is the public listing request. Nil Page/PerPage take the defaults.
type PublishedQuery struct {
	Category string
	Search   string
	Page     *int
	PerPage  *int
}

// Service runs the exhibitor-facing and public exhibition use cases.
type Service struct {
	store          Store
	images         ImageSyncer
	imageURL       func(exhibitionID uuid.UUID) string
	defaultPerPage int
	now            func() time.Time
	logger         *zap.Logger
}

// NewService creates an exhibition service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		defaultPerPage: DefaultPerPage,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         logger,
	}
}

// SetImageSync enables mirroring of published images. imageURL builds the public URL
// shown on published views; it may be nil.
func (s *Service) SetImageSync(syncer ImageSyncer, imageURL func(exhibitionID uuid.UUID) string) {
	s.images = syncer
	s.imageURL = imageURL
}

// SetDefaultPerPage overrides the listing page size used when none is requested.
func (s *Service) SetDefaultPerPage(n int) {
	if n >= 1 && n <= MaxPerPage {
		s.defaultPerPage = n
	}
}

// Create registers the caller's single exhibition, in Draft, with its information.
func (s *Service) Create(ctx context.Context, exhibitorID uuid.UUID, in InformationInput) (*View, error) {
	const op = "exhibitions.Create"
	var view *View
	err := s.store.WithinTx(ctx, func(tx Store) error {
		exhibitor, err := tx.Exhibitors().GetByID(ctx, exhibitorID)
		if err != nil {
			return fmt.Errorf("%s: find exhibitor: %w", op, err)
		}
		if exhibitor == nil {
			return apperr.Unauthorized(op, "exhibitor account not found")
		}

		existing, err := tx.Informations().FindByExhibitorID(ctx, exhibitorID)
		if err != nil {
			return fmt.Errorf("%s: find information: %w", op, err)
		}
		if existing != nil {
			return apperr.Conflict(op, "exhibition information already exists for this exhibitor")
		}
		existingEx, err := tx.Exhibitions().FindByExhibitorID(ctx, exhibitorID)
		if err != nil {
			return fmt.Errorf("%s: find exhibition: %w", op, err)
		}
		if existingEx != nil {
			return apperr.Conflict(op, "exhibitor already has an exhibition")
		}

		ar, err := requireArDesign(ctx, tx, op, in.ArDesignID)
		if err != nil {
			return err
		}

		now := s.now()
		info, err := NewInformation(exhibitor.ID, exhibitor.Name, in, now)
		if err != nil {
			return err
		}
		ex := NewExhibition(exhibitorID, info.ID, now)

		// The exhibition references the information, so the information goes first.
		if err := tx.Informations().Save(ctx, &info); err != nil {
			return fmt.Errorf("%s: save information: %w", op, err)
		}
		if err := tx.Exhibitions().Save(ctx, &ex); err != nil {
			return fmt.Errorf("%s: save exhibition: %w", op, err)
		}
		view = newView(ex, &info, ar)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("exhibition created",
		zap.String("exhibition_id", view.ID.String()),
		zap.String("exhibitor_id", exhibitorID.String()))
	return view, nil
}

// GetMine returns the caller's exhibition.
func (s *Service) GetMine(ctx context.Context, exhibitorID uuid.UUID) (*View, error) {
	const op = "exhibitions.GetMine"
	ex, err := s.store.Exhibitions().FindByExhibitorID(ctx, exhibitorID)
	if err != nil {
		return nil, fmt.Errorf("%s: find exhibition: %w", op, err)
	}
	if ex == nil {
		return nil, apperr.NotFound(op, "exhibition not found")
	}
	return s.assemble(ctx, s.store, op, *ex, nil)
}

// Get returns one of the caller's exhibitions.
func (s *Service) Get(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error) {
	const op = "exhibitions.Get"
	ex, err := loadOwned(ctx, s.store, op, exhibitorID, exhibitionID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, s.store, op, *ex, nil)
}

// UpdateInformation applies a partial update to the exhibition's information.
func (s *Service) UpdateInformation(ctx context.Context, exhibitorID, exhibitionID uuid.UUID, upd InformationUpdate) (*View, error) {
	return s.updateInformation(ctx, "exhibitions.UpdateInformation", exhibitorID, exhibitionID, upd)
}

// UploadImage stores or replaces the exhibition image. The caller enforces CheckImage.
func (s *Service) UploadImage(ctx context.Context, exhibitorID, exhibitionID uuid.UUID, data []byte) (*View, error) {
	const op = "exhibitions.UploadImage"
	if len(data) == 0 {
		return nil, apperr.Validation(op, map[string]string{"image": "is required"})
	}
	return s.updateInformation(ctx, op, exhibitorID, exhibitionID, InformationUpdate{Image: models.Set(data)})
}

// DeleteImage removes the exhibition image.
func (s *Service) DeleteImage(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error) {
	return s.updateInformation(ctx, "exhibitions.DeleteImage", exhibitorID, exhibitionID, InformationUpdate{Image: models.Clear[[]byte]()})
}

func (s *Service) updateInformation(ctx context.Context, op string, exhibitorID, exhibitionID uuid.UUID, upd InformationUpdate) (*View, error) {
	view, err := s.withOwned(ctx, op, exhibitorID, exhibitionID, func(ctx context.Context, tx Store, ex *models.Exhibition) (*View, error) {
		info, err := loadInformation(ctx, tx, op, ex)
		if err != nil {
			return nil, err
		}
		if id, ok := upd.ArDesignID.Value(); ok {
			if _, err := requireArDesign(ctx, tx, op, &id); err != nil {
				return nil, err
			}
		}
		next, err := ApplyUpdate(*info, upd, s.now())
		if err != nil {
			return nil, err
		}
		if err := tx.Informations().Save(ctx, &next); err != nil {
			return nil, fmt.Errorf("%s: save information: %w", op, err)
		}
		return s.assemble(ctx, tx, op, *ex, &next)
	})
	if err != nil {
		return nil, err
	}
	if upd.Image.Op() != models.FieldKeep {
		s.syncImage(ctx, view.ID)
	}
	return view, nil
}

// Publish makes the exhibition visible on the public listing.
func (s *Service) Publish(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error) {
	return s.transition(ctx, opPublish, exhibitorID, exhibitionID, Publish, true)
}

// Unpublish removes the exhibition from the public listing.
func (s *Service) Unpublish(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error) {
	return s.transition(ctx, opUnpublish, exhibitorID, exhibitionID, Unpublish, true)
}

// Draft returns an unpublished exhibition to Draft.
func (s *Service) Draft(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error) {
	return s.transition(ctx, opDraft, exhibitorID, exhibitionID, Draft, false)
}

type transitionFunc func(ex models.Exhibition, now time.Time) (models.Exhibition, error)

func (s *Service) transition(ctx context.Context, op string, exhibitorID, exhibitionID uuid.UUID, apply transitionFunc, changesVisibility bool) (*View, error) {
	view, err := s.withOwned(ctx, op, exhibitorID, exhibitionID, func(ctx context.Context, tx Store, ex *models.Exhibition) (*View, error) {
		next, err := apply(*ex, s.now())
		if err != nil {
			return nil, err
		}
		if next != *ex {
			if err := tx.Exhibitions().Save(ctx, &next); err != nil {
				return nil, fmt.Errorf("%s: save exhibition: %w", op, err)
			}
		}
		return s.assemble(ctx, tx, op, next, nil)
	})
	observeTransition(op, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("exhibition state changed",
		zap.String("op", op),
		zap.String("exhibition_id", view.ID.String()),
		zap.String("state", string(view.State)))
	if changesVisibility {
		s.syncImage(ctx, view.ID)
	}
	return view, nil
}

// Delete removes the exhibition and its information.
func (s *Service) Delete(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) error {
	const op = "exhibitions.Delete"
	_, err := s.withOwned(ctx, op, exhibitorID, exhibitionID, func(ctx context.Context, tx Store, ex *models.Exhibition) (*View, error) {
		// The exhibition holds the foreign key, so it is removed before the information.
		if err := tx.Exhibitions().Delete(ctx, ex.ID); err != nil {
			return nil, fmt.Errorf("%s: delete exhibition: %w", op, err)
		}
		if ex.InformationID != nil {
			if err := tx.Informations().Delete(ctx, *ex.InformationID); err != nil {
				return nil, fmt.Errorf("%s: delete information: %w", op, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("exhibition deleted", zap.String("exhibition_id", exhibitionID.String()))
	s.syncImage(ctx, exhibitionID)
	return nil
}

// GetImage returns the image of one of the caller's exhibitions.
func (s *Service) GetImage(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*Image, error) {
	const op = "exhibitions.GetImage"
	ex, err := loadOwned(ctx, s.store, op, exhibitorID, exhibitionID)
	if err != nil {
		return nil, err
	}
	return imageOf(ctx, s.store, op, ex)
}

// ListPublished returns one page of the public listing.
func (s *Service) ListPublished(ctx context.Context, q PublishedQuery) (*Page[View], error) {
	const op = "exhibitions.ListPublished"
	filter, err := s.listFilter(op, q)
	if err != nil {
		return nil, err
	}
	page, err := s.store.Exhibitions().FindPublished(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: find published: %w", op, err)
	}

	infoIDs := make([]uuid.UUID, 0, len(page.Items))
	for _, ex := range page.Items {
		if ex.InformationID != nil {
			infoIDs = append(infoIDs, *ex.InformationID)
		}
	}
	infos, err := s.store.Informations().FindByIDs(ctx, infoIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: find information: %w", op, err)
	}
	infoByID := make(map[uuid.UUID]*models.ExhibitionInformation, len(infos))
	var arIDs []uuid.UUID
	for i := range infos {
		infoByID[infos[i].ID] = &infos[i]
		if infos[i].ArDesignID != nil {
			arIDs = append(arIDs, *infos[i].ArDesignID)
		}
	}
	arByID := map[uuid.UUID]*models.ArDesign{}
	if len(arIDs) > 0 {
		ars, err := s.store.ArDesigns().FindByIDs(ctx, arIDs)
		if err != nil {
			return nil, fmt.Errorf("%s: find ar designs: %w", op, err)
		}
		for i := range ars {
			arByID[ars[i].ID] = &ars[i]
		}
	}

	items := make([]View, 0, len(page.Items))
	for _, ex := range page.Items {
		var info *models.ExhibitionInformation
		if ex.InformationID != nil {
			info = infoByID[*ex.InformationID]
		}
		if info == nil {
			s.logger.Warn("published exhibition without information row", zap.String("exhibition_id", ex.ID.String()))
			continue
		}
		var ar *models.ArDesign
		if info.ArDesignID != nil {
			ar = arByID[*info.ArDesignID]
		}
		v := newView(ex, info, ar)
		s.decoratePublic(v)
		items = append(items, *v)
	}
	return &Page[View]{
		Items:      items,
		Total:      page.Total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: TotalPages(page.Total, filter.PerPage),
	}, nil
}

// GetPublished returns a published exhibition by id.
func (s *Service) GetPublished(ctx context.Context, exhibitionID uuid.UUID) (*View, error) {
	const op = "exhibitions.GetPublished"
	ex, err := s.store.Exhibitions().FindPublishedByID(ctx, exhibitionID)
	if err != nil {
		return nil, fmt.Errorf("%s: find exhibition: %w", op, err)
	}
	if ex == nil {
		return nil, apperr.NotFound(op, "exhibition not found")
	}
	v, err := s.assemble(ctx, s.store, op, *ex, nil)
	if err != nil {
		return nil, err
	}
	s.decoratePublic(v)
	return v, nil
}

// GetPublishedImage returns the image of a published exhibition.
func (s *Service) GetPublishedImage(ctx context.Context, exhibitionID uuid.UUID) (*Image, error) {
	const op = "exhibitions.GetPublishedImage"
	ex, err := s.store.Exhibitions().FindPublishedByID(ctx, exhibitionID)
	if err != nil {
		return nil, fmt.Errorf("%s: find exhibition: %w", op, err)
	}
	if ex == nil {
		return nil, apperr.NotFound(op, "exhibition not found")
	}
	return imageOf(ctx, s.store, op, ex)
}

// CategoryCounts returns the number of published exhibitions for every category,
// including empty ones, in display order.
func (s *Service) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	const op = "exhibitions.CategoryCounts"
	counts, err := s.store.Exhibitions().FindCategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byCategory := make(map[models.Category]int, len(counts))
	for _, c := range counts {
		byCategory[c.Category] += c.Count
	}
	out := make([]models.CategoryCount, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, models.CategoryCount{Category: c, Count: byCategory[c]})
	}
	return out, nil
}

// ownedFunc is one exhibitor-scoped operation on a loaded, ownership-checked exhibition.
type ownedFunc func(ctx context.Context, tx Store, ex *models.Exhibition) (*View, error)

// withOwned is the shared skeleton for exhibitor-scoped writes: load, NotFound,
// ownership, apply, persist, reassemble, all inside one transaction.
func (s *Service) withOwned(ctx context.Context, op string, exhibitorID, exhibitionID uuid.UUID, fn ownedFunc) (*View, error) {
	var view *View
	err := s.store.WithinTx(ctx, func(tx Store) error {
		ex, err := loadOwned(ctx, tx, op, exhibitorID, exhibitionID)
		if err != nil {
			return err
		}
		view, err = fn(ctx, tx, ex)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// loadOwned checks existence before ownership, so a non-owner always sees Forbidden.
func loadOwned(ctx context.Context, st Store, op string, exhibitorID, exhibitionID uuid.UUID) (*models.Exhibition, error) {
	ex, err := st.Exhibitions().FindByID(ctx, exhibitionID)
	if err != nil {
		return nil, fmt.Errorf("%s: find exhibition: %w", op, err)
	}
	if ex == nil {
		return nil, apperr.NotFound(op, "exhibition not found")
	}
	if !ex.IsOwnedBy(exhibitorID) {
		return nil, apperr.Forbidden(op, "exhibition belongs to another exhibitor")
	}
	return ex, nil
}

func loadInformation(ctx context.Context, st Store, op string, ex *models.Exhibition) (*models.ExhibitionInformation, error) {
	if ex.InformationID == nil {
		return nil, apperr.NotFound(op, "exhibition information not found")
	}
	info, err := st.Informations().FindByID(ctx, *ex.InformationID)
	if err != nil {
		return nil, fmt.Errorf("%s: find information: %w", op, err)
	}
	if info == nil {
		return nil, apperr.NotFound(op, "exhibition information not found")
	}
	return info, nil
}

func requireArDesign(ctx context.Context, st Store, op string, id *uuid.UUID) (*models.ArDesign, error) {
	if id == nil {
		return nil, nil
	}
	ar, err := st.ArDesigns().FindByID(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("%s: find ar design: %w", op, err)
	}
	if ar == nil {
		return nil, &apperr.Error{
			Kind:    apperr.KindNotFound,
			Op:      op,
			Message: "ar design not found",
			Fields:  map[string]string{"ar_design_id": "does not exist"},
		}
	}
	return ar, nil
}

// assemble joins ex with its information (loaded when info is nil) and AR design.
func (s *Service) assemble(ctx context.Context, st Store, op string, ex models.Exhibition, info *models.ExhibitionInformation) (*View, error) {
	if info == nil && ex.InformationID != nil {
		var err error
		info, err = st.Informations().FindByID(ctx, *ex.InformationID)
		if err != nil {
			return nil, fmt.Errorf("%s: find information: %w", op, err)
		}
	}
	var ar *models.ArDesign
	if info != nil && info.ArDesignID != nil {
		var err error
		ar, err = st.ArDesigns().FindByID(ctx, *info.ArDesignID)
		if err != nil {
			return nil, fmt.Errorf("%s: find ar design: %w", op, err)
		}
	}
	return newView(ex, info, ar), nil
}

func imageOf(ctx context.Context, st Store, op string, ex *models.Exhibition) (*Image, error) {
	info, err := loadInformation(ctx, st, op, ex)
	if err != nil {
		return nil, err
	}
	if !info.HasImage() {
		return nil, apperr.NotFound(op, "image not found")
	}
	ct, ok := DetectImageType(info.Image)
	if !ok {
		ct = "application/octet-stream"
	}
	return &Image{Data: info.Image, ContentType: ct}, nil
}

func (s *Service) listFilter(op string, q PublishedQuery) (ListFilter, error) {
	filter := ListFilter{Page: DefaultPage, PerPage: s.defaultPerPage, Search: strings.TrimSpace(q.Search)}
	fields := map[string]string{}
	if q.Page != nil {
		if *q.Page < 1 {
			fields["page"] = "must be at least 1"
		}
		filter.Page = *q.Page
	}
	if q.PerPage != nil {
		if *q.PerPage < 1 || *q.PerPage > MaxPerPage {
			fields["per_page"] = fmt.Sprintf("must be between 1 and %d", MaxPerPage)
		}
		filter.PerPage = *q.PerPage
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		category, ok := models.ParseCategory(c)
		if !ok {
			fields["category"] = "must be one of Food, Exhibition, Experience, Stage"
		}
		filter.Category = &category
	}
	if len(fields) > 0 {
		return ListFilter{}, apperr.Validation(op, fields)
	}
	return filter, nil
}

func (s *Service) decoratePublic(v *View) {
	if s.imageURL != nil && v.HasImage && v.IsPublished() {
		v.ImageURL = s.imageURL(v.ID)
	}
}

// syncImage runs after commit; a failed enqueue leaves the mirror stale but never
// fails the request.
func (s *Service) syncImage(ctx context.Context, exhibitionID uuid.UUID) {
	if s.images == nil {
		return
	}
	if err := s.images.EnqueueImageSync(ctx, exhibitionID); err != nil {
		s.logger.Warn("enqueue image sync failed", zap.String("exhibition_id", exhibitionID.String()), zap.Error(err))
	}
}
