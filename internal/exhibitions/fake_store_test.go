package exhibitions

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/expo-directory/backend/internal/models"
)

// fakeStore is an in-memory Store. WithinTx snapshots every table and restores it
// when fn fails, which is what a database rollback looks like to the service.
type fakeStore struct {
	exhibitions map[uuid.UUID]models.Exhibition
	infos       map[uuid.UUID]models.ExhibitionInformation
	ars         map[uuid.UUID]models.ArDesign
	exhibitors  map[uuid.UUID]models.Exhibitor

	// failExhibitionSave, when set, is returned by the next Exhibitions().Save.
	failExhibitionSave error
	exhibitionSaves    int
	informationSaves   int
	txCount            int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exhibitions: map[uuid.UUID]models.Exhibition{},
		infos:       map[uuid.UUID]models.ExhibitionInformation{},
		ars:         map[uuid.UUID]models.ArDesign{},
		exhibitors:  map[uuid.UUID]models.Exhibitor{},
	}
}

func (s *fakeStore) addExhibitor(name string) models.Exhibitor {
	e := models.Exhibitor{ID: uuid.New(), Name: name}
	s.exhibitors[e.ID] = e
	return e
}

func (s *fakeStore) addArDesign() models.ArDesign {
	url := "https://ar.example.com/" + uuid.NewString()
	d := models.ArDesign{ID: uuid.New(), URL: &url}
	s.ars[d.ID] = d
	return d
}

func (s *fakeStore) Exhibitions() ExhibitionRepository { return fakeExhibitions{s} }
func (s *fakeStore) Informations() InformationRepository { return fakeInformations{s} }
func (s *fakeStore) ArDesigns() ArDesignRepository { return fakeArDesigns{s} }
func (s *fakeStore) Exhibitors() ExhibitorRepository { return fakeExhibitors{s} }

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	s.txCount++
	exs := cloneMap(s.exhibitions)
	infos := cloneMap(s.infos)
	if err := fn(s); err != nil {
		s.exhibitions = exs
		s.infos = infos
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type fakeExhibitions struct{ s *fakeStore }

func (r fakeExhibitions) Save(_ context.Context, ex *models.Exhibition) error {
	if err := r.s.failExhibitionSave; err != nil {
		r.s.failExhibitionSave = nil
		return err
	}
	r.s.exhibitionSaves++
	r.s.exhibitions[ex.ID] = *ex
	return nil
}

func (r fakeExhibitions) FindByID(_ context.Context, id uuid.UUID) (*models.Exhibition, error) {
	ex, ok := r.s.exhibitions[id]
	if !ok {
		return nil, nil
	}
	return &ex, nil
}

func (r fakeExhibitions) FindByExhibitorID(_ context.Context, exhibitorID uuid.UUID) (*models.Exhibition, error) {
	for _, ex := range r.s.exhibitions {
		if ex.ExhibitorID == exhibitorID {
			ex := ex
			return &ex, nil
		}
	}
	return nil, nil
}

func (r fakeExhibitions) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.exhibitions, id)
	return nil
}

func (r fakeExhibitions) published() []models.Exhibition {
	var out []models.Exhibition
	for _, ex := range r.s.exhibitions {
		if ex.State != models.StatePublished || ex.InformationID == nil {
			continue
		}
		if _, ok := r.s.infos[*ex.InformationID]; !ok {
			continue
		}
		out = append(out, ex)
	}
	return out
}

func (r fakeExhibitions) FindPublished(_ context.Context, filter ListFilter) (PublishedPage, error) {
	var matched []models.Exhibition
	search := strings.ToLower(filter.Search)
	for _, ex := range r.published() {
		info := r.s.infos[*ex.InformationID]
		if filter.Category != nil && info.Category != *filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(info.Title), search) &&
			!strings.Contains(strings.ToLower(info.Location), search) &&
			!strings.Contains(strings.ToLower(info.ExhibitorName), search) {
			continue
		}
		matched = append(matched, ex)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PublishedAt.Equal(*matched[j].PublishedAt) {
			return matched[i].PublishedAt.After(*matched[j].PublishedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	page := PublishedPage{Total: len(matched)}
	start := filter.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	page.Items = matched[start:end]
	return page, nil
}

func (r fakeExhibitions) FindPublishedByID(_ context.Context, id uuid.UUID) (*models.Exhibition, error) {
	for _, ex := range r.published() {
		if ex.ID == id {
			ex := ex
			return &ex, nil
		}
	}
	return nil, nil
}

func (r fakeExhibitions) FindCategoryCounts(_ context.Context) ([]models.CategoryCount, error) {
	counts := map[models.Category]int{}
	for _, ex := range r.published() {
		counts[r.s.infos[*ex.InformationID].Category]++
	}
	var out []models.CategoryCount
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	return out, nil
}

type fakeInformations struct{ s *fakeStore }

func (r fakeInformations) Save(_ context.Context, info *models.ExhibitionInformation) error {
	r.s.informationSaves++
	r.s.infos[info.ID] = *info
	return nil
}

func (r fakeInformations) FindByID(_ context.Context, id uuid.UUID) (*models.ExhibitionInformation, error) {
	info, ok := r.s.infos[id]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (r fakeInformations) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.ExhibitionInformation, error) {
	var out []models.ExhibitionInformation
	for _, id := range ids {
		if info, ok := r.s.infos[id]; ok {
			info.Image = nil
			out = append(out, info)
		}
	}
	return out, nil
}

func (r fakeInformations) FindByExhibitorID(_ context.Context, exhibitorID uuid.UUID) (*models.ExhibitionInformation, error) {
	for _, info := range r.s.infos {
		if info.ExhibitorID == exhibitorID {
			info := info
			return &info, nil
		}
	}
	return nil, nil
}

func (r fakeInformations) Delete(_ context.Context, id uuid.UUID) error {
	for _, ex := range r.s.exhibitions {
		if ex.InformationID != nil && *ex.InformationID == id {
			panic("information deleted while still referenced by an exhibition")
		}
	}
	delete(r.s.infos, id)
	return nil
}

type fakeArDesigns struct{ s *fakeStore }

func (r fakeArDesigns) FindByID(_ context.Context, id uuid.UUID) (*models.ArDesign, error) {
	d, ok := r.s.ars[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r fakeArDesigns) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.ArDesign, error) {
	var out []models.ArDesign
	for _, id := range ids {
		if d, ok := r.s.ars[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r fakeArDesigns) FindAll(_ context.Context) ([]models.ArDesign, error) {
	var out []models.ArDesign
	for _, d := range r.s.ars {
		out = append(out, d)
	}
	return out, nil
}

type fakeExhibitors struct{ s *fakeStore }

func (r fakeExhibitors) GetByID(_ context.Context, id uuid.UUID) (*models.Exhibitor, error) {
	e, ok := r.s.exhibitors[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type recordingSyncer struct {
	ids []uuid.UUID
	err error
}

func (r *recordingSyncer) EnqueueImageSync(_ context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return r.err
}
