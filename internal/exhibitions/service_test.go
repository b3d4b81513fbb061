package exhibitions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
)

type serviceFixture struct {
	store *fakeStore
	svc   *Service
	sync  *recordingSyncer
	clock time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{store: newFakeStore(), sync: &recordingSyncer{}, clock: t0}
	f.svc = NewService(f.store, nil)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.svc.SetImageSync(f.sync, func(id uuid.UUID) string { return "https://cdn.example.com/" + id.String() })
	return f
}

func (f *serviceFixture) create(t *testing.T, name string, mutate ...func(*InformationInput)) (models.Exhibitor, *View) {
	t.Helper()
	exhibitor := f.store.addExhibitor(name)
	in := validInput()
	for _, m := range mutate {
		m(&in)
	}
	view, err := f.svc.Create(context.Background(), exhibitor.ID, in)
	require.NoError(t, err)
	return exhibitor, view
}

func TestCreatePersistsDraftWithInformation(t *testing.T) {
	f := newServiceFixture(t)
	ar := f.store.addArDesign()
	exhibitor, view := f.create(t, "Team Octo", func(in *InformationInput) { in.ArDesignID = &ar.ID })

	assert.Equal(t, models.StateDraft, view.State)
	assert.Equal(t, int16(1), view.DraftFlag)
	assert.Equal(t, int16(0), view.PublishedFlag)
	assert.Equal(t, exhibitor.ID, view.ExhibitorID)
	require.NotNil(t, view.Information)
	assert.Equal(t, "Team Octo", view.Information.ExhibitorName)
	assert.Equal(t, *view.InformationID, view.Information.ID)
	require.NotNil(t, view.ArDesign)
	assert.Equal(t, ar.ID, view.ArDesign.ID)

	assert.Len(t, f.store.exhibitions, 1)
	assert.Len(t, f.store.infos, 1)
	assert.Empty(t, f.sync.ids)
}

func TestCreateRejectsSecondExhibition(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, first := f.create(t, "Team Octo")
	before := f.store.infos[first.Information.ID]

	in := validInput()
	in.Title = "Another"
	_, err := f.svc.Create(context.Background(), exhibitor.ID, in)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Len(t, f.store.infos, 1)
	assert.Len(t, f.store.exhibitions, 1)
	assert.Equal(t, before, f.store.infos[first.Information.ID])
}

func TestCreateRejectsDanglingArDesign(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor := f.store.addExhibitor("Team Octo")
	in := validInput()
	in.ArDesignID = uuidPtr(uuid.New())

	_, err := f.svc.Create(context.Background(), exhibitor.ID, in)

	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Empty(t, f.store.infos)
	assert.Empty(t, f.store.exhibitions)
}

func TestCreateRequiresKnownExhibitor(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Create(context.Background(), uuid.New(), validInput())
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestCreateRollsBackInformationWhenExhibitionSaveFails(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor := f.store.addExhibitor("Team Octo")
	boom := errors.New("connection reset")
	f.store.failExhibitionSave = boom

	_, err := f.svc.Create(context.Background(), exhibitor.ID, validInput())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Empty(t, f.store.infos, "information write must be rolled back")
	assert.Empty(t, f.store.exhibitions)

	// the exhibitor can retry once the store recovers
	_, err = f.svc.Create(context.Background(), exhibitor.ID, validInput())
	assert.NoError(t, err)
}

func TestOwnershipIsCheckedAfterExistence(t *testing.T) {
	f := newServiceFixture(t)
	_, view := f.create(t, "Owner")
	intruder := f.store.addExhibitor("Intruder")
	ctx := context.Background()

	ops := map[string]func() error{
		"get":         func() error { _, err := f.svc.Get(ctx, intruder.ID, view.ID); return err },
		"update":      func() error { _, err := f.svc.UpdateInformation(ctx, intruder.ID, view.ID, InformationUpdate{}); return err },
		"publish":     func() error { _, err := f.svc.Publish(ctx, intruder.ID, view.ID); return err },
		"unpublish":   func() error { _, err := f.svc.Unpublish(ctx, intruder.ID, view.ID); return err },
		"draft":       func() error { _, err := f.svc.Draft(ctx, intruder.ID, view.ID); return err },
		"delete":      func() error { return f.svc.Delete(ctx, intruder.ID, view.ID) },
		"upload":      func() error { _, err := f.svc.UploadImage(ctx, intruder.ID, view.ID, pngBytes); return err },
		"deleteImage": func() error { _, err := f.svc.DeleteImage(ctx, intruder.ID, view.ID); return err },
		"getImage":    func() error { _, err := f.svc.GetImage(ctx, intruder.ID, view.ID); return err },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		})
	}
	assert.Equal(t, models.StateDraft, f.store.exhibitions[view.ID].State)
	assert.Len(t, f.store.infos, 1)

	_, err := f.svc.Publish(ctx, intruder.ID, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestLifecycleThroughService(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo")
	ctx := context.Background()

	published, err := f.svc.Publish(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int16(1), published.PublishedFlag)
	assert.NotNil(t, published.PublishedAt)

	_, err = f.svc.Publish(ctx, exhibitor.ID, view.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrAlreadyPublished)

	_, err = f.svc.Draft(ctx, exhibitor.ID, view.ID)
	assert.ErrorIs(t, err, ErrMustUnpublishFirst)
	assert.Equal(t, models.StatePublished, f.store.exhibitions[view.ID].State)

	unpublished, err := f.svc.Unpublish(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int16(0), unpublished.PublishedFlag)
	assert.Nil(t, unpublished.PublishedAt)

	drafted, err := f.svc.Draft(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int16(1), drafted.DraftFlag)

	assert.Equal(t, []uuid.UUID{view.ID, view.ID}, f.sync.ids, "publish and unpublish schedule an image sync")
}

func TestDraftNoOpSkipsWrite(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo")
	saves := f.store.exhibitionSaves

	got, err := f.svc.Draft(context.Background(), exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Exhibition, got.Exhibition)
	assert.Equal(t, saves, f.store.exhibitionSaves)
}

func TestPublishWithoutInformationLeavesStateUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor := f.store.addExhibitor("Legacy")
	ex := models.Exhibition{ID: uuid.New(), ExhibitorID: exhibitor.ID, State: models.StateDraft, CreatedAt: t0, UpdatedAt: t0}
	f.store.exhibitions[ex.ID] = ex

	_, err := f.svc.Publish(context.Background(), exhibitor.ID, ex.ID)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrMissingInformation)
	assert.Equal(t, ex, f.store.exhibitions[ex.ID])
}

func TestUpdateInformation(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo")
	ar := f.store.addArDesign()
	ctx := context.Background()

	got, err := f.svc.UpdateInformation(ctx, exhibitor.ID, view.ID, InformationUpdate{
		Location:   models.Set("Hall B"),
		Comment:    models.Clear[string](),
		ArDesignID: models.Set(ar.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hall B", got.Information.Location)
	assert.Nil(t, got.Information.Comment)
	assert.Equal(t, view.Information.Title, got.Information.Title)
	require.NotNil(t, got.ArDesign)
	assert.Equal(t, ar.ID, got.ArDesign.ID)
	assert.Equal(t, "Hall B", f.store.infos[view.Information.ID].Location)
	assert.Empty(t, f.sync.ids, "content updates without image changes do not sync")

	_, err = f.svc.UpdateInformation(ctx, exhibitor.ID, view.ID, InformationUpdate{ArDesignID: models.Set(uuid.New())})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.UpdateInformation(ctx, exhibitor.ID, view.ID, InformationUpdate{Title: models.Clear[string]()})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, view.Information.Title, f.store.infos[view.Information.ID].Title)
}

func TestImageUploadReplaceDelete(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo")
	ctx := context.Background()

	_, err := f.svc.GetImage(ctx, exhibitor.ID, view.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	got, err := f.svc.UploadImage(ctx, exhibitor.ID, view.ID, pngBytes)
	require.NoError(t, err)
	assert.True(t, got.HasImage)

	img, err := f.svc.GetImage(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngBytes, img.Data)

	_, err = f.svc.UploadImage(ctx, exhibitor.ID, view.ID, jpegBytes)
	require.NoError(t, err)
	img, err = f.svc.GetImage(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)

	got, err = f.svc.DeleteImage(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)
	assert.False(t, got.HasImage)
	_, err = f.svc.GetImage(ctx, exhibitor.ID, view.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Len(t, f.sync.ids, 3)
}

func TestDeleteRemovesBothRecords(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo")
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, exhibitor.ID, view.ID))
	assert.Empty(t, f.store.exhibitions)
	assert.Empty(t, f.store.infos)
	assert.Equal(t, []uuid.UUID{view.ID}, f.sync.ids)

	err := f.svc.Delete(ctx, exhibitor.ID, view.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, exhibitor.ID, validInput())
	assert.NoError(t, err, "a deleted exhibition frees the exhibitor's slot")
}

func TestSyncFailureDoesNotFailRequest(t *testing.T) {
	f := newServiceFixture(t)
	f.sync.err = errors.New("redis down")
	exhibitor, view := f.create(t, "Team Octo")

	_, err := f.svc.Publish(context.Background(), exhibitor.ID, view.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatePublished, f.store.exhibitions[view.ID].State)
}

func TestGetMine(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo")

	got, err := f.svc.GetMine(context.Background(), exhibitor.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	_, err = f.svc.GetMine(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func publishMany(t *testing.T, f *serviceFixture, n int, category models.Category) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		exhibitor, view := f.create(t, fmt.Sprintf("%s exhibitor %d", category, i), func(in *InformationInput) {
			in.Category = category
			in.Title = fmt.Sprintf("%s booth %d", category, i)
		})
		_, err := f.svc.Publish(context.Background(), exhibitor.ID, view.ID)
		require.NoError(t, err)
		ids = append(ids, view.ID)
	}
	return ids
}

func TestListPublishedPagination(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	empty, err := f.svc.ListPublished(ctx, PublishedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Empty(t, empty.Items)

	publishMany(t, f, 45, models.CategoryFood)
	f.create(t, "still a draft")

	page, err := f.svc.ListPublished(ctx, PublishedQuery{Page: intPtr(1), PerPage: intPtr(20)})
	require.NoError(t, err)
	assert.Equal(t, 45, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 20)

	last, err := f.svc.ListPublished(ctx, PublishedQuery{Page: intPtr(3)})
	require.NoError(t, err)
	assert.Len(t, last.Items, 5)
	assert.Equal(t, DefaultPerPage, last.PerPage)

	for _, v := range page.Items {
		assert.True(t, v.IsPublished())
		require.NotNil(t, v.Information)
		assert.Nil(t, v.Information.Image, "list views never carry image bytes")
	}
}

func TestListPublishedNewestFirst(t *testing.T) {
	f := newServiceFixture(t)
	ids := publishMany(t, f, 3, models.CategoryStage)

	page, err := f.svc.ListPublished(context.Background(), PublishedQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[0], page.Items[2].ID)
}

func TestListPublishedFilters(t *testing.T) {
	f := newServiceFixture(t)
	publishMany(t, f, 2, models.CategoryFood)
	publishMany(t, f, 3, models.CategoryStage)
	ctx := context.Background()

	stage, err := f.svc.ListPublished(ctx, PublishedQuery{Category: "Stage"})
	require.NoError(t, err)
	assert.Equal(t, 3, stage.Total)

	search, err := f.svc.ListPublished(ctx, PublishedQuery{Search: "food BOOTH 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, search.Total)
}

func TestListPublishedValidatesQuery(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for name, q := range map[string]PublishedQuery{
		"page":     {Page: intPtr(0)},
		"per_page": {PerPage: intPtr(101)},
		"category": {Category: "Music"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.ListPublished(ctx, q)
			assert.Equal(t, name, fieldOf(t, err))
		})
	}
	_, err := f.svc.ListPublished(ctx, PublishedQuery{PerPage: intPtr(0)})
	assert.Equal(t, "per_page", fieldOf(t, err))
}

func TestPublicReadsHideUnpublished(t *testing.T) {
	f := newServiceFixture(t)
	exhibitor, view := f.create(t, "Team Octo", func(in *InformationInput) { in.Image = gifBytes })
	ctx := context.Background()

	_, err := f.svc.GetPublished(ctx, view.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = f.svc.GetPublishedImage(ctx, view.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Publish(ctx, exhibitor.ID, view.ID)
	require.NoError(t, err)

	got, err := f.svc.GetPublished(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+view.ID.String(), got.ImageURL)

	img, err := f.svc.GetPublishedImage(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", img.ContentType)
}

func TestCategoryCountsIncludesEmptyCategories(t *testing.T) {
	f := newServiceFixture(t)
	publishMany(t, f, 2, models.CategoryExperience)
	f.create(t, "draft food", func(in *InformationInput) { in.Category = models.CategoryFood })

	counts, err := f.svc.CategoryCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryCount{
		{Category: models.CategoryFood, Count: 0},
		{Category: models.CategoryExhibition, Count: 0},
		{Category: models.CategoryExperience, Count: 2},
		{Category: models.CategoryStage, Count: 0},
	}, counts)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 3, TotalPages(45, 20))
	assert.Equal(t, 100, TotalPages(100, 1))
}
