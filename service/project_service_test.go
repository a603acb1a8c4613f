package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-catalog-service/entity"
	"github.com/tnqbao/gau-catalog-service/service/servicetest"
)

type projectFixture struct {
	storage    *servicetest.MemoryStorage
	projects   *servicetest.ProjectRepo
	media      *servicetest.MediaRepo
	categories *servicetest.CategoryRepo
	cache      *servicetest.MemoryCache
	publisher  *servicetest.RecordingPublisher
	svc        *ProjectService
}

func newProjectFixture(t *testing.T, cfg ProjectServiceConfig) *projectFixture {
	t.Helper()
	f := &projectFixture{
		storage:    servicetest.NewMemoryStorage(),
		projects:   servicetest.NewProjectRepo(),
		media:      servicetest.NewMediaRepo(),
		categories: servicetest.NewCategoryRepo(),
		cache:      servicetest.NewMemoryCache(),
		publisher:  &servicetest.RecordingPublisher{},
	}
	logger := servicetest.Logger()
	ingestor := NewMediaIngestor(f.storage, f.media, f.publisher, logger, IngestorConfig{Concurrency: 4, CallTimeout: time.Second})
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	f.svc = NewProjectService(f.projects, f.media, f.categories, ingestor, f.cache, logger, cfg)
	return f
}

func pressFields() ProjectFields {
	return ProjectFields{
		Title:       "Press A",
		Description: "Hydraulic press, 40 tons",
		PowerSource: "Electric",
		Category:    "Presses",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateProjectWithImageAndVideo(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})

	project, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{
		file("front.png", "image/png"),
		file("demo.mp4", "video/mp4"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Press A", project.Title)
	require.Len(t, project.Media, 2)
	assert.Equal(t, entity.MediaTypeImage, project.Media[0].Type)
	assert.Equal(t, entity.MediaTypeVideo, project.Media[1].Type)
	assert.Equal(t, []uuid.UUID{project.Media[0].ID, project.Media[1].ID}, []uuid.UUID(project.MediaIDs))
	assert.Equal(t, 2, f.storage.Len())
	assert.Equal(t, 1, f.projects.Len())

	fetched, err := f.svc.Get(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Media, 2)
	assert.Equal(t, project.Media[0].URL, fetched.Media[0].URL)
	assert.Equal(t, project.Media[1].URL, fetched.Media[1].URL)
}

func TestCreateProjectWithoutMedia(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})

	project, err := f.svc.Create(context.Background(), pressFields(), nil)

	require.NoError(t, err)
	assert.NotNil(t, project.Media)
	assert.Empty(t, project.Media)
	assert.Empty(t, project.MediaIDs)
}

func TestCreateProjectTrimsAndValidatesFields(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})

	_, err := f.svc.Create(context.Background(), ProjectFields{
		Title:       "   ",
		Description: "desc",
		PowerSource: "",
		Category:    "Presses",
	}, []UploadedFile{file("a.png", "image/png")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "powerSource")
	assert.NotContains(t, verr.Fields, "description")
	assert.Empty(t, f.storage.Puts, "nothing is uploaded for an invalid request")
	assert.Equal(t, 0, f.projects.Len())
}

func TestCreateProjectFailedUploadLeavesNothing(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	f.storage.PutHook = func(ctx context.Context, key string) error {
		if strings.Contains(key, "demo.mp4") {
			time.Sleep(10 * time.Millisecond)
			return errors.New("connection reset")
		}
		return nil
	}

	project, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{
		file("front.png", "image/png"),
		file("demo.mp4", "video/mp4"),
	})

	assert.Nil(t, project)
	var mediaErr *MediaError
	require.ErrorAs(t, err, &mediaErr)
	assert.Equal(t, 0, f.projects.Len())
	assert.Equal(t, 0, f.media.Len())
	assert.Equal(t, 0, f.storage.Len())
}

func TestCreateProjectPersistFailureRollsBackMedia(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	f.projects.CreateErr = errors.New("db down")

	_, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{
		file("front.png", "image/png"),
		file("demo.mp4", "video/mp4"),
	})

	require.Error(t, err)
	assert.Equal(t, 0, f.media.Len())
	assert.Equal(t, 0, f.storage.Len())
}

func TestCreateProjectRequiresRegisteredCategory(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{RequireRegisteredCategory: true})

	_, err := f.svc.Create(context.Background(), pressFields(), nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unknown category", verr.Fields["category"])

	require.NoError(t, f.categories.Create(context.Background(), &entity.Category{ID: uuid.New(), Name: "Presses"}))
	_, err = f.svc.Create(context.Background(), pressFields(), nil)
	assert.NoError(t, err)
}

func TestUpdateProjectAppendsMedia(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("front.png", "image/png")})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), created.ID, ProjectUpdate{
		Title: strPtr("  Press A2 "),
	}, []UploadedFile{file("side.png", "image/png")})

	require.NoError(t, err)
	assert.Equal(t, "Press A2", updated.Title)
	assert.Equal(t, "Hydraulic press, 40 tons", updated.Description)
	require.Len(t, updated.Media, 2)
	assert.Equal(t, created.Media[0].ID, updated.Media[0].ID)
	assert.Equal(t, "side.png", updated.Media[1].Title)
	assert.Equal(t, 2, f.storage.Len())
}

func TestUpdateProjectReplacePolicy(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{UpdatePolicy: UpdatePolicyReplace})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("old.png", "image/png")})
	require.NoError(t, err)
	oldKey := created.Media[0].ObjectKey

	updated, err := f.svc.Update(context.Background(), created.ID, ProjectUpdate{}, []UploadedFile{file("new.mp4", "video/mp4")})

	require.NoError(t, err)
	require.Len(t, updated.Media, 1)
	assert.Equal(t, "new.mp4", updated.Media[0].Title)
	assert.False(t, f.storage.Has(oldKey))
	assert.Equal(t, 1, f.media.Len())
}

func TestUpdateProjectReplacePolicyWithoutFilesKeepsMedia(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{UpdatePolicy: UpdatePolicyReplace})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("old.png", "image/png")})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), created.ID, ProjectUpdate{Category: strPtr("Lathes")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Lathes", updated.Category)
	assert.Len(t, updated.Media, 1)
}

func TestUpdateProjectRejectsBlankField(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), nil)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), created.ID, ProjectUpdate{Description: strPtr(" ")}, []UploadedFile{file("a.png", "image/png")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "description")
	assert.Empty(t, f.storage.Puts)
}

func TestUpdateProjectNotFound(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})

	_, err := f.svc.Update(context.Background(), uuid.New(), ProjectUpdate{Title: strPtr("x")}, nil)

	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestUpdateProjectPersistFailureRollsBackNewMedia(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("front.png", "image/png")})
	require.NoError(t, err)
	f.projects.UpdateErr = errors.New("db down")

	_, err = f.svc.Update(context.Background(), created.ID, ProjectUpdate{}, []UploadedFile{file("extra.png", "image/png")})

	require.Error(t, err)
	assert.Equal(t, 1, f.storage.Len())
	assert.Equal(t, 1, f.media.Len())
}

func TestDeleteProjectRemovesMediaAndProject(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{
		file("front.png", "image/png"),
		file("demo.mp4", "video/mp4"),
	})
	require.NoError(t, err)

	result, err := f.svc.Delete(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, result.Project.ID)
	assert.Len(t, result.Project.Media, 2)
	assert.Equal(t, 2, result.MediaRemoved)
	assert.Equal(t, 2, result.StorageAttempts)
	assert.Equal(t, 0, result.AlreadyAbsent)
	assert.Empty(t, result.Failures)

	assert.Equal(t, 0, f.storage.Len())
	assert.Equal(t, 0, f.media.Len())
	assert.Equal(t, 0, f.projects.Len())
	assert.Equal(t, 2, f.media.DeletedCount())

	_, err = f.svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestDeleteProjectContinuesWhenStorageFails(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{
		file("front.png", "image/png"),
		file("demo.mp4", "video/mp4"),
	})
	require.NoError(t, err)
	f.storage.DeleteHook = func(ctx context.Context, key string) error {
		if strings.Contains(key, "demo.mp4") {
			return errors.New("permission denied")
		}
		return nil
	}

	result, err := f.svc.Delete(context.Background(), created.ID)

	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "delete-object", result.Failures[0].Op)
	assert.Equal(t, 2, result.MediaRemoved)
	assert.Equal(t, 0, f.projects.Len())
	assert.Equal(t, 0, f.media.Len())

	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "delete", published[0].Reason)
	assert.Contains(t, published[0].ObjectKey, "demo.mp4")
}

func TestDeleteProjectToleratesMissingObject(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("front.png", "image/png")})
	require.NoError(t, err)
	require.NoError(t, f.storage.DeleteObject(context.Background(), created.Media[0].ObjectKey))

	result, err := f.svc.Delete(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, result.AlreadyAbsent)
	assert.Equal(t, 1, result.MediaRemoved)
	assert.Empty(t, result.Failures)
}

func TestDeleteProjectSkipsDanglingMediaIDs(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("front.png", "image/png")})
	require.NoError(t, err)
	require.NoError(t, f.media.Delete(context.Background(), created.Media[0].ID))

	result, err := f.svc.Delete(context.Background(), created.ID)

	require.NoError(t, err)
	assert.Equal(t, 0, result.StorageAttempts)
	assert.Equal(t, 0, f.projects.Len())
}

func TestDeleteUnknownProject(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})

	_, err := f.svc.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Equal(t, 0, f.storage.DeleteCount())
}

func TestDeleteProjectRecordFailure(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), nil)
	require.NoError(t, err)
	f.projects.DeleteErr = errors.New("db down")

	_, err = f.svc.Delete(context.Background(), created.ID)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProjectNotFound)
}

func TestGetProjectIsCachedAndInvalidated(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{file("front.png", "image/png")})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	cached, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Hits)
	assert.Len(t, cached.Media, 1)

	_, err = f.svc.Update(context.Background(), created.ID, ProjectUpdate{Title: strPtr("Press B")}, nil)
	require.NoError(t, err)
	assert.False(t, f.cache.Has(projectCacheKey(created.ID)))

	fresh, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Press B", fresh.Title)
}

func TestListProjectsInInsertionOrder(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})
	for _, title := range []string{"Press A", "Lathe B", "Mill C"} {
		fields := pressFields()
		fields.Title = title
		_, err := f.svc.Create(context.Background(), fields, []UploadedFile{file(title+".png", "image/png")})
		require.NoError(t, err)
	}

	projects, err := f.svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "Press A", projects[0].Title)
	assert.Equal(t, "Lathe B", projects[1].Title)
	assert.Equal(t, "Mill C", projects[2].Title)
	for _, p := range projects {
		assert.Len(t, p.Media, 1)
	}
	assert.True(t, f.cache.Has(projectListCacheKey))

	_, err = f.svc.Create(context.Background(), pressFields(), nil)
	require.NoError(t, err)
	assert.False(t, f.cache.Has(projectListCacheKey))
}

func TestListProjectsEmpty(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{})

	projects, err := f.svc.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestDeleteClearsStaleCacheWrittenByConcurrentRead(t *testing.T) {
	f := newProjectFixture(t, ProjectServiceConfig{CacheSettleDelay: 20 * time.Millisecond})
	created, err := f.svc.Create(context.Background(), pressFields(), []UploadedFile{
		file("front.png", "image/png"),
	})
	require.NoError(t, err)

	stale, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = f.svc.Delete(context.Background(), created.ID)
	require.NoError(t, err)

	// A read that loaded the project before the delete writes it back afterwards.
	require.NoError(t, f.cache.Set(context.Background(), projectCacheKey(created.ID), stale, time.Minute))

	require.Eventually(t, func() bool {
		return !f.cache.Has(projectCacheKey(created.ID))
	}, time.Second, 5*time.Millisecond)

	_, err = f.svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
