package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/entity"
	"github.com/tnqbao/gau-catalog-service/infra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	UpdatePolicyAppend  = "append"
	UpdatePolicyReplace = "replace"

	projectListCacheKey = "catalog:projects"
)

func projectCacheKey(id uuid.UUID) string {
	return "catalog:project:" + id.String()
}

type ProjectFields struct {
	Title       string
	Description string
	PowerSource string
	Category    string
}

// ProjectUpdate leaves nil fields untouched.
type ProjectUpdate struct {
	Title       *string
	Description *string
	PowerSource *string
	Category    *string
}

type DeleteResult struct {
	Project         entity.Project
	MediaRemoved    int
	StorageAttempts int
	AlreadyAbsent   int
	Failures        []CleanupError
}

type ProjectServiceConfig struct {
	UpdatePolicy              string
	CacheTTL                  time.Duration
	CacheSettleDelay          time.Duration // second invalidation after a delete
	CallTimeout               time.Duration
	DeleteConcurrency         int
	RequireRegisteredCategory bool
}

type ProjectService struct {
	projects   ProjectRepository
	media      MediaRepository
	categories CategoryRepository
	ingestor   *MediaIngestor
	cache      Cache
	logger     *infra.LoggerClient
	cfg        ProjectServiceConfig
	tracer     trace.Tracer
}

// NewProjectService accepts a nil cache, which disables read-through caching.
func NewProjectService(projects ProjectRepository, media MediaRepository, categories CategoryRepository, ingestor *MediaIngestor, cache Cache, logger *infra.LoggerClient, cfg ProjectServiceConfig) *ProjectService {
	if cfg.UpdatePolicy != UpdatePolicyReplace {
		cfg.UpdatePolicy = UpdatePolicyAppend
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = 4
	}
	if cfg.CacheSettleDelay <= 0 {
		cfg.CacheSettleDelay = 2 * time.Second
	}
	return &ProjectService{
		projects:   projects,
		media:      media,
		categories: categories,
		ingestor:   ingestor,
		cache:      cache,
		logger:     logger,
		cfg:        cfg,
		tracer:     otel.Tracer(instrumentationName),
	}
}

// Create ingests all files, then persists the project with their ids. Any
// failure leaves neither the project nor its media behind.
func (s *ProjectService) Create(ctx context.Context, fields ProjectFields, files []UploadedFile) (*entity.Project, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectService.Create", trace.WithAttributes(attribute.Int("media.count", len(files))))
	defer span.End()

	fields = ProjectFields{
		Title:       strings.TrimSpace(fields.Title),
		Description: strings.TrimSpace(fields.Description),
		PowerSource: strings.TrimSpace(fields.PowerSource),
		Category:    strings.TrimSpace(fields.Category),
	}

	verr := &ValidationError{}
	requireField(verr, "title", fields.Title)
	requireField(verr, "description", fields.Description)
	requireField(verr, "powerSource", fields.PowerSource)
	requireField(verr, "category", fields.Category)
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, fields.Category); err != nil {
		return nil, err
	}

	projectID := uuid.New()
	span.SetAttributes(attribute.String("project.id", projectID.String()))

	media, err := s.ingestor.Ingest(ctx, projectID, files)
	if err != nil {
		return nil, err
	}

	project := &entity.Project{
		ID:          projectID,
		Title:       fields.Title,
		Description: fields.Description,
		PowerSource: fields.PowerSource,
		Category:    fields.Category,
		MediaIDs:    mediaIDs(media),
	}

	createCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	err = s.projects.Create(createCtx, project)
	cancel()
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Project] Failed to persist project %s, rolling back %d media", projectID, len(media))
		s.ingestor.Rollback(ctx, media)
		return nil, fmt.Errorf("create project: %w", err)
	}

	project.Media = nonNilMedia(media)
	s.invalidate(ctx)

	s.logger.InfoWithContextf(ctx, "[Project] Created project %s with %d media", projectID, len(media))
	return project, nil
}

// Update applies non-nil fields and ingests new files. New media are appended
// to the existing list, or replace it under the replace policy.
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, update ProjectUpdate, files []UploadedFile) (*entity.Project, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectService.Update", trace.WithAttributes(
		attribute.String("project.id", id.String()),
		attribute.Int("media.count", len(files)),
	))
	defer span.End()

	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	categoryChanged := false
	applyField(verr, "title", update.Title, &project.Title)
	applyField(verr, "description", update.Description, &project.Description)
	applyField(verr, "powerSource", update.PowerSource, &project.PowerSource)
	if update.Category != nil {
		previous := project.Category
		applyField(verr, "category", update.Category, &project.Category)
		categoryChanged = project.Category != previous
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if categoryChanged {
		if err := s.checkCategory(ctx, project.Category); err != nil {
			return nil, err
		}
	}

	added, err := s.ingestor.Ingest(ctx, id, files)
	if err != nil {
		return nil, err
	}

	previousIDs := append([]uuid.UUID(nil), project.MediaIDs...)
	var replaced []uuid.UUID
	if s.cfg.UpdatePolicy == UpdatePolicyReplace && len(added) > 0 {
		project.MediaIDs = mediaIDs(added)
		replaced = previousIDs
	} else {
		project.MediaIDs = datatypes.NewJSONSlice(append(previousIDs, mediaIDs(added)...))
	}

	updateCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	err = s.projects.Update(updateCtx, project)
	cancel()
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Project] Failed to update project %s, rolling back %d new media", id, len(added))
		s.ingestor.Rollback(ctx, added)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}

	if len(replaced) > 0 {
		s.removeReplaced(ctx, replaced)
	}
	s.invalidate(ctx, id)

	if err := s.populate(ctx, project); err != nil {
		return nil, err
	}

	s.logger.InfoWithContextf(ctx, "[Project] Updated project %s (%d new media, policy %s)", id, len(added), s.cfg.UpdatePolicy)
	return project, nil
}

// Delete removes every media object and record of the project, then the
// project itself. Media failures are collected in the result and never abort.
// Once started it runs to completion regardless of ctx cancellation.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectService.Delete", trace.WithAttributes(attribute.String("project.id", id.String())))
	defer span.End()

	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, project); err != nil {
		return nil, err
	}

	result := &DeleteResult{Project: *project}
	detached := context.WithoutCancel(ctx)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.DeleteConcurrency)
	for _, media := range project.Media {
		g.Go(func() error {
			outcome := s.ingestor.Remove(detached, media, "delete")

			mu.Lock()
			defer mu.Unlock()
			if outcome.StorageAttempted {
				result.StorageAttempts++
			}
			if outcome.AlreadyAbsent {
				result.AlreadyAbsent++
			}
			if outcome.RecordRemoved {
				result.MediaRemoved++
			}
			result.Failures = append(result.Failures, outcome.Failures...)
			return nil
		})
	}
	_ = g.Wait()

	deleteCtx, cancel := context.WithTimeout(detached, s.cfg.CallTimeout)
	err = s.projects.Delete(deleteCtx, id)
	cancel()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.invalidate(detached, id)
			return nil, ErrProjectNotFound
		}
		s.logger.ErrorWithContextf(ctx, err, "[Project] Failed to delete project record %s", id)
		return nil, fmt.Errorf("delete project: %w", err)
	}

	s.invalidate(detached, id)
	s.invalidateLater(detached, id)

	for _, failure := range result.Failures {
		s.logger.WarningWithContextf(ctx, "[Project] Cleanup issue while deleting %s: %v", id, failure)
	}
	s.logger.InfoWithContextf(ctx, "[Project] Deleted project %s: %d media removed, %d storage deletes, %d already absent, %d failures",
		id, result.MediaRemoved, result.StorageAttempts, result.AlreadyAbsent, len(result.Failures))
	return result, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var cached entity.Project
	if s.cacheGet(ctx, projectCacheKey(id), &cached) {
		return &cached, nil
	}

	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, project); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, projectCacheKey(id), project)
	return project, nil
}

// List returns projects in insertion order with media populated.
func (s *ProjectService) List(ctx context.Context) ([]entity.Project, error) {
	var cached []entity.Project
	if s.cacheGet(ctx, projectListCacheKey, &cached) {
		return cached, nil
	}

	listCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	projects, err := s.projects.List(listCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	ptrs := make([]*entity.Project, len(projects))
	for i := range projects {
		ptrs[i] = &projects[i]
	}
	if err := s.populate(ctx, ptrs...); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []entity.Project{}
	}

	s.cacheSet(ctx, projectListCacheKey, projects)
	return projects, nil
}

func (s *ProjectService) load(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	findCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	project, err := s.projects.FindByID(findCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	return project, nil
}

// populate resolves MediaIDs with one batched lookup. Ids without a record
// are skipped.
func (s *ProjectService) populate(ctx context.Context, projects ...*entity.Project) error {
	var ids []uuid.UUID
	for _, p := range projects {
		ids = append(ids, p.MediaIDs...)
	}

	byID := make(map[uuid.UUID]entity.Media, len(ids))
	if len(ids) > 0 {
		findCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		found, err := s.media.FindByIDs(findCtx, ids)
		cancel()
		if err != nil {
			return fmt.Errorf("resolve media: %w", err)
		}
		for _, m := range found {
			byID[m.ID] = m
		}
	}

	for _, p := range projects {
		p.Media = make([]entity.Media, 0, len(p.MediaIDs))
		for _, id := range p.MediaIDs {
			m, ok := byID[id]
			if !ok {
				s.logger.WarningWithContextf(ctx, "[Project] Project %s references missing media %s", p.ID, id)
				continue
			}
			p.Media = append(p.Media, m)
		}
	}
	return nil
}

func (s *ProjectService) removeReplaced(ctx context.Context, ids []uuid.UUID) {
	detached := context.WithoutCancel(ctx)

	findCtx, cancel := context.WithTimeout(detached, s.cfg.CallTimeout)
	old, err := s.media.FindByIDs(findCtx, ids)
	cancel()
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Project] Failed to resolve replaced media")
		return
	}

	for _, media := range old {
		outcome := s.ingestor.Remove(detached, media, "replace")
		for _, failure := range outcome.Failures {
			s.logger.WarningWithContextf(ctx, "[Project] Cleanup issue for replaced media: %v", failure)
		}
	}
}

func (s *ProjectService) checkCategory(ctx context.Context, category string) error {
	if !s.cfg.RequireRegisteredCategory || s.categories == nil {
		return nil
	}
	exists, err := s.categories.ExistsByName(ctx, category)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return &ValidationError{Fields: map[string]string{"category": "unknown category"}}
	}
	return nil
}

func (s *ProjectService) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	keys := []string{projectListCacheKey}
	for _, id := range ids {
		keys = append(keys, projectCacheKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WarningWithContextf(ctx, "[Project] Failed to invalidate cache keys %v: %v", keys, err)
	}
}

// invalidateLater clears the keys again once reads that started before the
// delete have had time to write back a stale entry.
func (s *ProjectService) invalidateLater(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	time.AfterFunc(s.cfg.CacheSettleDelay, func() {
		s.invalidate(ctx, id)
	})
}

func (s *ProjectService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, infra.ErrCacheMiss) {
		s.logger.WarningWithContextf(ctx, "[Project] Cache read for %s failed: %v", key, err)
	}
	return false
}

func (s *ProjectService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.WarningWithContextf(ctx, "[Project] Cache write for %s failed: %v", key, err)
	}
}

func mediaIDs(media []entity.Media) datatypes.JSONSlice[uuid.UUID] {
	ids := make([]uuid.UUID, len(media))
	for i, m := range media {
		ids[i] = m.ID
	}
	return datatypes.NewJSONSlice(ids)
}

func nonNilMedia(media []entity.Media) []entity.Media {
	if media == nil {
		return []entity.Media{}
	}
	return media
}

func requireField(verr *ValidationError, name, value string) {
	if value == "" {
		verr.add(name, "is required")
	}
}

func applyField(verr *ValidationError, name string, value *string, target *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		verr.add(name, "must not be blank")
		return
	}
	*target = trimmed
}
