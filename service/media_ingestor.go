package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-catalog-service/entity"
	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/infra/produce"
	"github.com/tnqbao/gau-catalog-service/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const instrumentationName = "github.com/tnqbao/gau-catalog-service/service"

// UploadedFile is one media file received with a create or update request.
type UploadedFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

type IngestorConfig struct {
	Concurrency int
	CallTimeout time.Duration
}

type MediaIngestor struct {
	storage     ObjectStore
	media       MediaRepository
	cleanup     CleanupPublisher
	logger      *infra.LoggerClient
	concurrency int
	callTimeout time.Duration
	now         func() time.Time

	tracer          trace.Tracer
	ingested        metric.Int64Counter
	ingestFailures  metric.Int64Counter
	cleanupFailures metric.Int64Counter
}

// NewMediaIngestor accepts a nil cleanup publisher; failed compensations are then only logged.
func NewMediaIngestor(storage ObjectStore, media MediaRepository, cleanup CleanupPublisher, logger *infra.LoggerClient, cfg IngestorConfig) *MediaIngestor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	meter := otel.Meter(instrumentationName)
	ingested, _ := meter.Int64Counter("catalog.media.ingested",
		metric.WithDescription("Media files uploaded and recorded"))
	ingestFailures, _ := meter.Int64Counter("catalog.media.ingest_failures",
		metric.WithDescription("Ingest batches aborted by a failed file"))
	cleanupFailures, _ := meter.Int64Counter("catalog.media.cleanup_failures",
		metric.WithDescription("Media objects or records that could not be removed"))

	return &MediaIngestor{
		storage:         storage,
		media:           media,
		cleanup:         cleanup,
		logger:          logger,
		concurrency:     cfg.Concurrency,
		callTimeout:     cfg.CallTimeout,
		now:             time.Now,
		tracer:          otel.Tracer(instrumentationName),
		ingested:        ingested,
		ingestFailures:  ingestFailures,
		cleanupFailures: cleanupFailures,
	}
}

// Ingest uploads every file and creates its media record concurrently, and
// returns only after all pipelines have finished. The result follows input
// order. If any file fails, everything already written by this batch is
// removed and a *MediaError is returned.
func (m *MediaIngestor) Ingest(ctx context.Context, projectID uuid.UUID, files []UploadedFile) ([]entity.Media, error) {
	if len(files) == 0 {
		return nil, nil
	}

	ctx, span := m.tracer.Start(ctx, "MediaIngestor.Ingest", trace.WithAttributes(
		attribute.String("project.id", projectID.String()),
		attribute.Int("media.count", len(files)),
	))
	defer span.End()

	results := make([]*entity.Media, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			media, err := m.ingestOne(gctx, projectID, file)
			if err != nil {
				return err
			}
			results[i] = media
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		completed := make([]entity.Media, 0, len(results))
		for _, media := range results {
			if media != nil {
				completed = append(completed, *media)
			}
		}

		m.ingestFailures.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest failed")
		m.logger.ErrorWithContextf(ctx, err, "[MediaIngestor] Batch for project %s failed, rolling back %d completed item(s)", projectID, len(completed))
		m.Rollback(ctx, completed)

		var mediaErr *MediaError
		if !errors.As(err, &mediaErr) {
			err = &MediaError{Op: "upload", Err: err}
		}
		return nil, err
	}

	out := make([]entity.Media, len(results))
	for i, media := range results {
		out[i] = *media
	}
	m.ingested.Add(ctx, int64(len(out)))
	m.logger.InfoWithContextf(ctx, "[MediaIngestor] Ingested %d media item(s) for project %s", len(out), projectID)
	return out, nil
}

func (m *MediaIngestor) ingestOne(ctx context.Context, projectID uuid.UUID, file UploadedFile) (*entity.Media, error) {
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := m.now()
	key := utils.NewObjectKey(projectID, file.FileName, now)

	putCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	err := m.storage.PutObject(putCtx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType)
	cancel()
	if err != nil {
		return nil, &MediaError{Op: "upload", FileName: file.FileName, Err: err}
	}

	media := &entity.Media{
		ID:          uuid.New(),
		Type:        entity.MediaTypeFromMIME(contentType),
		URL:         m.storage.PublicURL(key),
		ObjectKey:   key,
		ProjectID:   projectID,
		Title:       file.FileName,
		ContentType: contentType,
		Size:        int64(len(file.Data)),
		CreatedAt:   now.UTC(),
	}

	createCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	err = m.media.Create(createCtx, media)
	cancel()
	if err != nil {
		// The insert may have committed before the error surfaced.
		detached := context.WithoutCancel(ctx)
		_, _ = m.deleteObject(detached, *media, key, "rollback")
		m.deleteRecord(detached, media.ID)
		return nil, &MediaError{Op: "record", FileName: file.FileName, Err: err}
	}

	return media, nil
}

// Rollback removes objects and records of a batch that must not survive. It
// ignores cancellation of ctx so a dropped request cannot leave orphans.
func (m *MediaIngestor) Rollback(ctx context.Context, media []entity.Media) []CleanupError {
	detached := context.WithoutCancel(ctx)

	var failures []CleanupError
	for _, item := range media {
		outcome := m.Remove(detached, item, "rollback")
		failures = append(failures, outcome.Failures...)
	}
	return failures
}

// RemoveOutcome describes what Remove did for one media item.
type RemoveOutcome struct {
	StorageAttempted bool
	AlreadyAbsent    bool
	RecordRemoved    bool
	Failures         []CleanupError
}

// Remove deletes the object behind media and then its record. A missing
// object or record counts as removed. Blob failures are queued for the
// cleanup worker and never stop the record deletion.
func (m *MediaIngestor) Remove(ctx context.Context, media entity.Media, reason string) RemoveOutcome {
	var outcome RemoveOutcome

	key, ok := m.storage.KeyFromURL(media.URL)
	if !ok {
		key = media.ObjectKey
	}

	if key == "" {
		failure := CleanupError{MediaID: media.ID, Op: "resolve-key", Err: fmt.Errorf("no object key for url %q", media.URL)}
		m.cleanupFailures.Add(ctx, 1)
		m.logger.WarningWithContextf(ctx, "[MediaIngestor] %v", failure)
		outcome.Failures = append(outcome.Failures, failure)
	} else {
		outcome.StorageAttempted = true
		absent, err := m.deleteObject(ctx, media, key, reason)
		if err != nil {
			outcome.Failures = append(outcome.Failures, CleanupError{MediaID: media.ID, ObjectKey: key, Op: "delete-object", Err: err})
		}
		outcome.AlreadyAbsent = absent
	}

	recordCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	err := m.media.Delete(recordCtx, media.ID)
	cancel()
	switch {
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		outcome.RecordRemoved = true
	default:
		failure := CleanupError{MediaID: media.ID, ObjectKey: key, Op: "delete-record", Err: err}
		m.cleanupFailures.Add(ctx, 1)
		m.logger.ErrorWithContextf(ctx, err, "[MediaIngestor] Failed to delete media record %s", media.ID)
		outcome.Failures = append(outcome.Failures, failure)
	}

	return outcome
}

// deleteObject treats an absent object as deleted. Other failures are logged
// and queued for the cleanup worker.
func (m *MediaIngestor) deleteObject(ctx context.Context, media entity.Media, key, reason string) (absent bool, err error) {
	deleteCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	err = m.storage.DeleteObject(deleteCtx, key)
	cancel()

	if err == nil {
		return false, nil
	}
	if errors.Is(err, infra.ErrObjectNotFound) {
		m.logger.WarningWithContextf(ctx, "[MediaIngestor] Object %s already absent", key)
		return true, nil
	}

	m.cleanupFailures.Add(ctx, 1)
	m.logger.ErrorWithContextf(ctx, err, "[MediaIngestor] Failed to delete object %s, queueing cleanup", key)
	m.queueCleanup(ctx, media, key, reason)
	return false, err
}

// deleteRecord removes a record that may or may not exist.
func (m *MediaIngestor) deleteRecord(ctx context.Context, id uuid.UUID) {
	deleteCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	err := m.media.Delete(deleteCtx, id)
	cancel()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.cleanupFailures.Add(ctx, 1)
		m.logger.ErrorWithContextf(ctx, err, "[MediaIngestor] Failed to delete media record %s after failed create", id)
	}
}

func (m *MediaIngestor) queueCleanup(ctx context.Context, media entity.Media, key, reason string) {
	if m.cleanup == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	err := m.cleanup.PublishMediaCleanup(publishCtx, produce.MediaCleanupMessage{
		MediaID:   media.ID.String(),
		ProjectID: media.ProjectID.String(),
		ObjectKey: key,
		Reason:    reason,
	})
	if err != nil {
		m.logger.ErrorWithContextf(ctx, err, "[MediaIngestor] Failed to queue cleanup for object %s", key)
	}
}
