package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-catalog-service/infra"
	"github.com/tnqbao/gau-catalog-service/infra/produce"
	"github.com/tnqbao/gau-catalog-service/repository"
	"gorm.io/gorm"
)

const (
	defaultCleanupAttempts = 3
	defaultCleanupBackoff  = 2 * time.Second
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

type mediaRecordDeleter interface {
	Delete(ctx context.Context, id uuid.UUID) error
}

// MediaCleanupConsumer removes blobs that the API could not delete inline,
// along with any media record still pointing at them.
type MediaCleanupConsumer struct {
	channel     *amqp.Channel
	storage     objectDeleter
	records     mediaRecordDeleter
	logger      *infra.LoggerClient
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration)
}

func NewMediaCleanupConsumer(channel *amqp.Channel, infra *infra.Infra, repo *repository.Repository) *MediaCleanupConsumer {
	return &MediaCleanupConsumer{
		channel:     channel,
		storage:     infra.Storage,
		records:     repo.MediaRepo,
		logger:      infra.Logger,
		maxAttempts: defaultCleanupAttempts,
		backoff:     defaultCleanupBackoff,
		sleep:       sleepContext,
	}
}

func (c *MediaCleanupConsumer) Start(ctx context.Context) error {
	if err := produce.DeclareMediaCleanupQueue(c.channel); err != nil {
		return fmt.Errorf("failed to declare media cleanup queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		produce.MediaCleanupQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register media cleanup consumer: %w", err)
	}

	c.logger.InfoWithContextf(ctx, "[Media Consumer] Started listening for cleanup jobs on queue: %s", produce.MediaCleanupQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.InfoWithContextf(ctx, "[Media Consumer - Cleanup] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.WarningWithContextf(ctx, "[Media Consumer - Cleanup] Channel closed")
					return
				}
				c.handleCleanup(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *MediaCleanupConsumer) handleCleanup(ctx context.Context, msg amqp.Delivery) {
	var payload produce.MediaCleanupMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Media Consumer - Cleanup] Failed to unmarshal message: %v", err)
		_ = msg.Nack(false, false)
		return
	}
	if payload.ObjectKey == "" {
		c.logger.WarningWithContextf(ctx, "[Media Consumer - Cleanup] Dropping message without object key for media %s", payload.MediaID)
		_ = msg.Nack(false, false)
		return
	}

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.executeCleanup(ctx, payload)
		if err == nil {
			c.logger.InfoWithContextf(ctx, "[Media Consumer - Cleanup] Removed object %s (%s)", payload.ObjectKey, payload.Reason)
			_ = msg.Ack(false)
			return
		}

		c.logger.ErrorWithContextf(ctx, err, "[Media Consumer - Cleanup] Attempt %d/%d failed: %v", attempt, c.maxAttempts, err)

		if attempt < c.maxAttempts {
			c.sleep(ctx, time.Duration(attempt)*c.backoff)
		}
	}

	c.logger.ErrorWithContextf(ctx, err, "[Media Consumer - Cleanup] Failed after %d attempts, requeueing message", c.maxAttempts)
	_ = msg.Nack(false, true)
}

func (c *MediaCleanupConsumer) executeCleanup(ctx context.Context, payload produce.MediaCleanupMessage) error {
	err := c.storage.DeleteObject(ctx, payload.ObjectKey)
	if err != nil && !errors.Is(err, infra.ErrObjectNotFound) {
		return fmt.Errorf("delete object %s: %w", payload.ObjectKey, err)
	}
	if errors.Is(err, infra.ErrObjectNotFound) {
		c.logger.InfoWithContextf(ctx, "[Media Consumer - Cleanup] Object %s already absent", payload.ObjectKey)
	}

	mediaID, parseErr := uuid.Parse(payload.MediaID)
	if parseErr != nil {
		return nil
	}
	if err := c.records.Delete(ctx, mediaID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("delete media record %s: %w", mediaID, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
