package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	MediaExchange          = "media.exchange"
	MediaCleanupQueue      = "media.cleanup"
	MediaCleanupRoutingKey = "media.cleanup"
)

// MediaCleanupMessage asks the cleanup worker to remove a blob that the API
// could not delete inline.
type MediaCleanupMessage struct {
	MediaID   string `json:"media_id"`
	ProjectID string `json:"project_id"`
	ObjectKey string `json:"object_key"`
	Reason    string `json:"reason"` // "rollback" | "delete" | "replace"
	Timestamp int64  `json:"timestamp"`
}

type MediaProduceService struct {
	channel *amqp.Channel
}

func InitMediaProduceService(channel *amqp.Channel) *MediaProduceService {
	service := &MediaProduceService{
		channel: channel,
	}

	if err := DeclareMediaCleanupQueue(channel); err != nil {
		panic("Failed to declare Media Cleanup queue: " + err.Error())
	}

	return service
}

// DeclareMediaCleanupQueue is shared with the consumer so either side may start first.
func DeclareMediaCleanupQueue(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		MediaExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	_, err = channel.QueueDeclare(
		MediaCleanupQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	return channel.QueueBind(
		MediaCleanupQueue,
		MediaCleanupRoutingKey,
		MediaExchange,
		false,
		nil,
	)
}

func (s *MediaProduceService) PublishMediaCleanup(ctx context.Context, msg MediaCleanupMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		MediaExchange,
		MediaCleanupRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
