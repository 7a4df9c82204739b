package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
)

type KafkaEvent = string

const (
	ListingPublishedEvent     KafkaEvent = "listing.published"
	ListingPublishFailedEvent KafkaEvent = "listing.publish_failed"
	BatchCompletedEvent       KafkaEvent = "listing.batch_completed"
)

type KafkaCommand = string

const (
	PublishBatchCommand KafkaCommand = "publish_batch"
	ExportBatchCommand  KafkaCommand = "export_batch"
)

// Event конверт события конвейера
type Event struct {
	Type       KafkaEvent      `json:"type"`
	BatchID    string          `json:"batch_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Command команда для обработчика партий
type Command struct {
	Type     KafkaCommand        `json:"type"`
	BatchID  string              `json:"batch_id,omitempty"`
	Products []models.RawProduct `json:"products"`
	// OutputDir каталог выгрузки для export_batch
	OutputDir string `json:"output_dir,omitempty"`
}

// DecodeCommand разбирает команду из сообщения
func DecodeCommand(msg *interfaces.Message) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return nil, fmt.Errorf("ошибка разбора команды: %w", err)
	}
	switch cmd.Type {
	case PublishBatchCommand, ExportBatchCommand:
	default:
		return nil, fmt.Errorf("неизвестная команда %q", cmd.Type)
	}
	return &cmd, nil
}

// EventPublisher публикует события партий в брокер сообщений
type EventPublisher struct {
	messaging interfaces.MessagingPort
	topic     string
	now       func() time.Time
}

// NewEventPublisher создает публикатор событий
func NewEventPublisher(messaging interfaces.MessagingPort, topic string) *EventPublisher {
	return &EventPublisher{messaging: messaging, topic: topic, now: time.Now}
}

func (p *EventPublisher) publish(ctx context.Context, eventType KafkaEvent, batchID, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}
	event, err := json.Marshal(Event{
		Type:       eventType,
		BatchID:    batchID,
		OccurredAt: p.now().UTC(),
		Payload:    body,
	})
	if err != nil {
		return fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}
	return p.messaging.PublishWithKey(ctx, p.topic, key, event)
}

// PublishBatchEvents публикует событие по каждой карточке и итоговое событие партии.
// Возвращает первую ошибку, но пытается отправить все события.
func (p *EventPublisher) PublishBatchEvents(ctx context.Context, result *models.BatchResult) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, o := range result.Outcomes() {
		eventType := ListingPublishedEvent
		if !o.Succeeded {
			eventType = ListingPublishFailedEvent
		}
		keep(p.publish(ctx, eventType, result.ID, o.SellerCode, o))
	}
	keep(p.publish(ctx, BatchCompletedEvent, result.ID, result.ID, result.Summary()))

	return firstErr
}
