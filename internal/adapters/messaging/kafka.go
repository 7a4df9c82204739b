package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer       *kafka.Producer
	consumers      map[string]*kafka.Consumer
	consumersMutex sync.RWMutex
	brokers        string
	groupID        string
	logger         interfaces.LoggerPort
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(brokers []string, groupID, clientID string, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	servers := strings.Join(brokers, ",")
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            servers,
		"client.id":                    clientID,
		"acks":                         "all", // максимальная надежность
		"enable.idempotence":           true,
		"retries":                      5,
		"retry.backoff.ms":             500,
		"compression.type":             "snappy",
		"linger.ms":                    10,
		"batch.size":                   16384,
		"message.max.bytes":            1000000,
		"queue.buffering.max.messages": 100000,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	k := &KafkaMessaging{
		producer:  producer,
		consumers: make(map[string]*kafka.Consumer),
		brokers:   servers,
		groupID:   groupID,
		logger:    logger,
	}
	go k.drainDeliveryReports()

	return k, nil
}

// drainDeliveryReports логирует неуспешные доставки
func (k *KafkaMessaging) drainDeliveryReports() {
	for ev := range k.producer.Events() {
		m, ok := ev.(*kafka.Message)
		if !ok || m.TopicPartition.Error == nil {
			continue
		}
		topic := ""
		if m.TopicPartition.Topic != nil {
			topic = *m.TopicPartition.Topic
		}
		k.logger.Error("Ошибка доставки сообщения в Kafka",
			interfaces.LogField{Key: "topic", Value: topic},
			interfaces.LogField{Key: "error", Value: m.TopicPartition.Error.Error()},
		)
	}
}

// messageToKafkaMessage преобразует сообщение в kafka.Message
func messageToKafkaMessage(topic string, message []byte, key string, headers map[string]string) *kafka.Message {
	var kafkaHeaders []kafka.Header
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{
			Key:   k,
			Value: []byte(v),
		})
	}

	// служебные заголовки
	kafkaHeaders = append(kafkaHeaders,
		kafka.Header{Key: "message_id", Value: []byte(uuid.New().String())},
		kafka.Header{Key: "timestamp", Value: []byte(strconv.FormatInt(time.Now().UnixNano(), 10))},
	)

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          message,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
	}
}

// kafkaMessageToMessage преобразует kafka.Message в Message
func kafkaMessageToMessage(msg *kafka.Message) *interfaces.Message {
	headers := make(map[string]string)
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	var key string
	if msg.Key != nil {
		key = string(msg.Key)
	}

	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	publishedAt := msg.Timestamp
	if tsStr, ok := headers["timestamp"]; ok {
		if ns, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			publishedAt = time.Unix(0, ns)
		}
	}

	return &interfaces.Message{
		ID:          headers["message_id"],
		Topic:       topic,
		Key:         key,
		Value:       msg.Value,
		Headers:     headers,
		PublishedAt: publishedAt,
	}
}

// Publish публикует сообщение в указанную тему
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	return k.PublishWithKey(ctx, topic, "", message)
}

// PublishWithKey публикует сообщение с указанным ключом
func (k *KafkaMessaging) PublishWithKey(ctx context.Context, topic string, key string, message []byte) error {
	headers := map[string]string{}
	if id := interfaces.StringFromContext(ctx, interfaces.RequestIDKey); id != "" {
		headers["request_id"] = id
	}
	msg := messageToKafkaMessage(topic, message, key, headers)
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("ошибка публикации в топик %s: %w", topic, err)
	}
	return nil
}

// Subscribe подписывается на указанную тему и обрабатывает сообщения с помощью handler
func (k *KafkaMessaging) Subscribe(ctx context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	config := &interfaces.ConsumerConfig{
		GroupID:            k.groupID,
		AutoCommit:         false,
		AutoCommitInterval: 5 * time.Second,
		PollTimeout:        100 * time.Millisecond,
		OffsetReset:        "earliest",
	}
	return k.SubscribeWithConfig(ctx, topic, handler, config)
}

// SubscribeWithConfig подписывается на указанную тему с дополнительными настройками
func (k *KafkaMessaging) SubscribeWithConfig(ctx context.Context, topic string, handler interfaces.MessageHandler, config *interfaces.ConsumerConfig) (func() error, error) {
	handlerID := uuid.New().String()

	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers":       k.brokers,
		"group.id":                config.GroupID,
		"auto.offset.reset":       config.OffsetReset,
		"enable.auto.commit":      config.AutoCommit,
		"auto.commit.interval.ms": int(config.AutoCommitInterval.Milliseconds()),
		"session.timeout.ms":      30000,
		// партия публикуется долго из-за паузы между карточками
		"max.poll.interval.ms":     3600000,
		"heartbeat.interval.ms":    3000,
		"fetch.min.bytes":          1,
		"reconnect.backoff.ms":     50,
		"reconnect.backoff.max.ms": 10000,
	}

	consumer, err := kafka.NewConsumer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("ошибка подписки на топик %s: %w", topic, err)
	}

	k.consumersMutex.Lock()
	k.consumers[handlerID] = consumer
	k.consumersMutex.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		k.consumeMessages(ctx, consumer, handler, config)
	}()

	unsubscribe := func() error {
		k.consumersMutex.Lock()
		c := k.consumers[handlerID]
		delete(k.consumers, handlerID)
		k.consumersMutex.Unlock()

		if c == nil {
			return nil
		}
		<-done
		return c.Close()
	}

	return unsubscribe, nil
}

// consumeMessages обрабатывает сообщения из Kafka до отмены контекста
func (k *KafkaMessaging) consumeMessages(ctx context.Context, consumer *kafka.Consumer, handler interfaces.MessageHandler, config *interfaces.ConsumerConfig) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := consumer.Poll(int(config.PollTimeout.Milliseconds()))
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			msg := kafkaMessageToMessage(e)

			if err := handler(ctx, msg); err != nil {
				k.logger.ErrorWithContext(ctx, "Ошибка обработки сообщения",
					interfaces.LogField{Key: "topic", Value: msg.Topic},
					interfaces.LogField{Key: "message_id", Value: msg.ID},
					interfaces.LogField{Key: "error", Value: err.Error()},
				)
				continue
			}

			if !config.AutoCommit {
				if _, err := consumer.CommitMessage(e); err != nil {
					k.logger.Warn("Ошибка подтверждения сообщения",
						interfaces.LogField{Key: "topic", Value: msg.Topic},
						interfaces.LogField{Key: "error", Value: err.Error()},
					)
				}
			}

		case kafka.Error:
			k.logger.Error("Ошибка Kafka",
				interfaces.LogField{Key: "code", Value: e.Code().String()},
				interfaces.LogField{Key: "error", Value: e.Error()},
			)
			if e.Code() == kafka.ErrAllBrokersDown {
				return
			}
		}
	}
}

// CreateTopic создает тему, если ее еще нет
func (k *KafkaMessaging) CreateTopic(ctx context.Context, topic string, partitions int, replicationFactor int) error {
	adminClient, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("ошибка создания Kafka admin client: %w", err)
	}
	defer adminClient.Close()

	result, err := adminClient.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}}, kafka.SetAdminOperationTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("ошибка создания топика %s: %w", topic, err)
	}

	for _, r := range result {
		if c := r.Error.Code(); c != kafka.ErrNoError && c != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("ошибка создания топика %s: %s", r.Topic, r.Error.String())
		}
	}

	return nil
}

// Close закрывает соединение с системой обмена сообщениями
func (k *KafkaMessaging) Close() error {
	k.consumersMutex.Lock()
	for id, consumer := range k.consumers {
		consumer.Close()
		delete(k.consumers, id)
	}
	k.consumersMutex.Unlock()

	k.producer.Flush(15 * 1000)
	k.producer.Close()

	return nil
}
