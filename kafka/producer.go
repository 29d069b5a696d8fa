package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-svc/config"
	"shop-svc/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func InitProducer(cfg config.Config, logger *zap.Logger) (sarama.SyncProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer([]string{cfg.KafkaBroker}, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized")
	return producer, nil
}

// PublishOrderEvent sends an order lifecycle event with the current trace
// context injected into the message headers.
func PublishOrderEvent(ctx context.Context, producer sarama.SyncProducer, topic string, event models.OrderEvent, logger *zap.Logger) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
	}

	carrier := saramaHeaderCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = carrier.headers

	partition, offset, err := producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	logger.Info("Order event published",
		zap.String("event_type", event.EventType),
		zap.Int("order_id", event.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// saramaHeaderCarrier implements the TextMapCarrier interface for Kafka
// record headers.
type saramaHeaderCarrier struct {
	headers []sarama.RecordHeader
}

var _ propagation.TextMapCarrier = (*saramaHeaderCarrier)(nil)

func (c *saramaHeaderCarrier) Get(key string) string {
	for _, h := range c.headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *saramaHeaderCarrier) Set(key, value string) {
	c.headers = append(c.headers, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c *saramaHeaderCarrier) Keys() []string {
	keys := make([]string, len(c.headers))
	for i, h := range c.headers {
		keys[i] = string(h.Key)
	}
	return keys
}
