package events

import (
	"errors"
	"fmt"
	"time"

	"carbook/internal/config"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// KafkaPublisher forwards bus events to a Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zerolog.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *zerolog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka: create producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// Handle is an EventHandler; attach it with EventBus.SubscribeAll.
func (p *KafkaPublisher) Handle(event *Event) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(event.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("created_at"), Value: []byte(event.CreatedAt.UTC().Format(time.RFC3339Nano))},
		},
	}
	if event.Key != "" {
		msg.Key = sarama.StringEncoder(event.Key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: send %s: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("event", event.Type).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event forwarded to kafka")
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
