package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"parcel-dispatch/internal/logx"
)

// KafkaDispatcher publishes notification events to a Kafka topic, keyed by
// recipient so per-recipient ordering is preserved.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
	logger   logx.Logger
}

// envelope is the wire form of one published notification.
type envelope struct {
	Recipient string `json:"recipient"`
	Event
	SentAt time.Time `json:"sent_at"`
}

// NewKafkaDispatcher - creates a new KafkaDispatcher.
func NewKafkaDispatcher(brokers []string, topic string, logger logx.Logger) (*KafkaDispatcher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaDispatcher{producer: producer, topic: topic, logger: logger}, nil
}

// NotifyDriver publishes an event addressed to a driver.
func (d *KafkaDispatcher) NotifyDriver(ctx context.Context, driverID int64, ev Event) error {
	return d.publish("driver:"+strconv.FormatInt(driverID, 10), ev)
}

// NotifyCustomer publishes an event addressed to a customer.
func (d *KafkaDispatcher) NotifyCustomer(ctx context.Context, customerID int64, ev Event) error {
	return d.publish("customer:"+strconv.FormatInt(customerID, 10), ev)
}

func (d *KafkaDispatcher) publish(recipient string, ev Event) error {
	body, err := json.Marshal(envelope{Recipient: recipient, Event: ev, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(recipient),
		Value: sarama.ByteEncoder(body),
	}
	partition, offset, err := d.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	d.logger.Debug("notification published",
		logx.String("recipient", recipient),
		logx.String("kind", ev.Kind),
		logx.Int("partition", int(partition)),
		logx.Int64("offset", offset),
	)
	return nil
}

// Close shuts the underlying producer down.
func (d *KafkaDispatcher) Close() error {
	return d.producer.Close()
}

// NopDispatcher drops every notification. Used when no broker is configured
// and in tests.
type NopDispatcher struct{}

// NewNopDispatcher - creates a new NopDispatcher.
func NewNopDispatcher() NopDispatcher { return NopDispatcher{} }

// NotifyDriver implements Dispatcher.
func (NopDispatcher) NotifyDriver(context.Context, int64, Event) error { return nil }

// NotifyCustomer implements Dispatcher.
func (NopDispatcher) NotifyCustomer(context.Context, int64, Event) error { return nil }
