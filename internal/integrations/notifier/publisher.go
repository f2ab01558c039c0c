package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// MessageWriter subset of *kafka.Writer used by the publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher hands notifications to the delivery side over Kafka
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher writing to topic
func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewPublisher(writer, writeTimeout)
}

// NewPublisher wraps any writer, used by tests
func NewPublisher(writer MessageWriter, timeout time.Duration) *Publisher {
	return &Publisher{writer: writer, timeout: timeout}
}

// Publish writes one notification. The message key is the recipient, so all
// events for the same person land on the same partition in order.
func (p *Publisher) Publish(ctx context.Context, n *domain.Notification) error {
	value, err := encode(n)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(recipientKey(n)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "ce_type", Value: []byte(n.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: notification=%s: %v", ErrPublish, n.ID, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(n *domain.Notification) ([]byte, error) {
	payload := Payload{
		NotificationID: n.ID.String(),
		RecipientEmail: n.RecipientEmail,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		RelatedID:      n.RelatedID.String(),
	}
	if n.UserID != nil {
		id := n.UserID.String()
		payload.UserID = &id
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	event := Event{
		SpecVersion:     specVersion,
		ID:              uuid.NewString(),
		Source:          Source,
		Type:            "parking.notification." + string(n.Type),
		Time:            created,
		DataContentType: "application/json",
		Data:            data,
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return raw, nil
}

func recipientKey(n *domain.Notification) string {
	if n.UserID != nil {
		return n.UserID.String()
	}
	if n.RecipientEmail != nil {
		return *n.RecipientEmail
	}
	return n.RelatedID.String()
}
