package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/ptr"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublish_UserNotification(t *testing.T) {
	writer := &recordingWriter{}
	pub := NewPublisher(writer, time.Second)

	userID := uuid.New()
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    &userID,
		Type:      domain.NotificationReservationConfirmed,
		Title:     "Reservation confirmed",
		Message:   "See you soon",
		RelatedID: uuid.New(),
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, pub.Publish(context.Background(), n))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, userID.String(), string(msg.Key))

	var event Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, Source, event.Source)
	assert.Equal(t, "parking.notification.reservation_confirmed", event.Type)
	assert.True(t, event.Time.Equal(n.CreatedAt))

	var payload Payload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, n.ID.String(), payload.NotificationID)
	assert.Equal(t, userID.String(), *payload.UserID)
	assert.Nil(t, payload.RecipientEmail)
	assert.Equal(t, n.RelatedID.String(), payload.RelatedID)
}

func TestPublish_GuestKeyedByEmail(t *testing.T) {
	writer := &recordingWriter{}
	pub := NewPublisher(writer, 0)

	n := &domain.Notification{
		ID:             uuid.New(),
		RecipientEmail: ptr.Ptr("guest@example.com"),
		Type:           domain.NotificationReservationExpired,
		RelatedID:      uuid.New(),
	}

	require.NoError(t, pub.Publish(context.Background(), n))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "guest@example.com", string(writer.messages[0].Key))
}

func TestPublish_WriterFailure(t *testing.T) {
	pub := NewPublisher(&recordingWriter{err: errors.New("broker down")}, time.Second)

	err := pub.Publish(context.Background(), &domain.Notification{ID: uuid.New(), RelatedID: uuid.New()})
	assert.ErrorIs(t, err, ErrPublish)
}
