package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/internal/testutil"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
)

func newService() (*Service, *testutil.Store, *testutil.Publisher) {
	store := testutil.NewStore(testutil.NewClock(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	pub := &testutil.Publisher{}
	return NewService(store.NotificationRepo(), pub, logger.NewNop()), store, pub
}

func TestNotify_ReminderSentOnce(t *testing.T) {
	svc, store, pub := newService()
	ctx := context.Background()
	owner := uuid.New()
	related := uuid.New()

	reminder := func() *domain.Notification {
		return &domain.Notification{
			UserID:    &owner,
			Type:      domain.NotificationApprovalReminder,
			Title:     "Reservation awaiting approval",
			RelatedID: related,
		}
	}

	sent, err := svc.Notify(ctx, reminder())
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = svc.Notify(ctx, reminder())
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Len(t, store.StoredNotifications(), 1)
	assert.Len(t, pub.Published(), 1)
}

func TestNotify_PublishFailureDoesNotFail(t *testing.T) {
	svc, store, pub := newService()
	pub.Err = errors.New("broker down")
	user := uuid.New()

	sent, err := svc.Notify(context.Background(), &domain.Notification{
		UserID:    &user,
		Type:      domain.NotificationReservationConfirmed,
		RelatedID: uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Len(t, store.StoredNotifications(), 1)
}

func TestNotify_NoRecipient(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.Notify(context.Background(), &domain.Notification{
		Type:      domain.NotificationReservationExpired,
		RelatedID: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestNotifyOnce_NonReminderType(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	user := uuid.New()
	related := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := svc.NotifyOnce(ctx, &domain.Notification{
			UserID:    &user,
			Type:      domain.NotificationReservationExpired,
			RelatedID: related,
		})
		require.NoError(t, err)
	}
	assert.Len(t, store.StoredNotifications(), 1)
}

func TestNotifyClaimant_GuestEmail(t *testing.T) {
	svc, _, pub := newService()
	email := "guest@example.com"
	res := &domain.Reservation{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Guest:   &domain.GuestIdentity{FullName: "Ann", Email: &email, Vehicle: "Red Mini"},
	}

	svc.NotifyClaimant(context.Background(), res, domain.NotificationReservationExpired, "Expired", "")

	published := pub.Published()
	require.Len(t, published, 1)
	assert.Nil(t, published[0].UserID)
	assert.Equal(t, email, *published[0].RecipientEmail)
}

func TestNotifyClaimant_PhoneOnlyGuestIsSkipped(t *testing.T) {
	svc, store, _ := newService()
	phone := "+1 555 010 9999"
	res := &domain.Reservation{
		ID:    uuid.New(),
		Guest: &domain.GuestIdentity{FullName: "Ann", Phone: &phone, Vehicle: "Red Mini"},
	}

	svc.NotifyClaimant(context.Background(), res, domain.NotificationReservationExpired, "Expired", "")
	assert.Empty(t, store.StoredNotifications())
}
