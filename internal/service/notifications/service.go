// Package notifications records user-facing messages and hands them to the sink.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// Service notify = persist + publish
type Service struct {
	repo      Repository
	publisher Publisher
	logger    Logger
}

// NewService publisher may be nil, messages are then only stored
func NewService(repo Repository, publisher Publisher, logger Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Notify stores n and publishes it. Reminder types are stored at most once per
// reservation; a duplicate reports sent=false and publishes nothing.
// Publish failures are logged and never returned.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) (bool, error) {
	if n.UserID == nil && n.RecipientEmail == nil {
		return false, ErrNoRecipient
	}

	inserted, err := s.repo.Insert(ctx, n)
	if err != nil {
		s.logger.Error("Notify: failed to store %s for related=%s: %v", n.Type, n.RelatedID, err)
		return false, fmt.Errorf("%w: Notify - insert: %v", ErrInternal, err)
	}
	if !inserted {
		s.logger.Info("Notify: %s for related=%s already sent", n.Type, n.RelatedID)
		return false, nil
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("Notify: publish %s id=%s failed: %v", n.Type, n.ID, err)
		}
	}
	return true, nil
}

// NotifyOnce like Notify, but skips any type already recorded for the related entity
func (s *Service) NotifyOnce(ctx context.Context, n *domain.Notification) (bool, error) {
	if !n.Type.IsReminder() {
		exists, err := s.repo.Exists(ctx, n.Type, n.RelatedID)
		if err != nil {
			return false, fmt.Errorf("%w: NotifyOnce - exists: %v", ErrInternal, err)
		}
		if exists {
			return false, nil
		}
	}
	return s.Notify(ctx, n)
}

// NotifyClaimant best effort message to the account or guest email that made res
func (s *Service) NotifyClaimant(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string) {
	n := &domain.Notification{
		UserID:    res.ClaimantID,
		Type:      t,
		Title:     title,
		Message:   message,
		RelatedID: res.ID,
	}
	if res.ClaimantID == nil && res.Guest != nil && res.Guest.Email != nil {
		n.RecipientEmail = res.Guest.Email
	}
	s.fire(ctx, n)
}

// NotifyOwner best effort message to the spot owner
func (s *Service) NotifyOwner(ctx context.Context, res *domain.Reservation, t domain.NotificationType, title, message string) {
	owner := res.OwnerID
	s.fire(ctx, &domain.Notification{
		UserID:    &owner,
		Type:      t,
		Title:     title,
		Message:   message,
		RelatedID: res.ID,
	})
}

func (s *Service) fire(ctx context.Context, n *domain.Notification) {
	if _, err := s.Notify(ctx, n); err != nil {
		if errors.Is(err, ErrNoRecipient) {
			s.logger.Info("Notify: %s for reservation=%s has no reachable recipient", n.Type, n.RelatedID)
			return
		}
		s.logger.Warn("Notify: %s for reservation=%s dropped: %v", n.Type, n.RelatedID, err)
	}
}
