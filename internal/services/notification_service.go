package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/delivery"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"go.uber.org/zap"
)

// LivePublisher pushes an event to a user's open connections.
type LivePublisher interface {
	Publish(userID uint, v any) int
}

// LiveEvent is what a connected client receives for every new notification.
type LiveEvent struct {
	Notification models.Notification `json:"notification"`
	UnreadCount  int64               `json:"unread_count"`
}

type NotificationService struct {
	store     repositories.Store
	live      LivePublisher
	publisher delivery.Publisher
	runner    Runner
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewNotificationService(store repositories.Store, live LivePublisher, publisher delivery.Publisher, runner Runner, cfg Config, logger *zap.Logger) *NotificationService {
	if publisher == nil {
		publisher = delivery.Noop{}
	}
	return &NotificationService{
		store:     store,
		live:      live,
		publisher: publisher,
		runner:    runner,
		timeout:   cfg.StoreTimeout,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Notify records a notification inside tx. The actor is copied by value so
// later profile edits do not rewrite history.
func (s *NotificationService) Notify(ctx context.Context, tx repositories.Store, recipientID uint, action models.NotificationAction, actor models.ActorSnapshot, targetPath string) (*models.Notification, error) {
	n := &models.Notification{
		RecipientID: recipientID,
		Action:      action,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorGender: actor.Gender,
		ActorImage:  actor.Image,
		TargetPath:  targetPath,
		CreatedAt:   s.now(),
	}
	if err := tx.Notifications().CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Dispatch fans committed notifications out to live connections and the
// delivery channel. It never blocks and never fails the caller.
func (s *NotificationService) Dispatch(notes ...models.Notification) {
	for _, n := range notes {
		n := n
		s.runner.Go(func(ctx context.Context) {
			if s.live != nil {
				unread, err := s.store.Notifications().CountUnpeeked(ctx, n.RecipientID)
				if err != nil {
					s.logger.Warn("Unread count failed", zap.Uint("recipient_id", n.RecipientID), zap.Error(err))
				} else {
					s.live.Publish(n.RecipientID, LiveEvent{Notification: n, UnreadCount: unread})
				}
			}
			msg := delivery.Message{
				RecipientID: n.RecipientID,
				Template:    delivery.TemplateNotification,
				Payload: map[string]string{
					"title":       "New activity",
					"body":        Describe(n),
					"action":      string(n.Action),
					"target_path": n.TargetPath,
				},
			}
			if err := s.publisher.Publish(ctx, msg); err != nil {
				s.logger.Warn("Notification delivery failed", zap.Uint("recipient_id", n.RecipientID), zap.Error(err))
			}
		})
	}
}

// Deliver publishes msg asynchronously; failures are logged.
func (s *NotificationService) Deliver(msg delivery.Message) {
	s.runner.Go(func(ctx context.Context) {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Warn("Message delivery failed",
				zap.Uint("recipient_id", msg.RecipientID),
				zap.String("template", string(msg.Template)),
				zap.Error(err),
			)
		}
	})
}

// Describe renders the human readable line for a notification.
func Describe(n models.Notification) string {
	switch n.Action {
	case models.ActionFollowed:
		return fmt.Sprintf("%s started following you", n.ActorName)
	case models.ActionLikedPost:
		return fmt.Sprintf("%s liked your post", n.ActorName)
	case models.ActionLikedComment:
		return fmt.Sprintf("%s liked your comment", n.ActorName)
	case models.ActionMentionedOnPost:
		return fmt.Sprintf("%s mentioned you in a post", n.ActorName)
	case models.ActionMentionedOnComment:
		return fmt.Sprintf("%s mentioned you in a comment", n.ActorName)
	case models.ActionCommentedOnPost:
		return fmt.Sprintf("%s commented on your post", n.ActorName)
	}
	return n.ActorName
}

// Peek marks every unpeeked notification of userID as seen.
func (s *NotificationService) Peek(ctx context.Context, userID uint) (int64, error) {
	ctx, cancel := scope(ctx, s.timeout)
	defer cancel()
	n, err := s.store.Notifications().MarkNotificationsPeeked(ctx, userID, s.now())
	return n, apperrors.Classify(err)
}

// MarkRead acknowledges one notification owned by userID.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	ctx, cancel := scope(ctx, s.timeout)
	defer cancel()
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		n, err := tx.Notifications().GetNotificationByID(ctx, notificationID)
		if err != nil {
			return missing(err, "notification not found")
		}
		if n.RecipientID != userID {
			return apperrors.Authorization("this notification does not belong to you")
		}
		return tx.Notifications().MarkNotificationRead(ctx, n.ID, s.now())
	})
	return apperrors.Classify(err)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	ctx, cancel := scope(ctx, s.timeout)
	defer cancel()
	n, err := s.store.Notifications().MarkAllNotificationsRead(ctx, userID, s.now())
	return n, apperrors.Classify(err)
}

// UnreadCount is the badge number: notifications not yet peeked.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	ctx, cancel := scope(ctx, s.timeout)
	defer cancel()
	n, err := s.store.Notifications().CountUnpeeked(ctx, userID)
	return n, apperrors.Classify(err)
}

func (s *NotificationService) List(ctx context.Context, userID uint, pageSize, page int) (pagination.Page[models.Notification], error) {
	ctx, cancel := scope(ctx, s.timeout)
	defer cancel()
	p, err := pagination.Paginate(ctx, s.store.Notifications().ListNotifications(userID), pageSize, page)
	if err != nil {
		return p, apperrors.Classify(err)
	}
	return p, nil
}
