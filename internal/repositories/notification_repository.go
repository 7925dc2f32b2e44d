package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"gorm.io/gorm"
)

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(notification).Error)
}

func (r *postgresNotificationRepository) GetNotificationByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (r *postgresNotificationRepository) ListNotifications(recipientID uint) pagination.Query[models.Notification] {
	return pageQuery[models.Notification](r.db, func(db *gorm.DB) *gorm.DB {
		return db.Where("recipient_id = ?", recipientID).Order("created_at DESC").Order("id DESC")
	})
}

func (r *postgresNotificationRepository) MarkNotificationsPeeked(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND peeked_at IS NULL", recipientID).
		Update("peeked_at", at)
	return res.RowsAffected, translate(res.Error)
}

// MarkNotificationRead sets read_at once; a second call leaves it unchanged.
func (r *postgresNotificationRepository) MarkNotificationRead(ctx context.Context, id uint, at time.Time) error {
	return translate(r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error)
}

func (r *postgresNotificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Update("read_at", at)
	return res.RowsAffected, translate(res.Error)
}

func (r *postgresNotificationRepository) CountUnpeeked(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND peeked_at IS NULL", recipientID).
		Count(&count).Error
	return count, translate(err)
}
