package dbpg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"evently/internal/common"
)

// ListOptions narrows a user's notification listing. Zero values mean "no
// filter"; Limit falls back to a page of 20.
type ListOptions struct {
	Limit      int
	Offset     int
	Type       common.NotificationType
	UnreadOnly bool
}

type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create inserts the row. A unique violation on the reminder natural key is
// translated to common.ErrAlreadySent so callers can treat it as a skip.
func (r *NotificationRepo) Create(ctx context.Context, n *Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return common.ErrAlreadySent
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) ByID(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *NotificationRepo) ByUserID(ctx context.Context, userID string, opts ListOptions) ([]*Notification, error) {
	var notifications []*Notification

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if opts.Type != "" {
		query = query.Where("type = ?", string(opts.Type))
	}
	if opts.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	query = query.Limit(limit)

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to get user notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}

	return count, nil
}

// MarkRead stamps the read state on one unread row. Ownership and the
// already-read no-op live in the service, which loads the row first; the
// is_read guard here keeps a concurrent repeat from overwriting read_at.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllRead transitions every unread row of the user and reports how many
// changed. Zero unread rows is not an error.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all as read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *NotificationRepo) SetEmailSent(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ?", id).
		Update("email_sent", true)
	if result.Error != nil {
		return fmt.Errorf("failed to set email_sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Notification{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *NotificationRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ExistingReminderKeys returns the natural keys of every reminder already
// stored for the given events, so a scheduler pass can skip them without one
// query per candidate.
func (r *NotificationRepo) ExistingReminderKeys(ctx context.Context, eventIDs []string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	if len(eventIDs) == 0 {
		return keys, nil
	}

	var rows []Notification
	err := r.db.WithContext(ctx).
		Select("event_id", "user_id", "lead_time_hours").
		Where("type = ? AND event_id IN ? AND lead_time_hours IS NOT NULL",
			string(common.ReminderType), eventIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder keys: %w", err)
	}

	for _, row := range rows {
		if row.EventID == nil || row.LeadTimeHours == nil {
			continue
		}
		keys[common.ReminderKey(*row.EventID, row.UserID, *row.LeadTimeHours)] = struct{}{}
	}
	return keys, nil
}

// ExpiredBefore lists rows past the retention cutoff, oldest first, for the
// archive sweep.
func (r *NotificationRepo) ExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Notification, error) {
	var rows []*Notification
	query := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load expired notifications: %w", err)
	}
	return rows, nil
}

func (r *NotificationRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&Notification{}).Error; err != nil {
		return fmt.Errorf("failed to delete archived notifications: %w", err)
	}
	return nil
}
