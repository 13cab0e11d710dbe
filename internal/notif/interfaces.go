package notif

import (
	"context"
	"time"

	"evently/internal/dbpg"
	"evently/internal/feed"
)

type NotificationStore interface {
	Create(ctx context.Context, n *dbpg.Notification) error
	ByID(ctx context.Context, id string) (*dbpg.Notification, error)
	ByUserID(ctx context.Context, userID string, opts dbpg.ListOptions) ([]*dbpg.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	SetEmailSent(ctx context.Context, id string) error
	Delete(ctx context.Context, id, userID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	ExistingReminderKeys(ctx context.Context, eventIDs []string) (map[string]struct{}, error)
	ExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]*dbpg.Notification, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type PreferenceStore interface {
	ByUserID(ctx context.Context, userID string) (*dbpg.NotificationPreference, error)
	Upsert(ctx context.Context, pref *dbpg.NotificationPreference) error
}

type EventStore interface {
	ByID(ctx context.Context, id string) (*dbpg.Event, error)
	StartingBetween(ctx context.Context, from, to time.Time) ([]*dbpg.Event, error)
	AttendeeUserIDs(ctx context.Context, eventID string) ([]string, error)
	ProfileByID(ctx context.Context, userID string) (*dbpg.Profile, error)
}

// FeedPublisher pushes row changes onto the live feed. A nil publisher means
// the feed channel is off.
type FeedPublisher interface {
	Publish(ctx context.Context, userID string, change feed.Change) error
}

// Archiver receives notifications leaving the retention window.
type Archiver interface {
	Archive(ctx context.Context, notifications []*dbpg.Notification) error
}
