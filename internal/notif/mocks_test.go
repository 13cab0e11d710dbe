package notif

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"evently/internal/config"
	"evently/internal/dbpg"
	"evently/internal/feed"
	"evently/internal/mail"
)

type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) Create(ctx context.Context, n *dbpg.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationStore) ByID(ctx context.Context, id string) (*dbpg.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbpg.Notification), args.Error(1)
}

func (m *MockNotificationStore) ByUserID(ctx context.Context, userID string, opts dbpg.ListOptions) ([]*dbpg.Notification, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbpg.Notification), args.Error(1)
}

func (m *MockNotificationStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) SetEmailSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationStore) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationStore) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationStore) ExistingReminderKeys(ctx context.Context, eventIDs []string) (map[string]struct{}, error) {
	args := m.Called(ctx, eventIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockNotificationStore) ExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]*dbpg.Notification, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbpg.Notification), args.Error(1)
}

func (m *MockNotificationStore) DeleteByIDs(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type MockPreferenceStore struct {
	mock.Mock
}

func (m *MockPreferenceStore) ByUserID(ctx context.Context, userID string) (*dbpg.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbpg.NotificationPreference), args.Error(1)
}

func (m *MockPreferenceStore) Upsert(ctx context.Context, pref *dbpg.NotificationPreference) error {
	args := m.Called(ctx, pref)
	return args.Error(0)
}

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) ByID(ctx context.Context, id string) (*dbpg.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbpg.Event), args.Error(1)
}

func (m *MockEventStore) StartingBetween(ctx context.Context, from, to time.Time) ([]*dbpg.Event, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbpg.Event), args.Error(1)
}

func (m *MockEventStore) AttendeeUserIDs(ctx context.Context, eventID string) ([]string, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEventStore) ProfileByID(ctx context.Context, userID string) (*dbpg.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbpg.Profile), args.Error(1)
}

type MockFeedPublisher struct {
	mock.Mock
}

func (m *MockFeedPublisher) Publish(ctx context.Context, userID string, change feed.Change) error {
	args := m.Called(ctx, userID, change)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Notification.Workers = 2
	cfg.Notification.ChannelBufferSize = 64
	cfg.Notification.SchedulerMinutes = 15
	cfg.Notification.LookaheadHours = 168
	cfg.Notification.DefaultLeadTimes = []int{24, 1}
	cfg.Notification.RetentionDays = 30
	cfg.Notification.SweepHours = 24
	return cfg
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
