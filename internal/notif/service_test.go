package notif

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"evently/internal/common"
	"evently/internal/dbpg"
	"evently/internal/feed"
)

func concertEvent() *dbpg.Event {
	return &dbpg.Event{
		ID:       "ev-1",
		Title:    "Spring Concert",
		StartsAt: time.Date(2026, 4, 18, 19, 30, 0, 0, time.UTC),
		Location: "Main Stage",
	}
}

func TestRSVPChanged_Confirmation(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	prefs.On("ByUserID", mock.Anything, "user-1").Return(nil, common.ErrNotFound)
	events.On("ByID", mock.Anything, "ev-1").Return(concertEvent(), nil)

	var created *dbpg.Notification
	store.On("Create", mock.Anything, mock.AnythingOfType("*dbpg.Notification")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*dbpg.Notification) }).
		Return(nil)

	err := service.RSVPChanged(context.Background(), "ev-1", "user-1", common.RSVPCreated)
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, string(common.ConfirmationType), created.Type)
	assert.Equal(t, "You're going!", created.Title)
	assert.Contains(t, created.Message, "Spring Concert")
	assert.Contains(t, created.Message, "Saturday, April 18, 2026")
	assert.Contains(t, created.Message, "See you at Main Stage.")
	assert.Equal(t, "rsvp", created.Metadata["action"])
}

func TestRSVPChanged_Cancellation(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	prefs.On("ByUserID", mock.Anything, "user-1").Return(nil, common.ErrNotFound)
	events.On("ByID", mock.Anything, "ev-1").Return(concertEvent(), nil)

	var created *dbpg.Notification
	store.On("Create", mock.Anything, mock.AnythingOfType("*dbpg.Notification")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*dbpg.Notification) }).
		Return(nil)

	err := service.RSVPChanged(context.Background(), "ev-1", "user-1", common.RSVPCancelled)
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, "RSVP cancelled", created.Title)
	assert.Equal(t, "Your RSVP for Spring Concert has been cancelled.", created.Message)
	assert.Equal(t, "cancel", created.Metadata["action"])
}

func TestRSVPChanged_RespectsConfirmationsToggle(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	prefs.On("ByUserID", mock.Anything, "user-1").Return(&dbpg.NotificationPreference{
		UserID:               "user-1",
		ConfirmationsEnabled: false,
		ReminderLeadTimes:    datatypes.NewJSONSlice([]int{24}),
	}, nil)

	err := service.RSVPChanged(context.Background(), "ev-1", "user-1", common.RSVPCreated)
	require.NoError(t, err)

	events.AssertNotCalled(t, "ByID", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMarkRead_PublishesUpdate(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	pub := new(MockFeedPublisher)

	cfg := testConfig()
	dispatcher := NewDispatcher(cfg, store, testLogger())
	defer dispatcher.Shutdown()
	service := NewService(cfg, store, prefs, events, dispatcher, pub, nil, testLogger())

	unread := &dbpg.Notification{ID: "n-1", UserID: "user-1"}
	readAt := time.Now()
	updated := &dbpg.Notification{ID: "n-1", UserID: "user-1", IsRead: true, ReadAt: &readAt}

	store.On("ByID", mock.Anything, "n-1").Return(unread, nil).Once()
	store.On("MarkRead", mock.Anything, "n-1", "user-1").Return(nil).Once()
	store.On("ByID", mock.Anything, "n-1").Return(updated, nil).Once()
	pub.On("Publish", mock.Anything, "user-1", mock.MatchedBy(func(c feed.Change) bool {
		return c.Action == feed.ActionUpdate && c.NotificationID == "n-1" && c.Notification == updated
	})).Return(nil)

	err := service.MarkRead(context.Background(), "n-1", "user-1")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestMarkRead_RepeatIsNoOp(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	pub := new(MockFeedPublisher)

	cfg := testConfig()
	dispatcher := NewDispatcher(cfg, store, testLogger())
	defer dispatcher.Shutdown()
	service := NewService(cfg, store, prefs, events, dispatcher, pub, nil, testLogger())

	readAt := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	already := &dbpg.Notification{ID: "n-1", UserID: "user-1", IsRead: true, ReadAt: &readAt}
	store.On("ByID", mock.Anything, "n-1").Return(already, nil)

	// Second call on a read row: nil error, no write, no feed event,
	// read_at untouched.
	err := service.MarkRead(context.Background(), "n-1", "user-1")
	require.NoError(t, err)

	store.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, readAt, *already.ReadAt)
}

func TestMarkRead_ErrorsPassThrough(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	store.On("ByID", mock.Anything, "missing").Return(nil, common.ErrNotFound)
	store.On("ByID", mock.Anything, "n-1").Return(&dbpg.Notification{ID: "n-1", UserID: "owner"}, nil)

	assert.ErrorIs(t, service.MarkRead(context.Background(), "missing", "user-1"), common.ErrNotFound)
	assert.ErrorIs(t, service.MarkRead(context.Background(), "n-1", "intruder"), common.ErrForbidden)
	store.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAllRead_NoPublishWhenNothingChanged(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	pub := new(MockFeedPublisher)

	cfg := testConfig()
	dispatcher := NewDispatcher(cfg, store, testLogger())
	defer dispatcher.Shutdown()
	service := NewService(cfg, store, prefs, events, dispatcher, pub, nil, testLogger())

	store.On("MarkAllRead", mock.Anything, "user-1").Return(int64(0), nil)

	count, err := service.MarkAllRead(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestList_JoinsEventFields(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	eventID := "ev-1"
	gone := "ev-gone"
	rows := []*dbpg.Notification{
		{ID: "n-1", UserID: "user-1", Type: "reminder", Title: "Event reminder", EventID: &eventID},
		{ID: "n-2", UserID: "user-1", Type: "reminder", Title: "Event reminder", EventID: &eventID},
		{ID: "n-3", UserID: "user-1", Type: "update", Title: "Event updated", EventID: &gone},
	}

	store.On("ByUserID", mock.Anything, "user-1", mock.Anything).Return(rows, nil)
	events.On("ByID", mock.Anything, "ev-1").Return(concertEvent(), nil).Once()
	events.On("ByID", mock.Anything, "ev-gone").Return(nil, common.ErrNotFound).Once()

	got, err := service.List(context.Background(), "user-1", dbpg.ListOptions{Limit: 20})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "Spring Concert", got[0].EventTitle)
	assert.Equal(t, "Saturday, April 18, 2026", got[0].EventDate)
	assert.Equal(t, "7:30 PM", got[0].EventTime)
	// Deleted event: the row still renders on its own text.
	assert.Empty(t, got[2].EventTitle)

	// The shared event is fetched once, not per row.
	events.AssertNumberOfCalls(t, "ByID", 2)
}

func TestPreferences_SynthesizesDefaults(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	prefs.On("ByUserID", mock.Anything, "fresh").Return(nil, common.ErrNotFound)

	got, err := service.Preferences(context.Background(), "fresh")
	require.NoError(t, err)

	assert.True(t, got.EmailEnabled)
	assert.True(t, got.RemindersEnabled)
	assert.True(t, got.ConfirmationsEnabled)
	assert.True(t, got.UpdatesEnabled)
	assert.Equal(t, []int{24, 1}, got.ReminderLeadTimes)
	prefs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUpdatePreferences_PartialPatch(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	prefs.On("ByUserID", mock.Anything, "user-1").Return(nil, common.ErrNotFound)

	var saved *dbpg.NotificationPreference
	prefs.On("Upsert", mock.Anything, mock.AnythingOfType("*dbpg.NotificationPreference")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*dbpg.NotificationPreference) }).
		Return(nil)

	off := false
	leads := []int{48, 2}
	got, err := service.UpdatePreferences(context.Background(), "user-1", PreferencePatch{
		EmailEnabled:      &off,
		ReminderLeadTimes: &leads,
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.False(t, saved.EmailEnabled)
	assert.True(t, saved.RemindersEnabled) // untouched fields keep defaults
	assert.Equal(t, []int{48, 2}, []int(saved.ReminderLeadTimes))
	assert.Equal(t, []int{48, 2}, got.ReminderLeadTimes)
}

func TestUpdatePreferences_RejectsBadLeadTimes(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	service, dispatcher := newTestService(store, prefs, events)
	defer dispatcher.Shutdown()

	empty := []int{}
	_, err := service.UpdatePreferences(context.Background(), "user-1", PreferencePatch{ReminderLeadTimes: &empty})
	assert.Error(t, err)

	negative := []int{24, -1}
	_, err = service.UpdatePreferences(context.Background(), "user-1", PreferencePatch{ReminderLeadTimes: &negative})
	assert.Error(t, err)

	prefs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestClearAll_PublishesDelete(t *testing.T) {
	store := new(MockNotificationStore)
	prefs := new(MockPreferenceStore)
	events := new(MockEventStore)
	pub := new(MockFeedPublisher)

	cfg := testConfig()
	dispatcher := NewDispatcher(cfg, store, testLogger())
	defer dispatcher.Shutdown()
	service := NewService(cfg, store, prefs, events, dispatcher, pub, nil, testLogger())

	store.On("DeleteAllForUser", mock.Anything, "user-1").Return(int64(7), nil)
	pub.On("Publish", mock.Anything, "user-1", mock.MatchedBy(func(c feed.Change) bool {
		return c.Action == feed.ActionDelete && c.All
	})).Return(nil)

	count, err := service.ClearAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	pub.AssertExpectations(t)
}
