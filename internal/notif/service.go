package notif

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"evently/internal/common"
	"evently/internal/config"
	"evently/internal/dbpg"
	"evently/internal/feed"
	"evently/internal/mail"
)

// Service is the notification subsystem's front door: the read-side contract
// consumed by the UI, the preference settings, and the synchronous producers
// (confirmation and event-change notifiers). The reminder scheduler lives in
// scheduler.go and shares the same dispatcher.
type Service struct {
	store      NotificationStore
	prefs      PreferenceStore
	events     EventStore
	dispatcher *Dispatcher
	pub        FeedPublisher
	defaults   []int
	logger     *zap.Logger
}

func NewService(
	cfg *config.Config,
	store NotificationStore,
	prefs PreferenceStore,
	events EventStore,
	dispatcher *Dispatcher,
	pub FeedPublisher,
	sender mail.Sender,
	logger *zap.Logger,
) *Service {
	defaults := cfg.Notification.DefaultLeadTimes
	if len(defaults) == 0 {
		defaults = []int{24, 1}
	}

	if sender != nil {
		dispatcher.Register(NewEmailObserver(store, prefs, events, sender, defaults, logger))
	}
	if pub != nil {
		dispatcher.Register(NewFeedObserver(pub))
	}

	return &Service{
		store:      store,
		prefs:      prefs,
		events:     events,
		dispatcher: dispatcher,
		pub:        pub,
		defaults:   defaults,
		logger:     logger,
	}
}

// List returns the user's notifications newest first, each joined with the
// minimal event fields the UI renders alongside.
func (s *Service) List(ctx context.Context, userID string, opts dbpg.ListOptions) ([]*common.NotificationResponse, error) {
	notifications, err := s.store.ByUserID(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	eventCache := make(map[string]*dbpg.Event)
	responses := make([]*common.NotificationResponse, len(notifications))
	for i, n := range notifications {
		var event *dbpg.Event
		if n.EventID != nil {
			if cached, ok := eventCache[*n.EventID]; ok {
				event = cached
			} else {
				loaded, err := s.events.ByID(ctx, *n.EventID)
				if err == nil {
					event = loaded
				}
				// Missing events are tolerated; the row keeps its own text.
				eventCache[*n.EventID] = event
			}
		}
		responses[i] = toResponse(n, event)
	}

	return responses, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}

// MarkRead stamps one notification read. Repeating the call is a no-op with
// nil error and no feed event; missing and foreign ids fail with ErrNotFound
// / ErrForbidden.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	n, err := s.store.ByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return common.ErrForbidden
	}
	if n.IsRead {
		return nil
	}

	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		return err
	}

	if s.pub != nil {
		if updated, err := s.store.ByID(ctx, id); err == nil {
			s.publish(ctx, userID, feed.Change{
				Action:         feed.ActionUpdate,
				NotificationID: id,
				Notification:   updated,
			})
		}
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(ctx, userID, feed.Change{Action: feed.ActionUpdate, All: true})
	}
	return count, nil
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.publish(ctx, userID, feed.Change{Action: feed.ActionDelete, NotificationID: id})
	return nil
}

func (s *Service) ClearAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(ctx, userID, feed.Change{Action: feed.ActionDelete, All: true})
	}
	return count, nil
}

// Preferences returns the user's settings, synthesizing defaults when no row
// exists yet.
func (s *Service) Preferences(ctx context.Context, userID string) (*common.PreferenceResponse, error) {
	pref, err := getOrDefault(ctx, s.prefs, userID, s.defaults)
	if err != nil {
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

// PreferencePatch is a partial settings update; nil fields keep their
// current value.
type PreferencePatch struct {
	EmailEnabled         *bool  `json:"email_enabled,omitempty"`
	RemindersEnabled     *bool  `json:"reminders_enabled,omitempty"`
	ConfirmationsEnabled *bool  `json:"confirmations_enabled,omitempty"`
	UpdatesEnabled       *bool  `json:"updates_enabled,omitempty"`
	ReminderLeadTimes    *[]int `json:"reminder_lead_times,omitempty"`
}

func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch PreferencePatch) (*common.PreferenceResponse, error) {
	if patch.ReminderLeadTimes != nil {
		if len(*patch.ReminderLeadTimes) == 0 {
			return nil, fmt.Errorf("at least one reminder lead time is required")
		}
		for _, h := range *patch.ReminderLeadTimes {
			if h <= 0 {
				return nil, fmt.Errorf("lead times must be positive hours, got %d", h)
			}
		}
	}

	pref, err := getOrDefault(ctx, s.prefs, userID, s.defaults)
	if err != nil {
		return nil, err
	}

	if patch.EmailEnabled != nil {
		pref.EmailEnabled = *patch.EmailEnabled
	}
	if patch.RemindersEnabled != nil {
		pref.RemindersEnabled = *patch.RemindersEnabled
	}
	if patch.ConfirmationsEnabled != nil {
		pref.ConfirmationsEnabled = *patch.ConfirmationsEnabled
	}
	if patch.UpdatesEnabled != nil {
		pref.UpdatesEnabled = *patch.UpdatesEnabled
	}
	if patch.ReminderLeadTimes != nil {
		pref.ReminderLeadTimes = datatypes.NewJSONSlice(*patch.ReminderLeadTimes)
	}

	if err := s.prefs.Upsert(ctx, pref); err != nil {
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

// RSVPChanged sends the acting user a confirmation for their own RSVP create
// or cancel. Never fanned out.
func (s *Service) RSVPChanged(ctx context.Context, eventID, userID string, action common.RSVPAction) error {
	pref, err := getOrDefault(ctx, s.prefs, userID, s.defaults)
	if err != nil {
		return err
	}
	if !pref.ConfirmationsEnabled {
		return nil
	}

	event, err := s.events.ByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}

	var title, message string
	switch action {
	case common.RSVPCreated:
		title = "You're going!"
		message = fmt.Sprintf("Your RSVP for %s on %s at %s is confirmed.",
			event.Title, common.FormatEventDate(event.StartsAt), common.FormatEventTime(event.StartsAt))
		if event.Location != "" {
			message += fmt.Sprintf(" See you at %s.", event.Location)
		}
	case common.RSVPCancelled:
		title = "RSVP cancelled"
		message = fmt.Sprintf("Your RSVP for %s has been cancelled.", event.Title)
	default:
		return fmt.Errorf("unknown rsvp action %q", action)
	}

	_, err = s.dispatcher.Dispatch(ctx, common.NotificationEvent{
		Type:    common.ConfirmationType,
		UserID:  userID,
		EventID: &event.ID,
		Title:   title,
		Message: message,
		Metadata: common.NotificationMetadata{
			"action":     string(action),
			"event_date": common.FormatEventDate(event.StartsAt),
			"event_time": common.FormatEventTime(event.StartsAt),
		},
	})
	return err
}

func (s *Service) publish(ctx context.Context, userID string, change feed.Change) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, userID, change); err != nil {
		s.logger.Warn("failed to publish feed change",
			zap.String("user_id", userID),
			zap.String("action", string(change.Action)),
			zap.Error(err))
	}
}

func toResponse(n *dbpg.Notification, event *dbpg.Event) *common.NotificationResponse {
	resp := &common.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		EventID:   n.EventID,
		Metadata:  common.NotificationMetadata(n.Metadata),
		IsRead:    n.IsRead,
		EmailSent: n.EmailSent,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
	if event != nil {
		resp.EventTitle = event.Title
		resp.EventDate = common.FormatEventDate(event.StartsAt)
		resp.EventTime = common.FormatEventTime(event.StartsAt)
		resp.EventLocation = event.Location
	}
	return resp
}

func toPreferenceResponse(pref *dbpg.NotificationPreference) *common.PreferenceResponse {
	return &common.PreferenceResponse{
		UserID:               pref.UserID,
		EmailEnabled:         pref.EmailEnabled,
		RemindersEnabled:     pref.RemindersEnabled,
		ConfirmationsEnabled: pref.ConfirmationsEnabled,
		UpdatesEnabled:       pref.UpdatesEnabled,
		ReminderLeadTimes:    []int(pref.ReminderLeadTimes),
	}
}
