package notif

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evently/internal/common"
	"evently/internal/config"
	"evently/internal/dbpg"
)

// ReminderCandidate is one reminder the scheduler decided is due: a single
// (event, user, lead-time) triple.
type ReminderCandidate struct {
	Event         *dbpg.Event
	UserID        string
	LeadTimeHours int
}

// ComputeDueReminders is the scheduler's pure core. A lead time h is due
// when the event's start minus h hours lands inside [now, now+interval).
// The tolerance window equals the run interval, so consecutive runs neither
// double-fire nor skip a lead time falling between ticks. Past events,
// elapsed lead times, users with reminders disabled and keys already present
// in existing are all skipped. Users absent from prefs get defaults.
func ComputeDueReminders(
	now time.Time,
	interval time.Duration,
	events []*dbpg.Event,
	attendees map[string][]string,
	prefs map[string]*dbpg.NotificationPreference,
	existing map[string]struct{},
	defaults []int,
) []ReminderCandidate {
	var due []ReminderCandidate

	windowEnd := now.Add(interval)
	for _, event := range events {
		if event.Cancelled || !event.StartsAt.After(now) {
			continue
		}

		for _, userID := range attendees[event.ID] {
			pref, ok := prefs[userID]
			if !ok {
				pref = defaultPreferences(userID, defaults)
			}
			if !pref.RemindersEnabled {
				continue
			}

			leadTimes := []int(pref.ReminderLeadTimes)
			if len(leadTimes) == 0 {
				leadTimes = defaults
			}

			for _, h := range leadTimes {
				if h <= 0 {
					continue
				}
				remindAt := event.StartsAt.Add(-time.Duration(h) * time.Hour)
				if remindAt.Before(now) || !remindAt.Before(windowEnd) {
					continue
				}
				if _, sent := existing[common.ReminderKey(event.ID, userID, h)]; sent {
					continue
				}
				due = append(due, ReminderCandidate{
					Event:         event,
					UserID:        userID,
					LeadTimeHours: h,
				})
			}
		}
	}

	return due
}

// Scheduler runs the recurring reminder pass. The cadence normally comes
// from the in-process ticker, but /internal/scheduler/run drives the same
// RunOnce so an external cron can own the trigger instead.
type Scheduler struct {
	store      NotificationStore
	prefs      PreferenceStore
	events     EventStore
	dispatcher *Dispatcher
	interval   time.Duration
	lookahead  time.Duration
	defaults   []int
	logger     *zap.Logger
}

func NewScheduler(
	cfg *config.Config,
	store NotificationStore,
	prefs PreferenceStore,
	events EventStore,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) *Scheduler {
	defaults := cfg.Notification.DefaultLeadTimes
	if len(defaults) == 0 {
		defaults = []int{24, 1}
	}

	return &Scheduler{
		store:      store,
		prefs:      prefs,
		events:     events,
		dispatcher: dispatcher,
		interval:   cfg.SchedulerInterval(),
		lookahead:  cfg.Lookahead(),
		defaults:   defaults,
		logger:     logger,
	}
}

// RunOnce executes a single reminder pass for the injected "now". Safe to
// re-run: the natural-key unique index turns any race into ErrAlreadySent,
// which is treated as a skip. One user's failure never blocks the rest.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) error {
	upcoming, err := s.events.StartingBetween(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return fmt.Errorf("failed to load candidate events: %w", err)
	}
	if len(upcoming) == 0 {
		return nil
	}

	eventIDs := make([]string, len(upcoming))
	attendees := make(map[string][]string, len(upcoming))
	userSet := make(map[string]struct{})
	for i, event := range upcoming {
		eventIDs[i] = event.ID
		ids, err := s.events.AttendeeUserIDs(ctx, event.ID)
		if err != nil {
			s.logger.Warn("failed to load attendees, skipping event this run",
				zap.String("event_id", event.ID),
				zap.Error(err))
			continue
		}
		attendees[event.ID] = ids
		for _, id := range ids {
			userSet[id] = struct{}{}
		}
	}

	prefs := make(map[string]*dbpg.NotificationPreference, len(userSet))
	for userID := range userSet {
		pref, err := s.prefs.ByUserID(ctx, userID)
		if errors.Is(err, common.ErrNotFound) {
			continue // defaults apply
		}
		if err != nil {
			s.logger.Warn("failed to load preferences, skipping user this run",
				zap.String("user_id", userID),
				zap.Error(err))
			// Remove the user entirely; the next run retries them.
			for eventID := range attendees {
				attendees[eventID] = removeUser(attendees[eventID], userID)
			}
			continue
		}
		prefs[userID] = pref
	}

	existing, err := s.store.ExistingReminderKeys(ctx, eventIDs)
	if err != nil {
		return fmt.Errorf("failed to load existing reminder keys: %w", err)
	}

	due := ComputeDueReminders(now, s.interval, upcoming, attendees, prefs, existing, s.defaults)

	sent := 0
	for _, candidate := range due {
		if err := s.sendReminder(ctx, candidate); err != nil {
			if errors.Is(err, common.ErrAlreadySent) {
				s.logger.Debug("reminder already sent",
					zap.String("event_id", candidate.Event.ID),
					zap.String("user_id", candidate.UserID),
					zap.Int("lead_time_hours", candidate.LeadTimeHours))
				continue
			}
			s.logger.Warn("reminder dispatch failed",
				zap.String("event_id", candidate.Event.ID),
				zap.String("user_id", candidate.UserID),
				zap.Error(err))
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("reminder pass complete",
			zap.Int("due", len(due)),
			zap.Int("sent", sent))
	}
	return nil
}

func (s *Scheduler) sendReminder(ctx context.Context, c ReminderCandidate) error {
	lead := c.LeadTimeHours
	message := fmt.Sprintf("%s starts in %s on %s at %s.",
		c.Event.Title, humanizeLead(lead),
		common.FormatEventDate(c.Event.StartsAt),
		common.FormatEventTime(c.Event.StartsAt))
	if c.Event.Location != "" {
		message = fmt.Sprintf("%s starts in %s on %s at %s. Location: %s.",
			c.Event.Title, humanizeLead(lead),
			common.FormatEventDate(c.Event.StartsAt),
			common.FormatEventTime(c.Event.StartsAt),
			c.Event.Location)
	}

	_, err := s.dispatcher.Dispatch(ctx, common.NotificationEvent{
		Type:          common.ReminderType,
		UserID:        c.UserID,
		EventID:       &c.Event.ID,
		Title:         "Event reminder",
		Message:       message,
		LeadTimeHours: &lead,
		Metadata: common.NotificationMetadata{
			"reminder_type":   common.ReminderLabel(lead),
			"lead_time_hours": lead,
			"event_date":      common.FormatEventDate(c.Event.StartsAt),
			"event_time":      common.FormatEventTime(c.Event.StartsAt),
			"event_location":  c.Event.Location,
		},
	})
	return err
}

// Run drives RunOnce on the configured interval until the context is
// cancelled. An immediate pass fires at startup so a restart does not wait a
// full interval.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.RunOnce(ctx, time.Now()); err != nil {
		s.logger.Error("reminder pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(ctx, time.Now()); err != nil {
				s.logger.Error("reminder pass failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func humanizeLead(hours int) string {
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

func removeUser(ids []string, userID string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
