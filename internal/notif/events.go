package notif

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"evently/internal/common"
)

// FieldChange is one significant field's before/after pair, stored verbatim
// in update-notification metadata.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// DiffSignificantFields compares the fields attendees care about: date, time
// and location. Description edits never count, so a description-only change
// produces an empty diff and no notifications.
func DiffSignificantFields(before, after common.EventSnapshot) map[string]FieldChange {
	changes := make(map[string]FieldChange)

	beforeDate := before.StartsAt.Format("2006-01-02")
	afterDate := after.StartsAt.Format("2006-01-02")
	if beforeDate != afterDate {
		changes["date"] = FieldChange{
			Old: common.FormatEventDate(before.StartsAt),
			New: common.FormatEventDate(after.StartsAt),
		}
	}

	beforeTime := before.StartsAt.Format("15:04")
	afterTime := after.StartsAt.Format("15:04")
	if beforeTime != afterTime {
		changes["time"] = FieldChange{
			Old: common.FormatEventTime(before.StartsAt),
			New: common.FormatEventTime(after.StartsAt),
		}
	}

	if before.Location != after.Location {
		changes["location"] = FieldChange{Old: before.Location, New: after.Location}
	}

	return changes
}

// EventChanged is invoked by the event-mutation workflow right after a host's
// edit lands. Cancellation takes precedence over an update and is mutually
// exclusive with it for the same change. Each attendee is gated and
// dispatched independently; one failure never aborts the batch.
func (s *Service) EventChanged(ctx context.Context, before, after common.EventSnapshot) error {
	cancelled := after.Cancelled && !before.Cancelled
	changes := DiffSignificantFields(before, after)
	if !cancelled && len(changes) == 0 {
		return nil
	}

	// Fan-out set read fresh at the moment of the change.
	attendees, err := s.events.AttendeeUserIDs(ctx, after.ID)
	if err != nil {
		return fmt.Errorf("failed to load attendees: %w", err)
	}

	for _, userID := range attendees {
		if err := s.notifyAttendee(ctx, userID, before, after, cancelled, changes); err != nil {
			s.logger.Warn("event-change notification failed",
				zap.String("event_id", after.ID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *Service) notifyAttendee(
	ctx context.Context,
	userID string,
	before, after common.EventSnapshot,
	cancelled bool,
	changes map[string]FieldChange,
) error {
	pref, err := getOrDefault(ctx, s.prefs, userID, s.defaults)
	if err != nil {
		return err
	}
	if !pref.UpdatesEnabled {
		return nil
	}

	event := common.NotificationEvent{
		UserID:  userID,
		EventID: &after.ID,
	}

	if cancelled {
		event.Type = common.CancellationType
		event.Title = "Event cancelled"
		event.Message = fmt.Sprintf("%s on %s has been cancelled.",
			after.Title, common.FormatEventDate(after.StartsAt))
		event.Metadata = common.NotificationMetadata{
			"cancelled":  true,
			"event_date": common.FormatEventDate(after.StartsAt),
			"event_time": common.FormatEventTime(after.StartsAt),
		}
	} else {
		event.Type = common.UpdateType
		event.Title = "Event updated"
		event.Message = fmt.Sprintf("The %s for %s changed.",
			describeFields(changes), after.Title)
		metadata := common.NotificationMetadata{
			"event_date": common.FormatEventDate(after.StartsAt),
			"event_time": common.FormatEventTime(after.StartsAt),
		}
		for field, change := range changes {
			metadata[field] = map[string]interface{}{
				"old": change.Old,
				"new": change.New,
			}
		}
		event.Metadata = metadata
	}

	_, err = s.dispatcher.Dispatch(ctx, event)
	return err
}

// describeFields names the changed fields in stable alphabetical order:
// "date", "date and time", "date, location and time".
func describeFields(changes map[string]FieldChange) string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
	}
}
