package common

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	ReminderType     NotificationType = "reminder"
	ConfirmationType NotificationType = "confirmation"
	UpdateType       NotificationType = "update"
	CancellationType NotificationType = "cancellation"
)

func (t NotificationType) Valid() bool {
	switch t {
	case ReminderType, ConfirmationType, UpdateType, CancellationType:
		return true
	}
	return false
}

type RSVPAction string

const (
	RSVPCreated   RSVPAction = "rsvp"
	RSVPCancelled RSVPAction = "cancel"
)

type NotificationMetadata map[string]interface{}

// NotificationEvent is the unit handed to the dispatcher by the three
// producers (reminder scheduler, event-change notifier, confirmation
// notifier). The dispatcher persists it and fans the stored row out to
// the side-channel observers.
type NotificationEvent struct {
	Type          NotificationType
	UserID        string
	EventID       *string
	Title         string
	Message       string
	LeadTimeHours *int
	Metadata      NotificationMetadata
}

// EventSnapshot is the significant-field view of an event used by the
// event-change notifier to diff before/after states. Description is
// carried but never triggers a notification on its own.
type EventSnapshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Cancelled   bool      `json:"cancelled"`
}

// ReminderKey is the natural key that makes reminder creation idempotent:
// one reminder per (event, user, lead-time) triple.
func ReminderKey(eventID, userID string, leadHours int) string {
	return fmt.Sprintf("%s|%s|%d", eventID, userID, leadHours)
}

// ReminderLabel renders a lead time as the "24h" style tag stored in
// reminder metadata.
func ReminderLabel(leadHours int) string {
	return fmt.Sprintf("%dh", leadHours)
}

// FormatEventDate and FormatEventTime render event start times the way the
// portal displays them, both in message text and in metadata.
func FormatEventDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func FormatEventTime(t time.Time) string {
	return t.Format("3:04 PM")
}

type NotificationResponse struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Title         string               `json:"title"`
	Message       string               `json:"message"`
	EventID       *string              `json:"event_id,omitempty"`
	EventTitle    string               `json:"event_title,omitempty"`
	EventDate     string               `json:"event_date,omitempty"`
	EventTime     string               `json:"event_time,omitempty"`
	EventLocation string               `json:"event_location,omitempty"`
	Metadata      NotificationMetadata `json:"metadata,omitempty"`
	IsRead        bool                 `json:"is_read"`
	EmailSent     bool                 `json:"email_sent"`
	CreatedAt     time.Time            `json:"created_at"`
	ReadAt        *time.Time           `json:"read_at,omitempty"`
}

type PreferenceResponse struct {
	UserID               string `json:"user_id"`
	EmailEnabled         bool   `json:"email_enabled"`
	RemindersEnabled     bool   `json:"reminders_enabled"`
	ConfirmationsEnabled bool   `json:"confirmations_enabled"`
	UpdatesEnabled       bool   `json:"updates_enabled"`
	ReminderLeadTimes    []int  `json:"reminder_lead_times"`
}
