package dbpg

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the append-only log of delivered-or-pending messages. Type,
// EventID and Message never change after creation; only the read state and
// the email-sent flag do. The uq_reminder_key composite index is the natural
// key for reminders: Postgres treats NULL lead times as distinct, so the
// other three types are exempt from it.
type Notification struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	UserID        string            `gorm:"not null;index;size:36;uniqueIndex:uq_reminder_key" json:"user_id"`
	EventID       *string           `gorm:"size:36;index;uniqueIndex:uq_reminder_key" json:"event_id,omitempty"`
	Type          string            `gorm:"not null;size:20" json:"type"`
	Title         string            `gorm:"not null;size:255" json:"title"`
	Message       string            `gorm:"not null;type:text" json:"message"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	LeadTimeHours *int              `gorm:"uniqueIndex:uq_reminder_key" json:"lead_time_hours,omitempty"`
	IsRead        bool              `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt        *time.Time        `json:"read_at,omitempty"`
	EmailSent     bool              `gorm:"not null;default:false" json:"email_sent"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

// NotificationPreference holds per-user toggles, exactly one row per user.
// Absence of a row means all-defaults-enabled; callers go through
// getOrDefault rather than treating a miss as an error.
type NotificationPreference struct {
	UserID               string                   `gorm:"primaryKey;size:36" json:"user_id"`
	EmailEnabled         bool                     `gorm:"not null;default:true" json:"email_enabled"`
	RemindersEnabled     bool                     `gorm:"not null;default:true" json:"reminders_enabled"`
	ConfirmationsEnabled bool                     `gorm:"not null;default:true" json:"confirmations_enabled"`
	UpdatesEnabled       bool                     `gorm:"not null;default:true" json:"updates_enabled"`
	ReminderLeadTimes    datatypes.JSONSlice[int] `gorm:"type:jsonb" json:"reminder_lead_times"`
	CreatedAt            time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// Event, Attendee and Profile are owned by the portal; this service reads
// them and never migrates or mutates them.
type Event struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	HostID      string    `gorm:"size:36" json:"host_id"`
	Title       string    `gorm:"size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	Location    string    `gorm:"size:255" json:"location"`
	Cancelled   bool      `json:"cancelled"`
}

type Attendee struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	EventID   string    `gorm:"not null;index;size:36" json:"event_id"`
	UserID    string    `gorm:"not null;index;size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Email       string `gorm:"size:255" json:"email"`
	DisplayName string `gorm:"size:255" json:"display_name"`
}
