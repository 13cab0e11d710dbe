package dbpg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"evently/internal/common"
)

// EventRepo reads the portal-owned events, attendees and profiles tables.
// This subsystem never writes them.
type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) ByID(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// StartingBetween lists non-cancelled events whose start time falls inside
// [from, to), the scheduler's candidate window.
func (r *EventRepo) StartingBetween(ctx context.Context, from, to time.Time) ([]*Event, error) {
	var events []*Event
	err := r.db.WithContext(ctx).
		Where("cancelled = ? AND starts_at >= ? AND starts_at < ?", false, from, to).
		Order("starts_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming events: %w", err)
	}
	return events, nil
}

// AttendeeUserIDs returns the fan-out set for an event, read fresh at call
// time.
func (r *EventRepo) AttendeeUserIDs(ctx context.Context, eventID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&Attendee{}).
		Where("event_id = ?", eventID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load attendees: %w", err)
	}
	return userIDs, nil
}

func (r *EventRepo) ProfileByID(ctx context.Context, userID string) (*Profile, error) {
	var profile Profile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}
