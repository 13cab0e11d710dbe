package dbpg

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evently/internal/common"
)

type PreferenceRepo struct {
	db *gorm.DB
}

func NewPreferenceRepo(db *gorm.DB) *PreferenceRepo {
	return &PreferenceRepo{db: db}
}

// ByUserID returns the user's preference row. A miss is common.ErrNotFound;
// callers synthesize defaults instead of failing.
func (r *PreferenceRepo) ByUserID(ctx context.Context, userID string) (*NotificationPreference, error) {
	var pref NotificationPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &pref, nil
}

// Upsert writes the full preference row keyed by user id.
func (r *PreferenceRepo) Upsert(ctx context.Context, pref *NotificationPreference) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email_enabled",
				"reminders_enabled",
				"confirmations_enabled",
				"updates_enabled",
				"reminder_lead_times",
				"updated_at",
			}),
		}).
		Create(pref).Error
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}
