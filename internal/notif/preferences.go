package notif

import (
	"context"
	"errors"

	"gorm.io/datatypes"

	"evently/internal/common"
	"evently/internal/dbpg"
)

// defaultPreferences synthesizes the all-enabled preference row used when a
// user has never saved settings. Absence of a row is not an error anywhere
// in this package.
func defaultPreferences(userID string, leadTimes []int) *dbpg.NotificationPreference {
	return &dbpg.NotificationPreference{
		UserID:               userID,
		EmailEnabled:         true,
		RemindersEnabled:     true,
		ConfirmationsEnabled: true,
		UpdatesEnabled:       true,
		ReminderLeadTimes:    datatypes.NewJSONSlice(leadTimes),
	}
}

// getOrDefault collapses the "row may not exist yet" case into a total
// function: a miss yields defaults, a stored row with no lead times inherits
// the configured defaults, and only a genuine store failure propagates.
func getOrDefault(ctx context.Context, store PreferenceStore, userID string, defaults []int) (*dbpg.NotificationPreference, error) {
	pref, err := store.ByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return defaultPreferences(userID, defaults), nil
	}
	if err != nil {
		return nil, err
	}
	if len(pref.ReminderLeadTimes) == 0 {
		pref.ReminderLeadTimes = datatypes.NewJSONSlice(defaults)
	}
	return pref, nil
}
