package dbmongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"evently/internal/dbpg"
)

// ArchiveStore keeps notifications past the retention window in a Mongo
// collection so the hot Postgres table stays small. Writes are upserts keyed
// by the notification id, which makes a re-run of the sweep over the same
// rows harmless.
type ArchiveStore struct {
	coll *mongo.Collection
}

func NewArchiveStore(mongoClient *MongoClient) *ArchiveStore {
	return &ArchiveStore{
		coll: mongoClient.Database.Collection("notification_archive"),
	}
}

type archivedNotification struct {
	ID            string                 `bson:"_id"`
	UserID        string                 `bson:"user_id"`
	EventID       *string                `bson:"event_id,omitempty"`
	Type          string                 `bson:"type"`
	Title         string                 `bson:"title"`
	Message       string                 `bson:"message"`
	Metadata      map[string]interface{} `bson:"metadata,omitempty"`
	LeadTimeHours *int                   `bson:"lead_time_hours,omitempty"`
	IsRead        bool                   `bson:"is_read"`
	ReadAt        *time.Time             `bson:"read_at,omitempty"`
	EmailSent     bool                   `bson:"email_sent"`
	CreatedAt     time.Time              `bson:"created_at"`
	ArchivedAt    time.Time              `bson:"archived_at"`
}

func (s *ArchiveStore) Archive(ctx context.Context, notifications []*dbpg.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now()
	models := make([]mongo.WriteModel, 0, len(notifications))
	for _, n := range notifications {
		doc := archivedNotification{
			ID:            n.ID,
			UserID:        n.UserID,
			EventID:       n.EventID,
			Type:          n.Type,
			Title:         n.Title,
			Message:       n.Message,
			Metadata:      n.Metadata,
			LeadTimeHours: n.LeadTimeHours,
			IsRead:        n.IsRead,
			ReadAt:        n.ReadAt,
			EmailSent:     n.EmailSent,
			CreatedAt:     n.CreatedAt,
			ArchivedAt:    now,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": n.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := s.coll.BulkWrite(ctx, models, opts); err != nil {
		return fmt.Errorf("failed to archive notifications: %w", err)
	}
	return nil
}
