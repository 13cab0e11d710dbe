// Package feed is the live change feed: a thin typed wrapper over redis
// pub/sub, keyed by user identity, delivering notification row changes to
// whichever client sessions are subscribed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evently/internal/config"
	"evently/internal/dbpg"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Change is one row event on a user's notification feed. Insert and update
// carry the full row; delete carries only the id. All marks a bulk
// operation (mark-all-read, clear-all) where individual rows are not
// enumerated.
type Change struct {
	Action         Action             `json:"action"`
	NotificationID string             `json:"notification_id,omitempty"`
	All            bool               `json:"all,omitempty"`
	Notification   *dbpg.Notification `json:"notification,omitempty"`
}

func ChannelFor(userID string) string {
	return "notif:user:" + userID
}

type Feed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewFeed(cfg *config.Config, logger *zap.Logger) (*Feed, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Feed{rdb: rdb, logger: logger}, nil
}

// Publish pushes one change onto the recipient's channel. Nobody listening
// is fine; redis drops the message.
func (f *Feed) Publish(ctx context.Context, userID string, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode feed change: %w", err)
	}
	if err := f.rdb.Publish(ctx, ChannelFor(userID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish feed change: %w", err)
	}
	return nil
}

// Subscribe opens the user's live feed. The caller owns the subscription and
// must Close it on teardown; Changes() is closed once the subscription ends.
func (f *Feed) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	pubsub := f.rdb.Subscribe(ctx, ChannelFor(userID))

	// Force the SUBSCRIBE round-trip so a dead redis fails here, not on the
	// first read.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &Subscription{
		pubsub:  pubsub,
		changes: make(chan Change, 16),
		logger:  f.logger,
	}
	go sub.pump(ctx)
	return sub, nil
}

func (f *Feed) Close() error {
	return f.rdb.Close()
}

type Subscription struct {
	pubsub  *redis.PubSub
	changes chan Change
	logger  *zap.Logger

	closeOnce sync.Once
}

// Changes delivers decoded row events until the subscription is closed.
func (s *Subscription) Changes() <-chan Change {
	return s.changes
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.changes)

	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				s.logger.Warn("dropping malformed feed payload",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}
			select {
			case s.changes <- change:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
