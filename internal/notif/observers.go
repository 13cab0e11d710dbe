package notif

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"evently/internal/common"
	"evently/internal/dbpg"
	"evently/internal/feed"
	"evently/internal/mail"
)

// EmailObserver is the delivery layer's email side channel. It gates on the
// recipient's email_enabled toggle, hands a rendered message to the
// provider, and flips email_sent on success. A send failure leaves the
// already-persisted notification untouched.
type EmailObserver struct {
	store    NotificationStore
	prefs    PreferenceStore
	events   EventStore
	sender   mail.Sender
	defaults []int
	logger   *zap.Logger
}

func NewEmailObserver(
	store NotificationStore,
	prefs PreferenceStore,
	events EventStore,
	sender mail.Sender,
	defaults []int,
	logger *zap.Logger,
) *EmailObserver {
	return &EmailObserver{
		store:    store,
		prefs:    prefs,
		events:   events,
		sender:   sender,
		defaults: defaults,
		logger:   logger,
	}
}

func (o *EmailObserver) Name() string {
	return "email_observer"
}

func (o *EmailObserver) Deliver(ctx context.Context, n *dbpg.Notification) error {
	pref, err := getOrDefault(ctx, o.prefs, n.UserID, o.defaults)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	if !pref.EmailEnabled {
		return nil
	}

	profile, err := o.events.ProfileByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to load recipient profile: %w", err)
	}
	if profile.Email == "" {
		return nil
	}

	var event *dbpg.Event
	if n.EventID != nil {
		event, err = o.events.ByID(ctx, *n.EventID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("failed to load event: %w", err)
		}
		// A deleted event is fine; the email just omits the event block.
	}

	msg, err := mail.Render(n, profile, event)
	if err != nil {
		return err
	}

	providerID, err := o.sender.Send(ctx, msg)
	if err != nil {
		// email_sent stays false so a later retry pass can pick it up.
		return err
	}

	if err := o.store.SetEmailSent(ctx, n.ID); err != nil {
		o.logger.Warn("email sent but flag update failed",
			zap.String("notification_id", n.ID),
			zap.Error(err))
		return nil
	}

	o.logger.Info("notification email sent",
		zap.String("notification_id", n.ID),
		zap.String("provider_message_id", providerID))
	return nil
}

// FeedObserver pushes freshly stored notifications onto the recipient's live
// feed so open client sessions update without polling.
type FeedObserver struct {
	pub FeedPublisher
}

func NewFeedObserver(pub FeedPublisher) *FeedObserver {
	return &FeedObserver{pub: pub}
}

func (o *FeedObserver) Name() string {
	return "feed_observer"
}

func (o *FeedObserver) Deliver(ctx context.Context, n *dbpg.Notification) error {
	return o.pub.Publish(ctx, n.UserID, feed.Change{
		Action:         feed.ActionInsert,
		NotificationID: n.ID,
		Notification:   n,
	})
}
