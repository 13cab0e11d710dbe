package notif

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"evently/internal/common"
	"evently/internal/config"
	"evently/internal/dbpg"
)

// Observer is a best-effort side channel fed with notifications after they
// are persisted. The stored row is the source of truth; a failing observer
// never unwinds it.
type Observer interface {
	Name() string
	Deliver(ctx context.Context, n *dbpg.Notification) error
}

// Dispatcher persists notification events and fans the stored rows out to
// the registered side-channel observers through a worker pool.
type Dispatcher struct {
	store     NotificationStore
	observers map[string]Observer
	queue     chan *dbpg.Notification
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	wg        sync.WaitGroup
	logger    *zap.Logger
}

func NewDispatcher(cfg *config.Config, store NotificationStore, logger *zap.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	workers := cfg.Notification.Workers
	if workers <= 0 {
		workers = 4
	}
	buffer := cfg.Notification.ChannelBufferSize
	if buffer <= 0 {
		buffer = 1000
	}

	d := &Dispatcher{
		store:     store,
		observers: make(map[string]Observer),
		queue:     make(chan *dbpg.Notification, buffer),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.processQueue()
	}

	return d
}

func (d *Dispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers[observer.Name()] = observer
	d.logger.Info("observer registered", zap.String("observer", observer.Name()))
}

func (d *Dispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.observers, observer.Name())
	d.logger.Info("observer unregistered", zap.String("observer", observer.Name()))
}

// Dispatch validates the event, persists it, and queues the stored row for
// the side channels. A reminder that hits the natural-key unique index comes
// back as common.ErrAlreadySent with no row created.
func (d *Dispatcher) Dispatch(ctx context.Context, event common.NotificationEvent) (*dbpg.Notification, error) {
	if err := validateEvent(event); err != nil {
		return nil, fmt.Errorf("invalid notification event: %w", err)
	}

	n := &dbpg.Notification{
		ID:            uuid.NewString(),
		UserID:        event.UserID,
		EventID:       event.EventID,
		Type:          string(event.Type),
		Title:         event.Title,
		Message:       event.Message,
		Metadata:      datatypes.JSONMap(event.Metadata),
		LeadTimeHours: event.LeadTimeHours,
		CreatedAt:     time.Now(),
	}

	if err := d.store.Create(ctx, n); err != nil {
		return nil, err
	}

	select {
	case d.queue <- n:
	case <-d.ctx.Done():
	default:
		// Queue full: deliver inline rather than dropping the side channels.
		d.deliver(n)
	}

	d.logger.Debug("notification dispatched",
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID))
	return n, nil
}

func (d *Dispatcher) deliver(n *dbpg.Notification) {
	d.mu.RLock()
	observers := make([]Observer, 0, len(d.observers))
	for _, obs := range d.observers {
		observers = append(observers, obs)
	}
	d.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Deliver(d.ctx, n); err != nil {
			d.logger.Warn("observer delivery failed",
				zap.String("observer", observer.Name()),
				zap.String("notification_id", n.ID),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) processQueue() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.ctx.Done():
			return
		}
	}
}

// Drain waits until queued deliveries are picked up. Used by tests and
// shutdown paths that need side channels flushed.
func (d *Dispatcher) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(d.queue) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

func (d *Dispatcher) Shutdown() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher shutdown complete")
}

func validateEvent(event common.NotificationEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !event.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", event.Type)
	}
	if event.Title == "" {
		return fmt.Errorf("title is required")
	}
	if event.Message == "" {
		return fmt.Errorf("message is required")
	}
	if event.Type == common.ReminderType && (event.LeadTimeHours == nil || *event.LeadTimeHours <= 0) {
		return fmt.Errorf("reminders require a positive lead time")
	}
	return nil
}
