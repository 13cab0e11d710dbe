package di

import (
	"context"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"evently/internal/config"
	"evently/internal/dbmongo"
	"evently/internal/dbpg"
	"evently/internal/feed"
	"evently/internal/logging"
	"evently/internal/mail"
	"evently/internal/notif"
)

// Application holds every long-lived piece of the notification service.
// main wires the lifecycle: migrations, background loops, shutdown.
type Application struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Mongo      *dbmongo.MongoClient
	Feed       *feed.Feed
	Dispatcher *notif.Dispatcher
	Scheduler  *notif.Scheduler
	Sweeper    *notif.Sweeper
	Service    *notif.Service
	Handler    *notif.Handler
}

// Close releases external connections in reverse dependency order.
func (a *Application) Close() {
	a.Dispatcher.Shutdown()
	if a.Feed != nil {
		if err := a.Feed.Close(); err != nil {
			a.Logger.Warn("failed to close redis feed", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Close(ctx); err != nil {
			a.Logger.Warn("failed to close mongo archive", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// ProvideMongo connects the archive store only when it is configured.
// A nil client disables archival; expired rows are then deleted outright.
func ProvideMongo(cfg *config.Config, logger *zap.Logger) (*dbmongo.MongoClient, error) {
	if !cfg.Mongo.Enabled {
		logger.Info("mongo archive disabled")
		return nil, nil
	}
	return dbmongo.NewMongoConnection(cfg)
}

func ProvideArchiver(mc *dbmongo.MongoClient) notif.Archiver {
	if mc == nil {
		return nil
	}
	return dbmongo.NewArchiveStore(mc)
}

// ProvideFeedPublisher converts the concrete feed into the consumer
// interface. The indirection matters: a typed nil *feed.Feed inside a
// non-nil interface would defeat the service's nil checks.
func ProvideFeedPublisher(f *feed.Feed) notif.FeedPublisher {
	if f == nil {
		return nil
	}
	return f
}

func ProvideSender(s *mail.MailgunSender) mail.Sender {
	if s == nil {
		return nil
	}
	return s
}

func ProvideNotificationStore(r *dbpg.NotificationRepo) notif.NotificationStore {
	return r
}

func ProvidePreferenceStore(r *dbpg.PreferenceRepo) notif.PreferenceStore {
	return r
}

func ProvideEventStore(r *dbpg.EventRepo) notif.EventStore {
	return r
}

var ApplicationSet = wire.NewSet(
	config.Load,
	logging.NewLogger,
	dbpg.NewPostgres,
	dbpg.NewNotificationRepo,
	dbpg.NewPreferenceRepo,
	dbpg.NewEventRepo,
	ProvideNotificationStore,
	ProvidePreferenceStore,
	ProvideEventStore,
	ProvideMongo,
	ProvideArchiver,
	feed.NewFeed,
	ProvideFeedPublisher,
	mail.NewMailgunSender,
	ProvideSender,
	notif.NewDispatcher,
	notif.NewService,
	notif.NewScheduler,
	notif.NewSweeper,
	notif.NewHandler,
	wire.Struct(new(Application), "*"),
)
