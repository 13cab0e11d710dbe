package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"evently/internal/common"
	"evently/internal/dbpg"
	"evently/internal/di"
)

func main() {
	app, err := di.InitializeApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Close()

	common.SetJWTSecret(app.Config.Server.JWTSecret)

	// Only the notification tables belong to this service. Events, attendees
	// and profiles are owned by the portal and read through its schema.
	if err := app.DB.AutoMigrate(&dbpg.Notification{}, &dbpg.NotificationPreference{}); err != nil {
		app.Logger.Fatal("database migration failed", zap.Error(err))
	}
	app.Logger.Info("database migration completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if app.Config.Notification.SchedulerEnabled {
		go app.Scheduler.Run(ctx)
		go app.Sweeper.Run(ctx)
	} else {
		app.Logger.Info("background scheduler disabled, waiting for /internal/scheduler/run")
	}

	addr := fmt.Sprintf("%s:%s", app.Config.Server.Host, app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.Handler.Router(),
		ReadTimeout:  time.Duration(app.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.Config.Server.WriteTimeout) * time.Second,
	}

	go func() {
		app.Logger.Info("notification service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("server shutdown failed", zap.Error(err))
	}
	app.Logger.Info("server stopped")
}
