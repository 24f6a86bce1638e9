package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"alarmclock/backend/internal/calendar"
	"alarmclock/backend/internal/config"
	"alarmclock/backend/internal/db"
	"alarmclock/backend/internal/events"
	"alarmclock/backend/internal/handler"
	"alarmclock/backend/internal/history"
	"alarmclock/backend/internal/lifecycle"
	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/recurrence"
	"alarmclock/backend/internal/repository"
	"alarmclock/backend/internal/router"
	"alarmclock/backend/internal/scheduler"
	"alarmclock/backend/internal/service"
	"alarmclock/backend/internal/tzwatch"
	"alarmclock/backend/migrations"
)

func main() {
	cfg := config.Load()
	level := logging.ParseLevel(cfg.LogLevel)
	out := log.New(os.Stderr, "", 0)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("load policy: %v", err)
	}
	loc, err := policy.Location()
	if err != nil {
		log.Fatalf("resolve timezone: %v", err)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, migrations.FS); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	alarmRepo := repository.NewAlarmRepository(database)
	occurrenceRepo := repository.NewOccurrenceRepository(database)

	bus := events.NewBus(256)
	defer bus.Close()
	recorder := history.NewRecorder(bus, occurrenceRepo, logging.New(out, "history", level))
	defer recorder.Close()

	resolver := recurrence.NewResolver(loc)
	machine := lifecycle.NewMachine(resolver, policy.Alarm)
	platform := scheduler.NewTimerPlatform()
	defer platform.Stop()
	coordinator := scheduler.NewCoordinator(alarmRepo, platform, machine, bus, scheduler.Options{
		CallbackBudget: policy.CallbackBudget(),
		Logger:         logging.New(out, "scheduler", level),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Timers do not survive a restart, so every start is a boot.
	if _, err := coordinator.RefreshAll(ctx, scheduler.TriggerBootCompleted); err != nil {
		log.Fatalf("initial refresh: %v", err)
	}

	if cfg.TZWatchPath != "" {
		watcher := tzwatch.New(cfg.TZWatchPath, coordinator, logging.New(out, "tzwatch", level))
		if err := watcher.Start(ctx); err != nil {
			log.Printf("timezone watcher disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, policy.Preferences())
	alarmService := service.NewAlarmService(
		alarmRepo,
		occurrenceRepo,
		coordinator,
		calendar.NewExporter(resolver, policy.CalendarHorizon()),
		policy.Alarm,
	)
	systemService := service.NewSystemService(coordinator, platform, logging.New(out, "system", level))

	engine := router.New(authService, router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Alarm:  handler.NewAlarmHandler(alarmService),
		System: handler.NewSystemHandler(systemService),
	}, cfg.CORSOrigins, cfg.TriggerKey)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("backend listening on :%s", cfg.Port)
		errCh <- engine.Run(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		log.Printf("run server: %v", err)
	case <-ctx.Done():
		log.Println("shutting down")
	}
}
