// README: Shared wiring; loads config and builds clients and services from it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Peer-Ride/peer-ride-functions/internal/config"
	"github.com/Peer-Ride/peer-ride-functions/internal/infra"
	"github.com/Peer-Ride/peer-ride-functions/internal/maps"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/audit"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/cleanup"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/notify"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

type app struct {
	cfg config.Config
	log *slog.Logger
	fb  *infra.Firebase
	db  *pgxpool.Pool
	rdb *redis.Client
}

// newApp connects to Firebase and, when configured, Postgres and Redis.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: infra.NewLogger(os.Stdout, cfg.Log.Level)}
	slog.SetDefault(a.log)

	a.fb, err = infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, err
	}

	if cfg.DB.DSN != "" {
		if err := audit.Migrate(ctx, cfg.DB.DSN); err != nil {
			a.Close()
			return nil, err
		}
		if a.db, err = infra.NewDB(ctx, cfg.DB.DSN); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		a.log.Info("audit log disabled: db.dsn not set")
	}

	if cfg.Redis.Addr != "" {
		if a.rdb, err = infra.NewRedis(ctx, cfg.Redis.Addr); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		a.log.Info("cleanup and watcher leases disabled: redis.addr not set")
	}
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if err := a.fb.Close(); err != nil {
		a.log.Warn("firestore close", "err", err)
	}
}

func (a *app) tripService() (*trip.Service, error) {
	opts := []trip.Option{trip.WithLogger(a.log)}
	if a.db != nil {
		opts = append(opts, trip.WithEvents(audit.NewStore(a.db)))
	}
	if a.cfg.Maps.APIKey != "" {
		places, err := maps.NewPlacesService(a.cfg.Maps.APIKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trip.WithResolver(places))
	}
	return trip.NewService(trip.NewFirestoreStore(a.fb.Firestore), a.cfg.Trips, opts...), nil
}

func (a *app) scheduler() (*cleanup.Scheduler, error) {
	opts := []cleanup.SchedulerOption{cleanup.WithLogger(a.log)}
	if a.rdb != nil {
		opts = append(opts, cleanup.WithLease(infra.NewRedisLease(a.rdb)))
	}
	sweeper := cleanup.NewSweeper(cleanup.NewFirestoreStore(a.fb.Firestore), a.log)
	return cleanup.NewScheduler(sweeper, a.cfg.Cleanup, opts...)
}

func (a *app) watcher() (*notify.Watcher, error) {
	loc, err := time.LoadLocation(a.cfg.Cleanup.Timezone)
	if err != nil {
		return nil, err
	}
	renderer, err := notify.NewRenderer(a.cfg.Frontend.BaseURL, loc)
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}
	trigger := notify.NewTrigger(
		trip.NewFirestoreStore(a.fb.Firestore),
		notify.NewFirestoreDirectory(a.fb.Firestore, a.fb.LookupEmail),
		notify.NewFirestoreMailQueue(a.fb.Firestore),
		renderer,
		notify.WithPusher(notify.NewFCMPusher(a.fb.Messaging)),
		notify.WithLogger(a.log),
	)
	opts := []notify.WatcherOption{notify.WithRestartBackoff(a.cfg.Notify.RetryBackoff, a.cfg.Notify.MaxBackoff)}
	if a.rdb != nil {
		opts = append(opts, notify.WithLease(infra.NewRedisLease(a.rdb), a.cfg.Notify.LeaseTTL))
	} else {
		a.log.Warn("notify watcher unguarded: every replica will send mail; set redis.addr")
	}
	return notify.NewWatcher(a.fb.Firestore, trigger, a.log, opts...), nil
}
