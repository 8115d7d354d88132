package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/notifier/internal/auth"
	"github.com/nhle/notifier/internal/connectivity"
	"github.com/nhle/notifier/internal/credential"
	"github.com/nhle/notifier/internal/model"
	"github.com/nhle/notifier/internal/store"
)

// openStore opens the configured backend. The mongo URI may carry
// credentials, so the keyring is consulted before the config file.
func openStore(ctx context.Context, cfg *model.AppConfig, vault *credential.Vault) (store.Store, error) {
	b := cfg.Backend
	interval := time.Duration(b.PollIntervalSec) * time.Second

	switch b.Driver {
	case model.DriverSQLite:
		bus, err := openBus(ctx, cfg.Bus)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(b.SQLitePath), 0o755); err != nil {
			bus.Close()
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		s, err := store.NewSQLiteStore(b.SQLitePath,
			store.WithPollInterval(interval),
			store.WithChangeBus(bus),
		)
		if err != nil {
			bus.Close()
			return nil, err
		}
		return s, nil

	case model.DriverMongo:
		uri := auth.Resolve("NOTIFIER_MONGO_URI", credential.MongoURI, vault.Get)
		if uri == "" {
			uri = b.MongoURI
		}
		if uri == "" {
			return nil, fmt.Errorf("backend.mongo_uri is not set")
		}
		if cfg.Bus.Driver != model.BusLocal {
			log.Printf("[INFO] bus %q ignored: mongo signals changes through change streams", cfg.Bus.Driver)
		}
		return store.NewMongoStore(ctx, uri, b.MongoDatabase, b.Collection, interval)

	case model.DriverFirestore:
		return store.NewFirestoreStore(ctx, b.FirestoreProject, b.Collection, b.FirestoreCredentials)

	default:
		return nil, fmt.Errorf("unknown backend driver %q", b.Driver)
	}
}

func openBus(ctx context.Context, cfg model.BusConfig) (store.ChangeBus, error) {
	if cfg.Driver == model.BusRedis {
		return store.NewRedisBus(ctx, cfg.RedisURL)
	}
	return store.NewLocalBus(), nil
}

// connSignal is a connectivity signal with a way to stop probing.
type connSignal struct {
	connectivity.Signal
	stop func()
}

// openConnectivity probes the configured URL, or reports always online
// when there is none.
func openConnectivity(ctx context.Context, cfg model.ConnectivityConfig) connSignal {
	if cfg.ProbeURL == "" {
		return connSignal{Signal: connectivity.Static(true), stop: func() {}}
	}

	m := connectivity.NewMonitor(
		cfg.ProbeURL,
		time.Duration(cfg.IntervalSec)*time.Second,
		time.Duration(cfg.TimeoutSec)*time.Second,
	)
	m.Start(ctx)
	return connSignal{Signal: m, stop: m.Stop}
}
