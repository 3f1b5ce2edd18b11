// Package main is a small driver around the SDK: it signs in against
// the configured backend and lists one collection, printing the raw
// result. Useful for smoke-testing a backend and as a wiring example.
//
// The initialization sequence:
//  1. Load configuration from config file and environment variables
//  2. Initialize structured logging with zap
//  3. Build the in-process store, restoring a persisted session from
//     Redis when persistence is enabled
//  4. Build the transport, auth client and entity action set
//  5. Sign in (unless a restored session is still valid) and list
//
// Example usage:
//
//	# Sign in and list posts
//	gqlflux --config=config.yaml --username=testuser --password=secret
//
//	# With environment variable overrides
//	export GQLFLUX_API_URL=https://api.example.com/graphql
//	export GQLFLUX_API_PUBLIC=https://api.example.com/public
//	gqlflux --username=testuser --password=secret --collection=events
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/action"
	"github.com/piwi3910/gqlflux/auth"
	"github.com/piwi3910/gqlflux/config"
	"github.com/piwi3910/gqlflux/internal/observability"
	"github.com/piwi3910/gqlflux/store"
	"github.com/piwi3910/gqlflux/transport"
	"github.com/piwi3910/gqlflux/validate"
)

// Version is the application version (set via build flags).
const Version = "1.0.0"

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	username    = flag.String("username", "", "Username for sign-in")
	password    = flag.String("password", "", "Password for sign-in")
	collection  = flag.String("collection", "posts", "Collection to list")
	singular    = flag.String("singular", "post", "Singular entity name")
	showVersion = flag.Bool("version", false, "Show version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Fprintf(os.Stdout, "gqlflux version %s\n", Version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("gqlflux starting",
		zap.String("version", Version),
		zap.String("environment", cfg.Environment),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st := store.NewMemory(store.WithLogger(logger))

	var cache store.SessionCache
	if cfg.Redis.Enabled {
		cache, err = buildSessionCache(ctx, cfg, st, logger)
		if err != nil {
			return err
		}
	}

	client, err := transport.NewClient(transport.Config{
		AppURL:        cfg.API.URL,
		PublicURL:     cfg.API.Public,
		RefreshWindow: cfg.RefreshWindow(),
	}, st, transport.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build transport: %w", err)
	}

	if st.Session().IsAbsent() {
		if err := signIn(ctx, client, st, cache, logger); err != nil {
			return err
		}
	} else {
		logger.Info("reusing persisted session",
			zap.String("username", st.Session().Username),
		)
	}

	return list(ctx, client, st, logger)
}

// buildSessionCache connects to Redis and restores any persisted
// session into the store.
func buildSessionCache(ctx context.Context, cfg *config.Config, st *store.Memory, logger *zap.Logger) (store.SessionCache, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       cfg.Redis.Addresses,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	name := cfg.Redis.KeySuffix
	if name == "" {
		name = "default"
	}
	cache, err := store.NewRedisSessionCache(rdb, name, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Restore(ctx, st, cache); err != nil {
		logger.Warn("failed to restore session", zap.Error(err))
	}
	return cache, nil
}

func signIn(ctx context.Context, client *transport.Client, st *store.Memory, cache store.SessionCache, logger *zap.Logger) error {
	if *username == "" || *password == "" {
		return fmt.Errorf("no session available: --username and --password are required")
	}

	authClient, err := auth.NewClient(client, st, logger)
	if err != nil {
		return err
	}

	sess, err := authClient.SignIn(ctx, *username, *password)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	if cache != nil {
		if err := cache.Save(ctx, sess); err != nil {
			logger.Warn("failed to persist session", zap.Error(err))
		}
	}
	return nil
}

func list(ctx context.Context, client *transport.Client, st *store.Memory, logger *zap.Logger) error {
	entities, err := action.New(action.Config{
		Collection:   *collection,
		Singular:     *singular,
		Validator:    validate.Identity,
		ReturnFields: []string{"id"},
	}, client, st, logger)
	if err != nil {
		return err
	}

	res, err := entities.List(ctx)
	if err != nil {
		return fmt.Errorf("list %s: %w", *collection, err)
	}
	if res.SessionInvalidated {
		return fmt.Errorf("session was invalidated by the backend; sign in again")
	}

	fmt.Fprintln(os.Stdout, string(res.Value))
	return nil
}
