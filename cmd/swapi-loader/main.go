// Command swapi-loader resolves a range of SWAPI people, including their
// films, species, starships and vehicles, and stores them in PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/batch"
	"github.com/Sternrassler/swapi-loader/pkg/client"
	"github.com/Sternrassler/swapi-loader/pkg/config"
	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/Sternrassler/swapi-loader/pkg/metrics"
	"github.com/Sternrassler/swapi-loader/pkg/store"
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("swapi-loader failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	start := time.Now()

	flags := flag.NewFlagSet("swapi-loader", flag.ContinueOnError)
	envFile := flags.String("env", ".env", "optional dotenv file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
	})

	// HTTP client, with the response cache when Redis is configured
	clientCfg := client.DefaultConfig(cfg.API.BaseURL, cfg.API.UserAgent)
	clientCfg.Timeout = cfg.API.Timeout
	if cfg.Cache.RedisURL != "" {
		redisClient, err := newRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		log.Info().Str("redis", cfg.Cache.RedisURL).Msg("Response cache enabled")
		clientCfg.Redis = redisClient
	}

	swapiClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create swapi client: %w", err)
	}

	// Storage
	db, err := store.New(ctx, store.Config{
		DatabaseURL: cfg.DatabaseURL(),
		MaxConns:    cfg.Database.MaxConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	columns := batch.DefaultColumns()
	if cfg.Batch.LegacyVehicles {
		columns = batch.LegacyColumns()
	}

	fetcher := swapi.NewLinkFetcher(swapiClient, swapi.FetcherConfig{MaxConcurrency: cfg.API.MaxConcurrency})
	orchestrator, err := batch.New(swapi.NewResolver(swapiClient, fetcher), db, batch.Config{
		Columns: columns,
		HTTP:    swapiClient,
	})
	if err != nil {
		return err
	}

	res, runErr := orchestrator.Run(ctx, cfg.IDs())

	if cfg.PushgatewayURL != "" {
		runID := "failed"
		if res != nil {
			runID = res.RunID
		}
		// The run context may already be cancelled.
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, runID); err != nil {
			log.Warn().Err(err).Msg("Failed to push metrics")
		}
		cancel()
	}

	if runErr != nil {
		return runErr
	}

	elapsed := time.Since(start)
	log.Info().
		Str("run_id", res.RunID).
		Int64("rows", res.Inserted).
		Dur("duration", elapsed).
		Msg("Load complete")
	fmt.Fprintf(stdout, "Loaded %d people in %s\n", res.Inserted, elapsed.Round(time.Millisecond))

	return nil
}

// newRedisClient accepts a redis:// URL or a plain host:port address.
func newRedisClient(redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		return redis.NewClient(&redis.Options{Addr: redisURL}), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
