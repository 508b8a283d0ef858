// Package batch loads a range of SWAPI people into storage: every record
// is resolved concurrently, then all rows are persisted in one transaction.
package batch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/store"
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Resolver resolves one people record. *swapi.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, id int) (*swapi.EnrichedPerson, error)
}

// Persister writes rows in one transaction. *store.Store implements it.
type Persister interface {
	InsertPeople(ctx context.Context, rows []store.Row) (int64, error)
}

// Config holds orchestrator configuration.
type Config struct {
	// Columns builds the joined columns. Nil uses DefaultColumns.
	Columns []Column

	// HTTP is closed once every record is resolved. May be nil.
	HTTP io.Closer
}

// Result summarizes a successful run.
type Result struct {
	RunID           string
	Resolved        int
	Inserted        int64
	ResolveDuration time.Duration
	PersistDuration time.Duration
	Duration        time.Duration
}

// Orchestrator runs batches. It keeps no state between runs.
type Orchestrator struct {
	resolver  Resolver
	persister Persister
	config    Config
	logger    zerolog.Logger
}

// New creates an orchestrator.
func New(resolver Resolver, persister Persister, cfg Config) (*Orchestrator, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if persister == nil {
		return nil, fmt.Errorf("persister is required")
	}
	if cfg.Columns == nil {
		cfg.Columns = DefaultColumns()
	}
	if err := ValidateColumns(cfg.Columns); err != nil {
		return nil, err
	}

	return &Orchestrator{
		resolver:  resolver,
		persister: persister,
		config:    cfg,
		logger:    log.With().Str("component", "batch").Logger(),
	}, nil
}

// Run resolves every id concurrently and, once all succeed, persists the
// records as one transaction. Any resolution failure fails the run with a
// *ResolutionError and nothing is written. Persistence failures surface as
// *swapi.MissingFieldError (no transaction opened) or the persister's error.
func (o *Orchestrator) Run(ctx context.Context, ids []int) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	logger := o.logger.With().Str("run_id", result.RunID).Logger()

	logger.Info().Int("people", len(ids)).Msg("Batch started")

	people, err := o.resolveAll(ctx, ids)
	if o.config.HTTP != nil {
		if cerr := o.config.HTTP.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to release HTTP connections")
		}
	}
	result.ResolveDuration = time.Since(start)
	batchDuration.WithLabelValues("resolve").Observe(result.ResolveDuration.Seconds())
	if err != nil {
		logger.Error().Err(err).Msg("Batch resolution failed")
		return nil, err
	}
	result.Resolved = len(people)

	logger.Info().
		Int("people", result.Resolved).
		Dur("duration", result.ResolveDuration).
		Msg("People resolved")

	persistStart := time.Now()
	var g errgroup.Group
	g.Go(func() error {
		n, err := o.persist(ctx, people)
		result.Inserted = n
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Batch persistence failed")
		return nil, fmt.Errorf("persist batch: %w", err)
	}
	result.PersistDuration = time.Since(persistStart)
	batchDuration.WithLabelValues("persist").Observe(result.PersistDuration.Seconds())

	result.Duration = time.Since(start)
	batchDuration.WithLabelValues("total").Observe(result.Duration.Seconds())

	logger.Info().
		Int64("rows", result.Inserted).
		Dur("duration", result.Duration).
		Msg("Batch complete")

	return result, nil
}

// resolveAll resolves ids concurrently, keeping input order. The first
// failure by completion is returned once every resolution has finished.
func (o *Orchestrator) resolveAll(ctx context.Context, ids []int) ([]*swapi.EnrichedPerson, error) {
	people := make([]*swapi.EnrichedPerson, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := o.resolver.Resolve(ctx, id)
			if err != nil {
				batchRecordsTotal.WithLabelValues("failed").Inc()
				return &ResolutionError{ID: id, Err: err}
			}
			batchRecordsTotal.WithLabelValues("resolved").Inc()
			people[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return people, nil
}

// persist builds every row concurrently, then inserts them together.
func (o *Orchestrator) persist(ctx context.Context, people []*swapi.EnrichedPerson) (int64, error) {
	rows := make([]store.Row, len(people))

	var g errgroup.Group
	for i, p := range people {
		i, p := i, p
		g.Go(func() error {
			row, err := BuildRow(p, o.config.Columns)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n, err := o.persister.InsertPeople(ctx, rows)
	if err != nil {
		return 0, err
	}
	batchRowsInserted.Add(float64(n))

	return n, nil
}
