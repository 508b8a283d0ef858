package swapi

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Getter fetches a JSON document. *client.Client implements it.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string) ([]byte, error)
}

// FetcherConfig holds link fetcher configuration.
type FetcherConfig struct {
	// MaxConcurrency caps in-flight requests per Fetch call.
	// 0 issues every request at once.
	MaxConcurrency int
}

// LinkFetcher resolves a list of links into linked objects.
type LinkFetcher struct {
	getter Getter
	config FetcherConfig
	logger zerolog.Logger
}

// NewLinkFetcher creates a new link fetcher.
func NewLinkFetcher(getter Getter, config FetcherConfig) *LinkFetcher {
	if config.MaxConcurrency < 0 {
		config.MaxConcurrency = 0
	}
	return &LinkFetcher{
		getter: getter,
		config: config,
		logger: log.With().Str("component", "link-fetcher").Logger(),
	}
}

// Fetch retrieves every uri concurrently and returns the objects in the
// order of uris. If any fetch fails the whole call fails with that error
// (*client.FetchError or *client.ParseError) and no objects are returned.
// An empty uris slice returns an empty slice without network activity.
func (f *LinkFetcher) Fetch(ctx context.Context, uris []string) ([]LinkedObject, error) {
	objects := make([]LinkedObject, len(uris))
	if len(uris) == 0 {
		return objects, nil
	}

	start := time.Now()

	var g errgroup.Group
	if f.config.MaxConcurrency > 0 {
		g.SetLimit(f.config.MaxConcurrency)
	}

	for i, uri := range uris {
		i, uri := i, uri
		g.Go(func() error {
			body, err := f.getter.GetJSON(ctx, uri)
			if err != nil {
				return err
			}
			if !gjson.ParseBytes(body).IsObject() {
				return &client.ParseError{URL: uri, Err: fmt.Errorf("expected a JSON object")}
			}
			objects[i] = LinkedObject(body)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.Debug().
		Int("links", len(uris)).
		Dur("duration", time.Since(start)).
		Msg("Links resolved")

	return objects, nil
}
