package swapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/swapi-loader/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Resolver fetches people records and resolves their link collections.
type Resolver struct {
	getter Getter
	links  *LinkFetcher
	logger zerolog.Logger
}

// NewResolver creates a resolver that fetches people through getter and
// resolves their links through links.
func NewResolver(getter Getter, links *LinkFetcher) *Resolver {
	return &Resolver{
		getter: getter,
		links:  links,
		logger: log.With().Str("component", "resolver").Logger(),
	}
}

// PersonEndpoint returns the endpoint of people record id, relative to the API root.
func PersonEndpoint(id int) string {
	return fmt.Sprintf("people/%d/", id)
}

// Resolve fetches person id, resolves its four link collections
// concurrently and returns the enriched record. Homeworld and scalar
// attributes are left untouched.
func (r *Resolver) Resolve(ctx context.Context, id int) (*EnrichedPerson, error) {
	start := time.Now()
	endpoint := PersonEndpoint(id)

	body, err := r.getter.GetJSON(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch person %d: %w", id, err)
	}

	var person Person
	if err := json.Unmarshal(body, &person); err != nil {
		return nil, fmt.Errorf("decode person %d: %w", id, &client.ParseError{URL: endpoint, Err: err})
	}

	resolved := make([][]LinkedObject, len(Collections))

	var g errgroup.Group
	for i, c := range Collections {
		i, c := i, c
		g.Go(func() error {
			objs, err := r.links.Fetch(ctx, person.Links.Get(c))
			if err != nil {
				return fmt.Errorf("resolve %s: %w", c, err)
			}
			resolved[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve person %d: %w", id, err)
	}

	enriched := &EnrichedPerson{ID: id, Attributes: person.Attributes}
	for i, c := range Collections {
		enriched.set(c, resolved[i])
	}

	if e := r.logger.Debug(); e.Enabled() {
		data, err := json.Marshal(enriched)
		if err == nil {
			e.RawJSON("person", data)
		}
		e.Int("person_id", id).
			Str("name", enriched.Name).
			Dur("duration", time.Since(start)).
			Msg("Person resolved")
	}

	return enriched, nil
}
