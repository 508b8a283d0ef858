// Package swapi resolves SWAPI people records into enriched records whose
// link collections (films, species, starships, vehicles) are replaced by
// the linked resources themselves.
//
// Resolution is a two-level fan-out: every collection of a person is
// fetched concurrently, and every link inside a collection is fetched
// concurrently. Results keep the order of the input links.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig("https://swapi.dev/api", "my-app/1.0"))
//	resolver := swapi.NewResolver(c, swapi.NewLinkFetcher(c, swapi.FetcherConfig{}))
//	person, err := resolver.Resolve(ctx, 1)
//	films, err := swapi.JoinField(person.Films, "title")
//
// Failure policy: every member of a fan-out runs to completion and the
// first error is returned; no partially resolved record is ever returned.
package swapi
