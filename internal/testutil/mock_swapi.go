// Package testutil provides a mock SWAPI server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse overrides the response of one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// PersonLinks lists the ids a mock person links to.
type PersonLinks struct {
	Homeworld int
	Films     []int
	Species   []int
	Starships []int
	Vehicles  []int
}

// MockSWAPI is an in-memory SWAPI. Resources link to each other with
// absolute URLs pointing back at the mock server.
type MockSWAPI struct {
	server *httptest.Server

	mu        sync.RWMutex
	resources map[string][]byte
	overrides map[string]MockResponse
	delays    map[string]time.Duration
	counts    map[string]int
	total     int
}

// NewMockSWAPI starts a new mock server.
func NewMockSWAPI() *MockSWAPI {
	m := &MockSWAPI{
		resources: make(map[string][]byte),
		overrides: make(map[string]MockResponse),
		delays:    make(map[string]time.Duration),
		counts:    make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the server root URL.
func (m *MockSWAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root, the equivalent of https://swapi.dev/api.
func (m *MockSWAPI) BaseURL() string {
	return m.server.URL + "/api"
}

// Close shuts down the mock server.
func (m *MockSWAPI) Close() {
	m.server.Close()
}

// Path returns the resource path of kind/id, e.g. /api/films/1/.
func Path(kind string, id int) string {
	return fmt.Sprintf("/api/%s/%d/", kind, id)
}

// Link returns the absolute URL of kind/id on this server.
func (m *MockSWAPI) Link(kind string, id int) string {
	return m.server.URL + Path(kind, id)
}

// SetResource stores v, marshalled as JSON, at path.
func (m *MockSWAPI) SetResource(path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal mock resource %s: %v", path, err))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[path] = data
}

// SetResponse overrides the response for path.
func (m *MockSWAPI) SetResponse(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[path] = resp
}

// SetDelay delays responses for path.
func (m *MockSWAPI) SetDelay(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[path] = d
}

// AddFilm registers /api/films/{id}/.
func (m *MockSWAPI) AddFilm(id int, title string) {
	m.SetResource(Path("films", id), map[string]any{
		"title":      title,
		"episode_id": id,
		"director":   "George Lucas",
		"url":        m.Link("films", id),
	})
}

// AddSpecies registers /api/species/{id}/.
func (m *MockSWAPI) AddSpecies(id int, name string) {
	m.SetResource(Path("species", id), map[string]any{
		"name":           name,
		"classification": "mammal",
		"url":            m.Link("species", id),
	})
}

// AddStarship registers /api/starships/{id}/.
func (m *MockSWAPI) AddStarship(id int, name, model string) {
	m.SetResource(Path("starships", id), map[string]any{
		"name":  name,
		"model": model,
		"url":   m.Link("starships", id),
	})
}

// AddVehicle registers /api/vehicles/{id}/.
func (m *MockSWAPI) AddVehicle(id int, name, model string) {
	m.SetResource(Path("vehicles", id), map[string]any{
		"name":  name,
		"model": model,
		"url":   m.Link("vehicles", id),
	})
}

// AddPerson registers /api/people/{id}/ with links to the given ids.
// Empty link lists are omitted from the payload when omitEmpty is set,
// exercising the missing-collection path.
func (m *MockSWAPI) AddPerson(id int, name string, links PersonLinks, omitEmpty bool) {
	person := map[string]any{
		"name":       name,
		"height":     "172",
		"mass":       "77",
		"hair_color": "blond",
		"skin_color": "fair",
		"eye_color":  "blue",
		"birth_year": "19BBY",
		"gender":     "male",
		"homeworld":  m.Link("planets", links.Homeworld),
		"created":    "2014-12-09T13:50:51.644000Z",
		"url":        m.Link("people", id),
	}

	collections := map[string][]int{
		"films":     links.Films,
		"species":   links.Species,
		"starships": links.Starships,
		"vehicles":  links.Vehicles,
	}
	for kind, ids := range collections {
		if len(ids) == 0 && omitEmpty {
			continue
		}
		urls := make([]string, 0, len(ids))
		for _, linked := range ids {
			urls = append(urls, m.Link(kind, linked))
		}
		person[kind] = urls
	}

	m.SetResource(Path("people", id), person)
}

// SeedPeople registers people 1..n, each linking to a different mix of
// films, species, starships and vehicles, plus every linked resource.
// Person i links to films 1..(i%3+1), species i%2, starships 1..(i%3)
// and vehicles 1..((i+1)%3).
func (m *MockSWAPI) SeedPeople(n int) {
	for i := 1; i <= 3; i++ {
		m.AddFilm(i, fmt.Sprintf("Film %d", i))
		m.AddStarship(i, fmt.Sprintf("Starship %d", i), fmt.Sprintf("Model S-%d", i))
		m.AddVehicle(i, fmt.Sprintf("Vehicle %d", i), fmt.Sprintf("Model V-%d", i))
	}
	m.AddSpecies(1, "Human")

	for i := 1; i <= n; i++ {
		m.AddPerson(i, fmt.Sprintf("Person %d", i), PersonLinks{
			Homeworld: 1,
			Films:     seq(i%3 + 1),
			Species:   seq(i % 2),
			Starships: seq(i % 3),
			Vehicles:  seq((i + 1) % 3),
		}, false)
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// RequestCount returns the number of requests made to path.
func (m *MockSWAPI) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[path]
}

// TotalRequests returns the number of requests made to the server.
func (m *MockSWAPI) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// Reset clears the request counters.
func (m *MockSWAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = make(map[string]int)
	m.total = 0
}

func (m *MockSWAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	m.mu.Lock()
	m.counts[path]++
	m.total++
	override, hasOverride := m.overrides[path]
	delay := m.delays[path]
	body, found := m.resources[path]
	m.mu.Unlock()

	if hasOverride {
		if override.Delay > 0 {
			delay = override.Delay
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if hasOverride {
		for key, value := range override.Headers {
			w.Header().Set(key, value)
		}
		status := override.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !found {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found"}`))
		return
	}

	etag := fmt.Sprintf(`"%x"`, len(body)*31+len(path))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
