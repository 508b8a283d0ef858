package swapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/swapi-loader/internal/testutil"
	"github.com/Sternrassler/swapi-loader/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, mock *testutil.MockSWAPI) *Resolver {
	t.Helper()
	c := newTestClient(t, mock)
	return NewResolver(c, NewLinkFetcher(c, FetcherConfig{}))
}

func TestResolver_Resolve(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.AddFilm(1, "A New Hope")
	mock.AddStarship(12, "X-wing", "T-65 X-wing")
	mock.AddStarship(22, "Imperial shuttle", "Lambda-class T-4a shuttle")
	mock.AddPerson(1, "Luke Skywalker", testutil.PersonLinks{
		Homeworld: 1,
		Films:     []int{1},
		Starships: []int{12, 22},
	}, false)

	p, err := newTestResolver(t, mock).Resolve(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, p.ID)
	assert.Equal(t, "Luke Skywalker", p.Name)
	assert.Equal(t, "19BBY", p.BirthYear)
	assert.Len(t, p.Films, 1)
	assert.Empty(t, p.Species)
	assert.Len(t, p.Starships, 2)
	assert.Empty(t, p.Vehicles)

	model, ok := p.Starships[1].Field("model")
	require.True(t, ok)
	assert.Equal(t, "Lambda-class T-4a shuttle", model)

	// Homeworld is never followed.
	assert.Equal(t, mock.Link("planets", 1), p.Homeworld)
	assert.Equal(t, 0, mock.RequestCount(testutil.Path("planets", 1)))
}

func TestResolver_CountsMatchLinks(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()
	mock.SeedPeople(6)

	resolver := newTestResolver(t, mock)

	for id := 1; id <= 6; id++ {
		p, err := resolver.Resolve(context.Background(), id)
		require.NoError(t, err, "person %d", id)

		assert.Len(t, p.Films, id%3+1, "person %d films", id)
		assert.Len(t, p.Species, id%2, "person %d species", id)
		assert.Len(t, p.Starships, id%3, "person %d starships", id)
		assert.Len(t, p.Vehicles, (id+1)%3, "person %d vehicles", id)
	}
}

func TestResolver_MissingCollections(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.AddFilm(1, "A New Hope")
	mock.AddPerson(1, "Luke Skywalker", testutil.PersonLinks{
		Homeworld: 1,
		Films:     []int{1},
	}, true)

	p, err := newTestResolver(t, mock).Resolve(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, p.Films, 1)
	for _, c := range []Collection{Species, Starships, Vehicles} {
		assert.NotNil(t, p.Get(c), "collection %s", c)
		assert.Empty(t, p.Get(c), "collection %s", c)
	}
}

func TestResolver_UnknownPerson(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	p, err := newTestResolver(t, mock).Resolve(context.Background(), 999)
	assert.Nil(t, p)

	var fetchErr *client.FetchError
	require.True(t, errors.As(err, &fetchErr), "expected *client.FetchError, got %v", err)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "fetch person 999")
}

func TestResolver_LinkFailureFailsRecord(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.AddFilm(1, "A New Hope")
	mock.AddStarship(12, "X-wing", "T-65 X-wing")
	mock.AddPerson(1, "Luke Skywalker", testutil.PersonLinks{
		Homeworld: 1,
		Films:     []int{1},
		Starships: []int{12},
		Vehicles:  []int{14},
	}, false)
	mock.SetResponse(testutil.Path("vehicles", 14), testutil.MockResponse{
		StatusCode: http.StatusBadGateway,
	})

	p, err := newTestResolver(t, mock).Resolve(context.Background(), 1)
	assert.Nil(t, p)

	var fetchErr *client.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "resolve person 1")
	assert.Contains(t, err.Error(), "resolve vehicles")
}

func TestResolver_MalformedPerson(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: `{"name": "Luke`},
		{name: "wrong link type", body: `{"name":"Luke","films":"https://swapi.dev/api/films/1/"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockSWAPI()
			defer mock.Close()

			mock.SetResponse(testutil.Path("people", 1), testutil.MockResponse{
				StatusCode: http.StatusOK,
				Body:       tt.body,
				Headers:    map[string]string{"Content-Type": "application/json"},
			})

			p, err := newTestResolver(t, mock).Resolve(context.Background(), 1)
			assert.Nil(t, p)

			var parseErr *client.ParseError
			require.True(t, errors.As(err, &parseErr), "expected *client.ParseError, got %v", err)
		})
	}
}

func TestPersonEndpoint(t *testing.T) {
	assert.Equal(t, "people/1/", PersonEndpoint(1))
	assert.Equal(t, "people/83/", PersonEndpoint(83))
}
