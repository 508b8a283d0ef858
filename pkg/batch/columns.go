package batch

import (
	"fmt"

	"github.com/Sternrassler/swapi-loader/pkg/store"
	"github.com/Sternrassler/swapi-loader/pkg/swapi"
)

// Column describes how one joined column of a stored row is built: the
// label field of every object in Collection, comma-joined into Name.
type Column struct {
	Name       string
	Collection swapi.Collection
	Label      string
}

// DefaultColumns returns the column set used for new tables.
func DefaultColumns() []Column {
	return []Column{
		{Name: "films", Collection: swapi.Films, Label: "title"},
		{Name: "species", Collection: swapi.Species, Label: "name"},
		{Name: "starships", Collection: swapi.Starships, Label: "model"},
		{Name: "vehicles", Collection: swapi.Vehicles, Label: "name"},
	}
}

// LegacyColumns returns the column set of the first loader release, where
// the vehicles column holds starship names.
func LegacyColumns() []Column {
	cols := DefaultColumns()
	cols[3] = Column{Name: "vehicles", Collection: swapi.Starships, Label: "name"}
	return cols
}

// ValidateColumns checks that every joined column of a row is built
// exactly once from a known collection.
func ValidateColumns(columns []Column) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if _, err := swapi.ParseCollection(string(col.Collection)); err != nil {
			return fmt.Errorf("column %s: %w", col.Name, err)
		}
		if col.Label == "" {
			return fmt.Errorf("column %s: label is required", col.Name)
		}
		if setJoined(&store.Row{}, col.Name, "") != nil {
			return fmt.Errorf("unknown column %q", col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = true
	}
	for _, c := range swapi.Collections {
		if !seen[string(c)] {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

// BuildRow converts an enriched person into a storable row, running the
// field joiner once per column. It fails with *swapi.MissingFieldError
// when a linked object lacks a column's label.
func BuildRow(p *swapi.EnrichedPerson, columns []Column) (store.Row, error) {
	row := store.Row{
		Name:      p.Name,
		BirthYear: p.BirthYear,
		EyeColor:  p.EyeColor,
		Gender:    p.Gender,
		HairColor: p.HairColor,
		Height:    p.Height,
		Homeworld: p.Homeworld,
		Mass:      p.Mass,
		SkinColor: p.SkinColor,
	}

	for _, col := range columns {
		joined, err := swapi.JoinField(p.Get(col.Collection), col.Label)
		if err != nil {
			return store.Row{}, fmt.Errorf("person %d column %s: %w", p.ID, col.Name, err)
		}
		if err := setJoined(&row, col.Name, joined); err != nil {
			return store.Row{}, err
		}
	}

	return row, nil
}

func setJoined(row *store.Row, name, value string) error {
	switch name {
	case "films":
		row.Films = value
	case "species":
		row.Species = value
	case "starships":
		row.Starships = value
	case "vehicles":
		row.Vehicles = value
	default:
		return fmt.Errorf("unknown column %q", name)
	}
	return nil
}
