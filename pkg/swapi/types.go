package swapi

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Collection names one of the link collections of a person.
type Collection string

const (
	Films     Collection = "films"
	Species   Collection = "species"
	Starships Collection = "starships"
	Vehicles  Collection = "vehicles"
)

// Collections lists every link collection in storage order.
var Collections = []Collection{Films, Species, Starships, Vehicles}

// ParseCollection validates a collection name.
func ParseCollection(name string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", name)
}

// Attributes are the scalar fields of a person, copied verbatim to storage.
type Attributes struct {
	Name      string `json:"name"`
	BirthYear string `json:"birth_year"`
	EyeColor  string `json:"eye_color"`
	Gender    string `json:"gender"`
	HairColor string `json:"hair_color"`
	Height    string `json:"height"`
	Mass      string `json:"mass"`
	SkinColor string `json:"skin_color"`

	// Homeworld is a planet URI and is never resolved.
	Homeworld string `json:"homeworld"`
	URL       string `json:"url"`
}

// Links holds the raw link collections of a person. A collection absent
// from the payload decodes to nil and is treated as empty.
type Links struct {
	Films     []string `json:"films"`
	Species   []string `json:"species"`
	Starships []string `json:"starships"`
	Vehicles  []string `json:"vehicles"`
}

// Get returns the links of collection c.
func (l Links) Get(c Collection) []string {
	switch c {
	case Films:
		return l.Films
	case Species:
		return l.Species
	case Starships:
		return l.Starships
	case Vehicles:
		return l.Vehicles
	default:
		return nil
	}
}

// Person is a people record as returned by SWAPI.
type Person struct {
	Attributes
	Links
}

// LinkedObject is the raw JSON object behind a link, kept verbatim.
type LinkedObject []byte

// Field returns the value at label, a gjson path such as "title".
// String values are returned unquoted, other scalars as their JSON text.
// Absent and null values report false.
func (o LinkedObject) Field(label string) (string, bool) {
	r := gjson.GetBytes(o, label)
	if !r.Exists() || r.Type == gjson.Null {
		return "", false
	}
	if r.Type == gjson.String {
		return r.Str, true
	}
	return r.Raw, true
}

// MarshalJSON emits the object verbatim.
func (o LinkedObject) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return o, nil
}

// UnmarshalJSON keeps a copy of the raw object.
func (o *LinkedObject) UnmarshalJSON(data []byte) error {
	*o = append((*o)[:0], data...)
	return nil
}

// Resolved holds the linked objects of each collection, in link order.
type Resolved struct {
	Films     []LinkedObject `json:"films"`
	Species   []LinkedObject `json:"species"`
	Starships []LinkedObject `json:"starships"`
	Vehicles  []LinkedObject `json:"vehicles"`
}

// Get returns the resolved objects of collection c.
func (r Resolved) Get(c Collection) []LinkedObject {
	switch c {
	case Films:
		return r.Films
	case Species:
		return r.Species
	case Starships:
		return r.Starships
	case Vehicles:
		return r.Vehicles
	default:
		return nil
	}
}

func (r *Resolved) set(c Collection, objs []LinkedObject) {
	switch c {
	case Films:
		r.Films = objs
	case Species:
		r.Species = objs
	case Starships:
		r.Starships = objs
	case Vehicles:
		r.Vehicles = objs
	}
}

// EnrichedPerson is a person whose link collections have been replaced by
// the linked objects.
type EnrichedPerson struct {
	// ID is the SWAPI people id the record was resolved from.
	ID int `json:"-"`

	Attributes
	Resolved
}

// String renders the record as JSON for diagnostics.
func (p *EnrichedPerson) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("person %d: %v", p.ID, err)
	}
	return string(data)
}
