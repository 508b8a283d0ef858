package store

// Row is one stored person. Scalar attributes are copied verbatim; Films,
// Species, Starships and Vehicles hold comma-joined label values and are
// empty, never NULL, when the person has no links.
type Row struct {
	Name      string
	BirthYear string
	EyeColor  string
	Films     string
	Gender    string
	HairColor string
	Height    string
	Homeworld string
	Mass      string
	SkinColor string
	Species   string
	Starships string
	Vehicles  string
}

// columns lists the insert columns; values returns the matching arguments.
var columns = []string{
	"name", "birth_year", "eye_color", "films", "gender", "hair_color",
	"height", "homeworld", "mass", "skin_color", "species", "starships",
	"vehicles",
}

func (r Row) values() []any {
	return []any{
		r.Name, r.BirthYear, r.EyeColor, r.Films, r.Gender, r.HairColor,
		r.Height, r.Homeworld, r.Mass, r.SkinColor, r.Species, r.Starships,
		r.Vehicles,
	}
}
