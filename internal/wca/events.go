package wca

// EventNames maps official WCA event IDs to display names. This is the single
// lookup table for the whole application; handlers and the frontend contract
// both key off the IDs.
var EventNames = map[string]string{
	"333":    "3x3x3 Cube",
	"222":    "2x2x2 Cube",
	"444":    "4x4x4 Cube",
	"555":    "5x5x5 Cube",
	"666":    "6x6x6 Cube",
	"777":    "7x7x7 Cube",
	"333bf":  "3x3x3 Blindfolded",
	"333fm":  "3x3x3 Fewest Moves",
	"333oh":  "3x3x3 One-Handed",
	"clock":  "Clock",
	"minx":   "Megaminx",
	"pyram":  "Pyraminx",
	"skewb":  "Skewb",
	"sq1":    "Square-1",
	"444bf":  "4x4x4 Blindfolded",
	"555bf":  "5x5x5 Blindfolded",
	"333mbf": "3x3x3 Multi-Blind",
}

// IsValidEvent reports whether id is a known WCA event ID.
func IsValidEvent(id string) bool {
	_, ok := EventNames[id]
	return ok
}
