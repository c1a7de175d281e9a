package model

// camelotNotes maps a musical key spelling to its Camelot wheel code. Order
// and entries (including the "Dd" typo entry) are carried verbatim from the
// reference table so lookups behave identically to the system this was
// ported from.
var camelotNotes = [35][2]string{ //nolint:gochecknoglobals // immutable literal table.
	{"Abm", "1A"},
	{"G#m", "1A"},
	{"B", "1B"},
	{"D#m", "2A"},
	{"Ebm", "2A"},
	{"Gb", "2B"},
	{"F#", "2B"},
	{"A#m", "3A"},
	{"Bbm", "3A"},
	{"C#", "3B"},
	{"Db", "3B"},
	{"Dd", "3B"},
	{"Fm", "4A"},
	{"G#", "4B"},
	{"Ab", "4B"},
	{"Cm", "5A"},
	{"D#", "5B"},
	{"Eb", "5B"},
	{"Gm", "6A"},
	{"A#", "6B"},
	{"Bb", "6B"},
	{"Dm", "7A"},
	{"F", "7B"},
	{"Am", "8A"},
	{"C", "8B"},
	{"Em", "9A"},
	{"G", "9B"},
	{"Bm", "10A"},
	{"D", "10B"},
	{"Gbm", "11A"},
	{"F#m", "11A"},
	{"A", "11B"},
	{"C#m", "12A"},
	{"Dbm", "12A"},
	{"E", "12B"},
}

// CamelotKey returns the Camelot wheel code for a key spelling such as "Abm"
// or "F#", and false if the spelling isn't in the table. Lookup takes the
// first matching entry, same as a linear scan over the source table.
func CamelotKey(key string) (string, bool) {
	for _, entry := range camelotNotes {
		if entry[0] == key {
			return entry[1], true
		}
	}

	return "", false
}
