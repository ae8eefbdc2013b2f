package parse

import "github.com/mwauters/casegraph/core"

// Entry is one normalized unit of parser output. Every entry carries an
// Event; email entries may also carry the sender, and register entries that
// describe a schedule delay carry a Continuance.
type Entry struct {
	Event       core.Event
	Continuance *core.Continuance
	Sender      *core.Person

	// Title and Body feed the vector-store document for this entry.
	Title string
	Body  string
}
