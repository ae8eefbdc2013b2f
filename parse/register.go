package parse

import (
	"encoding/csv"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/mwauters/casegraph/core"
)

var datePattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)

// RegisterParser normalizes register-of-actions exports. Input may be
// delimited (CSV-like) or free text; both modes run the same classifier.
type RegisterParser struct {
	snippetMax int
	logger     *slog.Logger
}

// RegisterOption configures a RegisterParser.
type RegisterOption func(*RegisterParser)

// WithRegisterLogger sets a custom logger. Default is slog.Default().
func WithRegisterLogger(logger *slog.Logger) RegisterOption {
	return func(p *RegisterParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewRegisterParser creates a register-of-actions parser.
func NewRegisterParser(opts ...RegisterOption) *RegisterParser {
	p := &RegisterParser{
		snippetMax: 300,
		logger:     slog.Default().With("component", "register-parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses a register export. An unreadable file is
// logged and yields zero entries.
func (p *RegisterParser) ParseFile(path string) []Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Warn("skipping unreadable register export", "path", path, "err", err)
		return nil
	}
	return p.Parse(string(data), path)
}

// Parse normalizes register text. Lines or rows that cannot produce an
// event are skipped with a warning.
func (p *RegisterParser) Parse(data, sourcePath string) []Entry {
	if looksDelimited(data) {
		return p.parseCSV(data, sourcePath)
	}
	return p.parseFreeText(data, sourcePath)
}

// looksDelimited reports whether the export uses a delimiter layout. One
// comma on the first non-empty line is enough; free-text registers are
// prose and date-prefixed lines.
func looksDelimited(data string) bool {
	for _, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.Contains(line, ",")
	}
	return false
}

func (p *RegisterParser) parseCSV(data, sourcePath string) []Entry {
	reader := csv.NewReader(strings.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		p.logger.Warn("register export is not valid CSV, falling back to free text", "path", sourcePath, "err", err)
		return p.parseFreeText(data, sourcePath)
	}

	var entries []Entry
	for i, record := range records {
		if len(record) < 2 {
			p.logger.Warn("skipping short register row", "path", sourcePath, "row", i)
			continue
		}
		if i == 0 && looksLikeDateHeader(record[0]) {
			continue
		}

		date := strings.TrimSpace(record[0])
		description := strings.TrimSpace(record[1])
		var hint, docType string
		if len(record) > 2 {
			hint = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			docType = strings.TrimSpace(record[3])
		}

		entry, ok := p.normalize(date, description, hint, docType, sourcePath)
		if !ok {
			p.logger.Warn("skipping empty register row", "path", sourcePath, "row", i)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// looksLikeDateHeader reports whether a first cell is a column label rather
// than a value, e.g. "Date" or "Filing Date".
func looksLikeDateHeader(cell string) bool {
	lower := strings.ToLower(strings.TrimSpace(cell))
	return strings.Contains(lower, "date") && !datePattern.MatchString(lower)
}

func (p *RegisterParser) parseFreeText(data, sourcePath string) []Entry {
	var entries []Entry
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		date := datePattern.FindString(line)
		if date == "" {
			p.logger.Warn("skipping register line without a date", "path", sourcePath, "line", i)
			continue
		}
		description := strings.TrimSpace(strings.Replace(line, date, "", 1))
		description = strings.Trim(description, " \t-:,")

		entry, ok := p.normalize(date, description, "", "", sourcePath)
		if !ok {
			p.logger.Warn("skipping empty register line", "path", sourcePath, "line", i)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// normalize runs the shared classifier over one register unit and builds
// the entry, including the Continuance record for delay entries.
func (p *RegisterParser) normalize(date, description, hint, docType, sourcePath string) (Entry, bool) {
	if description == "" {
		return Entry{}, false
	}

	classifiable := description
	if docType != "" {
		classifiable = docType + " " + description
	}

	eventType := classifyType(classifiable)
	snippet := ExtractSnippet(description, p.snippetMax)

	event := core.Event{
		ExternalID:  core.ExternalID("roa", sourcePath, date, description),
		Type:        eventType,
		Date:        date,
		Description: description,
		Actor:       classifyRegisterActor(classifiable, hint),
		SourcePath:  sourcePath,
		Snippet:     snippet,
	}

	entry := Entry{
		Event: event,
		Title: description,
		Body:  description,
	}

	if eventType == "continuance" {
		entry.Continuance = &core.Continuance{
			ExternalID:   core.ExternalID("continuance", event.ExternalID),
			Date:         date,
			Reason:       continuanceReason(description),
			RequestedBy:  event.Actor,
			DurationDays: continuanceDuration(description),
			SourcePath:   sourcePath,
			Snippet:      snippet,
		}
	}

	return entry, true
}
