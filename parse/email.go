package parse

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mwauters/casegraph/core"
)

// ActorRule maps a case-insensitive substring pattern to an actor. Rules are
// evaluated in order against the combined from + subject + body text; the
// first hit wins.
type ActorRule struct {
	Pattern string
	Actor   core.Actor
}

// DefaultActorRules returns the address and keyword table used to attribute
// emails when no custom table is supplied. Party addresses come before the
// generic attorney/court keywords so a represented party is classified as
// the party, not the attorney.
func DefaultActorRules() []ActorRule {
	return []ActorRule{
		{Pattern: "mathieuwauters@gmail.com", Actor: core.ActorRespondent},
		{Pattern: "rosanna.alvero", Actor: core.ActorPetitioner},
		{Pattern: "attorney", Actor: core.ActorAttorney},
		{Pattern: "counsel", Actor: core.ActorAttorney},
		{Pattern: "law office", Actor: core.ActorAttorney},
		{Pattern: "esq.", Actor: core.ActorAttorney},
		{Pattern: "superior court", Actor: core.ActorCourt},
		{Pattern: "courtclerk", Actor: core.ActorCourt},
		{Pattern: "clerk of court", Actor: core.ActorCourt},
	}
}

// EmailParser splits an mbox-style archive into per-message entries.
type EmailParser struct {
	rules      []ActorRule
	snippetMax int
	logger     *slog.Logger
}

// EmailOption configures an EmailParser.
type EmailOption func(*EmailParser)

// WithActorRules replaces the default address/keyword attribution table.
func WithActorRules(rules []ActorRule) EmailOption {
	return func(p *EmailParser) {
		if len(rules) > 0 {
			p.rules = rules
		}
	}
}

// WithSnippetMax sets the maximum snippet length in characters.
func WithSnippetMax(max int) EmailOption {
	return func(p *EmailParser) {
		if max > 0 {
			p.snippetMax = max
		}
	}
}

// WithEmailLogger sets a custom logger. Default is slog.Default().
func WithEmailLogger(logger *slog.Logger) EmailOption {
	return func(p *EmailParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewEmailParser creates an email parser with the default attribution table.
func NewEmailParser(opts ...EmailOption) *EmailParser {
	p := &EmailParser{
		rules:      DefaultActorRules(),
		snippetMax: 300,
		logger:     slog.Default().With("component", "email-parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses an mbox archive. An unreadable file is logged
// and yields zero entries.
func (p *EmailParser) ParseFile(path string) []Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Warn("skipping unreadable mailbox", "path", path, "err", err)
		return nil
	}
	return p.Parse(string(data), path)
}

// Parse splits raw mbox text into messages and normalizes each one.
// Malformed messages are skipped with a warning.
func (p *EmailParser) Parse(data, sourcePath string) []Entry {
	blocks := splitMbox(data)

	entries := make([]Entry, 0, len(blocks))
	for i, block := range blocks {
		entry, ok := p.parseMessage(block, sourcePath, i)
		if !ok {
			p.logger.Warn("skipping malformed message", "path", sourcePath, "message", i)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// splitMbox splits archive text into per-message blocks on the classic
// "From " start-of-line delimiter. Text before the first delimiter is
// ignored; it cannot belong to a message.
func splitMbox(data string) []string {
	var blocks []string
	var current strings.Builder
	started := false

	for _, line := range strings.SplitAfter(data, "\n") {
		if strings.HasPrefix(line, "From ") {
			if started && current.Len() > 0 {
				blocks = append(blocks, current.String())
			}
			current.Reset()
			started = true
			continue
		}
		if started {
			current.WriteString(line)
		}
	}
	if started && current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

func (p *EmailParser) parseMessage(block, sourcePath string, index int) (Entry, bool) {
	headers, body := splitHeaders(block)
	if len(headers) == 0 {
		return Entry{}, false
	}

	from := headers["from"]
	subject := headers["subject"]
	messageID := headers["message-id"]

	externalID := core.ExternalID("email", messageID)
	if messageID == "" {
		// No message id: fall back to archive position, still stable across
		// re-ingestion of the same file.
		externalID = core.ExternalID("email", sourcePath, strconv.Itoa(index))
	}

	actor := p.classifyActor(from + " " + subject + " " + body)

	event := core.Event{
		ExternalID:  externalID,
		Type:        "email",
		Date:        headers["date"],
		Description: describeEmail(subject),
		Actor:       actor,
		SourcePath:  sourcePath,
		Snippet:     ExtractSnippet(body, p.snippetMax),
	}

	entry := Entry{
		Event: event,
		Title: subject,
		Body:  CleanBody(body),
	}
	if entry.Title == "" {
		entry.Title = "Email message"
	}
	if sender := senderPerson(from); sender != nil {
		entry.Sender = sender
	}
	return entry, true
}

// splitHeaders separates the header block from the body at the first blank
// line and lowers header names. Only single-line headers are kept; that is
// all the source archives use.
func splitHeaders(block string) (map[string]string, string) {
	headers := make(map[string]string)
	lines := strings.Split(block, "\n")

	bodyStart := len(lines)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			bodyStart = i + 1
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(name))
		switch key {
		case "from", "to", "cc", "subject", "date", "message-id":
			headers[key] = strings.TrimSpace(value)
		}
	}

	return headers, strings.Join(lines[bodyStart:], "\n")
}

func (p *EmailParser) classifyActor(text string) core.Actor {
	lower := strings.ToLower(text)
	for _, rule := range p.rules {
		if strings.Contains(lower, strings.ToLower(rule.Pattern)) {
			return rule.Actor
		}
	}
	return core.ActorOther
}

// describeEmail generates an event description from the subject using the
// same keyword buckets the register classifier uses.
func describeEmail(subject string) string {
	lower := strings.ToLower(subject)
	switch {
	case containsAny(lower, "continuance", "adjourn", "postpone"):
		return "Email regarding continuance: " + subject
	case containsAny(lower, "hearing", "trial"):
		return "Email regarding hearing: " + subject
	case strings.Contains(lower, "motion"):
		return "Email regarding motion: " + subject
	case strings.Contains(lower, "discovery"):
		return "Email regarding discovery: " + subject
	case subject == "":
		return "Email correspondence"
	default:
		return "Email: " + subject
	}
}

// senderPerson builds a Person from a From header. Accepts both
// "Name <addr>" and bare-address forms.
func senderPerson(from string) *core.Person {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil
	}

	name := from
	email := from
	if open := strings.Index(from, "<"); open >= 0 {
		if end := strings.Index(from[open:], ">"); end > 0 {
			email = strings.TrimSpace(from[open+1 : open+end])
			name = strings.TrimSpace(strings.Trim(from[:open], `" `))
		}
	}
	if name == "" {
		name = email
	}

	return &core.Person{
		ExternalID: core.ExternalID("person", strings.ToLower(email)),
		Name:       name,
		Email:      strings.ToLower(email),
	}
}

func containsAny(text string, patterns ...string) bool {
	for _, pattern := range patterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}
