package ingest

import (
	"sync"
	"time"
)

// LaneStats counts the work done by one ingestion lane.
type LaneStats struct {
	Parsed   int
	Upserted int
	Chunks   int
	Embedded int
}

// RunStats is the summary of one ingestion run. Failed reports whether the
// run recorded any errors; callers map that to a non-zero exit status.
type RunStats struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Email     LaneStats
	Register  LaneStats
	Errors    []string
}

// Failed reports whether any per-item or lane error was recorded.
func (s *RunStats) Failed() bool {
	return len(s.Errors) > 0
}

// errorList accumulates error strings from concurrent lanes.
type errorList struct {
	mu     sync.Mutex
	errors []string
}

func (l *errorList) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *errorList) slice() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}
