// Package verify audits the two stores without mutating them. A run is a
// battery of named read-only checks, each yielding pass, warning, or fail
// with a message and optional details; any error or panic inside a check
// becomes a fail entry for that check instead of aborting the run.
package verify
