package verify

// Status is the outcome of a single check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// CheckResult is one named check's outcome.
type CheckResult struct {
	Name    string
	Status  Status
	Message string
	Details map[string]any
}

// Report collects every check result for one verification run.
type Report struct {
	Results []CheckResult
}

// Summary tallies the report.
type Summary struct {
	Total  int
	Passed int
	Warned int
	Failed int
}

// Summarize tallies results by status.
func (r *Report) Summarize() Summary {
	s := Summary{Total: len(r.Results)}
	for _, result := range r.Results {
		switch result.Status {
		case StatusPass:
			s.Passed++
		case StatusWarning:
			s.Warned++
		case StatusFail:
			s.Failed++
		}
	}
	return s
}

// Failed reports whether any check failed outright.
func (r *Report) Failed() bool {
	for _, result := range r.Results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}
