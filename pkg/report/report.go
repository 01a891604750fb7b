// Package report collects per-department outcomes of a transform run.
//
// Stages never abort on data-quality or size problems; they append a
// [Warning] to the department's [Report] instead. Fatal problems are stored
// as the report's error. The orchestrator folds all reports into a
// [Summary], which is the user-visible output of a run.
package report

import (
	"fmt"
	"sort"
	"time"
)

// Category groups warnings by the error taxonomy of the transform stage.
type Category string

const (
	// CategoryDataQuality marks problems in the source data that were
	// tolerated: non-numeric vote counts, conflicting parties, unmatched zones.
	CategoryDataQuality Category = "data_quality"

	// CategorySizePolicy marks artifacts that exceed the size contract even
	// after simplification.
	CategorySizePolicy Category = "size_policy"
)

// Warning codes.
const (
	CodeNonNumericVotes   = "non_numeric_votes"
	CodePartyMismatch     = "party_mismatch"
	CodeCandidateMismatch = "candidate_mismatch"
	CodeDuplicateKey      = "duplicate_key"
	CodeMissingZoneName   = "missing_zone_name"
	CodeUnmatchedZones    = "unmatched_zones"
	CodeUnresolvedChain   = "unresolved_chain"
	CodeSizeLimit         = "size_limit"
	CodeNoClassification  = "no_classification"
)

// Warning is a non-fatal problem found while processing a department.
type Warning struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`
	Source   string   `json:"source,omitempty"` // input the warning refers to, e.g. "odn.csv"
	Line     int      `json:"line,omitempty"`   // 1-based input line, 0 when not applicable
	Message  string   `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", w.Source, w.Line, w.Message)
	}
	if w.Source != "" {
		return fmt.Sprintf("%s: %s", w.Source, w.Message)
	}
	return w.Message
}

// DataQuality builds a data-quality warning.
func DataQuality(code, source string, line int, format string, args ...any) Warning {
	return Warning{
		Category: CategoryDataQuality,
		Code:     code,
		Source:   source,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	}
}

// SizePolicy builds a size/policy warning.
func SizePolicy(source string, format string, args ...any) Warning {
	return Warning{
		Category: CategorySizePolicy,
		Code:     CodeSizeLimit,
		Source:   source,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Status is the outcome of a department run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusWarned Status = "warned"
	StatusFailed Status = "failed"
)

// Report is the structured outcome of one department transform.
type Report struct {
	RunID      string            `json:"run_id"`
	Department string            `json:"department"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
	Warnings   []Warning         `json:"warnings"`
	Stats      map[string]any    `json:"stats,omitempty"`
	Durations  map[string]string `json:"durations,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// New creates an empty report for a department.
func New(runID, department string) *Report {
	return &Report{
		RunID:      runID,
		Department: department,
		Status:     StatusOK,
		Warnings:   []Warning{},
		Stats:      make(map[string]any),
		Durations:  make(map[string]string),
	}
}

// Warn appends warnings to the report.
func (r *Report) Warn(ws ...Warning) {
	r.Warnings = append(r.Warnings, ws...)
}

// SetStat records a named statistic.
func (r *Report) SetStat(key string, value any) {
	r.Stats[key] = value
}

// SetDuration records how long a stage took.
func (r *Report) SetDuration(stage string, d time.Duration) {
	r.Durations[stage] = d.Round(time.Millisecond).String()
}

// Fail marks the report as failed with err. code is the machine-readable
// error code, empty when unknown.
func (r *Report) Fail(err error, code string) {
	r.Status = StatusFailed
	r.Error = err.Error()
	r.ErrorCode = code
}

// Finish settles the final status: failed stays failed, otherwise any
// warning turns the status into warned.
func (r *Report) Finish(at time.Time) {
	r.FinishedAt = at
	if r.Status == StatusFailed {
		return
	}
	if len(r.Warnings) > 0 {
		r.Status = StatusWarned
	} else {
		r.Status = StatusOK
	}
}

// CountByCategory returns the number of warnings per category.
func (r *Report) CountByCategory() map[Category]int {
	counts := make(map[Category]int)
	for _, w := range r.Warnings {
		counts[w.Category]++
	}
	return counts
}

// Summary aggregates reports across departments.
type Summary struct {
	RunID     string    `json:"run_id"`
	Succeeded int       `json:"succeeded"`
	Warned    int       `json:"warned"`
	Failed    int       `json:"failed"`
	Reports   []*Report `json:"reports"`
}

// Summarize builds a summary from reports, sorted by department code.
// Warned departments count as succeeded as well: their artifacts were written.
func Summarize(runID string, reports []*Report) *Summary {
	s := &Summary{RunID: runID, Reports: make([]*Report, 0, len(reports))}
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Reports = append(s.Reports, r)
		switch r.Status {
		case StatusFailed:
			s.Failed++
		case StatusWarned:
			s.Warned++
			s.Succeeded++
		default:
			s.Succeeded++
		}
	}
	sort.Slice(s.Reports, func(i, j int) bool {
		return s.Reports[i].Department < s.Reports[j].Department
	})
	return s
}

// OK reports whether no department failed.
func (s *Summary) OK() bool {
	return s.Failed == 0
}
