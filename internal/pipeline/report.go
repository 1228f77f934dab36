package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type reportEntry struct {
	Hotel   string
	Town    string
	Message string
	At      time.Time
}

// Report accumulates per-hotel outcomes for one run. Safe for
// concurrent use by pipeline workers.
type Report struct {
	RunID string

	mu         sync.Mutex
	total      int
	successful int
	partial    int
	failed     int
	errors     []reportEntry
	warnings   []reportEntry
	startedAt  time.Time
	finishedAt time.Time
}

// NewReport creates a report with a fresh run identifier.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Start marks the beginning of the run.
func (r *Report) Start() {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()
}

// Finish marks the end of the run.
func (r *Report) Finish() {
	r.mu.Lock()
	r.finishedAt = time.Now()
	r.mu.Unlock()
}

// RecordSuccess counts a hotel whose record passed validation.
func (r *Report) RecordSuccess(hotel, town string) {
	r.mu.Lock()
	r.total++
	r.successful++
	r.mu.Unlock()
}

// RecordPartial counts a hotel whose record was saved with validation
// warnings.
func (r *Report) RecordPartial(hotel, town, warning string) {
	r.mu.Lock()
	r.total++
	r.partial++
	r.warnings = append(r.warnings, reportEntry{Hotel: hotel, Town: town, Message: warning, At: time.Now()})
	r.mu.Unlock()
}

// RecordFailure counts a hotel that produced no usable record.
func (r *Report) RecordFailure(hotel, town, errMsg string) {
	r.mu.Lock()
	r.total++
	r.failed++
	r.errors = append(r.errors, reportEntry{Hotel: hotel, Town: town, Message: errMsg, At: time.Now()})
	r.mu.Unlock()
}

const maxReportedEntries = 20

// Generate renders the human-readable run summary.
func (r *Report) Generate() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(&b, "%s\n%25sHOTEL POLICY SCRAPER REPORT\n%s\n\n", rule, "", rule)
	fmt.Fprintf(&b, "Run ID: %s\n\n", r.RunID)
	b.WriteString("Summary\n-------\n")
	fmt.Fprintf(&b, "Total Hotels Processed: %d\n", r.total)
	fmt.Fprintf(&b, "Successful:            %d\n", r.successful)
	fmt.Fprintf(&b, "Partial (incomplete):  %d\n", r.partial)
	fmt.Fprintf(&b, "Failed:                %d\n\n", r.failed)

	rate := 0.0
	if r.total > 0 {
		rate = float64(r.successful) / float64(r.total) * 100
	}
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", rate)
	if !r.startedAt.IsZero() && !r.finishedAt.IsZero() {
		elapsed := r.finishedAt.Sub(r.startedAt).Round(time.Second)
		fmt.Fprintf(&b, "Duration: %s\n", elapsed)
	}
	b.WriteString("\n")

	writeEntries(&b, "Errors", r.errors)
	writeEntries(&b, "Warnings", r.warnings)

	b.WriteString(rule)
	return b.String()
}

func writeEntries(b *strings.Builder, title string, entries []reportEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n%s\n", title, strings.Repeat("-", len(title)))
	limit := len(entries)
	if limit > maxReportedEntries {
		limit = maxReportedEntries
	}
	for _, e := range entries[:limit] {
		fmt.Fprintf(b, "  - %s (%s): %s\n", e.Hotel, e.Town, e.Message)
	}
	if len(entries) > maxReportedEntries {
		fmt.Fprintf(b, "  ... and %d more\n", len(entries)-maxReportedEntries)
	}
	b.WriteString("\n")
}
