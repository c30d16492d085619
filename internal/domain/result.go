package domain

import (
	"maps"
	"slices"
	"time"
)

// ItemStatus is the outcome of processing one unit of a batch.
type ItemStatus string

const (
	ItemOK      ItemStatus = "ok"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult records what happened to a single batch item (a cell side, a
// cache key, an event). Reason is a short machine-friendly tag such as
// "insufficient_liquidity".
type ItemResult struct {
	Key    string     `json:"key"`
	Status ItemStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
	Err    string     `json:"error,omitempty"`
}

// BatchSummary aggregates item results for one job run so operators can see
// failure rates without reading logs.
type BatchSummary struct {
	Job       string         `json:"job"`
	RunID     string         `json:"run_id"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
	Succeeded int            `json:"succeeded"`
	Skipped   map[string]int `json:"skipped"`
	Failed    map[string]int `json:"failed"`
	Written   int            `json:"written"`
	Samples   []ItemResult   `json:"samples,omitempty"`
	// Error is set when the run as a whole failed.
	Error string `json:"error,omitempty"`
}

// maxSamples bounds how many failed items a summary keeps verbatim.
const maxSamples = 20

// NewBatchSummary starts a summary for job.
func NewBatchSummary(job, runID string, started time.Time) BatchSummary {
	return BatchSummary{
		Job:     job,
		RunID:   runID,
		Started: started,
		Skipped: map[string]int{},
		Failed:  map[string]int{},
	}
}

// Record folds one item result into the summary.
func (s *BatchSummary) Record(r ItemResult) {
	if s.Skipped == nil {
		s.Skipped = map[string]int{}
	}
	if s.Failed == nil {
		s.Failed = map[string]int{}
	}
	switch r.Status {
	case ItemOK:
		s.Succeeded++
	case ItemSkipped:
		s.Skipped[r.Reason]++
	case ItemFailed:
		s.Failed[r.Reason]++
		if len(s.Samples) < maxSamples {
			s.Samples = append(s.Samples, r)
		}
	}
}

// Merge adds other's counts into s. Job identity fields are left unchanged.
func (s *BatchSummary) Merge(other BatchSummary) {
	if s.Skipped == nil {
		s.Skipped = map[string]int{}
	}
	if s.Failed == nil {
		s.Failed = map[string]int{}
	}
	s.Succeeded += other.Succeeded
	s.Written += other.Written
	for k, n := range other.Skipped {
		s.Skipped[k] += n
	}
	for k, n := range other.Failed {
		s.Failed[k] += n
	}
	for _, r := range other.Samples {
		if len(s.Samples) < maxSamples {
			s.Samples = append(s.Samples, r)
		}
	}
}

// Reasons returns every skip and failure reason seen, sorted.
func (s BatchSummary) Reasons() []string {
	seen := make(map[string]struct{}, len(s.Skipped)+len(s.Failed))
	for k := range s.Skipped {
		seen[k] = struct{}{}
	}
	for k := range s.Failed {
		seen[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// TotalSkipped returns the number of skipped items across all reasons.
func (s BatchSummary) TotalSkipped() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// TotalFailed returns the number of failed items across all reasons.
func (s BatchSummary) TotalFailed() int {
	n := 0
	for _, v := range s.Failed {
		n += v
	}
	return n
}
