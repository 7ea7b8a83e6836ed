package types

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ErrorKind classifies a run error.
type ErrorKind string

const (
	// ErrorKindConfig is a missing or invalid credential. Fatal.
	ErrorKindConfig ErrorKind = "config"
	// ErrorKindSearchUnavailable means the search backend could not be used.
	ErrorKindSearchUnavailable ErrorKind = "search_unavailable"
	// ErrorKindFetch is a failed crawl of one source.
	ErrorKindFetch ErrorKind = "fetch"
	// ErrorKindModelCall is a model failure after the retry was exhausted.
	ErrorKindModelCall ErrorKind = "model_call"
)

// RunError is one entry of a run's error log.
type RunError struct {
	Kind    ErrorKind `json:"kind"`
	Topic   Topic     `json:"topic,omitempty"`
	Message string    `json:"message"`
}

func (e RunError) Error() string {
	return e.String()
}

// String renders the entry for the human-readable error list.
func (e RunError) String() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Topic, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Report is the result of one pipeline run.
type Report struct {
	RunID     string                   `json:"run_id"`
	Company   CompanyQuery             `json:"company"`
	Overview  SummaryResult            `json:"overview"`
	Talent    SummaryResult            `json:"talent"`
	Vision    SummaryResult            `json:"vision"`
	Errors    []string                 `json:"errors"`
	Details   []RunError               `json:"error_details,omitempty"`
	States    map[Topic]TopicState     `json:"states"`
	Bundles   map[Topic]EvidenceBundle `json:"-"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
}

// Result returns the summary for a topic.
func (r *Report) Result(t Topic) SummaryResult {
	switch t {
	case TopicOverview:
		return r.Overview
	case TopicTalent:
		return r.Talent
	case TopicVision:
		return r.Vision
	}
	return SummaryResult{}
}

// SetResult stores the summary for a topic.
func (r *Report) SetResult(res SummaryResult) {
	switch res.Topic {
	case TopicOverview:
		r.Overview = res
	case TopicTalent:
		r.Talent = res
	case TopicVision:
		r.Vision = res
	}
}

// Err aggregates the degradation errors of the run, or nil if there were none.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, d := range r.Details {
		result = multierror.Append(result, d)
	}
	return result.ErrorOrNil()
}

// CountKind returns how many logged errors have the given kind.
func (r *Report) CountKind(kind ErrorKind) int {
	n := 0
	for _, d := range r.Details {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
