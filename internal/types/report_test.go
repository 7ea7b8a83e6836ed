package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunError_String(t *testing.T) {
	assert.Equal(t, "search_unavailable: serpapi: HTTP 401",
		RunError{Kind: ErrorKindSearchUnavailable, Message: "serpapi: HTTP 401"}.String())
	assert.Equal(t, "[talent] model_call: timeout",
		RunError{Kind: ErrorKindModelCall, Topic: TopicTalent, Message: "timeout"}.Error())
}

func TestReport_SetResult(t *testing.T) {
	var r Report
	for _, topic := range AllTopics() {
		r.SetResult(SummaryResult{Topic: topic, Text: string(topic), Confidence: ConfidenceHigh})
	}

	assert.Equal(t, "overview", r.Overview.Text)
	assert.Equal(t, "talent", r.Talent.Text)
	assert.Equal(t, "vision", r.Vision.Text)
	assert.Equal(t, r.Talent, r.Result(TopicTalent))
	assert.Equal(t, SummaryResult{}, r.Result("unknown"))
}

func TestReport_Err(t *testing.T) {
	var r Report
	assert.NoError(t, r.Err())

	r.Details = []RunError{
		{Kind: ErrorKindFetch, Topic: TopicOverview, Message: "HTTP 404"},
		{Kind: ErrorKindModelCall, Topic: TopicVision, Message: "quota"},
	}
	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[overview] fetch: HTTP 404")
	assert.Contains(t, err.Error(), "[vision] model_call: quota")

	var runErr RunError
	assert.ErrorAs(t, err, &runErr)
}

func TestReport_CountKind(t *testing.T) {
	r := Report{Details: []RunError{
		{Kind: ErrorKindFetch},
		{Kind: ErrorKindFetch},
		{Kind: ErrorKindModelCall},
	}}
	assert.Equal(t, 2, r.CountKind(ErrorKindFetch))
	assert.Equal(t, 1, r.CountKind(ErrorKindModelCall))
	assert.Equal(t, 0, r.CountKind(ErrorKindSearchUnavailable))
}

func TestSummaryResult_LowConfidence(t *testing.T) {
	assert.True(t, SummaryResult{Confidence: ConfidenceLow}.LowConfidence())
	assert.False(t, SummaryResult{Confidence: ConfidenceHigh}.LowConfidence())
}
