package types

// Confidence is HIGH when evidence was found and the model call succeeded; LOW otherwise.
type Confidence string

const (
	// ConfidenceHigh marks a summary grounded in evidence by a successful model call.
	ConfidenceHigh Confidence = "HIGH"
	// ConfidenceLow marks a templated or degraded summary.
	ConfidenceLow Confidence = "LOW"
)

// SummaryResult is the structured summary for one topic.
type SummaryResult struct {
	Topic      Topic      `json:"topic"`
	Text       string     `json:"text"`
	Confidence Confidence `json:"confidence"`
	SourceURLs []string   `json:"source_urls"`
	Keywords   []string   `json:"keywords,omitempty"`
}

// LowConfidence reports whether the result is degraded.
func (r SummaryResult) LowConfidence() bool {
	return r.Confidence == ConfidenceLow
}
