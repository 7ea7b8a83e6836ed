package types

import "fmt"

// Topic is one of the three summary categories.
type Topic string

const (
	// TopicOverview is the company overview (business, scale, products).
	TopicOverview Topic = "overview"
	// TopicTalent is the desired-talent profile (인재상).
	TopicTalent Topic = "talent"
	// TopicVision is the recent strategic vision.
	TopicVision Topic = "vision"
)

// AllTopics returns the topics in rendering order.
func AllTopics() []Topic {
	return []Topic{TopicOverview, TopicTalent, TopicVision}
}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	switch t {
	case TopicOverview, TopicTalent, TopicVision:
		return true
	}
	return false
}

// Title returns the Korean section title.
func (t Topic) Title() string {
	switch t {
	case TopicOverview:
		return "회사 개요"
	case TopicTalent:
		return "인재상 / 인재상 키워드"
	case TopicVision:
		return "최근 기사 기반 비전 / 전략"
	default:
		return string(t)
	}
}

// ParseTopic converts a string into a Topic.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown topic %q", s)
	}
	return t, nil
}

// TopicState tracks a topic through a pipeline run.
type TopicState string

const (
	// StatePending means the topic has not started.
	StatePending TopicState = "PENDING"
	// StateFetching means evidence is being gathered.
	StateFetching TopicState = "FETCHING"
	// StateAssembled means the evidence bundle is built.
	StateAssembled TopicState = "ASSEMBLED"
	// StateSummarized means a HIGH confidence summary was produced.
	StateSummarized TopicState = "SUMMARIZED"
	// StateFailedLowConfidence is terminal but non-fatal.
	StateFailedLowConfidence TopicState = "FAILED_LOW_CONFIDENCE"
)

// Terminal reports whether no further transitions are allowed.
func (s TopicState) Terminal() bool {
	return s == StateSummarized || s == StateFailedLowConfidence
}

// CanTransition reports whether moving from s to next is a legal step.
func (s TopicState) CanTransition(next TopicState) bool {
	switch s {
	case StatePending:
		return next == StateFetching
	case StateFetching:
		return next == StateAssembled
	case StateAssembled:
		return next == StateSummarized || next == StateFailedLowConfidence
	default:
		return false
	}
}
