package pipeline

import (
	"fmt"
	"sync"

	"github.com/jonathan/company-brief/internal/types"
)

// TransitionError reports an illegal topic state change.
type TransitionError struct {
	Topic types.Topic
	From  types.TopicState
	To    types.TopicState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition for %s: %s -> %s", e.Topic, e.From, e.To)
}

// stateTracker holds the current state of every topic in a run.
type stateTracker struct {
	mu     sync.Mutex
	states map[types.Topic]types.TopicState
}

func newStateTracker() *stateTracker {
	t := &stateTracker{states: make(map[types.Topic]types.TopicState)}
	for _, topic := range types.AllTopics() {
		t.states[topic] = types.StatePending
	}
	return t
}

// advance moves topic to next, rejecting moves the state machine does not allow.
func (t *stateTracker) advance(topic types.Topic, next types.TopicState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.states[topic]
	if !ok {
		return fmt.Errorf("unknown topic: %s", topic)
	}
	if !cur.CanTransition(next) {
		return &TransitionError{Topic: topic, From: cur, To: next}
	}
	t.states[topic] = next
	return nil
}

// snapshot returns a copy of the current states.
func (t *stateTracker) snapshot() map[types.Topic]types.TopicState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[types.Topic]types.TopicState, len(t.states))
	for k, v := range t.states {
		out[k] = v
	}
	return out
}
