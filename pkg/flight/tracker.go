// Package flight tracks the lifecycle of long running requests so that a
// caller can only have one of each kind outstanding at a time.
package flight

import (
	"errors"
	"sync"
	"time"
)

// State is the lifecycle state of a tracked request
type State string

const (
	Idle      State = "idle"
	InFlight  State = "in-flight"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

const (
	// DefaultRetention is how long a finished outcome stays visible
	DefaultRetention = 10 * time.Minute
	// DefaultMaxFinished caps the number of finished outcomes kept
	DefaultMaxFinished = 10000
)

// ErrInFlight is returned by Begin when the key already has a request running
var ErrInFlight = errors.New("flight: request already in flight")

type entry struct {
	state    State
	finished time.Time
}

type finishedKey struct {
	key string
	at  time.Time
}

// Tracker holds per-key request state. In-flight keys are kept until they
// finish; finished outcomes are dropped after the retention period or once
// more than the maximum are held, oldest first. The zero value is ready to
// use with default limits.
type Tracker struct {
	mu          sync.Mutex
	states      map[string]entry
	finished    []finishedKey
	retention   time.Duration
	maxFinished int
	now         func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithRetention sets how long finished outcomes are reported
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		t.retention = d
	}
}

// WithMaxFinished sets how many finished outcomes are kept at most
func WithMaxFinished(n int) Option {
	return func(t *Tracker) {
		t.maxFinished = n
	}
}

// NewTracker creates an empty tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Key joins an action and a caller identity into a tracker key
func Key(action, caller string) string {
	return action + "|" + caller
}

// Begin marks key as in flight. It fails with ErrInFlight if the previous
// request for key has not finished.
func (t *Tracker) Begin(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.init()
	t.prune()
	if t.states[key].state == InFlight {
		return ErrInFlight
	}
	t.states[key] = entry{state: InFlight}
	return nil
}

// Finish records the outcome of the request started for key
func (t *Tracker) Finish(key string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.init()
	e := entry{state: Succeeded, finished: t.now()}
	if err != nil {
		e.state = Failed
	}
	t.states[key] = e
	t.finished = append(t.finished, finishedKey{key: key, at: e.finished})
	t.prune()
}

// State reports the state for key; unknown and expired keys are idle
func (t *Tracker) State(key string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.states[key]
	if !ok {
		return Idle
	}
	if e.state != InFlight && t.expired(e.finished) {
		return Idle
	}
	return e.state
}

// Len returns the number of keys with recorded state
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

func (t *Tracker) init() {
	if t.states == nil {
		t.states = make(map[string]entry)
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.retention <= 0 {
		t.retention = DefaultRetention
	}
	if t.maxFinished <= 0 {
		t.maxFinished = DefaultMaxFinished
	}
}

func (t *Tracker) expired(at time.Time) bool {
	retention := t.retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	return now().Sub(at) >= retention
}

// prune drops finished outcomes from the front of the queue while they are
// expired or over the cap. Queue items superseded by a later Begin or
// Finish of the same key are discarded without touching the map.
func (t *Tracker) prune() {
	n := 0
	for _, fk := range t.finished {
		if !t.expired(fk.at) && len(t.finished)-n <= t.maxFinished {
			break
		}
		n++
		if e, ok := t.states[fk.key]; ok && e.state != InFlight && e.finished.Equal(fk.at) {
			delete(t.states, fk.key)
		}
	}
	if n > 0 {
		t.finished = append(t.finished[:0], t.finished[n:]...)
	}
}
