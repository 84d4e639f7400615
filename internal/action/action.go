// Package action defines the command/event records that flow through a viewer
// session and the envelope codec used to carry them over the wire.
//
// Every action is an immutable value struct. Its fields are the payload; its
// Type method is the discriminant tag.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Action is implemented by every record dispatched into a session.
type Action interface {
	Type() string
}

// ErrUnknownType is returned when an envelope carries an unregistered tag.
var ErrUnknownType = errors.New("unknown action type")

// Envelope is the wire form of an action.
type Envelope struct {
	Type    string          `json:"type" doc:"Action tag" example:"SHORELINE:SET_SHORELINE_REGION"`
	Payload json.RawMessage `json:"payload,omitempty" doc:"Tag specific payload"`
}

type decoder func(json.RawMessage) (Action, error)

var (
	mu       sync.RWMutex
	registry = map[string]decoder{}
)

// Register binds a tag to the concrete type T so envelopes carrying the tag
// can be decoded. Registering a tag twice panics.
func Register[T Action](tag string) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[tag]; exists {
		panic(fmt.Sprintf("action: tag %q registered twice", tag))
	}
	registry[tag] = func(raw json.RawMessage) (Action, error) {
		var a T
		if len(raw) == 0 || string(raw) == "null" {
			return a, nil
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", tag, err)
		}
		return a, nil
	}
}

// Decode converts an envelope into its registered action value.
func Decode(env Envelope) (Action, error) {
	mu.RLock()
	dec, ok := registry[env.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return dec(env.Payload)
}

// Encode wraps an action in its envelope.
func Encode(a Action) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", a.Type(), err)
	}
	return Envelope{Type: a.Type(), Payload: payload}, nil
}

// Types lists every registered tag in lexical order.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Is reports whether a carries one of the given tags.
func Is(a Action, tags ...string) bool {
	for _, t := range tags {
		if a.Type() == t {
			return true
		}
	}
	return false
}

// PipelineFailedType tags PipelineFailed.
const PipelineFailedType = "VIEWER:PIPELINE_FAILED"

// PipelineFailed surfaces an asynchronous pipeline error to the client.
type PipelineFailed struct {
	Pipeline string `json:"pipeline"`
	Error    string `json:"error"`
}

func (PipelineFailed) Type() string { return PipelineFailedType }

// ReplayedType tags Replayed.
const ReplayedType = "VIEWER:REPLAYED"

// Replayed announces that a session state was rebuilt from a journal.
// No reducer handles it.
type Replayed struct {
	Source  string `json:"source"`
	Actions int    `json:"actions"`
}

func (Replayed) Type() string { return ReplayedType }

func init() {
	Register[PipelineFailed](PipelineFailedType)
	Register[Replayed](ReplayedType)
}
