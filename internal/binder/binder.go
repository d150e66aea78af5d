// Package binder maps UI actions, identified by an event and the selector of
// the element that raised it, to the handlers that serve them. Bindings are
// registered once on the server and stay valid however often the page
// content is re-rendered.
package binder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
)

// Event is the kind of UI action
type Event string

const (
	// Submit is raised by forms
	Submit Event = "submit"
	// Click is raised by buttons and links
	Click Event = "click"
)

// ErrUnbound is returned when no action is bound to an event and selector
var ErrUnbound = errors.New("no action bound")

// Input is what an action receives
type Input struct {
	// Values are the raw submitted form values
	Values url.Values
	// Record is the flat serialisation of Values
	Record Record
	// Notifier receives the outcome of the action
	Notifier notify.Notifier
}

// Action handles one UI action. A returned error has already been reported
// through the notifier.
type Action func(ctx context.Context, in Input) error

// Binding is one registered (event, selector) pair
type Binding struct {
	Event    Event
	Selector string
}

// Registry holds the bindings of an app
type Registry struct {
	mu       sync.RWMutex
	bindings map[Binding]Action
	logger   *logrus.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		bindings: make(map[Binding]Action),
		logger:   logger,
	}
}

// On binds action to event on selector, replacing any previous binding
func (r *Registry) On(event Event, selector string, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings[Binding{Event: event, Selector: selector}] = action
}

// Bindings returns every registered binding in a stable order
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bindings := make([]Binding, 0, len(r.bindings))
	for binding := range r.bindings {
		bindings = append(bindings, binding)
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Event != bindings[j].Event {
			return bindings[i].Event < bindings[j].Event
		}
		return bindings[i].Selector < bindings[j].Selector
	})
	return bindings
}

// Dispatch serialises values and runs the action bound to event on selector
func (r *Registry) Dispatch(ctx context.Context, event Event, selector string, values url.Values, n notify.Notifier) error {
	r.mu.RLock()
	action, ok := r.bindings[Binding{Event: event, Selector: selector}]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrUnbound, event, selector)
	}
	if n == nil {
		n = notify.Discard
	}
	if values == nil {
		values = url.Values{}
	}

	r.logger.WithFields(logrus.Fields{
		"event":    event,
		"selector": selector,
	}).Debug("Dispatching UI action")

	return action(ctx, Input{
		Values:   values,
		Record:   SerializeForm(values),
		Notifier: n,
	})
}
