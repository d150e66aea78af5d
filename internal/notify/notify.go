// Package notify carries non-blocking user notifications from actions and
// aggregation walks to the next rendered page.
package notify

import "sync"

// Type is the severity of a notification
type Type string

const (
	// Success reports a completed action
	Success Type = "success"
	// Error reports a failed remote call
	Error Type = "error"
	// Info is a neutral message
	Info Type = "info"
)

// DefaultErrorMessage is shown below the title of error notifications
const DefaultErrorMessage = "An error occurred. Please try again later."

// Notification is a single user visible message
type Notification struct {
	Title   string
	Message string
	Type    Type
}

// Notifier receives notifications
type Notifier interface {
	Notify(title, message string, typ Type)
}

// Queue buffers notifications until the page drains them
type Queue struct {
	mu    sync.Mutex
	items []Notification
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Notify appends a notification
func (q *Queue) Notify(title, message string, typ Type) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, Notification{Title: title, Message: message, Type: typ})
}

// Drain returns the buffered notifications and empties the queue
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of buffered notifications
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Discard drops every notification
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(string, string, Type) {}
