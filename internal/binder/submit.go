package binder

import (
	"context"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
)

// Message is the title and body of a notification
type Message struct {
	Title string
	Body  string
}

// SubmitForm is the standard form action: one remote call, then a refresh and a
// success notification, or an error notification and nothing else.
type SubmitForm struct {
	// Call performs exactly one remote operation
	Call func(ctx context.Context, record Record) error
	// Refresh re-runs the fetch-and-render cycle after a successful call
	Refresh func(ctx context.Context) error
	Success Message
	Failure Message
}

// Action adapts s to an Action
func (s SubmitForm) Action() Action {
	return func(ctx context.Context, in Input) error {
		if err := s.Call(ctx, in.Record); err != nil {
			body := s.Failure.Body
			if body == "" {
				body = notify.DefaultErrorMessage
			}
			in.Notifier.Notify(s.Failure.Title, body, notify.Error)
			return err
		}

		if s.Refresh != nil {
			if err := s.Refresh(ctx); err != nil {
				return err
			}
		}

		if s.Success.Title != "" {
			in.Notifier.Notify(s.Success.Title, s.Success.Body, notify.Success)
		}
		return nil
	}
}
