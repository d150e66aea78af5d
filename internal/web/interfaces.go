package web

import (
	"context"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/prefs"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
)

// SessionManager defines the interface for page session lookup
type SessionManager interface {
	Get(id string) (*session.Context, bool)
	Remove(id string)
	Count() int
	InFlight() int64
}

// PreferenceStore defines the interface for per-browser preferences
type PreferenceStore interface {
	Collapsed(ctx context.Context, scope string) []string
	UpdateCollapsed(ctx context.Context, scope string, items []prefs.ListItem) ([]string, error)
	HideVideo(ctx context.Context, scope string) bool
	SetHideVideo(ctx context.Context, scope string, hide bool) error
}

var (
	_ SessionManager  = (*session.Manager)(nil)
	_ PreferenceStore = (*prefs.Preferences)(nil)
)
