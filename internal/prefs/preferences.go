package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Preference keys
const (
	KeyCollapsed = "collapsed"
	KeyHideVideo = "hideVideo"
)

// ListItem is the open state of one entry of the module list
type ListItem struct {
	ID        string `json:"id"`
	Collapsed bool   `json:"collapsed"`
}

// Preferences reads and writes typed preferences on top of a Store
type Preferences struct {
	store  Store
	logger *logrus.Logger
}

// New creates typed preferences backed by store
func New(store Store, logger *logrus.Logger) *Preferences {
	if logger == nil {
		logger = logrus.New()
	}
	return &Preferences{store: store, logger: logger}
}

// Close closes the underlying store
func (p *Preferences) Close() error {
	return p.store.Close()
}

func (p *Preferences) load(ctx context.Context, scope, key string, v interface{}) bool {
	raw, ok, err := p.store.Get(ctx, scope, key)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"scope": scope,
			"key":   key,
		}).Warn("Failed to read preference, using default")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Ignoring malformed preference")
		return false
	}
	return true
}

func (p *Preferences) save(ctx context.Context, scope, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode preference %s: %w", key, err)
	}
	return p.store.Put(ctx, scope, key, raw)
}

// Collapsed returns the ids of the list items stored as collapsed
func (p *Preferences) Collapsed(ctx context.Context, scope string) []string {
	var ids []string
	if !p.load(ctx, scope, KeyCollapsed, &ids) {
		return []string{}
	}
	return ids
}

// UpdateCollapsed applies the state of items to the stored collapsed ids and
// returns the new list. Ids are kept unique and empty ids are dropped.
func (p *Preferences) UpdateCollapsed(ctx context.Context, scope string, items []ListItem) ([]string, error) {
	ids := p.Collapsed(ctx, scope)

	for _, item := range items {
		if item.Collapsed {
			ids = append(ids, item.ID)
			continue
		}
		ids = remove(ids, item.ID)
	}
	ids = uniq(compact(ids))

	if err := p.save(ctx, scope, KeyCollapsed, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// HideVideo reports whether the help video was already shown
func (p *Preferences) HideVideo(ctx context.Context, scope string) bool {
	var hide bool
	p.load(ctx, scope, KeyHideVideo, &hide)
	return hide
}

// SetHideVideo stores the help video flag
func (p *Preferences) SetHideVideo(ctx context.Context, scope string, hide bool) error {
	return p.save(ctx, scope, KeyHideVideo, hide)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
