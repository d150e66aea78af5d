// Package aggregate expands an ordered list of parent records into a tree by
// fetching each level from the remote API, one request at a time.
//
// The walk is strictly sequential: children are fetched in parent order and,
// within a parent, leaves are fetched in the order the children were returned.
// A failed fetch is reported once through the notifier and leaves that node's
// annotation absent; the remaining siblings are still visited, so a walk always
// completes. There are no retries.
package aggregate

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
)

// ErrWalkInFlight is returned when the scope already has a walk running
var ErrWalkInFlight = errors.New("aggregation walk already in flight")

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grasshopper_ui_aggregate_fetch_total",
		Help: "Remote fetches issued by aggregation walks, by level and outcome",
	}, []string{"level", "outcome"})

	walkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grasshopper_ui_aggregate_walk_duration_seconds",
		Help:    "Duration of complete aggregation walks",
		Buckets: prometheus.DefBuckets,
	})

	walkRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grasshopper_ui_aggregate_walk_rejected_total",
		Help: "Walks rejected because the scope already had one in flight",
	})
)

// Scope admits one walk at a time for a cache object.
// *resilience.Gate satisfies it.
type Scope interface {
	Enter() bool
	Leave()
}

// Level names one level of the walk for logging, metrics and notifications
type Level struct {
	Name        string
	FailedTitle string
}

// Fetchers describes how to expand parents into children and, optionally,
// children into leaves
type Fetchers[P, C, L any] struct {
	ChildLevel Level
	Children   func(ctx context.Context, parent P) ([]C, error)

	LeafLevel Level
	// Leaf is optional. When nil the walk stops at the children.
	Leaf func(ctx context.Context, child C) (L, error)
}

// Branch is a parent with the children fetched for it
type Branch[P, C, L any] struct {
	Parent P
	// Children is nil when fetching them failed
	Children []Twig[C, L]
	Err      error
}

// Twig is a child with its leaf
type Twig[C, L any] struct {
	Child C
	// Leaf is nil when no leaf was requested or fetching it failed
	Leaf *L
	Err  error
}

// Walker runs aggregation walks
type Walker struct {
	logger *logrus.Logger
}

// NewWalker creates a new walker
func NewWalker(logger *logrus.Logger) *Walker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Walker{logger: logger}
}

// Walk visits every parent, child and leaf exactly once and returns the
// completed tree in input order. A nil scope disables single-flight
// admission. The only error returned is ErrWalkInFlight; fetch failures are
// reported to n and recorded on the affected node.
func Walk[P, C, L any](ctx context.Context, w *Walker, scope Scope, n notify.Notifier, parents []P, f Fetchers[P, C, L]) ([]Branch[P, C, L], error) {
	if scope != nil {
		if !scope.Enter() {
			walkRejected.Inc()
			return nil, ErrWalkInFlight
		}
		defer scope.Leave()
	}
	if n == nil {
		n = notify.Discard
	}

	start := time.Now()
	defer func() {
		walkDuration.Observe(time.Since(start).Seconds())
	}()

	branches := make([]Branch[P, C, L], 0, len(parents))
	for _, parent := range parents {
		branch := Branch[P, C, L]{Parent: parent}

		children, err := fetch(ctx, w, n, f.ChildLevel, func(ctx context.Context) ([]C, error) {
			return f.Children(ctx, parent)
		})
		if err != nil {
			branch.Err = err
			branches = append(branches, branch)
			continue
		}

		branch.Children = make([]Twig[C, L], 0, len(children))
		for _, child := range children {
			twig := Twig[C, L]{Child: child}
			if f.Leaf != nil {
				leaf, err := fetch(ctx, w, n, f.LeafLevel, func(ctx context.Context) (L, error) {
					return f.Leaf(ctx, child)
				})
				if err != nil {
					twig.Err = err
				} else {
					twig.Leaf = &leaf
				}
			}
			branch.Children = append(branch.Children, twig)
		}

		branches = append(branches, branch)
	}

	w.logger.WithFields(logrus.Fields{
		"parents":  len(parents),
		"level":    f.ChildLevel.Name,
		"duration": time.Since(start).String(),
	}).Debug("Aggregation walk completed")

	return branches, nil
}

// fetch issues a single remote call. A cancelled context skips the call
// without notifying; any other failure is reported once.
func fetch[T any](ctx context.Context, w *Walker, n notify.Notifier, level Level, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		fetchTotal.WithLabelValues(level.Name, "skipped").Inc()
		return zero, err
	}

	result, err := call(ctx)
	if err != nil {
		fetchTotal.WithLabelValues(level.Name, "error").Inc()
		w.logger.WithError(err).WithField("level", level.Name).Warn("Aggregation fetch failed")
		n.Notify(level.FailedTitle, notify.DefaultErrorMessage, notify.Error)
		return zero, err
	}

	fetchTotal.WithLabelValues(level.Name, "ok").Inc()
	return result, nil
}
