package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/resilience"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

type MockTenantSource struct {
	mock.Mock
	inFlight    int
	maxInFlight int
}

func (m *MockTenantSource) track() func() {
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	return func() { m.inFlight-- }
}

func (m *MockTenantSource) ListApps(ctx context.Context, tenantID int) ([]api.App, error) {
	defer m.track()()
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.App), args.Error(1)
}

func (m *MockTenantSource) GetConfig(ctx context.Context, appID int) (api.Config, error) {
	defer m.track()()
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(api.Config), args.Error(1)
}

func newTestWalker() *Walker {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewWalker(logger)
}

func calledSequence(m *MockTenantSource) []string {
	var seq []string
	for _, call := range m.Calls {
		seq = append(seq, fmt.Sprintf("%s:%d", call.Method, call.Arguments.Int(1)))
	}
	return seq
}

func TestTenantsPreservesOrder(t *testing.T) {
	src := new(MockTenantSource)
	src.On("ListApps", mock.Anything, 2).Return([]api.App{{ID: 21, Host: "z.cam"}, {ID: 20, Host: "a.cam"}}, nil)
	src.On("ListApps", mock.Anything, 1).Return([]api.App{{ID: 10}}, nil)
	src.On("GetConfig", mock.Anything, mock.Anything).Return(api.Config{"academicYear": "2014", "createdAt": "x", "updatedAt": "y"}, nil)

	tenants := []api.Tenant{{ID: 2, DisplayName: "Zeta"}, {ID: 1, DisplayName: "Alpha"}}
	tree, err := newTestWalker().Tenants(context.Background(), nil, notify.Discard, src, tenants, true)
	require.NoError(t, err)

	require.Len(t, tree, 2)
	assert.Equal(t, 2, tree[0].ID)
	assert.Equal(t, 1, tree[1].ID)
	require.Len(t, tree[0].Apps, 2)
	assert.Equal(t, 21, tree[0].Apps[0].ID)
	assert.Equal(t, 20, tree[0].Apps[1].ID)

	assert.Equal(t, []string{
		"ListApps:2",
		"GetConfig:21",
		"GetConfig:20",
		"ListApps:1",
		"GetConfig:10",
	}, calledSequence(src))
	assert.Equal(t, 1, src.maxInFlight, "walk must never have more than one outstanding call")

	// Bookkeeping fields are stripped from the attached configuration
	assert.Equal(t, api.Config{"academicYear": "2014"}, tree[0].Apps[0].Config)

	// The input is left untouched
	assert.Nil(t, tenants[0].Apps)
}

func TestTenantsEmptyInput(t *testing.T) {
	src := new(MockTenantSource)
	n := notify.NewQueue()

	tree, err := newTestWalker().Tenants(context.Background(), nil, n, src, nil, true)
	require.NoError(t, err)

	assert.NotNil(t, tree)
	assert.Empty(t, tree)
	assert.Empty(t, src.Calls)
	assert.Equal(t, 0, n.Len())
}

func TestTenantWithoutAppsSkipsConfig(t *testing.T) {
	src := new(MockTenantSource)
	src.On("ListApps", mock.Anything, 1).Return([]api.App{}, nil)
	src.On("ListApps", mock.Anything, 2).Return([]api.App{{ID: 5}}, nil)
	src.On("GetConfig", mock.Anything, 5).Return(api.Config{"a": true}, nil)

	tenants := []api.Tenant{{ID: 1}, {ID: 2}}
	tree, err := newTestWalker().Tenants(context.Background(), nil, notify.Discard, src, tenants, true)
	require.NoError(t, err)

	assert.NotNil(t, tree[0].Apps)
	assert.Empty(t, tree[0].Apps)
	assert.Equal(t, api.Config{"a": true}, tree[1].Apps[0].Config)
	src.AssertNumberOfCalls(t, "GetConfig", 1)
}

func TestFailedListAppsDoesNotAbortWalk(t *testing.T) {
	src := new(MockTenantSource)
	src.On("ListApps", mock.Anything, 1).Return(nil, errors.New("connection refused"))
	src.On("ListApps", mock.Anything, 2).Return([]api.App{{ID: 7, DisplayName: "Timetable"}}, nil)
	n := notify.NewQueue()

	tenants := []api.Tenant{{ID: 1}, {ID: 2}}
	tree, err := newTestWalker().Tenants(context.Background(), nil, n, src, tenants, false)
	require.NoError(t, err)

	require.Len(t, tree, 2)
	assert.Nil(t, tree[0].Apps, "failed branch must leave the annotation absent")
	require.Len(t, tree[1].Apps, 1)
	assert.Equal(t, "Timetable", tree[1].Apps[0].DisplayName)
	assert.Nil(t, tree[1].Apps[0].Config, "config is not fetched when not requested")

	notifications := n.Drain()
	require.Len(t, notifications, 1, "failure is reported exactly once")
	assert.Equal(t, AppsLevel.FailedTitle, notifications[0].Title)
	assert.Equal(t, notify.Error, notifications[0].Type)
	src.AssertNotCalled(t, "GetConfig", mock.Anything, mock.Anything)
}

func TestFailedGetConfigLeavesConfigAbsent(t *testing.T) {
	src := new(MockTenantSource)
	src.On("ListApps", mock.Anything, 1).Return([]api.App{{ID: 1}, {ID: 2}}, nil)
	src.On("GetConfig", mock.Anything, 1).Return(nil, errors.New("timeout"))
	src.On("GetConfig", mock.Anything, 2).Return(api.Config{"b": "2"}, nil)
	n := notify.NewQueue()

	tree, err := newTestWalker().Tenants(context.Background(), nil, n, src, []api.Tenant{{ID: 1}}, true)
	require.NoError(t, err)

	assert.Nil(t, tree[0].Apps[0].Config)
	assert.Equal(t, api.Config{"b": "2"}, tree[0].Apps[1].Config)
	assert.Equal(t, 1, n.Len())
}

func TestWalkRejectedWhileInFlight(t *testing.T) {
	src := new(MockTenantSource)
	gate := resilience.NewGate("test", resilience.DefaultGateConfig(), nil)
	require.True(t, gate.Enter())
	defer gate.Leave()

	_, err := newTestWalker().Tenants(context.Background(), gate, notify.Discard, src, []api.Tenant{{ID: 1}}, true)
	assert.True(t, errors.Is(err, ErrWalkInFlight))
	assert.Empty(t, src.Calls)
}

func TestWalkReleasesScope(t *testing.T) {
	src := new(MockTenantSource)
	src.On("ListApps", mock.Anything, 1).Return([]api.App{}, nil)
	gate := resilience.NewGate("test", resilience.DefaultGateConfig(), nil)
	w := newTestWalker()

	for i := 0; i < 2; i++ {
		_, err := w.Tenants(context.Background(), gate, notify.Discard, src, []api.Tenant{{ID: 1}}, false)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), gate.GetMetrics().Active)
}

func TestWalkCancelledContextCompletesWithoutCalls(t *testing.T) {
	src := new(MockTenantSource)
	n := notify.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := newTestWalker().Tenants(ctx, nil, n, src, []api.Tenant{{ID: 1}, {ID: 2}}, true)
	require.NoError(t, err)

	require.Len(t, tree, 2)
	assert.Nil(t, tree[0].Apps)
	assert.Nil(t, tree[1].Apps)
	assert.Empty(t, src.Calls)
	assert.Equal(t, 0, n.Len())
}

func TestGenericWalkWithoutLeaves(t *testing.T) {
	parents := []string{"b", "a"}
	var visited []string

	branches, err := Walk(context.Background(), newTestWalker(), nil, nil, parents, Fetchers[string, int, struct{}]{
		ChildLevel: Level{Name: "letters"},
		Children: func(ctx context.Context, p string) ([]int, error) {
			visited = append(visited, p)
			return []int{len(p)}, nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, visited)
	require.Len(t, branches, 2)
	assert.Nil(t, branches[0].Children[0].Leaf)
}
