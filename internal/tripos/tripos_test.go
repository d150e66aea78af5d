package tripos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

func testStructure() api.TriposStructure {
	return api.TriposStructure{
		Courses: []api.TriposNode{
			{ID: 1, DisplayName: "Natural Sciences", CanManage: true},
			{ID: 2, DisplayName: "Law"},
		},
		Subjects: []api.TriposNode{
			{ID: 11, DisplayName: "Chemistry", ParentID: 1},
			{ID: 12, DisplayName: "Physics", ParentID: 1},
		},
		Parts: []api.TriposNode{
			{ID: 101, DisplayName: "Part IA", ParentID: 11},
			{ID: 102, DisplayName: "Part IB", ParentID: 11},
			{ID: 103, DisplayName: "Part II", ParentID: 12},
			{ID: 201, DisplayName: "Part I", ParentID: 2},
		},
	}
}

func TestEditableParts(t *testing.T) {
	parts := EditableParts(testStructure())
	require.Len(t, parts, 4)

	assert.Equal(t, "Natural Sciences - Chemistry", parts[0].DisplayName)
	assert.Equal(t, "#tripos=11&part=101", parts[0].Hash)
	assert.True(t, parts[0].CanManage, "capability comes from the course")
	assert.Equal(t, 101, parts[0].Part.ID)
	assert.False(t, parts[0].IsEditing)
	assert.False(t, parts[0].IsDraft)

	assert.Equal(t, "#tripos=11&part=102", parts[1].Hash)
	assert.Equal(t, "Natural Sciences - Physics", parts[2].DisplayName)

	assert.Equal(t, "Law", parts[3].DisplayName)
	assert.Equal(t, "#tripos=2&part=201", parts[3].Hash)
	assert.False(t, parts[3].CanManage)
}

func TestEditablePartsEmpty(t *testing.T) {
	parts := EditableParts(api.TriposStructure{})
	assert.NotNil(t, parts)
	assert.Empty(t, parts)
}

func TestPickers(t *testing.T) {
	structure := testStructure()
	groups := Pickers(structure)
	require.Len(t, groups, 2)

	assert.Len(t, groups[0].Options, 2)
	require.Len(t, groups[1].Options, 1)
	assert.Equal(t, 2, groups[1].Options[0].ID, "a course without subjects is its own option")

	assert.Len(t, Parts(structure, 11), 2)
	assert.Len(t, Parts(structure, 2), 1)

	part, ok := FindPart(structure, 103)
	assert.True(t, ok)
	assert.Equal(t, "Part II", part.DisplayName)
	_, ok = FindPart(structure, 999)
	assert.False(t, ok)
}

func TestModuleAddAllState(t *testing.T) {
	units := []api.OrgUnit{{
		ID:          5,
		DisplayName: "Organic Chemistry",
		Series:      []api.Series{{ID: 1}, {ID: 2}, {ID: 3}},
	}}

	modules := BuildModules(units, nil, nil)
	require.Len(t, modules, 1)
	assert.Equal(t, AddAll, modules[0].Action())

	all := []int{1, 2, 3}
	modules = BuildModules(units, all, nil)
	assert.True(t, modules[0].AllAdded())
	assert.Equal(t, RemoveAll, modules[0].Action())

	for i := range all {
		rest := append(append([]int{}, all[:i]...), all[i+1:]...)
		modules = BuildModules(units, rest, nil)
		assert.False(t, modules[0].AllAdded())
		assert.Equal(t, AddAll, modules[0].Action(), "removing series %d returns the module to add all", all[i])
	}
}

func TestModuleWithoutSeriesOffersAddAll(t *testing.T) {
	modules := BuildModules([]api.OrgUnit{{ID: 1}}, []int{4}, nil)
	require.Len(t, modules, 1)
	assert.False(t, modules[0].AllAdded())
	assert.Equal(t, AddAll, modules[0].Action())
}

func TestBuildModules(t *testing.T) {
	units := []api.OrgUnit{
		{ID: 5, Series: []api.Series{{ID: 1}, {ID: 2}}},
		{ID: 6, Series: []api.Series{{ID: 3}}},
	}
	modules := BuildModules(units, []int{1, 2}, []string{"6"})

	assert.Equal(t, RemoveAll, modules[0].Action())
	assert.False(t, modules[0].Open)
	assert.Equal(t, AddAll, modules[1].Action())
	assert.True(t, modules[1].Open)
}
