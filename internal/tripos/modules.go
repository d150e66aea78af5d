package tripos

import (
	"strconv"

	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// Action is the control shown next to a module
type Action string

const (
	// AddAll adds every series of the module to the calendar
	AddAll Action = "add-all"
	// RemoveAll removes every series of the module from the calendar
	RemoveAll Action = "remove-all"
)

// SeriesState is a series of a module and whether it is in the calendar
type SeriesState struct {
	ID          int
	DisplayName string
	Added       bool
}

// Module is an entry of the student module list
type Module struct {
	ID          int
	DisplayName string
	Series      []SeriesState
	// Open is true when the list item is expanded
	Open bool
}

// AllAdded reports whether every series of the module is in the calendar.
// A module without series is never all added.
func (m *Module) AllAdded() bool {
	if len(m.Series) == 0 {
		return false
	}
	for _, series := range m.Series {
		if !series.Added {
			return false
		}
	}
	return true
}

// Action derives the module control from the state of its series
func (m *Module) Action() Action {
	if m.AllAdded() {
		return RemoveAll
	}
	return AddAll
}

// BuildModules combines modules, the user's subscribed series and the stored
// open list items into the module list
func BuildModules(units []api.OrgUnit, subscribed []int, open []string) []Module {
	added := make(map[int]bool, len(subscribed))
	for _, id := range subscribed {
		added[id] = true
	}
	expanded := make(map[string]bool, len(open))
	for _, id := range open {
		expanded[id] = true
	}

	modules := make([]Module, 0, len(units))
	for _, unit := range units {
		module := Module{
			ID:          unit.ID,
			DisplayName: unit.DisplayName,
			Series:      make([]SeriesState, 0, len(unit.Series)),
			Open:        expanded[strconv.Itoa(unit.ID)],
		}
		for _, series := range unit.Series {
			module.Series = append(module.Series, SeriesState{
				ID:          series.ID,
				DisplayName: series.DisplayName,
				Added:       added[series.ID],
			})
		}
		modules = append(modules, module)
	}
	return modules
}
