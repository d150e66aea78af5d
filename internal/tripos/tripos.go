// Package tripos derives the views of the tripos taxonomy used by the
// timetable apps: the flattened list of editable parts, the tripos pickers
// and the add-all state of the module list.
package tripos

import (
	"fmt"

	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// EditablePart is a part an administrator can open for editing
type EditablePart struct {
	DisplayName string         `json:"displayName"`
	Hash        string         `json:"hash"`
	CanManage   bool           `json:"canManage"`
	Part        api.TriposNode `json:"part"`
	// IsEditing and IsDraft are always false until the backend supports
	// locking and drafts
	IsEditing bool `json:"isEditing"`
	IsDraft   bool `json:"isDraft"`
}

// EditableParts flattens the course/subject/part forest. Courses with
// subjects yield one entry per part of every subject, labelled
// "Course - Subject"; courses without subjects yield one entry per direct
// part. Input order is preserved at every level.
func EditableParts(structure api.TriposStructure) []EditablePart {
	parts := make([]EditablePart, 0, len(structure.Parts))

	for _, course := range structure.Courses {
		subjects := childrenOf(structure.Subjects, course.ID)

		if len(subjects) == 0 {
			for _, part := range childrenOf(structure.Parts, course.ID) {
				parts = append(parts, EditablePart{
					DisplayName: course.DisplayName,
					Hash:        Hash(course.ID, part.ID),
					CanManage:   course.CanManage,
					Part:        part,
				})
			}
			continue
		}

		for _, subject := range subjects {
			for _, part := range childrenOf(structure.Parts, subject.ID) {
				parts = append(parts, EditablePart{
					DisplayName: course.DisplayName + " - " + subject.DisplayName,
					Hash:        Hash(subject.ID, part.ID),
					CanManage:   course.CanManage,
					Part:        part,
				})
			}
		}
	}

	return parts
}

// Hash is the navigation fragment selecting a part of a tripos
func Hash(triposID, partID int) string {
	return fmt.Sprintf("#tripos=%d&part=%d", triposID, partID)
}

// PickerGroup is one course of the tripos picker. Options are the course's
// subjects, or the course itself when it has none.
type PickerGroup struct {
	Course  api.TriposNode
	Options []api.TriposNode
}

// Pickers builds the option groups of the tripos picker
func Pickers(structure api.TriposStructure) []PickerGroup {
	groups := make([]PickerGroup, 0, len(structure.Courses))
	for _, course := range structure.Courses {
		options := childrenOf(structure.Subjects, course.ID)
		if len(options) == 0 {
			options = []api.TriposNode{course}
		}
		groups = append(groups, PickerGroup{Course: course, Options: options})
	}
	return groups
}

// Parts returns the parts of a tripos (a subject, or a course without subjects)
func Parts(structure api.TriposStructure, triposID int) []api.TriposNode {
	return childrenOf(structure.Parts, triposID)
}

// FindPart looks a part up by id
func FindPart(structure api.TriposStructure, partID int) (api.TriposNode, bool) {
	for _, part := range structure.Parts {
		if part.ID == partID {
			return part, true
		}
	}
	return api.TriposNode{}, false
}

func childrenOf(nodes []api.TriposNode, parentID int) []api.TriposNode {
	var children []api.TriposNode
	for _, node := range nodes {
		if node.ParentID == parentID {
			children = append(children, node)
		}
	}
	return children
}
