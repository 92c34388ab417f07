// Package deploy assigns remote identities to a resolved flow and exports
// the deployment state a remote flow-management collaborator consumes:
// parents-first element order, write-once ids, and parent references.
package deploy

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/flowkit/pkg/models"
)

// ErrNotResolved indicates an Assign attempt on a flow whose element tree
// has not been flattened yet.
var ErrNotResolved = errors.New("flow is not resolved")

// Allocator produces identifiers for flow elements, controllers, and
// reporting tasks. Implementations decide the id space: local UUIDs for
// exports, or ids minted by a remote system during an actual deployment.
type Allocator interface {
	NextID() string
}

// UUIDAllocator allocates random local UUIDs.
type UUIDAllocator struct{}

// NewUUIDAllocator creates a local UUID allocator.
func NewUUIDAllocator() *UUIDAllocator {
	return &UUIDAllocator{}
}

func (a *UUIDAllocator) NextID() string {
	return uuid.New().String()
}

// ElementState records one assigned element. Parents always precede their
// children in State.Elements.
type ElementState struct {
	Path     string             `json:"path"`
	Name     string             `json:"name"`
	Type     models.ElementType `json:"type"`
	ID       string             `json:"id"`
	ParentID string             `json:"parent_id"`
}

// ControllerState records one assigned controller with the scope it serves:
// empty for flow root, otherwise the owning group's path.
type ControllerState struct {
	Name     string `json:"name"`
	Scope    string `json:"scope,omitempty"`
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
}

// ReportingTaskState records one assigned root-level reporting task.
type ReportingTaskState struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
}

// State is the exported deployment record of one assignment run.
type State struct {
	FlowName        string    `json:"flow_name"`
	DeclaredVersion string    `json:"version,omitempty"`
	ModelVersion    string    `json:"model_version"`
	RootID          string    `json:"root_id"`
	AssignedAt      time.Time `json:"assigned_at"`

	Elements       []ElementState       `json:"elements"`
	Controllers    []ControllerState    `json:"controllers,omitempty"`
	ReportingTasks []ReportingTaskState `json:"reporting_tasks,omitempty"`
}

// Assign walks the resolved flow parents-first and assigns every element,
// controller, and reporting task an identity from the allocator, recording
// the result as exportable state. Identities are write-once: a second Assign
// run fails with the reassignment error and assigns nothing new.
func Assign(flow *models.Flow, allocator Allocator) (*State, error) {
	if len(flow.Elements) == 0 && len(flow.Canvas) > 0 {
		return nil, fmt.Errorf("%w: call Resolve before Assign", ErrNotResolved)
	}

	state := &State{
		FlowName:        flow.Name,
		DeclaredVersion: flow.DeclaredVersion,
		ModelVersion:    flow.ModelVersion,
		RootID:          allocator.NextID(),
		AssignedAt:      time.Now().UTC(),
	}

	for _, name := range slices.Sorted(maps.Keys(flow.Controllers)) {
		if err := assignController(state, flow.Controllers[name], "", state.RootID, allocator); err != nil {
			return nil, err
		}
	}

	for _, task := range flow.ReportingTasks {
		id := allocator.NextID()

		if err := task.ID.Set(id); err != nil {
			return nil, models.NewElementError("Assign", task.Name, err)
		}

		if err := task.ParentID.Set(state.RootID); err != nil {
			return nil, models.NewElementError("Assign", task.Name, err)
		}

		state.ReportingTasks = append(state.ReportingTasks, ReportingTaskState{
			Name:     task.Name,
			ID:       id,
			ParentID: state.RootID,
		})
	}

	for _, element := range flow.Canvas {
		if err := assignElement(state, element, state.RootID, allocator); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// assignElement assigns the element, records it, then descends into group
// children in sorted order so every child's parent id is already assigned.
func assignElement(state *State, element *models.FlowElement, parentID string, allocator Allocator) error {
	path := element.FullPath()
	id := allocator.NextID()

	if err := element.ID.Set(id); err != nil {
		return models.NewElementError("Assign", path, err)
	}

	if err := element.ParentID.Set(parentID); err != nil {
		return models.NewElementError("Assign", path, err)
	}

	state.Elements = append(state.Elements, ElementState{
		Path:     path,
		Name:     element.Name,
		Type:     element.Type,
		ID:       id,
		ParentID: parentID,
	})

	if !element.IsProcessGroup() {
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(element.Controllers)) {
		if err := assignController(state, element.Controllers[name], path, id, allocator); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(element.Elements)) {
		if err := assignElement(state, element.Elements[name], id, allocator); err != nil {
			return err
		}
	}

	return nil
}

func assignController(state *State, controller *models.Controller, scope, parentID string, allocator Allocator) error {
	id := allocator.NextID()

	if err := controller.ID.Set(id); err != nil {
		return models.NewElementError("Assign", controller.Name, err)
	}

	if err := controller.ParentID.Set(parentID); err != nil {
		return models.NewElementError("Assign", controller.Name, err)
	}

	state.Controllers = append(state.Controllers, ControllerState{
		Name:     controller.Name,
		Scope:    scope,
		ID:       id,
		ParentID: parentID,
	})

	return nil
}
