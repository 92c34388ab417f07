// Package models defines the core domain models for declarative dataflow
// topologies.
package models

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// LibraryVersion is stamped onto every Flow at load time so a recorded
// topology can always be traced back to the model revision that produced it.
const LibraryVersion = "0.3.0"

// Flow is the root aggregate of one loaded topology: the ordered root
// canvas, root-scope controllers and reporting tasks, the cache of loaded
// reusable components, and, after Resolve, the flattened path-to-element
// map.
type Flow struct {
	Name            string `json:"name"                    validate:"required,min=1"`
	DeclaredVersion string `json:"version,omitempty"`
	ModelVersion    string `json:"model_version,omitempty"`
	Comments        string `json:"comments,omitempty"`

	Globals             map[string]any `json:"globals,omitempty"`
	ComponentSearchPath string         `json:"component_dir,omitempty"`

	Controllers    map[string]*Controller `json:"controllers,omitempty"`
	ReportingTasks []*ReportingTask       `json:"reporting_tasks,omitempty"`
	Canvas         []*FlowElement         `json:"canvas"`

	// LoadedComponents caches reusable components by reference key. It is
	// populated during load and never mutated afterwards.
	LoadedComponents map[string]*FlowComponent `json:"-"`

	// Elements maps each full hierarchical path reachable from Canvas to its
	// element, including nested descendants of every process group. Empty
	// until Resolve succeeds.
	Elements map[string]*FlowElement `json:"elements,omitempty"`

	RawSource string `json:"-"`
}

// NewFlow creates an empty flow aggregate with fresh containers.
func NewFlow(name string) *Flow {
	return &Flow{
		Name:             name,
		ModelVersion:     LibraryVersion,
		Controllers:      make(map[string]*Controller),
		LoadedComponents: make(map[string]*FlowComponent),
		Elements:         make(map[string]*FlowElement),
	}
}

// componentMerge defers mutation of a process group until the whole
// resolution walk has validated, so a failed Resolve publishes nothing.
type componentMerge struct {
	group    *FlowElement
	children map[string]*FlowElement
	vars     map[string]any
}

func (m *componentMerge) apply() {
	for name, child := range m.children {
		m.group.Elements[name] = child
	}

	m.group.Variables = m.vars
	m.group.instantiated = true
}

// Resolve walks the canvas and every nested process group, validates names,
// connection targets, and component requirements, instantiates referenced
// components, and flattens the whole tree into Elements. Nothing is
// published unless the entire walk validates: a failed Resolve leaves the
// flow as it was. Resolving an already-resolved flow rebuilds an identical
// Elements map.
func (f *Flow) Resolve() error {
	staged := make(map[string]*FlowElement)

	var merges []*componentMerge

	level := make(map[string]*FlowElement, len(f.Canvas))
	order := make([]string, 0, len(f.Canvas))

	for _, element := range f.Canvas {
		if _, exists := level[element.Name]; exists {
			return NewElementError("Resolve", element.Name, fmt.Errorf("%w: duplicate element name %q on the canvas", ErrInvalidElement, element.Name))
		}

		level[element.Name] = element
		order = append(order, element.Name)
	}

	if err := f.resolveLevel(level, order, nil, staged, &merges); err != nil {
		return err
	}

	for _, merge := range merges {
		merge.apply()
	}

	f.Elements = staged

	return nil
}

// resolveLevel stages every element of one scope, checks that connection
// targets name a sibling in the same scope, and recurses into process
// groups.
func (f *Flow) resolveLevel(level map[string]*FlowElement, order []string, scope []*FlowElement, staged map[string]*FlowElement, merges *[]*componentMerge) error {
	for _, name := range order {
		element := level[name]
		path := element.FullPath()

		staged[path] = element

		for _, connection := range element.Connections {
			if _, exists := level[connection.Name]; !exists {
				return NewElementError("Resolve", path, fmt.Errorf("%w: connection target %q does not exist in this scope", ErrUnresolvedReference, connection.Name))
			}
		}

		if element.IsProcessGroup() {
			if err := f.resolveGroup(element, scope, staged, merges); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveGroup checks the group's component requirements, plans the
// instantiation of its referenced component, and recurses into the combined
// set of inline and instantiated children.
func (f *Flow) resolveGroup(group *FlowElement, scope []*FlowElement, staged map[string]*FlowElement, merges *[]*componentMerge) error {
	path := group.FullPath()
	groupScope := append(slices.Clone(scope), group)

	if group.Elements == nil {
		group.Elements = make(map[string]*FlowElement)
	}

	children := group.Elements

	if group.ComponentRef != "" {
		component, exists := f.LoadedComponents[group.ComponentRef]
		if !exists {
			return NewElementError("Resolve", path, fmt.Errorf("%w: component %q is not loaded", ErrUnresolvedReference, group.ComponentRef))
		}

		effective, err := f.checkRequirements(group, component, groupScope)
		if err != nil {
			return NewElementError("Resolve", path, err)
		}

		if !group.instantiated {
			instantiated, err := component.Instantiate(group)
			if err != nil {
				return NewElementError("Resolve", path, err)
			}

			children = make(map[string]*FlowElement, len(group.Elements)+len(instantiated))
			maps.Copy(children, group.Elements)

			for name, child := range instantiated {
				if _, exists := children[name]; exists {
					return NewElementError("Resolve", path, fmt.Errorf("%w: component %q element %q collides with an inline element of the same name", ErrInvalidElement, group.ComponentRef, name))
				}

				children[name] = child
			}

			*merges = append(*merges, &componentMerge{group: group, children: instantiated, vars: effective})
		}
	}

	return f.resolveLevel(children, slices.Sorted(maps.Keys(children)), groupScope, staged, merges)
}

// checkRequirements verifies that every variable and controller the
// component requires is satisfiable from the instantiating group, and
// returns the group's effective variables: the component defaults overlaid
// with the group's own overrides.
func (f *Flow) checkRequirements(group *FlowElement, component *FlowComponent, scope []*FlowElement) (map[string]any, error) {
	effective := maps.Clone(component.Defaults)
	if effective == nil {
		effective = make(map[string]any)
	}

	maps.Copy(effective, group.Variables)

	for _, required := range component.RequiredVariables {
		if _, supplied := effective[required]; !supplied {
			return nil, fmt.Errorf("%w: component %q requires var %q and no value or default was supplied", ErrUnresolvedReference, component.ComponentName, required)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(component.RequiredControllers)) {
		if f.findControllerInScope(name, scope) == nil {
			return nil, fmt.Errorf("%w: component %q requires controller %q (%s) and none is in scope", ErrUnresolvedReference, component.ComponentName, name, component.RequiredControllers[name])
		}
	}

	return effective, nil
}

// findControllerInScope resolves a controller name from the innermost group
// scope outwards, falling back to the flow root controllers.
func (f *Flow) findControllerInScope(name string, scope []*FlowElement) *Controller {
	for i := len(scope) - 1; i >= 0; i-- {
		if controller, exists := scope[i].Controllers[name]; exists {
			return controller
		}
	}

	if controller, exists := f.Controllers[name]; exists {
		return controller
	}

	return nil
}

// FindControllerByName looks up a root-scope controller by exact,
// case-sensitive name.
func (f *Flow) FindControllerByName(name string) (*Controller, error) {
	controller, exists := f.Controllers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q is not a root controller of flow %q", ErrControllerNotFound, name, f.Name)
	}

	return controller, nil
}

// GetParentElement walks the element's parent breadcrumb from the flow root
// and returns its parent process group, or nil for a root-level element. A
// breadcrumb segment that does not resolve is a hard error: resolve the tree
// first, and treat a miss after Resolve as a structural bug.
func (f *Flow) GetParentElement(element *FlowElement) (*FlowElement, error) {
	if element == nil {
		return nil, fmt.Errorf("%w: no element given", ErrElementNotFound)
	}

	segments := strings.Split(element.ParentPath, PathDelimiter)
	if element.ParentPath == "" || len(segments) < 2 {
		return nil, nil
	}

	var parent *FlowElement

	level := f.Elements

	for _, segment := range segments[1:] {
		target, exists := level[segment]
		if !exists || target == nil {
			return nil, NewElementError("GetParentElement", element.FullPath(), fmt.Errorf("%w: path segment %q is not resolved", ErrElementNotFound, segment))
		}

		parent = target
		level = target.Elements
	}

	return parent, nil
}
