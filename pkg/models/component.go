package models

import (
	"fmt"
	"maps"
)

// FlowComponent is a named, reusable flow subtree template bound to the
// source definition it was loaded from. A component is loaded once per
// reference key, cached on the Flow, and instantiated into every process
// group that references it. The cached template is never handed out
// directly: each use gets a deep copy with fresh identities, so instances
// never share mutable state with each other or with the template.
type FlowComponent struct {
	ComponentName       string            `json:"component_name"`
	SourceLocation      string            `json:"source_location"`
	Defaults            map[string]any    `json:"defaults"`
	RequiredControllers map[string]string `json:"required_controllers"`
	RequiredVariables   []string          `json:"required_vars"`
	RootProcessGroup    *FlowElement      `json:"process_group"`
	RawSource           string            `json:"-"`
}

// NewFlowComponent creates a component template. Absent defaults, controller
// requirements, and variable requirements become fresh empty containers,
// never containers shared across components.
func NewFlowComponent(
	componentName string,
	sourceLocation string,
	rootProcessGroup *FlowElement,
	rawSource string,
	defaults map[string]any,
	requiredControllers map[string]string,
	requiredVariables []string,
) *FlowComponent {
	if defaults == nil {
		defaults = make(map[string]any)
	}

	if requiredControllers == nil {
		requiredControllers = make(map[string]string)
	}

	if requiredVariables == nil {
		requiredVariables = make([]string, 0)
	}

	return &FlowComponent{
		ComponentName:       componentName,
		SourceLocation:      sourceLocation,
		Defaults:            defaults,
		RequiredControllers: requiredControllers,
		RequiredVariables:   requiredVariables,
		RootProcessGroup:    rootProcessGroup,
		RawSource:           rawSource,
	}
}

// Instantiate deep-copies the component's template subtree for the given
// process group, rebasing every parent breadcrumb under the group and
// resetting all identities to unassigned. Requirement checks live in
// Flow.Resolve; Instantiate only produces the per-use copy.
func (c *FlowComponent) Instantiate(group *FlowElement) (map[string]*FlowElement, error) {
	if c.RootProcessGroup == nil {
		return nil, fmt.Errorf("%w: component %q has no process group subtree", ErrUnresolvedReference, c.ComponentName)
	}

	base := group.childParentPath()
	instantiated := make(map[string]*FlowElement, len(c.RootProcessGroup.Elements))

	for name, element := range c.RootProcessGroup.Elements {
		instantiated[name] = element.cloneInto(base)
	}

	return instantiated, nil
}

// cloneInto copies the element and its subtree under a new parent breadcrumb
// with fresh, unassigned identities.
func (e *FlowElement) cloneInto(parentPath string) *FlowElement {
	clone := &FlowElement{
		Name:         e.Name,
		ParentPath:   parentPath,
		Type:         e.Type,
		ComponentRef: e.ComponentRef,
		Config:       e.Config.clone(),
	}

	if e.Connections != nil {
		clone.Connections = make([]*Connection, 0, len(e.Connections))
		for _, connection := range e.Connections {
			clone.Connections = append(clone.Connections, connection.clone())
		}
	}

	if e.Variables != nil {
		clone.Variables = maps.Clone(e.Variables)
	}

	if e.Controllers != nil {
		clone.Controllers = make(map[string]*Controller, len(e.Controllers))
		for name, controller := range e.Controllers {
			clone.Controllers[name] = controller.clone()
		}
	}

	if e.Elements != nil {
		clone.Elements = make(map[string]*FlowElement, len(e.Elements))

		childPath := clone.childParentPath()
		for name, child := range e.Elements {
			clone.Elements[name] = child.cloneInto(childPath)
		}
	}

	return clone
}
