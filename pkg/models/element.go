// Package models defines the core domain model for declarative dataflow
// topologies: the polymorphic element tree, its connections and controllers,
// and the write-once identities assigned by a remote flow-management system.
package models

import (
	"fmt"
	"strings"
)

// PathDelimiter separates ancestor names in a hierarchical element path.
// The character is reserved: element names may never contain it.
const PathDelimiter = "/"

// ElementType identifies which variant of FlowElement a record describes.
type ElementType string

const (
	ElementTypeProcessor    ElementType = "processor"     // Runs one configured implementation
	ElementTypeProcessGroup ElementType = "process_group" // Contains a nested subtree of elements
	ElementTypeInputPort    ElementType = "input_port"    // Receives data from the enclosing scope
	ElementTypeOutputPort   ElementType = "output_port"   // Emits data to the enclosing scope
)

func elementTypes() []ElementType {
	return []ElementType{
		ElementTypeProcessor,
		ElementTypeProcessGroup,
		ElementTypeInputPort,
		ElementTypeOutputPort,
	}
}

// FlowElement is a node in the topology tree: one of processor, process
// group, input port, or output port, selected by Type. The variants share
// one struct; Config is set only for processors, and ComponentRef,
// Controllers, Variables, and Elements only for process groups.
type FlowElement struct {
	Name       string      `json:"name"        validate:"required,min=1"`
	ParentPath string      `json:"parent_path"`
	Type       ElementType `json:"type"        validate:"required"`

	Connections []*Connection `json:"connections,omitempty"`

	ID       Identity `json:"id"`
	ParentID Identity `json:"parent_id"`

	// Processor only.
	Config *ElementConfig `json:"config,omitempty"`

	// Process group only. Elements maps local name to child element; inline
	// children are built at construction, instantiated component children
	// are merged in by Flow.Resolve.
	ComponentRef string                  `json:"component_ref,omitempty"`
	Controllers  map[string]*Controller  `json:"controllers,omitempty"`
	Variables    map[string]any          `json:"vars,omitempty"`
	Elements     map[string]*FlowElement `json:"elements,omitempty"`

	instantiated bool
}

// Helper methods for variant checking.
func (e *FlowElement) IsProcessGroup() bool {
	return e.Type == ElementTypeProcessGroup
}

func (e *FlowElement) IsProcessor() bool {
	return e.Type == ElementTypeProcessor
}

func (e *FlowElement) IsPort() bool {
	return e.Type == ElementTypeInputPort || e.Type == ElementTypeOutputPort
}

// FullPath returns the hierarchical path addressing this element from the
// flow root: the parent breadcrumb without its leading flow-name segment,
// joined with the element name.
func (e *FlowElement) FullPath() string {
	segments := strings.Split(e.ParentPath, PathDelimiter)
	if e.ParentPath == "" || len(segments) < 2 {
		return e.Name
	}

	return strings.Join(append(segments[1:], e.Name), PathDelimiter)
}

// childParentPath is the breadcrumb carried by the element's direct children.
func (e *FlowElement) childParentPath() string {
	if e.ParentPath == "" {
		return e.Name
	}

	return e.ParentPath + PathDelimiter + e.Name
}

// FromStructured builds one FlowElement from a parsed element record,
// selecting the variant by the record's required 'type' discriminator. The
// optional 'parent_path' entry seeds the element's breadcrumb; nested
// 'elements' of a process group are built recursively through this same
// factory with composed breadcrumbs. Cross-references (connection targets,
// component requirements) are not checked here; Flow.Resolve validates them
// over the whole tree.
func FromStructured(record map[string]any) (*FlowElement, error) {
	var parentPath string
	if record != nil {
		parentPath, _ = record["parent_path"].(string)
	}

	return fromStructured(record, parentPath)
}

func fromStructured(record map[string]any, parentPath string) (*FlowElement, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: element record must be a mapping with a 'type' field, one of %v", ErrInvalidElement, elementTypes())
	}

	rawType, ok := record["type"]
	if !ok || rawType == nil || rawType == "" {
		return nil, fmt.Errorf("%w: element record requires a 'type' field, one of %v", ErrInvalidElement, elementTypes())
	}

	name, _ := record["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: element names may not be empty (parent path: %q)", ErrInvalidElement, parentPath)
	}

	if strings.Contains(name, PathDelimiter) {
		return nil, fmt.Errorf("%w: element name %q may not contain %q", ErrInvalidElement, name, PathDelimiter)
	}

	tag, _ := rawType.(string)

	element := &FlowElement{
		Name:       name,
		ParentPath: parentPath,
		Type:       ElementType(tag),
	}

	connections, err := parseConnections(record["connections"])
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", name, err)
	}

	element.Connections = connections

	switch element.Type {
	case ElementTypeProcessor:
		config, err := parseElementConfig(record["config"])
		if err != nil {
			return nil, fmt.Errorf("processor %q: %w", name, err)
		}

		element.Config = config

	case ElementTypeProcessGroup:
		if err := populateProcessGroup(element, record); err != nil {
			return nil, err
		}

	case ElementTypeInputPort, ElementTypeOutputPort:
		// Ports carry only the common fields.

	default:
		return nil, fmt.Errorf("%w: element 'type' must be one of %v, got %v", ErrInvalidElement, elementTypes(), rawType)
	}

	return element, nil
}

// populateProcessGroup fills the group-only fields: the component reference,
// variable overrides, group-scoped controllers, and the recursively built
// inline subtree. Absent containers become fresh empty ones per group.
func populateProcessGroup(group *FlowElement, record map[string]any) error {
	group.ComponentRef, _ = record["component_ref"].(string)
	group.Elements = make(map[string]*FlowElement)
	group.Controllers = make(map[string]*Controller)

	if raw, present := record["vars"]; present && raw != nil {
		variables, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: process group %q 'vars' must be a mapping", ErrInvalidElement, group.Name)
		}

		group.Variables = variables
	} else {
		group.Variables = make(map[string]any)
	}

	if raw, present := record["controllers"]; present && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%w: process group %q 'controllers' must be a sequence of records", ErrInvalidElement, group.Name)
		}

		for _, item := range items {
			controllerRecord, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: process group %q 'controllers' must be a sequence of records", ErrInvalidElement, group.Name)
			}

			controller, err := ParseController(controllerRecord)
			if err != nil {
				return fmt.Errorf("process group %q: %w", group.Name, err)
			}

			if _, exists := group.Controllers[controller.Name]; exists {
				// First occurrence wins.
				continue
			}

			group.Controllers[controller.Name] = controller
		}
	}

	if raw, present := record["elements"]; present && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%w: process group %q 'elements' must be a sequence of records", ErrInvalidElement, group.Name)
		}

		childPath := group.childParentPath()

		for _, item := range items {
			childRecord, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: process group %q 'elements' must be a sequence of records", ErrInvalidElement, group.Name)
			}

			child, err := fromStructured(childRecord, childPath)
			if err != nil {
				return err
			}

			if _, exists := group.Elements[child.Name]; exists {
				return fmt.Errorf("%w: duplicate element name %q in process group %q", ErrInvalidElement, child.Name, group.Name)
			}

			group.Elements[child.Name] = child
		}
	}

	return nil
}
