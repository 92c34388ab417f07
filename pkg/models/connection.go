package models

import (
	"errors"
	"fmt"
)

// Connection describes an edge from the declaring element to a named sibling
// element within the same scope. The relationships are the named outcomes of
// the source element this edge carries downstream. Connections are immutable
// after construction and owned exclusively by the element that declares them.
type Connection struct {
	Name          string   `json:"name"                    validate:"required,min=1"`
	FromPort      string   `json:"from_port,omitempty"`
	ToPort        string   `json:"to_port,omitempty"`
	Relationships []string `json:"relationships,omitempty"`
}

func (c *Connection) clone() *Connection {
	clone := &Connection{
		Name:     c.Name,
		FromPort: c.FromPort,
		ToPort:   c.ToPort,
	}

	if c.Relationships != nil {
		clone.Relationships = make([]string, len(c.Relationships))
		copy(clone.Relationships, c.Relationships)
	}

	return clone
}

// parseConnections builds the ordered connection list from a raw
// 'connections' sequence. A nil input yields no connections.
func parseConnections(raw any) ([]*Connection, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: 'connections' must be a sequence of mappings", ErrInvalidElement)
	}

	connections := make([]*Connection, 0, len(items))

	for i, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: connection at index %d must be a mapping", ErrInvalidElement, i)
		}

		name, _ := record["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("%w: connection at index %d requires a 'name' naming the downstream element in the same scope", ErrInvalidElement, i)
		}

		fromPort, _ := record["from_port"].(string)
		toPort, _ := record["to_port"].(string)

		relationships, err := parseRelationships(record["relationships"])
		if err != nil {
			return nil, fmt.Errorf("%w: connection %q: %v", ErrInvalidElement, name, err)
		}

		connections = append(connections, &Connection{
			Name:          name,
			FromPort:      fromPort,
			ToPort:        toPort,
			Relationships: relationships,
		})
	}

	return connections, nil
}

func parseRelationships(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New("'relationships' must be a sequence of names")
	}

	relationships := make([]string, 0, len(items))

	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, errors.New("'relationships' must be a sequence of names")
		}

		relationships = append(relationships, name)
	}

	return relationships, nil
}
