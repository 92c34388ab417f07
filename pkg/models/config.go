package models

import (
	"fmt"
	"maps"
)

// ElementConfig carries the configuration of a generic element: the package
// identifier naming which implementation the element represents, its property
// bag, and any remaining settings (scheduling knobs and the like) passed
// through opaquely to the remote collaborator.
type ElementConfig struct {
	PackageID  string         `json:"package_id"         validate:"required,min=1"`
	Properties map[string]any `json:"properties"`
	Settings   map[string]any `json:"settings,omitempty"`
}

// parseElementConfig builds an ElementConfig from a raw 'config' mapping.
// Absent properties become a fresh empty map per instance, never a shared
// default.
func parseElementConfig(raw any) (*ElementConfig, error) {
	record, ok := raw.(map[string]any)
	if !ok || record == nil {
		return nil, fmt.Errorf("%w: requires a 'config' mapping with a 'package_id'", ErrInvalidElement)
	}

	packageID, _ := record["package_id"].(string)
	if packageID == "" {
		return nil, fmt.Errorf("%w: config requires a non-empty 'package_id'", ErrInvalidElement)
	}

	config := &ElementConfig{
		PackageID:  packageID,
		Properties: make(map[string]any),
		Settings:   make(map[string]any),
	}

	if raw, present := record["properties"]; present && raw != nil {
		properties, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: config 'properties' must be a mapping", ErrInvalidElement)
		}

		maps.Copy(config.Properties, properties)
	}

	for key, value := range record {
		if key == "package_id" || key == "properties" {
			continue
		}

		config.Settings[key] = value
	}

	return config, nil
}

func (c *ElementConfig) clone() *ElementConfig {
	if c == nil {
		return nil
	}

	return &ElementConfig{
		PackageID:  c.PackageID,
		Properties: maps.Clone(c.Properties),
		Settings:   maps.Clone(c.Settings),
	}
}
