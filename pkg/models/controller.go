package models

import "fmt"

// Controller is a named controller service scoped either to the flow root or
// to a single process group. Its identities follow the same write-once
// discipline as flow elements.
type Controller struct {
	Name   string         `json:"name"   validate:"required,min=1"`
	Config *ElementConfig `json:"config" validate:"required"`

	ID       Identity `json:"id"`
	ParentID Identity `json:"parent_id"`
}

// ParseController builds a Controller from a parsed controller record.
func ParseController(record map[string]any) (*Controller, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: controller record must be a mapping with 'name' and 'config'", ErrInvalidElement)
	}

	name, _ := record["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: controller names may not be empty", ErrInvalidElement)
	}

	config, err := parseElementConfig(record["config"])
	if err != nil {
		return nil, fmt.Errorf("controller %q: %w", name, err)
	}

	return &Controller{
		Name:   name,
		Config: config,
	}, nil
}

func (c *Controller) clone() *Controller {
	return &Controller{
		Name:   c.Name,
		Config: c.Config.clone(),
	}
}

// ReportingTask is a root-scoped background task reporting on the deployed
// flow. Reporting tasks never appear on the canvas.
type ReportingTask struct {
	Name   string         `json:"name"   validate:"required,min=1"`
	Config *ElementConfig `json:"config" validate:"required"`

	ID       Identity `json:"id"`
	ParentID Identity `json:"parent_id"`
}

// ParseReportingTask builds a ReportingTask from a parsed record.
func ParseReportingTask(record map[string]any) (*ReportingTask, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: reporting task record must be a mapping with 'name' and 'config'", ErrInvalidElement)
	}

	name, _ := record["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: reporting task names may not be empty", ErrInvalidElement)
	}

	config, err := parseElementConfig(record["config"])
	if err != nil {
		return nil, fmt.Errorf("reporting task %q: %w", name, err)
	}

	return &ReportingTask{
		Name:   name,
		Config: config,
	}, nil
}
