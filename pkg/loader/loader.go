// Package loader converts flow and component documents into model objects:
// YAML unmarshalling, JSON-schema and struct validation, and eager component
// loading through a pluggable component source.
package loader

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dukex/flowkit/pkg/log"
	"github.com/dukex/flowkit/pkg/models"
)

// Loader builds resolved-ready flows from document bytes. The zero source is
// allowed: flows without component references load fine, and the first
// component reference fails with ErrNoComponentSource.
type Loader struct {
	source   ComponentSource
	logger   *slog.Logger
	validate *validator.Validate

	// mu guards the flow's component cache during load-or-get, so concurrent
	// loads of a shared subtree commit one template per reference.
	mu sync.Mutex
}

// NewLoader creates a loader reading component references from source.
func NewLoader(source ComponentSource) *Loader {
	return &Loader{
		source:   source,
		logger:   log.WithModule("loader"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Load parses one flow document and builds its in-memory flow: metadata,
// root controllers and reporting tasks, the canvas element tree, and the
// eagerly loaded component cache. The returned flow is not yet resolved;
// call Resolve on it to flatten and validate the graph.
func (l *Loader) Load(data []byte) (*models.Flow, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if err := validateSchema(raw, FlowSchema); err != nil {
		return nil, err
	}

	var document flowDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if err := l.validate.Struct(&document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	flow := models.NewFlow(document.Name)
	flow.DeclaredVersion = document.Version
	flow.Comments = document.Comments
	flow.Globals = document.Globals
	flow.ComponentSearchPath = document.ComponentDir
	flow.RawSource = string(data)

	for _, record := range document.Controllers {
		controller, err := models.ParseController(record)
		if err != nil {
			return nil, err
		}

		if _, exists := flow.Controllers[controller.Name]; exists {
			// First occurrence wins.
			l.logger.Debug("Ignoring duplicate controller definition", "flow", flow.Name, "controller", controller.Name)

			continue
		}

		flow.Controllers[controller.Name] = controller
	}

	for _, record := range document.ReportingTasks {
		task, err := models.ParseReportingTask(record)
		if err != nil {
			return nil, err
		}

		flow.ReportingTasks = append(flow.ReportingTasks, task)
	}

	for _, record := range document.Canvas {
		record["parent_path"] = document.Name

		element, err := models.FromStructured(record)
		if err != nil {
			return nil, err
		}

		flow.Canvas = append(flow.Canvas, element)
	}

	if err := l.loadComponents(flow); err != nil {
		return nil, err
	}

	l.logger.Debug("Loaded flow document",
		"flow", flow.Name,
		"canvas", len(flow.Canvas),
		"controllers", len(flow.Controllers),
		"components", len(flow.LoadedComponents))

	return flow, nil
}

// loadComponents walks the canvas and loads every referenced component into
// the flow's cache, including components referenced from inside other
// components' templates.
func (l *Loader) loadComponents(flow *models.Flow) error {
	for _, element := range flow.Canvas {
		if err := l.loadElementComponents(flow, element, nil); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) loadElementComponents(flow *models.Flow, element *models.FlowElement, loading []string) error {
	if !element.IsProcessGroup() {
		return nil
	}

	if element.ComponentRef != "" {
		if _, err := l.loadComponent(flow, element.ComponentRef, loading); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(element.Elements)) {
		if err := l.loadElementComponents(flow, element.Elements[name], loading); err != nil {
			return err
		}
	}

	return nil
}

// loadComponent returns the cached component for ref or loads, parses, and
// caches it, descending into the template for nested references. The loading
// stack holds the references currently being expanded; revisiting one is a
// reference cycle.
func (l *Loader) loadComponent(flow *models.Flow, ref string, loading []string) (*models.FlowComponent, error) {
	if slices.Contains(loading, ref) {
		return nil, fmt.Errorf("%w: component reference cycle: %s",
			models.ErrUnresolvedReference, strings.Join(append(loading, ref), " -> "))
	}

	l.mu.Lock()
	component, exists := flow.LoadedComponents[ref]
	l.mu.Unlock()

	if exists {
		return component, nil
	}

	if l.source == nil {
		return nil, fmt.Errorf("%w: flow %q references component %q", ErrNoComponentSource, flow.Name, ref)
	}

	data, err := l.source.Load(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", models.ErrUnresolvedReference, ref, err)
	}

	component, err = l.parseComponent(ref, data)
	if err != nil {
		return nil, err
	}

	for _, name := range slices.Sorted(maps.Keys(component.RootProcessGroup.Elements)) {
		if err := l.loadElementComponents(flow, component.RootProcessGroup.Elements[name], append(loading, ref)); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, exists := flow.LoadedComponents[ref]; exists {
		return cached, nil
	}

	flow.LoadedComponents[ref] = component

	l.logger.Debug("Loaded component", "flow", flow.Name, "component", ref)

	return component, nil
}

// parseComponent builds one component template from document bytes. The
// template subtree is constructed through the same element factory as the
// canvas, rooted in a synthetic process group named after the component.
func (l *Loader) parseComponent(ref string, data []byte) (*models.FlowComponent, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidDocument, ref, err)
	}

	if err := validateSchema(raw, ComponentSchema); err != nil {
		return nil, fmt.Errorf("component %q: %w", ref, err)
	}

	var document componentDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidDocument, ref, err)
	}

	if err := l.validate.Struct(&document); err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidDocument, ref, err)
	}

	elements := make([]any, 0, len(document.ProcessGroup))
	for _, record := range document.ProcessGroup {
		elements = append(elements, record)
	}

	root, err := models.FromStructured(map[string]any{
		"name":     document.Name,
		"type":     string(models.ElementTypeProcessGroup),
		"elements": elements,
	})
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", ref, err)
	}

	return models.NewFlowComponent(
		document.Name,
		ref,
		root,
		string(data),
		document.Defaults,
		document.RequiredControllers,
		document.RequiredVars,
	), nil
}
