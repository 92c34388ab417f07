package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTemplate(t *testing.T, record map[string]any) *FlowElement {
	t.Helper()

	template, err := FromStructured(record)
	require.NoError(t, err)

	return template
}

func newIngestComponent(t *testing.T) *FlowComponent {
	t.Helper()

	template := mustTemplate(t, map[string]any{
		"name": "ingest-template",
		"type": "process_group",
		"elements": []any{
			map[string]any{
				"name": "in",
				"type": "input_port",
				"connections": []any{
					map[string]any{"name": "parse"},
				},
			},
			map[string]any{
				"name": "parse",
				"type": "processor",
				"config": map[string]any{
					"package_id": "remote.processors.ConvertRecord",
					"properties": map[string]any{
						"reader": "json-reader",
					},
				},
				"connections": []any{
					map[string]any{"name": "out", "relationships": []any{"success"}},
				},
			},
			map[string]any{
				"name": "out",
				"type": "output_port",
			},
		},
	})

	return NewFlowComponent(
		"org.billing.ingest",
		"components/ingest.yaml",
		template,
		"raw: source",
		map[string]any{"topic": "invoices", "batch_size": 100},
		map[string]string{"invoice-db": "remote.controllers.DBCPConnectionPool"},
		[]string{"topic"},
	)
}

func newComponentFlow(t *testing.T) *Flow {
	t.Helper()

	flow := NewFlow("billing-flow")
	flow.Controllers["invoice-db"] = &Controller{
		Name:   "invoice-db",
		Config: &ElementConfig{PackageID: "remote.controllers.DBCPConnectionPool", Properties: map[string]any{}},
	}
	flow.LoadedComponents["org.billing.ingest"] = newIngestComponent(t)

	return flow
}

func TestFlow_ResolveInstantiatesComponents(t *testing.T) {
	t.Parallel()

	flow := newComponentFlow(t)
	flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
		"name":          "invoice-ingest",
		"type":          "process_group",
		"component_ref": "org.billing.ingest",
	}))

	require.NoError(t, flow.Resolve())

	for _, path := range []string{"invoice-ingest", "invoice-ingest/in", "invoice-ingest/parse", "invoice-ingest/out"} {
		assert.Contains(t, flow.Elements, path)
	}

	parse := flow.Elements["invoice-ingest/parse"]
	require.NotNil(t, parse)
	assert.Equal(t, "billing-flow/invoice-ingest", parse.ParentPath)
	assert.False(t, parse.ID.Assigned())

	// The effective variables are the defaults, since the group overrode
	// nothing.
	group := flow.Elements["invoice-ingest"]
	assert.Equal(t, "invoices", group.Variables["topic"])
	assert.Equal(t, 100, group.Variables["batch_size"])
}

func TestFlow_ResolveOverridesComponentDefaults(t *testing.T) {
	t.Parallel()

	flow := newComponentFlow(t)
	flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
		"name":          "payment-ingest",
		"type":          "process_group",
		"component_ref": "org.billing.ingest",
		"vars":          map[string]any{"topic": "payments"},
	}))

	require.NoError(t, flow.Resolve())

	group := flow.Elements["payment-ingest"]
	assert.Equal(t, "payments", group.Variables["topic"])
	assert.Equal(t, 100, group.Variables["batch_size"])
}

func TestFlow_ResolveLeavesTheTemplateUntouched(t *testing.T) {
	t.Parallel()

	flow := newComponentFlow(t)
	flow.Canvas = append(flow.Canvas,
		mustElement(t, flow.Name, map[string]any{
			"name":          "first",
			"type":          "process_group",
			"component_ref": "org.billing.ingest",
		}),
		mustElement(t, flow.Name, map[string]any{
			"name":          "second",
			"type":          "process_group",
			"component_ref": "org.billing.ingest",
		}),
	)

	require.NoError(t, flow.Resolve())

	firstParse := flow.Elements["first/parse"]
	secondParse := flow.Elements["second/parse"]
	require.NotNil(t, firstParse)
	require.NotNil(t, secondParse)
	assert.NotSame(t, firstParse, secondParse)

	// Mutating one instance must never leak into its sibling or into the
	// cached template.
	firstParse.Config.Properties["reader"] = "avro-reader"
	require.NoError(t, firstParse.ID.Set("instance-id-1"))

	assert.Equal(t, "json-reader", secondParse.Config.Properties["reader"])
	assert.False(t, secondParse.ID.Assigned())

	template := flow.LoadedComponents["org.billing.ingest"].RootProcessGroup.Elements["parse"]
	assert.Equal(t, "json-reader", template.Config.Properties["reader"])
	assert.False(t, template.ID.Assigned())
}

func TestFlow_ResolveWithComponentsIsIdempotent(t *testing.T) {
	t.Parallel()

	flow := newComponentFlow(t)
	flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
		"name":          "invoice-ingest",
		"type":          "process_group",
		"component_ref": "org.billing.ingest",
	}))

	require.NoError(t, flow.Resolve())

	parse := flow.Elements["invoice-ingest/parse"]
	count := len(flow.Elements)

	require.NoError(t, flow.Resolve())

	assert.Len(t, flow.Elements, count)
	assert.Same(t, parse, flow.Elements["invoice-ingest/parse"])
}

func TestFlow_ResolveRequirementFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(flow *Flow)
		expected string
	}{
		{
			name: "component not loaded",
			mutate: func(flow *Flow) {
				delete(flow.LoadedComponents, "org.billing.ingest")
			},
			expected: `component "org.billing.ingest" is not loaded`,
		},
		{
			name: "required variable missing",
			mutate: func(flow *Flow) {
				delete(flow.LoadedComponents["org.billing.ingest"].Defaults, "topic")
			},
			expected: `requires var "topic"`,
		},
		{
			name: "required controller missing",
			mutate: func(flow *Flow) {
				delete(flow.Controllers, "invoice-db")
			},
			expected: `requires controller "invoice-db"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			flow := newComponentFlow(t)
			flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
				"name":          "invoice-ingest",
				"type":          "process_group",
				"component_ref": "org.billing.ingest",
			}))

			tc.mutate(flow)

			err := flow.Resolve()
			require.Error(t, err)
			assert.True(t, IsUnresolvedReference(err))
			assert.Contains(t, err.Error(), tc.expected)

			// A failed resolve publishes nothing.
			assert.Empty(t, flow.Elements)

			group := flow.Canvas[0]
			assert.Empty(t, group.Elements)
			assert.False(t, group.instantiated)
		})
	}
}

func TestFlow_ResolveRequiredVariableWithoutDefault(t *testing.T) {
	t.Parallel()

	newExportFlow := func(t *testing.T, groupRecord map[string]any) *Flow {
		t.Helper()

		template := mustTemplate(t, map[string]any{
			"name": "export-template",
			"type": "process_group",
			"elements": []any{
				map[string]any{
					"name": "upload",
					"type": "processor",
					"config": map[string]any{
						"package_id": "remote.processors.PutS3Object",
					},
				},
			},
		})

		flow := NewFlow("export-flow")
		flow.LoadedComponents["org.billing.export"] = NewFlowComponent(
			"org.billing.export", "components/export.yaml", template, "", nil, nil, []string{"bucket"})
		flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, groupRecord))

		return flow
	}

	t.Run("missing variable fails", func(t *testing.T) {
		t.Parallel()

		flow := newExportFlow(t, map[string]any{
			"name":          "nightly",
			"type":          "process_group",
			"component_ref": "org.billing.export",
		})

		err := flow.Resolve()
		require.Error(t, err)
		assert.True(t, IsUnresolvedReference(err))
		assert.Contains(t, err.Error(), `requires var "bucket"`)
	})

	t.Run("supplied variable satisfies the requirement", func(t *testing.T) {
		t.Parallel()

		flow := newExportFlow(t, map[string]any{
			"name":          "nightly",
			"type":          "process_group",
			"component_ref": "org.billing.export",
			"vars":          map[string]any{"bucket": "s3://billing-archive"},
		})

		require.NoError(t, flow.Resolve())
		assert.Contains(t, flow.Elements, "nightly/upload")
		assert.Equal(t, "s3://billing-archive", flow.Elements["nightly"].Variables["bucket"])
	})
}

func TestFlow_ResolveFindsControllersOnAncestorGroups(t *testing.T) {
	t.Parallel()

	flow := NewFlow("scoped-flow")
	flow.LoadedComponents["org.billing.ingest"] = newIngestComponent(t)

	flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
		"name": "outer",
		"type": "process_group",
		"controllers": []any{
			map[string]any{
				"name":   "invoice-db",
				"config": map[string]any{"package_id": "remote.controllers.DBCPConnectionPool"},
			},
		},
		"elements": []any{
			map[string]any{
				"name":          "inner",
				"type":          "process_group",
				"component_ref": "org.billing.ingest",
			},
		},
	}))

	require.NoError(t, flow.Resolve())
	assert.Contains(t, flow.Elements, "outer/inner/parse")
}

func TestFlow_ResolveRejectsComponentCollidingWithInlineElement(t *testing.T) {
	t.Parallel()

	flow := newComponentFlow(t)
	flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
		"name":          "invoice-ingest",
		"type":          "process_group",
		"component_ref": "org.billing.ingest",
		"elements": []any{
			map[string]any{
				"name": "parse",
				"type": "processor",
				"config": map[string]any{
					"package_id": "remote.processors.UpdateAttribute",
				},
			},
		},
	}))

	err := flow.Resolve()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), `collides with an inline element`)
	assert.Empty(t, flow.Elements)
}

func TestFlow_ResolveNestedComponentReferences(t *testing.T) {
	t.Parallel()

	stage := mustTemplate(t, map[string]any{
		"name": "stage-template",
		"type": "process_group",
		"elements": []any{
			map[string]any{
				"name": "work",
				"type": "processor",
				"config": map[string]any{
					"package_id": "remote.processors.ExecuteScript",
				},
			},
		},
	})

	pipeline := mustTemplate(t, map[string]any{
		"name": "pipeline-template",
		"type": "process_group",
		"elements": []any{
			map[string]any{
				"name":          "stage",
				"type":          "process_group",
				"component_ref": "org.factory.stage",
			},
		},
	})

	flow := NewFlow("factory-flow")
	flow.LoadedComponents["org.factory.stage"] = NewFlowComponent("org.factory.stage", "components/stage.yaml", stage, "", nil, nil, nil)
	flow.LoadedComponents["org.factory.pipeline"] = NewFlowComponent("org.factory.pipeline", "components/pipeline.yaml", pipeline, "", nil, nil, nil)

	flow.Canvas = append(flow.Canvas, mustElement(t, flow.Name, map[string]any{
		"name":          "run",
		"type":          "process_group",
		"component_ref": "org.factory.pipeline",
	}))

	require.NoError(t, flow.Resolve())

	for _, path := range []string{"run", "run/stage", "run/stage/work"} {
		assert.Contains(t, flow.Elements, path)
	}

	work := flow.Elements["run/stage/work"]
	require.NotNil(t, work)
	assert.Equal(t, "factory-flow/run/stage", work.ParentPath)
}

func TestNewFlowComponent_FreshContainers(t *testing.T) {
	t.Parallel()

	first := NewFlowComponent("a", "a.yaml", nil, "", nil, nil, nil)
	second := NewFlowComponent("b", "b.yaml", nil, "", nil, nil, nil)

	first.Defaults["shared"] = true
	first.RequiredControllers["svc"] = "remote.controllers.Anything"

	assert.Empty(t, second.Defaults)
	assert.Empty(t, second.RequiredControllers)
	assert.Empty(t, second.RequiredVariables)
}
