package loader

// flowDocument is the top-level shape of a flow document. Canvas records
// stay untyped: the models factory selects the element variant from each
// record's 'type' discriminator.
type flowDocument struct {
	Name           string           `yaml:"name"            validate:"required,min=1"`
	Version        string           `yaml:"version"`
	Comments       string           `yaml:"comments"`
	Globals        map[string]any   `yaml:"globals"`
	ComponentDir   string           `yaml:"component_dir"`
	Controllers    []map[string]any `yaml:"controllers"`
	ReportingTasks []map[string]any `yaml:"reporting_tasks"`
	Canvas         []map[string]any `yaml:"canvas"`
}

// componentDocument is the top-level shape of a reusable component document.
type componentDocument struct {
	Name                string            `yaml:"name"                 validate:"required,min=1"`
	Defaults            map[string]any    `yaml:"defaults"`
	RequiredVars        []string          `yaml:"required_vars"`
	RequiredControllers map[string]string `yaml:"required_controllers"`
	ProcessGroup        []map[string]any  `yaml:"process_group"`
}
