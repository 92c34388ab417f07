package loader

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// schemaDefinitions holds the record shapes shared by the flow and component
// schemas: element records (recursive through process group nesting),
// connection records, controller records, and config records.
const schemaDefinitions = `{
    "config": {
      "type": "object",
      "required": ["package_id"],
      "properties": {
        "package_id": {
          "type": "string",
          "minLength": 1
        },
        "properties": {
          "type": "object"
        }
      }
    },
    "controller": {
      "type": "object",
      "required": ["name", "config"],
      "properties": {
        "name": {
          "type": "string",
          "minLength": 1
        },
        "config": {
          "$ref": "#/definitions/config"
        }
      }
    },
    "connection": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {
          "type": "string",
          "minLength": 1
        },
        "from_port": {
          "type": "string"
        },
        "to_port": {
          "type": "string"
        },
        "relationships": {
          "type": "array",
          "items": {
            "type": "string"
          }
        }
      }
    },
    "element": {
      "type": "object",
      "required": ["name", "type"],
      "properties": {
        "name": {
          "type": "string",
          "minLength": 1
        },
        "type": {
          "type": "string",
          "enum": ["processor", "process_group", "input_port", "output_port"]
        },
        "config": {
          "$ref": "#/definitions/config"
        },
        "component_ref": {
          "type": "string"
        },
        "vars": {
          "type": "object"
        },
        "controllers": {
          "type": "array",
          "items": {
            "$ref": "#/definitions/controller"
          }
        },
        "connections": {
          "type": "array",
          "items": {
            "$ref": "#/definitions/connection"
          }
        },
        "elements": {
          "type": "array",
          "items": {
            "$ref": "#/definitions/element"
          }
        }
      }
    }
  }`

// FlowSchema is the JSON schema for flow documents
const FlowSchema = `
{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "canvas"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "version": {
      "type": "string"
    },
    "comments": {
      "type": "string"
    },
    "globals": {
      "type": "object"
    },
    "component_dir": {
      "type": "string"
    },
    "controllers": {
      "type": "array",
      "items": {
        "$ref": "#/definitions/controller"
      }
    },
    "reporting_tasks": {
      "type": "array",
      "items": {
        "$ref": "#/definitions/controller"
      }
    },
    "canvas": {
      "type": "array",
      "items": {
        "$ref": "#/definitions/element"
      }
    }
  },
  "definitions": ` + schemaDefinitions + `
}
`

// ComponentSchema is the JSON schema for component documents
const ComponentSchema = `
{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "process_group"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "defaults": {
      "type": "object"
    },
    "required_vars": {
      "type": "array",
      "items": {
        "type": "string",
        "minLength": 1
      }
    },
    "required_controllers": {
      "type": "object",
      "additionalProperties": {
        "type": "string"
      }
    },
    "process_group": {
      "type": "array",
      "items": {
        "$ref": "#/definitions/element"
      }
    }
  },
  "definitions": ` + schemaDefinitions + `
}
`

// validateSchema validates a parsed document against a JSON schema.
func validateSchema(document map[string]any, schema string) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		var violations []string
		for _, violation := range result.Errors() {
			violations = append(violations, violation.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(violations, "; "))
	}

	return nil
}
