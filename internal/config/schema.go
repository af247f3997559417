// Package config loads and validates pipeline/workflow YAML
// configuration - grounded on radiome/core/schema.py, whose Cerberus
// schema dict this package's jsonschema document mirrors field for
// field, and radiome/core/execution/context.py's Context dataclass.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SupportedSchemaVersion is the only radiomeSchemaVersion value this
// port accepts, mirroring schema.py's supporting_templates = ['1.0'].
const SupportedSchemaVersion = "1.0"

const schemaResourceURL = "https://radiome-lab/schema/pipeline.json"

// pipelineSchemaDoc is the JSON Schema translation of schema.py's
// Cerberus schema dict: the top-level keys radiomeSchemaVersion, class,
// name, inputs and steps, plus an optional doc string, the same
// class-conditional requirements (inputs required for class: workflow,
// steps required for class: pipeline, expressed here via the
// if/then draft-2020-12 idiom since Cerberus's `dependencies` keyword
// has no direct JSON Schema equivalent), and the same per-step/per-input
// nested schemas.
var pipelineSchemaDoc = map[string]any{
	"$id":     schemaResourceURL,
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"required": []any{"radiomeSchemaVersion", "class", "name"},
	"properties": map[string]any{
		"radiomeSchemaVersion": map[string]any{
			"type": "string",
			"enum": []any{SupportedSchemaVersion},
		},
		"class": map[string]any{
			"type": "string",
			"enum": []any{"workflow", "pipeline"},
		},
		"name": map[string]any{"type": "string"},
		"doc":  map[string]any{"type": "string"},
		"inputs": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":       "object",
				"required":   []any{"type"},
				"properties": map[string]any{"type": map[string]any{"type": "string"}},
			},
		},
		"steps": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":          "object",
				"minProperties": 1,
				"maxProperties": 1,
				"additionalProperties": map[string]any{
					"type":     "object",
					"required": []any{"run"},
					"properties": map[string]any{
						"run": map[string]any{"type": "string"},
						"in":  map[string]any{"type": "object"},
					},
				},
			},
		},
	},
	"allOf": []any{
		map[string]any{
			"if":   map[string]any{"properties": map[string]any{"class": map[string]any{"const": "workflow"}}},
			"then": map[string]any{"required": []any{"inputs"}},
		},
		map[string]any{
			"if":   map[string]any{"properties": map[string]any{"class": map[string]any{"const": "pipeline"}}},
			"then": map[string]any{"required": []any{"steps"}},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(pipelineSchemaDoc)
		if err != nil {
			compileErr = fmt.Errorf("config: marshaling built-in schema: %w", err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = fmt.Errorf("config: decoding built-in schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaResourceURL, doc); err != nil {
			compileErr = fmt.Errorf("config: registering built-in schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaResourceURL)
	})
	return compiled, compileErr
}

// ValidationError reports one or more schema violations found in a
// pipeline/workflow configuration document - the Go equivalent of
// schema.py's ValidationError, which joins Cerberus's validator.errors
// into a single exception message.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: invalid configuration: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks cfg against the built-in pipeline/workflow schema,
// matching schema.py's validate() function (called unconditionally at
// the top of steps(), and reached through Load by LoadPlugin's spec.yml
// check in internal/workflow).
func Validate(cfg map[string]any) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	return s.Validate(cfg)
}
