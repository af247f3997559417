package config

import (
	"fmt"
	"iter"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a pipeline or workflow YAML document from path,
// validating it against the built-in schema before returning it -
// mirroring schema.py's validate() being the first thing every loader
// entry point (steps(), validate_spec()) calls.
func Load(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg map[string]any
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}
	return cfg, nil
}

// Step is one pipeline step: its declared name, the workflow reference
// its `run:` field names, and its `in:` parameter map.
type Step struct {
	Name   string
	Run    string
	Inputs map[string]any
}

// Steps iterates a pipeline config's `steps:` list in file order,
// unpacking each single-key step map into a Step - the Go port of
// schema.py's steps() generator, which does the same
// `for name, v in step.items(): yield v['run'], v['in']` unpacking.
func Steps(cfg map[string]any) iter.Seq2[int, Step] {
	return func(yield func(int, Step) bool) {
		rawSteps, _ := cfg["steps"].([]any)
		for i, rawStep := range rawSteps {
			m, ok := rawStep.(map[string]any)
			if !ok {
				continue
			}
			for name, v := range m {
				body, _ := v.(map[string]any)
				run, _ := body["run"].(string)
				inputs, _ := body["in"].(map[string]any)
				step := Step{Name: name, Run: run, Inputs: inputs}
				if !yield(i, step) {
					return
				}
				break // each step map carries exactly one key, per schema
			}
		}
	}
}

// InputSpec is one declared `inputs:` entry of a workflow config,
// decoded via mapstructure the same way templateprov decodes a loosely
// typed YAML map into a typed Go struct.
type InputSpec struct {
	Name string `mapstructure:"-"`
	Type string `mapstructure:"type"`
}

// DecodeInputSpecs decodes a workflow config's `inputs:` map into a
// name-sorted slice of InputSpec, used for `radiome describe`'s
// introspection output and accepted by InputSchema.
func DecodeInputSpecs(cfg map[string]any) ([]InputSpec, error) {
	raw, _ := cfg["inputs"].(map[string]any)
	specs := make([]InputSpec, 0, len(raw))
	for name, v := range raw {
		var spec InputSpec
		if err := mapstructure.Decode(v, &spec); err != nil {
			return nil, fmt.Errorf("config: decoding input %q: %w", name, err)
		}
		spec.Name = name
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// InputSchema builds a JSON Schema document validating a map of input
// values against a workflow's declared InputSpecs - the Go equivalent of
// schema.py's validate_inputs(), which validates a sub-workflow's actual
// `in:` parameters against its spec.yml `inputs:` declaration.
func InputSchema(specs []InputSpec) map[string]any {
	props := make(map[string]any, len(specs))
	required := make([]any, 0, len(specs))
	for _, s := range specs {
		prop := map[string]any{}
		if t := jsonSchemaType(s.Type); t != "" {
			prop["type"] = t
		}
		props[s.Name] = prop
		required = append(required, s.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// jsonSchemaType maps the loosely-typed strings a workflow's spec.yml
// uses for input types (borrowed verbatim from the Python original,
// which never constrained this field itself) onto a JSON Schema "type"
// keyword, falling back to accepting anything for a type this port
// doesn't recognize rather than rejecting an otherwise-valid config: an
// empty result means "emit no type keyword".
func jsonSchemaType(t string) string {
	switch t {
	case "string", "number", "integer", "boolean", "array", "object", "null":
		return t
	default:
		return ""
	}
}
