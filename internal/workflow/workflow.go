// Package workflow is the sub-workflow loading and invocation contract:
// a CreateWorkflowFunc populates a resourcepool.Pool given a config map
// and a Context, and three loader strategies (registry, Go plugin, git)
// resolve a pipeline step's `run:` reference to one - grounded on
// radiome/core/execution/loader.py's load() and radiome/core/workflow.py's
// `workflow` decorator.
package workflow

import (
	"fmt"
	"os"

	"github.com/radiome-lab/radiome/internal/outputs"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// Context is the immutable set of run-wide parameters every workflow
// receives, ported field-for-field from
// radiome/core/execution/context.py's frozen Context dataclass.
type Context struct {
	WorkingDir        string
	InputsDir         string
	OutputsDir        outputs.Target
	ParticipantLabels []string
	NCPUs             int
	MemoryMB          int
	SaveWorkingDir    bool
	PipelineConfig    map[string]any
	Diagnostics       bool
}

// CreateWorkflowFunc is the sub-workflow entry point signature every
// loader strategy resolves a `run:` reference to - the Go equivalent of
// the Python original's bare `create_workflow(config, rp, ctx)`
// function, decorated by radiome.core.workflow.workflow in the original
// to normalize/validate config and wrap it in an AttrDict. This port has
// no such step: LoadPlugin only checks that a plugin's spec.yml is a
// valid workflow document, and no loader checks a step's `in:` values
// against declared inputs, so CreateWorkflowFunc stays a plain function
// value with no decorator machinery to replicate.
type CreateWorkflowFunc func(cfg map[string]any, pool *resourcepool.Pool, ctx Context) error

var registry = map[string]CreateWorkflowFunc{}

// Register adds fn to the process-wide workflow registry under name -
// the Go-native replacement for the original's dynamic
// importlib.import_module("radiome.workflows....") resolution, since Go
// has no runtime import of arbitrary already-compiled packages by
// string name. Every built-in workflow registers itself from an init()
// in its own package.
func Register(name string, fn CreateWorkflowFunc) {
	registry[name] = fn
}

// ErrNotRegistered is returned by Lookup when name has no registered
// CreateWorkflowFunc.
var ErrNotRegistered = fmt.Errorf("workflow: not registered")

// Lookup resolves name against the registry, mirroring
// loader.py's _import_name's `importlib.import_module` fast path - this
// is the primary, always-available resolution strategy a pipeline step's
// `run:` value is checked against first.
func Lookup(name string) (CreateWorkflowFunc, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return fn, nil
}

// Resolve resolves a pipeline step's `run:` reference to a
// CreateWorkflowFunc, trying the registry first, then (if ref looks like
// a git locator) a git checkout, then a filesystem path plugin -
// mirroring loader.py's load()'s three-strategy fallback chain
// (_import_name, then _import_path, then _resolve_git for gh:// URLs).
func Resolve(ref string) (CreateWorkflowFunc, error) {
	if fn, err := Lookup(ref); err == nil {
		return fn, nil
	}
	if isGitLocator(ref) {
		path, err := LoadGit(ref)
		if err != nil {
			return nil, err
		}
		return LoadPlugin(path)
	}
	if _, err := os.Stat(ref); err == nil {
		return LoadPlugin(ref)
	}
	return nil, fmt.Errorf("workflow: cannot resolve %q via registry, plugin path, or git locator", ref)
}
