package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"

	"github.com/radiome-lab/radiome/internal/config"
)

// pluginSymbol is the exported symbol every workflow plugin .so must
// provide, mirroring loader.py's `module.create_workflow` attribute
// lookup.
const pluginSymbol = "CreateWorkflow"

// specFile is the per-workflow input schema file a plugin may carry
// next to its .so, mirroring _validate_spec's spec.yml lookup next to the
// imported module's __file__.
const specFile = "spec.yml"

// LoadPlugin loads a workflow from a compiled Go plugin at path,
// mirroring _import_path's spec_from_file_location + exec_module: path
// is expected to be either a *.so file directly, or a directory
// containing a plugin named workflow.so. A spec.yml next to the plugin is
// optional; when present it must pass config.Load.
//
// Go plugins only load on Linux and only build with `go build
// -buildmode=plugin`; that is a real platform limitation this port
// accepts rather than works around, since no corpus repo carries a
// portable dynamic-loading alternative.
func LoadPlugin(path string) (CreateWorkflowFunc, error) {
	soPath, specPath, err := resolvePluginPaths(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(specPath); err == nil {
		if _, err := config.Load(specPath); err != nil {
			return nil, fmt.Errorf("workflow: invalid spec.yml for plugin %s: %w", path, err)
		}
	}

	p, err := plugin.Open(soPath)
	if err != nil {
		return nil, fmt.Errorf("workflow: cannot open plugin %s: %w", soPath, err)
	}
	sym, err := p.Lookup(pluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("workflow: plugin %s has no %s symbol: %w", soPath, pluginSymbol, err)
	}
	createFn, ok := sym.(CreateWorkflowFunc)
	if !ok {
		return nil, fmt.Errorf("workflow: plugin %s's %s symbol has the wrong type", soPath, pluginSymbol)
	}
	return createFn, nil
}

// SpecPath resolves ref to the spec.yml path a plugin or git-hosted
// workflow declares its inputs in, for `radiome describe`'s use.
// Registry-resolved workflows have no backing file and return an error.
func SpecPath(ref string) (string, error) {
	target := ref
	if isGitLocator(ref) {
		checkout, err := LoadGit(ref)
		if err != nil {
			return "", err
		}
		target = checkout
	} else if _, err := Lookup(ref); err == nil {
		return "", fmt.Errorf("workflow: %q is a registered workflow with no backing spec.yml file", ref)
	}
	_, specPath, err := resolvePluginPaths(target)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(specPath); err != nil {
		return "", fmt.Errorf("workflow: no spec.yml found for %q: %w", ref, err)
	}
	return specPath, nil
}

func resolvePluginPaths(path string) (soPath, specPath string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", fmt.Errorf("workflow: cannot stat plugin path %s: %w", path, err)
	}
	if !info.IsDir() {
		return path, filepath.Join(filepath.Dir(path), specFile), nil
	}
	return filepath.Join(path, "workflow.so"), filepath.Join(path, specFile), nil
}
