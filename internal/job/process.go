package job

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/radiome-lab/radiome/internal/hashing"
)

// ProcessJob runs an external command as a job - the generalized Go
// equivalent of radiome.execution.nipype.NipypeJob and
// radiome.execution.boutiques.BoutiquesJob, which both wrap an opaque
// external tool invocation behind the Job interface. Where the Python
// originals delegate argument construction to a specific interpreter
// (nipype's interface traits, a Boutiques descriptor), this port
// generalizes that one level further: Args are Go text/template strings
// (with sprig's function set, matching the templating idiom used
// elsewhere in this codebase for parameter rendering) evaluated against
// the job's resolved inputs.
type ProcessJob struct {
	BaseJob
	Command string   // binary name or path, not templated
	Args    []string // each templated against the resolved inputs
	Outputs []string // declared output field names, reported as workDir/<name> paths

	// Env, if set, scopes the child process's environment instead of
	// inheriting the caller's.
	Env []string
}

// NewProcessJob builds a ProcessJob invoking command with the given
// templated argument list.
func NewProcessJob(reference, command string, args []string, outputs []string) *ProcessJob {
	return &ProcessJob{BaseJob: NewBaseJob(reference), Command: command, Args: args, Outputs: outputs}
}

func (p *ProcessJob) HashContent() any {
	return []any{"process", p.Command, toAnySlice(p.Args), p.BaseJob.HashContent()}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Run renders each argument template against inputs and runs Command in
// workDir. It returns the command's standard output under "stdout" and,
// for each name in Outputs, the path workDir/<name> (no extension is
// added). Run does not check that the command wrote those files.
func (p *ProcessJob) Run(ctx context.Context, workDir string, inputs map[string]any) (map[string]any, error) {
	renderedArgs := make([]string, len(p.Args))
	for i, a := range p.Args {
		rendered, err := renderArgTemplate(a, inputs)
		if err != nil {
			return nil, fmt.Errorf("job: rendering arg %d of %q: %w", i, p.Command, err)
		}
		renderedArgs[i] = rendered
	}

	cmd := exec.CommandContext(ctx, p.Command, renderedArgs...)
	cmd.Dir = workDir
	if p.Env != nil {
		cmd.Env = p.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("job: %s failed: %w: %s", p.Command, err, stderr.String())
	}

	outputs := map[string]any{"stdout": stdout.String()}
	for _, name := range p.Outputs {
		outputs[name] = workDir + "/" + name
	}
	return outputs, nil
}

func renderArgTemplate(raw string, inputs map[string]any) (string, error) {
	if !strings.Contains(raw, "{{") {
		return raw, nil
	}
	tmpl, err := template.New("arg").Funcs(sprig.FuncMap()).Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, inputs); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var _ Job = (*ProcessJob)(nil)
