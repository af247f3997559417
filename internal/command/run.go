package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/radiome-lab/radiome/internal/config"
	"github.com/radiome-lab/radiome/internal/execution"
	"github.com/radiome-lab/radiome/internal/outputs"
	"github.com/radiome-lab/radiome/internal/remote"
	"github.com/radiome-lab/radiome/internal/resourcepool"
	"github.com/radiome-lab/radiome/internal/util"
	"github.com/radiome-lab/radiome/internal/workflow"
)

var (
	pipelineFile      string
	overridesFile     string
	inputsDir         string
	outputsDir        string
	workDir           string
	participantLabels []string
	jobs              int64
	memoryBudget      float64
	storageBudget     float64
	sequential        bool
	saveWorkingDir    bool
	diagnostics       bool
	remoteOutput      string

	overrideParams []string
)

func init() {
	runCmd.Flags().StringVarP(&pipelineFile, "file", "f", "pipeline.yml", "Pipeline or workflow configuration file")
	runCmd.Flags().StringVar(&overridesFile, "overrides", "", "Overrides configuration file merged on top of --file")
	runCmd.Flags().StringVar(&inputsDir, "inputs", ".", "Directory BIDS-ish input files are discovered from")
	runCmd.Flags().StringVar(&outputsDir, "outputs", "./outputs", "Directory derivatives are written to")
	runCmd.Flags().StringVar(&workDir, "work-dir", "", "Scratch directory for intermediate job state (defaults to a process-owned temp dir)")
	runCmd.Flags().StringArrayVar(&participantLabels, "participant-label", nil, "Restrict execution to the given participant labels (may be repeated)")
	runCmd.Flags().Int64Var(&jobs, "jobs", 0, "Maximum concurrent jobs (0 selects the number of CPUs)")
	runCmd.Flags().Float64Var(&memoryBudget, "memory-budget", 0, "Memory budget in GB admitted concurrently (0 sizes itself to the busiest component)")
	runCmd.Flags().Float64Var(&storageBudget, "storage-budget", 0, "Scratch storage budget in GB reserved per concurrent component (0 sizes itself to the busiest component)")
	runCmd.Flags().BoolVar(&sequential, "sequential", false, "Run the graph one job at a time instead of concurrently")
	runCmd.Flags().BoolVar(&saveWorkingDir, "save-working-dir", false, "Keep the scratch directory after the run finishes")
	runCmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "Print a per-job wall-clock timing report after execution")
	runCmd.Flags().StringArrayVarP(&overrideParams, "set", "s", nil, "Override a pipeline configuration property, e.g. --set steps.0.segment.in.space=T1w")
	runCmd.Flags().StringVar(&remoteOutput, "remote-output", "", "Remote address (e.g. s3://bucket/prefix) outputs are uploaded to after being written locally")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--file=pipeline.yml]",
	Args:  cobra.NoArgs,
	Short: "Execute a pipeline or workflow configuration",
	RunE:  runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadAndOverrideConfig()
	if err != nil {
		return err
	}

	pool, err := config.LoadResources(inputsDir, participantLabels)
	if err != nil {
		return fmt.Errorf("discovering input resources: %w", err)
	}

	root, err := execution.NewScratchRoot(workDir)
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() {
		if !saveWorkingDir {
			_ = root.Close()
		}
	}()

	outTarget := outputs.Local(outputsDir)
	if remoteOutput != "" {
		addr, err := remote.ParseAddress(remoteOutput)
		if err != nil {
			return fmt.Errorf("parsing --remote-output %q: %w", remoteOutput, err)
		}
		outTarget.Remote = &outputs.RemoteTarget{Bucket: addr.Bucket, Prefix: addr.Key}
	}

	wfCtx := workflow.Context{
		WorkingDir:        root.Dir,
		InputsDir:         inputsDir,
		OutputsDir:        outTarget,
		ParticipantLabels: participantLabels,
		NCPUs:             int(jobs),
		MemoryMB:          int(memoryBudget * 1024),
		SaveWorkingDir:    saveWorkingDir,
		PipelineConfig:    cfg,
		Diagnostics:       diagnostics,
	}

	pipelineName, _ := cfg["name"].(string)
	for _, step := range config.Steps(cfg) {
		fn, err := workflow.Resolve(step.Run)
		if err != nil {
			return fmt.Errorf("resolving step %q (run=%q): %w", step.Name, step.Run, err)
		}
		slog.Info("running step", "component", "command", "step", step.Name, "run", step.Run)
		if err := fn(step.Inputs, pool, wfCtx); err != nil {
			return fmt.Errorf("step %q (run=%q) failed: %w", step.Name, step.Run, err)
		}
	}

	graph, err := execution.Build(pool)
	if err != nil {
		return fmt.Errorf("building execution graph: %w", err)
	}

	var timings []execution.NodeTiming
	onDone := func(t execution.NodeTiming) { timings = append(timings, t) }

	var results map[any]execution.Result
	if sequential {
		results, err = execution.SequentialExecutor{OnNodeDone: onDone}.Execute(ctx, graph, root.Dir)
	} else {
		results, err = execution.ParallelExecutor{
			Concurrency:   jobs,
			MemoryBudget:  memoryBudget,
			StorageBudget: storageBudget,
			OnNodeDone:    onDone,
		}.Execute(ctx, graph, root.Dir)
	}
	if err != nil {
		return fmt.Errorf("executing pipeline: %w", err)
	}

	gathered, err := execution.Gather(pool, graph, results)
	if err != nil {
		return fmt.Errorf("gathering results: %w", err)
	}

	if err := writeOutputs(ctx, pipelineName, gathered, outTarget); err != nil {
		return fmt.Errorf("writing outputs: %w", err)
	}

	if diagnostics {
		printDiagnostics(cmd.OutOrStdout(), timings)
	}

	return nil
}

// loadAndOverrideConfig loads pipelineFile, merges overridesFile on top
// with mergo.WithOverride, and applies every --set key=value override
// via tidwall/sjson against the marshaled configuration.
func loadAndOverrideConfig() (map[string]any, error) {
	cfg, err := config.Load(pipelineFile)
	if err != nil {
		return nil, err
	}

	if overridesFile != "" {
		overrides, err := readYAMLMap(overridesFile)
		if err != nil {
			return nil, fmt.Errorf("loading overrides file %q: %w", overridesFile, err)
		}
		if err := mergo.Merge(&cfg, overrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging overrides from %q: %w", overridesFile, err)
		}
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validating merged configuration: %w", err)
		}
	}

	for _, pstr := range overrideParams {
		jsonBytes, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshalling configuration: %w", err)
		}
		path, raw, ok := strings.Cut(pstr, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pstr)
		}
		var val any
		if err := yaml.Unmarshal([]byte(raw), &val); err != nil {
			val = raw
		}
		slog.Debug("applying --set override", "component", "command", "path", path, "from", gjson.GetBytes(jsonBytes, path).Value(), "to", val)
		if jsonBytes, err = sjson.SetBytes(jsonBytes, path, val); err != nil {
			return nil, fmt.Errorf("applying --set %q: %w", pstr, err)
		}
		if err := json.Unmarshal(jsonBytes, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshalling configuration after --set %q: %w", pstr, err)
		}
	}

	if len(overrideParams) > 0 {
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validating configuration after --set overrides: %w", err)
		}
	}

	return cfg, nil
}

func readYAMLMap(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeOutputs copies every gathered file-valued result into the
// derivatives layout internal/outputs.Layout derives, mirroring
// execution/__init__.py's DependencySolver._gather: a Path-valued
// result is copied to its BIDS-ish destination, anything else is left
// as an in-memory value with no on-disk representation. When target
// names a remote destination, each written file is additionally pushed
// there through internal/remote once the local copy lands, so a
// file-typed output ends up both on disk (for --save-working-dir-style
// inspection) and at the configured remote address.
func writeOutputs(ctx context.Context, pipelineName string, pool *resourcepool.Pool, target outputs.Target) error {
	for _, entry := range pool.Entries() {
		lit, ok := entry.Resource.(*resourcepool.Literal)
		if !ok {
			continue
		}
		path, ok := lit.Value.(string)
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		rel := outputs.Layout(pipelineName, entry.Key, ext)
		dest := filepath.Join(target.Path, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := copyFile(path, dest); err != nil {
			return err
		}
		slog.Info("wrote output", "component", "command", "key", entry.Key.String(), "path", dest)

		if target.Remote != nil {
			addr := remote.Address{Scheme: "s3", Bucket: target.Remote.Bucket, Key: filepath.ToSlash(filepath.Join(target.Remote.Prefix, rel))}
			if err := remote.Default.Upload(ctx, addr, dest); err != nil {
				return fmt.Errorf("uploading %q to %s: %w", dest, addr, err)
			}
			slog.Info("uploaded output", "component", "command", "key", entry.Key.String(), "remote", addr.String())
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func printDiagnostics(w io.Writer, timings []execution.NodeTiming) {
	rows := make([][]string, 0, len(timings))
	var total time.Duration
	for _, t := range timings {
		status := "ok"
		if t.Err != nil {
			status = "failed"
		}
		rows = append(rows, []string{t.Label, t.Duration.Round(time.Millisecond).String(), status})
		total += t.Duration
	}
	table := util.TableOutputFormatter{
		Headers: []string{"Job", "Duration", "Status"},
		Rows:    rows,
		Out:     w,
	}
	table.Display()
	slog.Info("diagnostics", "component", "command", "jobs", len(timings), "total", total.Round(time.Millisecond).String())
}
