package execution

// Result is the outcome of running one graph node: either a produced
// value (a job's output map, or a resolved plain-resource value), a hard
// error, or a MissingDeps flag set when the node was skipped because one
// of its own dependencies failed or was itself skipped - the Go
// equivalent of radiome/execution/__init__.py's DependencySolver.execute
// catching and logging a per-job exception rather than propagating it,
// so a failure in one branch of the graph does not abort sibling
// branches.
type Result struct {
	Value       any
	Err         error
	MissingDeps bool
}

// Failed reports whether this result represents anything other than a
// clean success.
func (r Result) Failed() bool { return r.Err != nil || r.MissingDeps }
