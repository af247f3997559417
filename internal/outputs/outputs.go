// Package outputs derives the on-disk (or remote) layout a finished
// pipeline result is written to, and the Target sum type a run's output
// destination is expressed as. Grounded on radiome/core/pipeline.py's
// participant/session directory walking (for the sub-/ses- folding
// rule) generalized to every suffix category, since
// radiome/core/execution/__init__.py's own Execution.execute only ever
// copies results into a flat directory and leaves BIDS-ish derivatives
// layout unaddressed.
package outputs

import (
	"fmt"
	"path/filepath"

	"github.com/radiome-lab/radiome/internal/resourcekey"
)

// Target is where a pipeline run's outputs are written: Path is the
// local directory every output is copied into, and Remote, when non-nil,
// additionally names a remote destination each written file is uploaded
// to through internal/remote.
type Target struct {
	Path   string
	Remote *RemoteTarget
}

// RemoteTarget names a remote destination each output file is uploaded
// to after its local copy is written, deferring to internal/remote for
// the actual transfer.
type RemoteTarget struct {
	Bucket string
	Prefix string
}

// Local builds a Target rooted at a local directory.
func Local(path string) Target { return Target{Path: path} }

// categoryFor folds a resourcekey suffix into the derivatives category
// a result is filed under, mirroring the anat/func/mask split the
// original's BIDS-writing pipelines apply by convention even though no
// single function in the original enforces it centrally.
func categoryFor(suffix string) string {
	switch suffix {
	case "T1w", "brain":
		return "anat"
	case "mask":
		return "mask"
	default:
		return "func"
	}
}

// Layout derives the relative path a resource keyed by key is written
// to under a pipeline's derivatives directory:
//
//	derivatives/<pipelineName>/[sub-X/][ses-Y/]<category>/<key>.<ext>
//
// sub-/ses- folders are included only when the key carries those
// entities, matching the original's convention of never emitting an
// empty participant folder for workflow-level (non-subject) outputs.
func Layout(pipelineName string, key resourcekey.Key, ext string) string {
	parts := []string{"derivatives", pipelineName}
	if sub, ok := key.Entity("sub"); ok {
		parts = append(parts, "sub-"+sub)
	}
	if ses, ok := key.Entity("ses"); ok {
		parts = append(parts, "ses-"+ses)
	}
	parts = append(parts, categoryFor(key.Suffix()))

	filename := key.String()
	if ext != "" {
		filename = fmt.Sprintf("%s.%s", filename, ext)
	}
	parts = append(parts, filename)
	return filepath.Join(parts...)
}
