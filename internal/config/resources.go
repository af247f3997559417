package config

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/radiome-lab/radiome/internal/resourcekey"
	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// niiExtensions are the file extensions LoadResources recognizes as
// neuroimaging input files, mirroring the glob
// radiome/core/pipeline.py's load_resource walks InputsDir with.
var niiExtensions = []string{".nii.gz", ".nii"}

// LoadResources walks inputsDir for BIDS-ish neuroimaging files and
// seeds a resourcepool.Pool with one File resource per discovered file,
// keyed by parsing the file's basename as a resourcekey.Key - a minimal
// stand-in for the original's full BIDS layout indexing
// (radiome/core/pipeline.py's load_resource()), which is explicitly out
// of scope per spec.md's external-collaborator Non-goal; this is just
// enough to exercise the core execution pipeline against real files.
//
// When participantLabels is non-empty, only files whose "sub-" entity
// matches one of the given labels are loaded - the Go equivalent of the
// original's Context.participant_label filter.
func LoadResources(inputsDir string, participantLabels []string) (*resourcepool.Pool, error) {
	pool := resourcepool.New()
	logger := slog.With("component", "config")

	err := filepath.WalkDir(inputsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		stem, ok := trimNiiExtension(base)
		if !ok {
			return nil
		}

		key, parseErr := resourcekey.New(stem)
		if parseErr != nil {
			logger.Warn("skipping file with an unparsable resource key", "path", path, "error", parseErr)
			return nil
		}
		if len(participantLabels) > 0 {
			sub, present := key.Entity("sub")
			if !present || !slices.Contains(participantLabels, sub) {
				return nil
			}
		}
		if err := pool.Set(key, resourcepool.NewFile(path)); err != nil {
			logger.Warn("skipping duplicate resource key", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func trimNiiExtension(name string) (string, bool) {
	for _, ext := range niiExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}
