// Package remote defines the upload handle a resourcepool.File-shaped
// output uses to ship itself to a remote store once a run completes.
// Grounded on radiome/utils/s3.py's S3Resource: a bucket/key address
// pair with a materialize-to-local-path pull and an upload push. Actual
// credentialed transport is an explicit Non-goal (S3 credential
// handling is called out in spec.md as belonging to an external
// collaborator), so this package stops at the interface boundary -
// ErrNotConfigured is the only behavior wired by default.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned by the default Uploader when no remote
// backend has been wired in, mirroring the original's unconditional
// assumption that an S3Resource's credentials are always available;
// here that assumption is made explicit and refused by default instead.
var ErrNotConfigured = errors.New("remote: no uploader configured")

// Address is a parsed remote locator, the Go analogue of S3Resource's
// content string (e.g. "s3://bucket/key/path").
type Address struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseAddress parses a "scheme://bucket/key..." remote locator,
// mirroring S3Resource.__init__'s content.lower().startswith("s3://")
// guard generalized to any scheme.
func ParseAddress(raw string) (Address, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" || rest == "" {
		return Address{}, fmt.Errorf("remote: %q is not a valid remote address", raw)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	return Address{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

func (a Address) String() string {
	if a.Key == "" {
		return fmt.Sprintf("%s://%s", a.Scheme, a.Bucket)
	}
	return fmt.Sprintf("%s://%s/%s", a.Scheme, a.Bucket, a.Key)
}

// Uploader materializes a remote resource to a local path (the
// equivalent of S3Resource.__call__'s lazy pull-and-cache) and pushes a
// local path back up (the equivalent of S3Resource.upload).
type Uploader interface {
	// Materialize downloads addr to a local file under workDir and
	// returns the local path, caching repeated calls the way
	// S3Resource.__call__ caches on self._cached.
	Materialize(ctx context.Context, addr Address, workDir string) (string, error)
	// Upload pushes the file at localPath up to addr.
	Upload(ctx context.Context, addr Address, localPath string) error
}

// unconfigured is the zero-value Uploader: every call fails with
// ErrNotConfigured rather than silently no-op'ing, so a pipeline that
// declares a remote output but never wires a backend fails loudly.
type unconfigured struct{}

func (unconfigured) Materialize(context.Context, Address, string) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) Upload(context.Context, Address, string) error {
	return ErrNotConfigured
}

// Default is the process-wide Uploader used when no backend has been
// wired in by the caller. Tests and real deployments replace it with
// SetDefault.
var Default Uploader = unconfigured{}

// SetDefault installs u as the process-wide Uploader.
func SetDefault(u Uploader) {
	Default = u
}
