// Package resourcepool implements the keyed container of resources
// (ResourcePool) and the resource value abstraction (Resource) that
// sub-workflows read from and write job outputs into.
package resourcepool

import (
	"fmt"

	"github.com/radiome-lab/radiome/internal/hashing"
)

// Resource is an opaque handle to a value addressed by a ResourceKey in
// a Pool. All concrete variants are immutable once constructed: literal
// (a concrete value), file (a path-like handle, possibly remote), and
// invalid (a tombstone carrying a failure cause). The fourth variant,
// computed, is implemented by internal/job.ComputedResource, which also
// satisfies this interface so the pool can hold promises for job
// outputs without resourcepool needing to know about jobs.
type Resource interface {
	hashing.Hashable

	// Dependencies returns named per-field dependencies that Resolve
	// needs the resolved value of. Literal, file, and invalid resources
	// have none. A computed resource depends on the job that produces
	// it, keyed by a fixed field name ("state").
	Dependencies() map[string]Resource

	// Resolve computes the resource's runtime value given the resolved
	// values of Dependencies (keyed the same way).
	Resolve(deps map[string]any) (any, error)
}

// Literal carries a concrete value: a string, number, or arbitrary Go
// value supplied by pool-load time or a sub-workflow.
type Literal struct {
	hashing.Memo
	Value any
}

// NewLiteral wraps v in a Literal resource.
func NewLiteral(v any) *Literal { return &Literal{Value: v} }

func (l *Literal) HashContent() any                    { return []any{l.Value} }
func (l *Literal) Dependencies() map[string]Resource    { return nil }
func (l *Literal) Resolve(map[string]any) (any, error)  { return l.Value, nil }
func (l *Literal) String() string                       { return fmt.Sprintf("Literal(%v)", l.Value) }

// AsResource wraps v into a Resource if it is not already one - the Go
// equivalent of the implicit literal-wrapping convenience constructors
// described in the job-binding contract.
func AsResource(v any) Resource {
	if r, ok := v.(Resource); ok {
		return r
	}
	return NewLiteral(v)
}

// Materializer downloads (or otherwise makes locally available) the
// content of a remote file resource, returning the local path. It is
// the single seam through which external storage (S3, etc.) is
// injected - credential handling and transfer mechanics are an explicit
// out-of-scope external collaborator (see internal/remote).
type Materializer interface {
	Materialize(remotePath string) (localPath string, err error)
}

// File is a path-like handle that may require on-demand materialization
// from a remote store before it can be read.
type File struct {
	hashing.Memo
	Path         string
	Materializer Materializer // nil for already-local files

	cachedLocal string
}

// NewFile wraps a local path in a File resource.
func NewFile(path string) *File { return &File{Path: path} }

// NewRemoteFile wraps a remote path together with the Materializer that
// can fetch it on demand.
func NewRemoteFile(path string, m Materializer) *File {
	return &File{Path: path, Materializer: m}
}

func (f *File) HashContent() any                 { return []any{f.Path} }
func (f *File) Dependencies() map[string]Resource { return nil }
func (f *File) String() string                   { return fmt.Sprintf("File(%s)", f.Path) }

func (f *File) Resolve(map[string]any) (any, error) {
	if f.Materializer == nil {
		return f.Path, nil
	}
	if f.cachedLocal != "" {
		return f.cachedLocal, nil
	}
	local, err := f.Materializer.Materialize(f.Path)
	if err != nil {
		return nil, fmt.Errorf("resourcepool: materializing %q: %w", f.Path, err)
	}
	f.cachedLocal = local
	return local, nil
}

// Invalid is a tombstone carrying the failure cause that produced it -
// returned by the gatherer in place of a missing or failed computed
// resource.
type Invalid struct {
	hashing.Memo
	Cause error
	Of    Resource // the resource that failed to resolve, if known
}

// NewInvalid wraps cause as an Invalid resource.
func NewInvalid(of Resource, cause error) *Invalid {
	return &Invalid{Cause: cause, Of: of}
}

func (i *Invalid) HashContent() any {
	var ofHash any
	if i.Of != nil {
		ofHash = hashing.Hash(i.Of.HashContent())
	}
	msg := ""
	if i.Cause != nil {
		msg = i.Cause.Error()
	}
	return []any{ofHash, msg}
}

func (i *Invalid) Dependencies() map[string]Resource { return nil }
func (i *Invalid) String() string                    { return fmt.Sprintf("Invalid(%v)", i.Cause) }

func (i *Invalid) Resolve(map[string]any) (any, error) {
	return nil, i.Cause
}
