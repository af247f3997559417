package remote

import (
	"context"

	"github.com/radiome-lab/radiome/internal/resourcepool"
)

// PoolMaterializer adapts an Uploader to resourcepool.Materializer, the
// narrower single-method seam resourcepool.File.Resolve calls through -
// the concrete wiring the resourcepool package's own grounding entry
// defers to this package.
type PoolMaterializer struct {
	Uploader Uploader
	WorkDir  string
}

// Materialize implements resourcepool.Materializer by parsing remotePath
// as a remote.Address and delegating to Uploader.Materialize.
func (m PoolMaterializer) Materialize(remotePath string) (string, error) {
	addr, err := ParseAddress(remotePath)
	if err != nil {
		return "", err
	}
	return m.Uploader.Materialize(context.Background(), addr, m.WorkDir)
}

var _ resourcepool.Materializer = PoolMaterializer{}
