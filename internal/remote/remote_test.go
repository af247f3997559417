package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("s3://my-bucket/derivatives/sub-001_T1w.nii.gz")
	require.NoError(t, err)
	assert.Equal(t, "s3", addr.Scheme)
	assert.Equal(t, "my-bucket", addr.Bucket)
	assert.Equal(t, "derivatives/sub-001_T1w.nii.gz", addr.Key)
	assert.Equal(t, "s3://my-bucket/derivatives/sub-001_T1w.nii.gz", addr.String())
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	_, err := ParseAddress("not-a-remote-address")
	assert.Error(t, err, "expected an error for a malformed address")
}

func TestDefaultUploaderIsNotConfigured(t *testing.T) {
	ctx := context.Background()
	addr, _ := ParseAddress("s3://bucket/key")

	_, err := Default.Materialize(ctx, addr, t.TempDir())
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = Default.Upload(ctx, addr, "/tmp/does-not-matter")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
