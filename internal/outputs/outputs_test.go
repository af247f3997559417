package outputs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiome-lab/radiome/internal/resourcekey"
)

func mustKey(t *testing.T, raw string) resourcekey.Key {
	t.Helper()
	k, err := resourcekey.New(raw)
	require.NoError(t, err, "resourcekey.New(%q)", raw)
	return k
}

func TestLayoutFoldsSubjectAndSession(t *testing.T) {
	key := mustKey(t, "sub-001_ses-01_T1w")
	got := Layout("anat-preproc", key, "nii.gz")
	assert.Equal(t, "derivatives/anat-preproc/sub-001/ses-01/anat/sub-001_ses-01_T1w.nii.gz", got)
}

func TestLayoutOmitsAbsentParticipantFolders(t *testing.T) {
	key := mustKey(t, "mask")
	got := Layout("group-level", key, "nii.gz")
	assert.Equal(t, "derivatives/group-level/mask/mask.nii.gz", got)
}

func TestLayoutCategorizesBySuffix(t *testing.T) {
	cases := map[string]string{
		"sub-001_T1w":  "anat",
		"sub-001_mask": "mask",
		"sub-001_bold": "func",
	}
	for raw, wantCategory := range cases {
		key := mustKey(t, raw)
		got := Layout("p", key, "nii.gz")
		want := "derivatives/p/sub-001/" + wantCategory + "/" + raw + ".nii.gz"
		assert.Equal(t, want, got, "Layout(%q)", raw)
	}
}

func TestLocalTargetHasNoRemote(t *testing.T) {
	target := Local("/tmp/out")
	assert.Equal(t, "/tmp/out", target.Path)
	assert.Nil(t, target.Remote)
}
