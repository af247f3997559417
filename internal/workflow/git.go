package workflow

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// gitScheme is the locator prefix a pipeline step's `run:` value uses to
// name a github-hosted workflow, mirroring loader.py's "gh://" prefix
// (e.g. "gh://my-org/my-workflow").
const gitScheme = "gh://"

func isGitLocator(ref string) bool {
	return strings.HasPrefix(strings.ToLower(ref), gitScheme)
}

// LoadGit resolves a "gh://org/repo" locator by shelling out to the
// system git binary to clone it into a scratch directory, mirroring
// _resolve_git's GitPython Repo.clone_from. No git-clone library
// appears anywhere in the retrieved corpus, so this shells out to the
// git binary itself rather than vendoring one.
func LoadGit(ref string) (string, error) {
	if !isGitLocator(ref) {
		return "", fmt.Errorf("workflow: %q is not a valid %s locator", ref, gitScheme)
	}
	parsed, err := url.Parse(strings.ToLower(ref))
	if err != nil {
		return "", fmt.Errorf("workflow: cannot parse git locator %q: %w", ref, err)
	}
	org, repo := parsed.Host, strings.TrimPrefix(parsed.Path, "/")
	if org == "" || repo == "" {
		return "", fmt.Errorf("workflow: %q is not a valid %s locator", ref, gitScheme)
	}
	gitURL := fmt.Sprintf("https://github.com/%s/%s.git", org, repo)

	dest, err := os.MkdirTemp("", "radiome-workflow-"+uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("workflow: cannot create scratch dir for %q: %w", ref, err)
	}

	cmd := exec.Command("git", "clone", "--depth", "1", gitURL, dest)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("workflow: git clone of %s failed: %w: %s", gitURL, err, out)
	}
	return dest, nil
}
