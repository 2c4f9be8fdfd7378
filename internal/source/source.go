// Package source resolves a manifest reference to a readable file. A
// reference is either a local path, used as-is, or a git URL, in which
// case the repository is cloned shallowly and the manifest read from the
// work tree. A fragment selects the file within the repository:
//
//	https://example.com/home-config.git#manifests/hubsync.yaml
//
// Without a fragment the repository root's hubsync.yaml is used.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// DefaultManifestName is the manifest file looked up in a cloned
// repository when the reference carries no fragment.
const DefaultManifestName = "hubsync.yaml"

// IsGit reports whether the reference names a git repository rather than
// a local file.
func IsGit(ref string) bool {
	repo, _ := splitRef(ref)
	if strings.HasPrefix(repo, "git@") || strings.HasPrefix(repo, "git://") || strings.HasPrefix(repo, "ssh://") {
		return true
	}
	if strings.HasPrefix(repo, "http://") || strings.HasPrefix(repo, "https://") {
		return strings.HasSuffix(repo, ".git")
	}
	return false
}

// Fetch resolves ref to a local manifest path. The returned cleanup
// releases any temporary clone and is never nil.
func Fetch(ctx context.Context, ref string) (string, func(), error) {
	if !IsGit(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", func() {}, fmt.Errorf("manifest %s: %w", ref, err)
		}
		return ref, func() {}, nil
	}

	repo, sub := splitRef(ref)
	if sub == "" {
		sub = DefaultManifestName
	}

	dir, err := os.MkdirTemp("", "hubsync-manifest-")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create clone directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) } //nolint:errcheck

	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          repo,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("failed to clone %s: %w", repo, err)
	}

	path := filepath.Join(dir, filepath.FromSlash(sub))
	if !strings.HasPrefix(path, dir+string(os.PathSeparator)) {
		cleanup()
		return "", func() {}, fmt.Errorf("manifest path %q escapes the repository", sub)
	}
	if _, err := os.Stat(path); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("manifest %s not found in %s: %w", sub, repo, err)
	}

	return path, cleanup, nil
}

func splitRef(ref string) (repo, sub string) {
	if idx := strings.IndexByte(ref, '#'); idx >= 0 {
		return ref[:idx], ref[idx+1:]
	}
	return ref, ""
}
