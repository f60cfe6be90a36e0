// Package remote locates the GitHub repository that publishes shotd
// releases.
//
// The repository is baked in at build time:
//
//	-X tools.zach/dev/shotd/internal/remote.ldRepo=owner/repo
//
// and can be overridden at run time with SHOTD_RELEASE_REPO.
package remote

import (
	"os"
	"regexp"
	"strings"
)

// EnvRepo overrides the build-time repository.
const EnvRepo = "SHOTD_RELEASE_REPO"

var ldRepo string

// githubRemoteRe extracts owner and repo from GitHub HTTPS and SSH URLs.
var githubRemoteRe = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)`)

// shortRe matches the bare "owner/repo" form.
var shortRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_-]+)$`)

// Source is a GitHub repository and branch.
type Source struct {
	Owner  string
	Repo   string
	Branch string
}

// Parse accepts "owner/repo", https://github.com/owner/repo(.git) and
// git@github.com:owner/repo(.git). Branch defaults to main.
func Parse(s string) (Source, bool) {
	s = strings.TrimSpace(s)
	m := shortRe.FindStringSubmatch(s)
	if m == nil {
		m = githubRemoteRe.FindStringSubmatch(s)
	}
	if len(m) != 3 {
		return Source{}, false
	}
	return Source{Owner: m[1], Repo: m[2], Branch: "main"}, true
}

// Default returns the release repository from the environment or build
// flags. ok is false when neither names one.
func Default() (Source, bool) {
	if v := os.Getenv(EnvRepo); v != "" {
		return Parse(v)
	}
	if ldRepo != "" {
		return Parse(ldRepo)
	}
	return Source{}, false
}

// RawURL returns the raw.githubusercontent.com URL of path, or "" when the
// source is incomplete.
func (s Source) RawURL(path string) string {
	if s.Owner == "" || s.Repo == "" {
		return ""
	}
	branch := s.Branch
	if branch == "" {
		branch = "main"
	}
	return "https://raw.githubusercontent.com/" + s.Owner + "/" + s.Repo + "/" + branch + "/" + strings.TrimPrefix(path, "/")
}
