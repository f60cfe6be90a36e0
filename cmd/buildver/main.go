// Command buildver prints the -ldflags value for release and make builds:
// the SemVer version for main.version and, when origin is a GitHub remote,
// the release repository used by the update check.
//
// Version format depends on git state:
//
//	No tags, clean:     0.0.0-dev+05ffee5
//	No tags, dirty:     0.0.0-dev+05ffee5.dirty
//	On tag v0.1.0:      0.1.0
//	Dirty tag:          0.1.0-dirty
//	3 past v0.1.0:      0.1.0-dev.3+g1234567
//	Same but dirty:     0.1.0-dev.3+g1234567.dirty
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"tools.zach/dev/shotd/internal/paths"
	"tools.zach/dev/shotd/internal/remote"
	"tools.zach/dev/shotd/internal/update"
)

// repoVar is the linker symbol holding the release repository.
const repoVar = "tools.zach/dev/shotd/internal/remote.ldRepo"

// gitFunc runs git with args and returns trimmed stdout.
type gitFunc func(args ...string) (string, error)

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

func main() {
	fmt.Print(ldflags(runGit, paths.ReleaseManifest))
}

// ldflags assembles the -X assignments for the current checkout.
func ldflags(git gitFunc, manifest string) string {
	flags := []string{"-X main.version=" + buildVersion(git, baseVersion(manifest))}
	if url, err := git("remote", "get-url", "origin"); err == nil {
		if src, ok := remote.Parse(url); ok {
			flags = append(flags, fmt.Sprintf("-X %s=%s/%s", repoVar, src.Owner, src.Repo))
		}
	}
	return strings.Join(flags, " ")
}

// buildVersion describes HEAD against v-prefixed tags, falling back to
// base-dev+<hash> when there are none.
func buildVersion(git gitFunc, base string) string {
	if desc, err := git("describe", "--tags", "--match", "v*", "--dirty"); err == nil {
		return formatTaggedVersion(desc)
	}

	hash, err := git("rev-parse", "--short=7", "HEAD")
	if err != nil || hash == "" {
		return base + "-dev"
	}
	if status, err := git("status", "--porcelain"); err == nil && status != "" {
		return fmt.Sprintf("%s-dev+%s.dirty", base, hash)
	}
	return fmt.Sprintf("%s-dev+%s", base, hash)
}

// formatTaggedVersion turns git describe output such as
// "v0.1.0-3-g1234567-dirty" into "0.1.0-dev.3+g1234567.dirty".
func formatTaggedVersion(desc string) string {
	dirty := strings.HasSuffix(desc, "-dirty")
	clean := strings.TrimPrefix(strings.TrimSuffix(desc, "-dirty"), "v")

	// <tag>-<N>-g<hash>
	if rest, hash, ok := cutLast(clean, "-"); ok && strings.HasPrefix(hash, "g") {
		if tag, n, ok := cutLast(rest, "-"); ok && isDigits(n) {
			if dirty {
				hash += ".dirty"
			}
			return fmt.Sprintf("%s-dev.%s+%s", tag, n, hash)
		}
	}

	if dirty {
		return clean + "-dirty"
	}
	return clean
}

func cutLast(s, sep string) (before, after string, ok bool) {
	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// baseVersion reads the root version from the release manifest at path, or
// "0.0.0" when it is missing or has no root entry.
func baseVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "0.0.0"
	}
	if v, err := update.ParseManifest(data); err == nil && v != "" {
		return v
	}
	return "0.0.0"
}
