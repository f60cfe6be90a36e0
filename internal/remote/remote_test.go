package remote

import (
	"testing"
)

// ///////////////////////////////////////////////
// Parse / Default Tests
// ///////////////////////////////////////////////

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		want   Source
		wantOK bool
	}{
		{"owner/repo", Source{"owner", "repo", "main"}, true},
		{"https://github.com/my-org/shotd.git", Source{"my-org", "shotd", "main"}, true},
		{"git@github.com:me/shotd", Source{"me", "shotd", "main"}, true},
		{"git@github.com:my-org/my-project.git", Source{"my-org", "my-project", "main"}, true},
		{"https://github.com/user/repo", Source{"user", "repo", "main"}, true},
		{"git@gitlab.com:user/repo.git", Source{}, false},
		{"https://bitbucket.org/user/repo", Source{}, false},
		{"github.com", Source{}, false},
		{"  owner/repo\n", Source{"owner", "repo", "main"}, true},
		{"https://gitlab.com/a/b", Source{}, false},
		{"just-a-name", Source{}, false},
		{"", Source{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Parse(%q) = %+v, %v; want %+v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	orig := ldRepo
	t.Cleanup(func() { ldRepo = orig })

	ldRepo = ""
	t.Setenv(EnvRepo, "")
	if _, ok := Default(); ok {
		t.Error("Default() ok with nothing configured")
	}

	ldRepo = "built/in"
	if s, ok := Default(); !ok || s.Owner != "built" || s.Repo != "in" {
		t.Errorf("Default() = %+v, %v; want ldflags repo", s, ok)
	}

	t.Setenv(EnvRepo, "env/wins")
	if s, ok := Default(); !ok || s.Owner != "env" {
		t.Errorf("Default() = %+v, %v; want env repo", s, ok)
	}
}

// ///////////////////////////////////////////////
// RawURL Tests
// ///////////////////////////////////////////////

func TestRawURL(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		path string
		want string
	}{
		{"main branch", Source{"o", "r", "main"}, ".release-manifest.json", "https://raw.githubusercontent.com/o/r/main/.release-manifest.json"},
		{"default branch", Source{Owner: "o", Repo: "r"}, "a/b", "https://raw.githubusercontent.com/o/r/main/a/b"},
		{"leading slash", Source{"o", "r", "dev"}, "/x", "https://raw.githubusercontent.com/o/r/dev/x"},
		{"owner only", Source{Owner: "o"}, "x", ""},
		{"repo only", Source{Repo: "r"}, "x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.RawURL(tt.path); got != tt.want {
				t.Errorf("RawURL = %q, want %q", got, tt.want)
			}
		})
	}
}
