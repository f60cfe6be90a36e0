package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/shotd/internal/config"
)

// ///////////////////////////////////////////////
// Section Names
// ///////////////////////////////////////////////

func TestSectionPath(t *testing.T) {
	tests := []struct {
		section  string
		wantPath []string
		wantName string
	}{
		{"watch", []string{"watch"}, "Watch"},
		{"action.move", []string{"action", "move"}, "Move"},
		{"action.upload.headers", []string{"action", "upload", "headers"}, "Headers"},
		{"Log", []string{"Log"}, "Log"},
		{"", []string{""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			if got := parseSectionPath(tt.section); !reflect.DeepEqual(got, tt.wantPath) {
				t.Errorf("parseSectionPath(%q) = %q, want %q", tt.section, got, tt.wantPath)
			}
			if got := sectionName(tt.section); got != tt.wantName {
				t.Errorf("sectionName(%q) = %q, want %q", tt.section, got, tt.wantName)
			}
		})
	}
}

// ///////////////////////////////////////////////
// injectOmitted Tests
// ///////////////////////////////////////////////

func TestInjectOmittedOutsideSection(t *testing.T) {
	var out []string
	injectOmitted(&out, nil, map[string]bool{})
	if len(out) != 0 {
		t.Errorf("injected %d lines outside any section", len(out))
	}
}

func TestInjectOmittedAddsSkippedKeys(t *testing.T) {
	out := []string{}
	emitted := map[string]bool{"action.upload.url": true}
	injectOmitted(&out, []string{"action", "upload"}, emitted)

	joined := strings.Join(out, "\n")
	if !strings.Contains(joined, "# [action.upload.headers]") {
		t.Errorf("headers docs not injected:\n%s", joined)
	}
	if strings.Contains(joined, "Endpoint receiving") {
		t.Errorf("already emitted key injected again:\n%s", joined)
	}
	if !emitted["action.upload.headers"] {
		t.Error("injected key not marked emitted")
	}
}

// ///////////////////////////////////////////////
// render Tests
// ///////////////////////////////////////////////

func TestRenderRoundTrips(t *testing.T) {
	cfg := config.ExampleConfig()
	out, err := render(cfg)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	got := config.DefaultConfig()
	if _, err := toml.Decode(out, got); err != nil {
		t.Fatalf("rendered config does not parse: %v\n%s", err, out)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("rendered config decodes differently:\n got %+v\nwant %+v", got, cfg)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("rendered config invalid: %v", err)
	}
}

func TestRenderAnnotates(t *testing.T) {
	out, err := render(config.ExampleConfig())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"# shotd Configuration",
		"# ///// Watch /////",
		"# ///// Move /////",
		"# Options: \"log\", \"move\", \"exec\", \"upload\"",
		"# kind = \"move\"",
		"# Authorization = \"Bearer <token>\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
}
