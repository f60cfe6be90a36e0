package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
)

// leftovers returns directory entries that look like temp files.
func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var out []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		data     string
	}{
		{"new file", "", "hello world"},
		{"overwrite", "old content that is longer", "new"},
		{"empty", "something", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			if tt.existing != "" {
				os.WriteFile(path, []byte(tt.existing), 0o644)
			}

			if err := Write(path, []byte(tt.data), 0o644); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("content = %q, want %q", got, tt.data)
			}
			if left := leftovers(t, dir); len(left) > 0 {
				t.Errorf("temp files left: %v", left)
			}
		})
	}
}

func TestWritePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Unix permission bits")
	}
	path := filepath.Join(t.TempDir(), "secret")
	if err := Write(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, _ := os.Stat(path)
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("perm = %o, want 600", got)
	}
}

func TestWriteConcurrentDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	const n = 16

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := filepath.Join(dir, string(rune('a'+i))+".png")
			if err := Write(name, []byte{byte(i)}, 0o644); err != nil {
				t.Errorf("Write %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	for i := range n {
		got, err := os.ReadFile(filepath.Join(dir, string(rune('a'+i))+".png"))
		if err != nil || len(got) != 1 || got[0] != byte(i) {
			t.Errorf("file %d = %v, %v", i, got, err)
		}
	}
}

func TestWriteFromReaderFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	os.WriteFile(path, []byte("original"), 0o644)

	boom := errors.New("disk gone")
	err := WriteFrom(path, iotest.ErrReader(boom), 0o644)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if got, _ := os.ReadFile(path); string(got) != "original" {
		t.Errorf("target changed to %q after failed write", got)
	}
	if left := leftovers(t, dir); len(left) > 0 {
		t.Errorf("temp files left: %v", left)
	}
}

func TestWriteMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "a.png")
	if err := Write(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	os.WriteFile(src, []byte("pixels"), 0o640)
	dst := filepath.Join(dir, "dst.png")

	if err := Copy(src, dst); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "pixels" {
		t.Errorf("dst = %q", got)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("Copy removed src: %v", err)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(dst)
		if info.Mode().Perm() != 0o640 {
			t.Errorf("perm = %o, want 640", info.Mode().Perm())
		}
	}
}

func TestCopyErrors(t *testing.T) {
	dir := t.TempDir()
	if err := Copy(filepath.Join(dir, "missing"), filepath.Join(dir, "out")); err == nil {
		t.Error("expected error for missing source")
	}
	if err := Copy(dir, filepath.Join(dir, "out")); err == nil {
		t.Error("expected error for directory source")
	}
}
