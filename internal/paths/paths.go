// Package paths centralizes file and directory names used across the project.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile    = "shotd.pid"
	ConfigFile = "config.toml"
	LogFile    = "shotd.log"
)

const (
	BinaryName = "shotd"
	DataDirRel = ".shotd" // relative to $HOME
)

// ReleaseManifest is fetched from the repository root by the update check.
const ReleaseManifest = ".release-manifest.json"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Default returns the DataDir under the user's home directory.
func Default() (DataDir, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return DataDir{Root: filepath.Join(home, DataDirRel)}, nil
}

// Ensure creates the data directory if it does not exist.
func (d DataDir) Ensure() error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (d DataDir) PID() string    { return filepath.Join(d.Root, PIDFile) }
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }
func (d DataDir) Log() string    { return filepath.Join(d.Root, LogFile) }

// ConfigBackup is where the config is copied before a schema migration.
func (d DataDir) ConfigBackup() string { return d.Config() + ".bak" }
