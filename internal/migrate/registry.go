package migrate

import "fmt"

// Registry is the migration history of one document type.
type Registry struct {
	// CurrentVersion is the schema version new documents are written at. It
	// follows the highest registered migration.
	CurrentVersion int
	// Migrations is exported so tests can swap the history.
	Migrations []Migration
}

// Register adds m. Registering the same version twice panics.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
	if m.Version > r.CurrentVersion {
		r.CurrentVersion = m.Version
	}
}

// NeedsMigration reports whether a document at fileVersion must be upgraded.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	return NeedsMigration(fileVersion, r.CurrentVersion, r.Migrations)
}

// Run upgrades data from fromVersion using the registered migrations.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	return Run(data, fromVersion, r.Migrations)
}

// Config is the registry for config.toml. Its migrations are registered by
// the config package.
var Config = &Registry{CurrentVersion: 1}
