package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc documents one config key in the generated config.default.toml.
type FieldDoc struct {
	// Comment is written above the key.
	Comment string
	// Alternatives are written as commented-out lines below the key.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps dotted TOML paths (e.g. "watch.debounce_ms") and section
// names (e.g. "watch") to their documentation. cmd/genconfig reads it.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Watch ────────────────────────────────────────────────────
	"watch": {
		Comment: "Which directory is watched and which files count as screenshots.",
	},
	"watch.dir": {
		Comment: "Directory to watch (not recursive). A leading ~ expands to your home.\nLeave empty for the OS default: ~/Desktop on macOS, ~/Pictures/Screenshots elsewhere.",
		Alternatives: []string{
			`dir = "~/Desktop"`,
		},
	},
	"watch.debounce_ms": {
		Comment: "A new file is reported once it has been quiet for this long (milliseconds).\nRaise it if your screenshot tool writes large files slowly.",
	},
	"watch.include": {
		Comment: "Glob patterns matched against the file name. Empty accepts every file.",
	},
	"watch.ignore": {
		Comment: "Glob patterns for files that are never reported. Ignore wins over include.",
	},
	"watch.force_polling": {
		Comment: "Scan the directory periodically instead of using OS file notifications.\nPolling is also used automatically when notifications are unavailable.",
	},
	"watch.poll_interval_ms": {
		Comment: "Scan interval when polling (milliseconds).",
	},

	// ── Action ───────────────────────────────────────────────────
	"action": {
		Comment: "What to do with each new screenshot.",
	},
	"action.kind": {
		Comment: "Options: \"log\", \"move\", \"exec\", \"upload\"\n  log:    write the path and size to the log\n  move:   archive into [action.move] dir\n  exec:   run [action.exec] command with the path as last argument\n  upload: POST the file to [action.upload] url\nEvery kind other than log also logs the screenshot first.",
		Alternatives: []string{
			`kind = "move"`,
			`kind = "exec"`,
			`kind = "upload"`,
		},
	},
	"action.move.dir": {
		Comment: "Archive directory, created if missing. Name clashes get a \" (n)\" suffix.",
	},
	"action.move.date_subdirs": {
		Comment: "File screenshots under YYYY-MM-DD subdirectories.",
	},
	"action.exec.command": {
		Comment: "Program and arguments. The screenshot path is appended and also\nexported as SHOTD_PATH.",
	},
	"action.exec.timeout_seconds": {
		Comment: "Kill the command after this many seconds.",
	},
	"action.upload.url": {
		Comment: "Endpoint receiving a multipart/form-data POST per screenshot.",
	},
	"action.upload.field": {
		Comment: "Form field holding the file.",
	},
	"action.upload.headers": {
		Comment: "Extra request headers.",
		Alternatives: []string{
			`[action.upload.headers]`,
			`Authorization = "Bearer <token>"`,
		},
	},
	"action.upload.timeout_seconds": {
		Comment: "Per-attempt timeout in seconds.",
	},
	"action.upload.retry_max": {
		Comment: "Retries after the first attempt on connection errors, 429 and 5xx.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
	"log.console": {
		Comment: "Also write log lines to stderr. Options: \"auto\", \"always\", \"never\"\n  auto: only when stderr is a terminal",
		Alternatives: []string{
			`console = "always"`,
			`console = "never"`,
		},
	},

	// ── Update ───────────────────────────────────────────────────
	"update": {
		Comment: "Release checks",
	},
	"update.check": {
		Comment: "Log a notice at startup when a newer release is available.",
	},
}
