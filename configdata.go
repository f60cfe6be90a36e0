// Package shotd embeds the annotated default configuration.
//
// config.default.toml is generated by cmd/genconfig; `shotd config init`
// writes it to the data directory.
package shotd

import _ "embed"

// DefaultConfigTOML holds config.default.toml.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
