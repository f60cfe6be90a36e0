package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/shotd/internal/migrate"
)

func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "rename [handler] type to [action] kind",
		Upgrade:     renameHandlerSection,
	})
}

// renameHandlerSection moves the v1 [handler] table to [action], renaming
// its "type" key to "kind". An existing [action] table wins.
func renameHandlerSection(data []byte) ([]byte, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse v1 config: %w", err)
	}

	if handler, ok := doc["handler"].(map[string]any); ok {
		if _, exists := doc["action"]; !exists {
			if kind, ok := handler["type"]; ok {
				handler["kind"] = kind
				delete(handler, "type")
			}
			doc["action"] = handler
		}
		delete(doc, "handler")
	}
	doc["version"] = 2

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode v2 config: %w", err)
	}
	return buf.Bytes(), nil
}
