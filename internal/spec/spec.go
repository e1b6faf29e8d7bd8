// Package spec loads skill specification documents and provides the
// structure and quality validation layers over them.
package spec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AiCoda/skill-spec/internal/types"
)

// Load decodes a specification document from YAML.
func Load(content []byte) (types.Document, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode spec: document is empty")
	}
	return doc, nil
}

// LoadFile reads and decodes a specification file.
func LoadFile(path string) (types.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	return Load(content)
}

// Name returns the declared skill name, or empty.
func Name(doc types.Document) string {
	if skill, ok := doc["skill"].(map[string]any); ok {
		if name, ok := skill["name"].(string); ok {
			return name
		}
	}
	return ""
}

// Version returns the declared skill version, or empty.
func Version(doc types.Document) string {
	if skill, ok := doc["skill"].(map[string]any); ok {
		if version, ok := skill["version"].(string); ok {
			return version
		}
	}
	return ""
}
