package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pipeforge/jobmon/pkg/wildcards"
)

// Load reads, substitutes, and validates a manifest from the given path.
//
// The file format is determined by extension: .yaml/.yml for YAML,
// .json for JSON. If the extension is unrecognized, YAML is attempted
// first, then JSON.
//
// Before typed parsing, the manifest's `wildcards` map is applied over
// the whole document, so any string field may reference {name}
// placeholders (including nested-scope bindings via {name} keys).
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", path)
		}
		return nil, fmt.Errorf("read manifest file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a manifest from raw bytes. The
// path parameter is used for error messages and format detection.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(data) == 0 {
		return nil, errors.New("manifest file is empty")
	}

	node, err := parseGeneric(data, path)
	if err != nil {
		return nil, err
	}
	node = substituteWildcards(node)

	// Round-trip through YAML so the substituted generic form feeds
	// the typed struct regardless of the source format.
	substituted, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("re-encode manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(substituted, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// parseGeneric decodes the manifest into a generic node based on the
// file extension.
func parseGeneric(data []byte, path string) (any, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		var node any
		if err := json.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("invalid JSON in manifest: %w", err)
		}
		return node, nil
	case ".yaml", ".yml":
		return parseYAMLGeneric(data)
	default:
		// Unknown extension: try YAML first (more permissive), then JSON.
		node, yamlErr := parseYAMLGeneric(data)
		if yamlErr == nil {
			return node, nil
		}
		var jsonNode any
		if jsonErr := json.Unmarshal(data, &jsonNode); jsonErr == nil {
			return jsonNode, nil
		}
		return nil, fmt.Errorf("parse manifest (tried YAML and JSON): %w", yamlErr)
	}
}

func parseYAMLGeneric(data []byte) (any, error) {
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid YAML in manifest: %w", err)
	}
	return node, nil
}

// substituteWildcards applies the document's top-level `wildcards` map
// over the whole node. Missing-placeholder values pass through
// unchanged, per the wildcards package contract.
func substituteWildcards(node any) any {
	root, ok := node.(map[string]any)
	if !ok {
		return node
	}
	scope := map[string]string{}
	if wc, ok := root["wildcards"].(map[string]any); ok {
		for k, v := range wc {
			if s, ok := v.(string); ok {
				scope[k] = s
			}
		}
	}
	if len(scope) == 0 {
		return node
	}
	return wildcards.Apply(node, scope)
}
