// Package agentdef holds the declarative identity of the hosted chat agent.
//
// A Definition is data only. Whether a name is acceptable or a model id exists
// is decided by the runtime that hosts the agent, so Load only reports
// documents that cannot be decoded.
package agentdef

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed image_agent.yaml
var defaultDocument []byte

// Definition describes one hosted agent.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Model       string `yaml:"model" json:"model"`
	Description string `yaml:"description" json:"description"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

// Default returns the built-in image_agent definition.
func Default() Definition {
	def, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded agent definition: %v", err))
	}
	return def
}

// Load reads a definition from path, or returns Default when path is empty.
func Load(path string) (Definition, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read agent definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("decode agent definition: %w", err)
	}
	return def, nil
}
