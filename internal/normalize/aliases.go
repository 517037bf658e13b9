package normalize

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliasData []byte

// AliasTable is the versioned synonym asset injected into a Normalizer.
type AliasTable struct {
	Version     string            `yaml:"version"`
	Descriptors []string          `yaml:"descriptors"`
	Aliases     map[string]string `yaml:"aliases"`
}

// DefaultAliasTable returns the alias table compiled into the binary.
func DefaultAliasTable() (*AliasTable, error) {
	return ParseAliasTable(defaultAliasData)
}

// LoadAliasTable reads an alias table from a YAML file.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table: %w", err)
	}
	return ParseAliasTable(data)
}

// ParseAliasTable decodes a YAML alias table.
func ParseAliasTable(data []byte) (*AliasTable, error) {
	var table AliasTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}
	if table.Version == "" {
		return nil, fmt.Errorf("alias table has no version")
	}
	if table.Aliases == nil {
		table.Aliases = map[string]string{}
	}
	return &table, nil
}
