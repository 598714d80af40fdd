package rbac

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed matrix.yaml
var defaultMatrix []byte

// MatrixSource loads unresolved role definitions.
type MatrixSource interface {
	Load(ctx context.Context) ([]RoleDefinition, error)
}

type matrixFile struct {
	Roles []RoleDefinition `yaml:"roles"`
}

// YAMLSource reads role definitions from a YAML document. With an empty path
// it serves the matrix bundled with the binary.
type YAMLSource struct {
	Path string
}

// Load parses the YAML document.
func (s YAMLSource) Load(ctx context.Context) ([]RoleDefinition, error) {
	data := defaultMatrix
	if s.Path != "" {
		raw, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("rbac: reading matrix file %s: %w", s.Path, err)
		}
		data = raw
	}
	return ParseMatrixYAML(data)
}

// ParseMatrixYAML decodes a matrix document.
func ParseMatrixYAML(data []byte) ([]RoleDefinition, error) {
	var f matrixFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rbac: parsing matrix: %w", err)
	}
	return f.Roles, nil
}

// DefaultMatrix builds the bundled matrix. It panics if the bundled document
// is invalid, which the package tests rule out.
func DefaultMatrix() *Matrix {
	defs, err := ParseMatrixYAML(defaultMatrix)
	if err != nil {
		panic(err)
	}
	m, err := BuildMatrix(defs)
	if err != nil {
		panic(err)
	}
	return m
}
