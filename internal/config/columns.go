package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// columnsFile maps resource names to their saved column layout.
type columnsFile struct {
	Resources map[string][]grid.ColumnState `yaml:"resources"`
}

func readColumnsFile(path string) (columnsFile, error) {
	var f columnsFile
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read columns file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode columns file %s: %w", path, err)
	}
	return f, nil
}

// LoadColumnStates returns the saved layout of resource. A missing file or
// resource yields nil.
func LoadColumnStates(path, resource string) ([]grid.ColumnState, error) {
	f, err := readColumnsFile(path)
	if err != nil {
		return nil, err
	}
	return f.Resources[resource], nil
}

// SaveColumnStates stores the layout of resource, keeping other resources.
func SaveColumnStates(path, resource string, states []grid.ColumnState) error {
	f, err := readColumnsFile(path)
	if err != nil {
		return err
	}
	if f.Resources == nil {
		f.Resources = make(map[string][]grid.ColumnState)
	}
	f.Resources[resource] = states
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode columns file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create columns dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write columns file: %w", err)
	}
	return nil
}
