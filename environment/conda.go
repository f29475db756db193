package environment

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// condaSpec mirrors the conda environment file layout: dependencies are a
// mix of plain package strings and a nested {pip: [...]} block.
type condaSpec struct {
	Name         string        `yaml:"name"`
	Channels     []string      `yaml:"channels"`
	Dependencies []interface{} `yaml:"dependencies"`
}

// ParseCondaSpec reads a conda environment YAML and converts it into the
// python section of an environment descriptor.
func ParseCondaSpec(r io.Reader) (PythonSection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return PythonSection{}, fmt.Errorf("error reading conda spec: %w", err)
	}

	var spec condaSpec
	err = yaml.Unmarshal(data, &spec)
	if err != nil {
		return PythonSection{}, fmt.Errorf("error parsing conda spec: %w", err)
	}

	python := PythonSection{CondaChannels: spec.Channels}

	for _, dep := range spec.Dependencies {
		switch value := dep.(type) {
		case string:
			python.CondaPackages = append(python.CondaPackages, value)
		case map[string]interface{}:
			pips, ok := value["pip"].([]interface{})
			if !ok {
				return PythonSection{}, fmt.Errorf("invalid conda spec: non-list pip block")
			}
			for _, pip := range pips {
				pkg, ok := pip.(string)
				if !ok {
					return PythonSection{}, fmt.Errorf("invalid conda spec: non-string pip dependency %v", pip)
				}
				python.PipPackages = append(python.PipPackages, pkg)
			}
		default:
			return PythonSection{}, fmt.Errorf("invalid conda spec: unrecognized dependency entry %v", dep)
		}
	}

	return python, nil
}

func LoadCondaSpec(path string) (PythonSection, error) {
	file, err := os.Open(path)
	if err != nil {
		return PythonSection{}, fmt.Errorf("error opening conda spec %v: %w", path, err)
	}
	defer file.Close()

	return ParseCondaSpec(file)
}
