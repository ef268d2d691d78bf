package blocktype

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type registryFile struct {
	Name     string `yaml:"name"`
	IDLimit  int    `yaml:"id_limit"`
	Fallback struct {
		ID   uint16 `yaml:"id"`
		Data uint8  `yaml:"data"`
	} `yaml:"fallback"`
	Types []struct {
		ID         uint16           `yaml:"id"`
		Name       string           `yaml:"name"`
		Brightness uint8            `yaml:"brightness"`
		Opacity    uint8            `yaml:"opacity"`
		Variants   map[uint8]string `yaml:"variants"`
	} `yaml:"types"`
}

// ReadRegistry decodes a registry from YAML:
//
//	name: pc
//	id_limit: 4096
//	fallback: {id: 0, data: 0}
//	types:
//	  - {id: 1, name: "minecraft:stone", opacity: 15, variants: {1: "minecraft:granite"}}
func ReadRegistry(r io.Reader) (*Registry, error) {
	var f registryFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("could not decode registry: %w", err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("%w: registry has no name", ErrInvalidRegistry)
	}
	if f.IDLimit == 0 {
		f.IDLimit = 4096
	}
	types := make([]Type, 0, len(f.Types))
	for _, t := range f.Types {
		types = append(types, Type{
			ID:         t.ID,
			Name:       t.Name,
			Brightness: t.Brightness,
			Opacity:    t.Opacity,
			Variants:   t.Variants,
		})
	}
	return NewRegistry(f.Name, f.IDLimit, types, State{ID: f.Fallback.ID, Data: f.Fallback.Data})
}

// LoadRegistry reads a registry file. An empty path returns the built-in legacy registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return Legacy(), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reg, err := ReadRegistry(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
