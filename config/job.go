package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/astei/worldcopy/world"
)

// Job describes one copy between two worlds. Flags given on the command line override the
// values read from a job file.
type Job struct {
	Source    WorldConfig     `yaml:"source"`
	Dest      WorldConfig     `yaml:"dest"`
	Output    string          `yaml:"output"`
	Selection SelectionConfig `yaml:"selection"`
	To        world.Pos       `yaml:"to"`

	Blocks   []uint16 `yaml:"blocks"`
	Entities bool     `yaml:"entities"`
	Create   bool     `yaml:"create"`
	Biomes   bool     `yaml:"biomes"`
	Lighting string   `yaml:"lighting"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type WorldConfig struct {
	Path string `yaml:"path"`
	// Registry is a block type registry file; the built-in legacy registry is used when empty.
	Registry string `yaml:"registry"`
}

type SelectionConfig struct {
	Shape string    `yaml:"shape"`
	From  world.Pos `yaml:"from"`
	Size  world.Pos `yaml:"size"`
}

// GetLogLevel returns the log level with priority config -> env -> "info".
func (j *Job) GetLogLevel() string {
	return getWithEnvFallback(j.LogLevel, "WORLDCOPY_LOG_LEVEL", "info")
}

// GetMetricsAddr returns the listen address for the metrics endpoint. Empty disables it.
func (j *Job) GetMetricsAddr() string {
	return getWithEnvFallback(j.MetricsAddr, "WORLDCOPY_METRICS_ADDR", "")
}

func getWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Validate checks that the job names everything a copy needs.
func (j *Job) Validate() error {
	var errs []error
	if j.Source.Path == "" {
		errs = append(errs, errors.New("source world is required"))
	}
	if j.Dest.Path == "" {
		errs = append(errs, errors.New("destination world is required"))
	}
	if j.Output == "" {
		errs = append(errs, errors.New("output file is required"))
	}
	for axis, v := range j.Selection.Size {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("selection size must be positive on axis %d", axis))
		}
	}
	switch j.Selection.Shape {
	case "", "box", "sphere":
	default:
		errs = append(errs, fmt.Errorf("unknown selection shape %q", j.Selection.Shape))
	}
	return errors.Join(errs...)
}

// Load reads a YAML job file.
// If path == "", it tries WORLDCOPY_CONFIG and otherwise returns an empty job.
func Load(path string) (*Job, error) {
	if path == "" {
		path = os.Getenv("WORLDCOPY_CONFIG")
		if path == "" {
			return &Job{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return &job, nil
}

// ParsePos parses a position written as "x,y,z".
func ParsePos(s string) (pos world.Pos, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return pos, fmt.Errorf("invalid position %q: want x,y,z", s)
	}
	for i, part := range parts {
		if pos[i], err = strconv.Atoi(strings.TrimSpace(part)); err != nil {
			return pos, fmt.Errorf("invalid position %q: %w", s, err)
		}
	}
	return pos, nil
}

// ParseBlocks parses a comma separated list of block ids.
func ParseBlocks(s string) ([]uint16, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []uint16
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid block id %q: %w", part, err)
		}
		ids = append(ids, uint16(id))
	}
	return ids, nil
}
