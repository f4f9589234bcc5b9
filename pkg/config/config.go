// Package config loads, validates and saves report configurations.
//
// A configuration names the report, its output directory, the reporter and
// the coverage inputs. Files ending in .toml are TOML; .yaml and .yml are
// YAML. Both share the same field names:
//
//	name = "Nightly"
//	output = "coverage-html"
//	reporter = "html"
//
//	[[inputs]]
//	name = "Core"
//	prefix = "/home/ci/project/src"
//	path = "core.lcov"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/tree"
)

// Reporter selects the output layout.
type Reporter string

const (
	// ReporterHTML writes one page per directory and file.
	ReporterHTML Reporter = "html"
	// ReporterText writes a single coverage.txt summary.
	ReporterText Reporter = "text"
)

// ParseReporter accepts a reporter name; empty means ReporterHTML.
func ParseReporter(s string) (Reporter, error) {
	switch Reporter(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReporterHTML:
		return ReporterHTML, nil
	case ReporterText:
		return ReporterText, nil
	default:
		return "", reporterrors.Config("unknown reporter %q (want %q or %q)", s, ReporterHTML, ReporterText)
	}
}

// Input is one coverage tracefile.
type Input struct {
	Name string `toml:"name,omitempty" yaml:"name,omitempty"`
	// Prefix nil means infer the longest common directory.
	Prefix *string `toml:"prefix,omitempty" yaml:"prefix,omitempty"`
	Path   string  `toml:"path" yaml:"path"`
	// Format is "lcov", "go" or empty to detect it.
	Format string `toml:"format,omitempty" yaml:"format,omitempty"`
}

// Config is a complete report configuration.
type Config struct {
	Name     string   `toml:"name" yaml:"name"`
	Output   string   `toml:"output" yaml:"output"`
	Reporter Reporter `toml:"reporter,omitempty" yaml:"reporter,omitempty"`
	// SourceRoot resolves relative source paths for file pages.
	SourceRoot string  `toml:"source_root,omitempty" yaml:"source_root,omitempty"`
	Inputs     []Input `toml:"inputs" yaml:"inputs"`
}

// WithDefaults fills the name and reporter.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = tree.DefaultName
	}
	if c.Reporter == "" {
		c.Reporter = ReporterHTML
	}
	return c
}

// Validate reports the first problem that makes c unusable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return reporterrors.Config("an output directory is required")
	}
	if len(c.Inputs) == 0 {
		return reporterrors.Config("at least one input is required")
	}
	if _, err := ParseReporter(string(c.Reporter)); err != nil {
		return err
	}
	for i, in := range c.Inputs {
		if strings.TrimSpace(in.Path) == "" {
			return reporterrors.Config("input %d has no path", i+1)
		}
		switch in.Format {
		case "", "lcov", "go":
		default:
			return reporterrors.Config("input %d has unknown format %q", i+1, in.Format)
		}
	}
	return nil
}

type codec int

const (
	codecTOML codec = iota
	codecYAML
)

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return codecTOML, nil
	case ".yaml", ".yml":
		return codecYAML, nil
	default:
		return 0, reporterrors.Config("unsupported config file %s: use .toml, .yaml or .yml", path).WithPath(path)
	}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	kind, err := codecFor(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, reporterrors.Wrap(err, reporterrors.CategoryConfig, "read config %s", path).WithPath(path)
	}
	return Decode(data, kind == codecYAML, path)
}

// Decode parses a configuration, TOML unless yamlData is set, applies
// defaults and validates it. source names the data in errors.
func Decode(data []byte, yamlData bool, source string) (Config, error) {
	var cfg Config
	var err error
	if yamlData {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		d := toml.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		err = d.Decode(&cfg)
	}
	if err != nil {
		return Config{}, reporterrors.Wrap(err, reporterrors.CategoryConfig, "parse config %s", source)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", source, err)
	}
	return cfg, nil
}

// ErrExists is returned by Save when the target exists and force is unset.
var ErrExists = errors.New("config file already exists")

// Save writes cfg to path, creating parent directories. An existing file is
// only replaced when force is set.
func Save(path string, cfg Config, force bool) error {
	kind, err := codecFor(path)
	if err != nil {
		return err
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return reporterrors.Wrap(ErrExists, reporterrors.CategoryConfig, "refusing to overwrite %s (use --force)", path).WithPath(path)
		}
	}

	var data []byte
	switch kind {
	case codecYAML:
		data, err = yaml.Marshal(cfg)
	default:
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return reporterrors.Wrap(err, reporterrors.CategoryInternal, "encode config")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return reporterrors.FileSystem(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return reporterrors.FileSystem(err, "write %s", path)
	}
	return nil
}

// ParseInputSpec parses an --input value: either a bare tracefile path or
// comma-separated key=value pairs with keys name, prefix, path and format.
func ParseInputSpec(spec string) (Input, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Input{}, reporterrors.Config("empty input")
	}
	if !strings.Contains(spec, "=") {
		return Input{Path: spec}, nil
	}

	var in Input
	for _, pair := range strings.Split(spec, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Input{}, reporterrors.Config("input %q: expected key=value, got %q", spec, pair)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "name":
			in.Name = value
		case "prefix":
			prefix := value
			in.Prefix = &prefix
		case "path":
			in.Path = value
		case "format":
			in.Format = value
		default:
			return Input{}, reporterrors.Config("input %q: unknown key %q", spec, key)
		}
	}
	if in.Path == "" {
		return Input{}, reporterrors.Config("input %q has no path", spec)
	}
	return in, nil
}
