package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "JCOHESION_CONFIG"

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://jcohesion.dev/schema/config.json"

// Config holds all configuration options for jcohesion.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Reference mean and sigma per metric
	Thresholds map[string]Threshold `koanf:"thresholds" toml:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Log settings
	Log LogConfig `koanf:"log" toml:"log"`
}

// AnalysisConfig controls which metrics run and which methods they see.
type AnalysisConfig struct {
	Metrics               []string `koanf:"metrics" toml:"metrics"`
	IncludeCtors          bool     `koanf:"include_ctors" toml:"include_ctors"`
	IncludeStaticMethods  bool     `koanf:"include_static_methods" toml:"include_static_methods"`
	IncludePrivateMethods bool     `koanf:"include_private_methods" toml:"include_private_methods"`
	SkipParseErrors       bool     `koanf:"skip_parse_errors" toml:"skip_parse_errors"`
	Workers               int      `koanf:"workers" toml:"workers"` // 0 = 2x NumCPU
}

// Threshold is the reference distribution a metric value is banded against.
type Threshold struct {
	Mean  float64 `koanf:"mean" toml:"mean" json:"mean"`
	Sigma float64 `koanf:"sigma" toml:"sigma" json:"sigma"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, yaml, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
	Sort    string `koanf:"sort" toml:"sort"` // metric name, or empty for class name
}

// LogConfig controls the structured log sink. An empty File logs to stderr.
type LogConfig struct {
	Level      string `koanf:"level" toml:"level"`
	File       string `koanf:"file" toml:"file"`
	MaxSize    int    `koanf:"max_size" toml:"max_size"` // megabytes
	MaxBackups int    `koanf:"max_backups" toml:"max_backups"`
	MaxAge     int    `koanf:"max_age" toml:"max_age"` // days
	Compress   bool   `koanf:"compress" toml:"compress"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			IncludePrivateMethods: true,
		},
		Thresholds: map[string]Threshold{},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"module-info.class",
				"package-info.class",
			},
			Dirs: []string{
				".git",
				".jcohesion",
				"test-classes",
			},
			Gitignore: false,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".jcohesion/cache",
			TTL:     0,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level:      "warn",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load loads configuration from a file, validating it before it is merged
// over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := Validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks a parsed configuration tree against the config schema.
func Validate(raw map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so parser-specific value types (TOML dates,
	// int64) become the plain JSON values the validator expects.
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid config: %v", verr)
		}
		return err
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// configNames are the file names searched for, in order.
var configNames = []string{
	"jcohesion.toml",
	"jcohesion.yaml",
	"jcohesion.yml",
	"jcohesion.json",
	".jcohesion.toml",
	".jcohesion.yaml",
	".jcohesion.yml",
	".jcohesion.json",
}

// Find returns the first config file present in the current directory or
// .jcohesion, or "" when there is none. JCOHESION_CONFIG wins when set.
func Find() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	for _, dir := range []string{".", ".jcohesion"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadResult is a loaded configuration and the file it came from.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath loads the given file instead of searching the standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig loads the configuration and reports where it came from.
// Without a file in the standard locations it returns the defaults; an
// existing but invalid file is an error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	path := o.path
	if path == "" {
		path = Find()
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}

// Threshold returns the reference distribution for a metric, matched
// case-insensitively.
func (c *Config) Threshold(metric string) (Threshold, bool) {
	for name, t := range c.Thresholds {
		if strings.EqualFold(name, metric) {
			return t, true
		}
	}
	return Threshold{}, false
}
