// Package config loads the protoverge project configuration from
// protoverge.yml and turns it into generator options.
package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file written by init and read by Load
const FileName = "protoverge.yml"

// Config represents the protoverge project configuration
type Config struct {
	Project   ProjectConfig                `mapstructure:"project" yaml:"project"`
	Revisions []RevisionConfig             `mapstructure:"revisions" yaml:"revisions"`
	Mappings  map[string]map[string]string `mapstructure:"mappings" yaml:"mappings,omitempty"`
	Include   IncludeConfig                `mapstructure:"include" yaml:"include,omitempty"`
	Exclude   ExcludeConfig                `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Generate  GenerateConfig               `mapstructure:"generate" yaml:"generate"`
	Log       LogConfig                    `mapstructure:"log" yaml:"log"`
}

// ProjectConfig names the project
type ProjectConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// RevisionConfig names one schema revision: its tag and the compiled
// descriptor set path. Revisions are ordered oldest to newest; the last
// entry is the newest revision. Syntax optionally forces the dialect
// ("proto2" or "proto3") for descriptor sets whose syntax field is unset.
type RevisionConfig struct {
	Tag        string `mapstructure:"tag" yaml:"tag"`
	Descriptor string `mapstructure:"descriptor" yaml:"descriptor"`
	Syntax     string `mapstructure:"syntax" yaml:"syntax,omitempty"`
}

// IncludeConfig restricts generation to matching messages when non-empty
type IncludeConfig struct {
	Messages []string `mapstructure:"messages" yaml:"messages,omitempty"`
}

// ExcludeConfig drops matching messages and fields from generation
type ExcludeConfig struct {
	Messages []string `mapstructure:"messages" yaml:"messages,omitempty"`
	Fields   []string `mapstructure:"fields" yaml:"fields,omitempty"`
}

// GenerateConfig controls the generation pipeline
type GenerateConfig struct {
	CacheDir    string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	Workers     int           `mapstructure:"workers" yaml:"workers,omitempty"`
	Force       bool          `mapstructure:"force" yaml:"force,omitempty"`
	Builders    bool          `mapstructure:"builders" yaml:"builders"`
	Strict      bool          `mapstructure:"strict" yaml:"strict,omitempty"`
	LockTimeout time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout,omitempty"`
}

// LogConfig controls log verbosity and encoding
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads protoverge.yml from the working directory. A missing file is
// not an error; defaults and PROTOVERGE_* environment variables apply
// either way.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("generate.cache_dir", ".protoverge")
	v.SetDefault("generate.workers", 0)
	v.SetDefault("generate.force", false)
	v.SetDefault("generate.builders", true)
	v.SetDefault("generate.strict", false)
	v.SetDefault("generate.lock_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetConfigName("protoverge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROTOVERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file - defaults plus environment only.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Exists reports whether a config file is present in the working directory
func Exists() bool {
	for _, name := range []string{"protoverge.yml", "protoverge.yaml"} {
		if _, err := os.Stat(name); err == nil {
			return true
		}
	}
	return false
}

// Write renders the configuration as YAML at the given path. init uses it
// to scaffold protoverge.yml.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	out := append([]byte("# protoverge project configuration\n"), data...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RequireRevisions rejects configurations with fewer than min revisions.
// Merge-bearing commands call it with 2; descriptor paths themselves are
// checked at load time, not here.
func (c *Config) RequireRevisions(min int) error {
	if len(c.Revisions) < min {
		return fmt.Errorf("config names %d revision(s), need at least %d: add entries under 'revisions' in %s",
			len(c.Revisions), min, FileName)
	}
	return nil
}

// Fingerprint serializes the output-affecting parts of the configuration
// in a stable order. The incremental cache keys on it: a change to any of
// these settings invalidates prior state, while knobs like workers or log
// level do not.
func (c *Config) Fingerprint() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "project=%s\n", c.Project.Name)
	for _, r := range c.Revisions {
		fmt.Fprintf(&b, "revision=%s:%s:%s\n", r.Tag, r.Descriptor, r.Syntax)
	}

	msgs := make([]string, 0, len(c.Mappings))
	for m := range c.Mappings {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	for _, m := range msgs {
		fields := make([]string, 0, len(c.Mappings[m]))
		for f := range c.Mappings[m] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&b, "mapping=%s.%s=%s\n", m, f, c.Mappings[m][f])
		}
	}

	for _, p := range c.Include.Messages {
		fmt.Fprintf(&b, "include.message=%s\n", p)
	}
	for _, p := range c.Exclude.Messages {
		fmt.Fprintf(&b, "exclude.message=%s\n", p)
	}
	for _, p := range c.Exclude.Fields {
		fmt.Fprintf(&b, "exclude.field=%s\n", p)
	}

	fmt.Fprintf(&b, "builders=%t\n", c.Generate.Builders)
	fmt.Fprintf(&b, "strict=%t\n", c.Generate.Strict)
	return []byte(b.String())
}

// LoadMappings reads a standalone identity-mapping file: a YAML document
// of message name to declared-name/canonical-name pairs, the same shape as
// the mappings block in protoverge.yml.
func LoadMappings(path string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}
	out := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse mappings file %s: %w", path, err)
	}
	return out, nil
}

// MergeMappings overlays extra onto base, extra winning on collisions.
// Neither argument is modified.
func MergeMappings(base, extra map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(base)+len(extra))
	for m, fields := range base {
		dst := make(map[string]string, len(fields))
		for f, canon := range fields {
			dst[f] = canon
		}
		out[m] = dst
	}
	for m, fields := range extra {
		dst, ok := out[m]
		if !ok {
			dst = make(map[string]string, len(fields))
			out[m] = dst
		}
		for f, canon := range fields {
			dst[f] = canon
		}
	}
	return out
}

// validateConfig checks configuration shape: tags, dialect overrides, glob
// patterns and log settings
func validateConfig(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Revisions))
	for i, r := range cfg.Revisions {
		if r.Tag == "" {
			return fmt.Errorf("revisions[%d]: tag is required", i)
		}
		if r.Descriptor == "" {
			return fmt.Errorf("revision %q: descriptor path is required", r.Tag)
		}
		if seen[r.Tag] {
			return fmt.Errorf("duplicate revision tag %q", r.Tag)
		}
		seen[r.Tag] = true
		switch r.Syntax {
		case "", "proto2", "proto3":
		default:
			return fmt.Errorf("revision %q: syntax must be proto2 or proto3, got %q", r.Tag, r.Syntax)
		}
	}

	for _, pat := range cfg.Include.Messages {
		if err := checkPattern(pat); err != nil {
			return fmt.Errorf("include.messages: %w", err)
		}
	}
	for _, pat := range cfg.Exclude.Messages {
		if err := checkPattern(pat); err != nil {
			return fmt.Errorf("exclude.messages: %w", err)
		}
	}
	for _, pat := range cfg.Exclude.Fields {
		if err := checkPattern(pat); err != nil {
			return fmt.Errorf("exclude.fields: %w", err)
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", cfg.Log.Format)
	}

	return nil
}

func checkPattern(pat string) error {
	if _, err := path.Match(pat, "probe"); err != nil {
		return fmt.Errorf("invalid glob pattern %q", pat)
	}
	return nil
}
