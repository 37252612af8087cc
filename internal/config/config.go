// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads benchprom configuration from defaults, an
// optional config file, BENCHPROM_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/benchprom/benchprom/benchfile"
	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchscan"
	"github.com/benchprom/benchprom/internal/logger"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BENCHPROM"

// Output formats.
const (
	FormatPrometheus = "prometheus"
	FormatInflux     = "influx"
	FormatText       = "text"
	FormatHTML       = "html"
)

// Config is the complete benchprom configuration.
type Config struct {
	// Root is the file or directory searched for benchmark output.
	Root string `mapstructure:"root" yaml:"root"`

	// Report is the path the JSON report is written to. Empty
	// means the report is not written.
	Report string `mapstructure:"report" yaml:"report"`

	// Metrics is the path the exposition is written to, or "-" for
	// standard output.
	Metrics string `mapstructure:"metrics" yaml:"metrics"`
	Format  string `mapstructure:"format" yaml:"format"`

	// Workers is the number of files read concurrently.
	Workers int `mapstructure:"workers" yaml:"workers"`

	Log     Log               `mapstructure:"log" yaml:"log"`
	Labels  map[string]string `mapstructure:"labels" yaml:"labels"`
	Match   Match             `mapstructure:"match" yaml:"match"`
	Extract Extract           `mapstructure:"extract" yaml:"extract"`
	Policy  Policy            `mapstructure:"policy" yaml:"policy"`
	Serve   Serve             `mapstructure:"serve" yaml:"serve"`
	Archive Archive           `mapstructure:"archive" yaml:"archive"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Match struct {
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
	Contains   string   `mapstructure:"contains" yaml:"contains"`
}

type Extract struct {
	NameFields []string  `mapstructure:"name_fields" yaml:"name_fields,omitempty"`
	Patterns   []Pattern `mapstructure:"patterns" yaml:"patterns,omitempty"`
	Structured bool      `mapstructure:"structured" yaml:"structured"`
}

// A Pattern maps a field key pattern to a statistic kind name, such
// as "median" to "time_median".
type Pattern struct {
	Field string `mapstructure:"field" yaml:"field"`
	Kind  string `mapstructure:"kind" yaml:"kind"`
}

type Policy struct {
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// RequirePositive lists the statistic kinds whose zero values
	// mean "not measured". If unset, the default policy applies.
	RequirePositive []string `mapstructure:"require_positive" yaml:"require_positive,omitempty"`
}

type Serve struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Watch    bool          `mapstructure:"watch" yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type Archive struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// An Error reports an unusable configuration value.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", ".")
	v.SetDefault("report", "benchmark-report.json")
	v.SetDefault("metrics", "-")
	v.SetDefault("format", FormatPrometheus)
	v.SetDefault("workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("match.extensions", benchfile.DefaultMatch.Extensions)
	v.SetDefault("match.contains", benchfile.DefaultMatch.Contains)
	v.SetDefault("extract.structured", true)
	v.SetDefault("policy.prefix", benchpolicy.Default().Prefix)
	v.SetDefault("serve.addr", "127.0.0.1:9091")
	v.SetDefault("serve.debounce", 2*time.Second)
	v.SetDefault("archive.driver", "sqlite3")
	v.SetDefault("archive.dsn", "benchprom.db")
}

// labelEnv lists the run labels read from the environment. Each is
// read from BENCHPROM_LABELS_<NAME> and then from the CI variables
// listed.
var labelEnv = map[string][]string{
	"branch": {"GITHUB_REF_NAME"},
	"commit": {"GITHUB_SHA"},
	"device": nil,
	"brand":  nil,
}

// envLabels returns labelEnv plus a label for every other
// BENCHPROM_LABELS_<NAME> variable in the environment.
func envLabels() map[string][]string {
	labels := make(map[string][]string, len(labelEnv))
	for name, extra := range labelEnv {
		labels[name] = extra
	}
	prefix := EnvPrefix + "_LABELS_"
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
			name = strings.ToLower(name)
			if _, ok := labels[name]; !ok {
				labels[name] = nil
			}
		}
	}
	return labels
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"root":       "root",
	"report":     "report",
	"metrics":    "metrics",
	"format":     "format",
	"workers":    "workers",
	"log-level":  "log.level",
	"log-format": "log.format",
	"prefix":     "policy.prefix",
	"addr":       "serve.addr",
	"watch":      "serve.watch",
	"debounce":   "serve.debounce",
	"db-driver":  "archive.driver",
	"db":         "archive.dsn",
}

// Flags registers the flags Load understands on fs. Commands
// register only the ones they use.
func Flags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		switch name {
		case "config":
			fs.String("config", "", "read configuration from `file` (YAML, JSON or TOML)")
		case "report":
			fs.String("report", "", "write the JSON report to `file`")
		case "metrics":
			fs.String("metrics", "", "write metrics to `file` (- for standard output)")
		case "format":
			fs.String("format", "", "metrics `format`: prometheus, influx, text or html")
		case "workers":
			fs.Int("workers", 0, "read up to `n` files concurrently")
		case "log-level":
			fs.String("log-level", "", "log `level`: debug, info, warn or error")
		case "log-format":
			fs.String("log-format", "", "log `format`: text or json")
		case "prefix":
			fs.String("prefix", "", "metric name `prefix`")
		case "label":
			fs.StringToString("label", nil, "add run label `name=value` to every metric")
		case "addr":
			fs.String("addr", "", "serve metrics on `address`")
		case "watch":
			fs.Bool("watch", false, "re-read benchmark output when it changes")
		case "debounce":
			fs.Duration("debounce", 0, "wait `duration` after a change before re-reading")
		case "db-driver":
			fs.String("db-driver", "", "archive database `driver`: sqlite3 or mysql")
		case "db":
			fs.String("db", "", "archive database `dsn`")
		default:
			panic("unknown flag " + name)
		}
	}
}

// Load loads the configuration. path names a config file and may be
// empty. Flags in fs that were set on the command line override all
// other sources; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for name, extra := range envLabels() {
		key := "labels." + name
		env := append([]string{EnvPrefix + "_LABELS_" + strings.ToUpper(name)}, extra...)
		if err := v.BindEnv(append([]string{key}, env...)...); err != nil {
			return nil, err
		}
		v.SetDefault(key, "")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if fs != nil {
		if f := fs.Lookup("label"); f != nil && f.Changed {
			labels, err := fs.GetStringToString("label")
			if err != nil {
				return nil, err
			}
			if cfg.Labels == nil {
				cfg.Labels = make(map[string]string)
			}
			for k, val := range labels {
				cfg.Labels[k] = val
			}
		}
	}
	// Commits are identified by their short hash.
	if c := cfg.Labels["commit"]; len(c) > 7 {
		cfg.Labels["commit"] = c[:7]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatPrometheus, FormatInflux, FormatText, FormatHTML:
	default:
		return &Error{"format", fmt.Errorf("unknown format %q", c.Format)}
	}
	if c.Workers < 0 {
		return &Error{"workers", errors.New("must not be negative")}
	}
	switch c.Archive.Driver {
	case "sqlite3", "mysql":
	default:
		return &Error{"archive.driver", fmt.Errorf("unsupported driver %q", c.Archive.Driver)}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return &Error{"log.level", err}
	}
	if _, err := c.BuildPolicy(); err != nil {
		return err
	}
	if _, err := c.Extractor(); err != nil {
		return err
	}
	return nil
}

// BuildPolicy returns the statistic policy described by c.
func (c *Config) BuildPolicy() (*benchpolicy.Policy, error) {
	p := benchpolicy.Default()
	p.Prefix = c.Policy.Prefix
	if c.Policy.RequirePositive != nil {
		var ks []benchpolicy.Kind
		for _, name := range c.Policy.RequirePositive {
			k, err := benchpolicy.ParseKind(name)
			if err != nil {
				return nil, &Error{"policy.require_positive", err}
			}
			ks = append(ks, k)
		}
		p.SetRequirePositive(ks)
	}
	if err := p.Validate(); err != nil {
		return nil, &Error{"policy", err}
	}
	return p, nil
}

// Extractor returns the extractor described by c.
func (c *Config) Extractor() (*benchscan.Extractor, error) {
	cfg := benchscan.DefaultConfig()
	cfg.Structured = c.Extract.Structured
	if len(c.Extract.NameFields) > 0 {
		cfg.NameFields = c.Extract.NameFields
	}
	if len(c.Extract.Patterns) > 0 {
		cfg.Patterns = nil
		for _, p := range c.Extract.Patterns {
			k, err := benchpolicy.ParseKind(p.Kind)
			if err != nil {
				return nil, &Error{"extract.patterns", err}
			}
			cfg.Patterns = append(cfg.Patterns, benchscan.Pattern{Field: p.Field, Kind: k})
		}
	}
	x, err := benchscan.New(cfg)
	if err != nil {
		return nil, &Error{"extract", err}
	}
	return x, nil
}

// FileMatch returns the artifact file selection described by c.
func (c *Config) FileMatch() benchfile.Match {
	return benchfile.Match{Extensions: c.Match.Extensions, Contains: c.Match.Contains}
}

// Dump writes c to w as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
