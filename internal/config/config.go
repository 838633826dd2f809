package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Measure describes how a variable is labelled on charts.
type Measure struct {
	Description string `mapstructure:"description" yaml:"description"`
	Unit        string `mapstructure:"unit" yaml:"unit,omitempty"`
}

type ChartConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Format  string  `mapstructure:"format" yaml:"format"`
	Workers int     `mapstructure:"workers" yaml:"workers"`
	Width   float64 `mapstructure:"width" yaml:"width"`   // inches
	Height  float64 `mapstructure:"height" yaml:"height"` // inches
}

type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Config is the whole configuration of one processing run.
type Config struct {
	InputDir        string             `mapstructure:"input_dir" yaml:"input_dir"`
	OutputDir       string             `mapstructure:"output_dir" yaml:"output_dir"`
	CacheName       string             `mapstructure:"cache_name" yaml:"cache_name"`
	CacheBackend    string             `mapstructure:"cache_backend" yaml:"cache_backend"`
	Experiments     []string           `mapstructure:"experiments" yaml:"experiments"`
	TimeSamples     int                `mapstructure:"time_samples" yaml:"time_samples"`
	MinTime         *float64           `mapstructure:"-" yaml:"min_time"` // nil: detect from data
	MaxTime         *float64           `mapstructure:"-" yaml:"max_time"` // nil: detect from data
	TimeColumn      string             `mapstructure:"time_column" yaml:"time_column"`
	LogarithmicTime bool               `mapstructure:"logarithmic_time" yaml:"logarithmic_time"`
	SeedVars        []string           `mapstructure:"seed_vars" yaml:"seed_vars"`
	SkipMarker      string             `mapstructure:"skip_marker" yaml:"skip_marker"`
	LogLevel        string             `mapstructure:"log_level" yaml:"log_level"`
	Charts          ChartConfig        `mapstructure:"charts" yaml:"charts"`
	Report          ReportConfig       `mapstructure:"report" yaml:"report"`
	Labels          map[string]Measure `mapstructure:"-" yaml:"labels,omitempty"`
}

func floatPtr(v float64) *float64 { return &v }

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		InputDir:     "data",
		OutputDir:    "charts",
		CacheName:    "data_summary",
		CacheBackend: "bolt",
		Experiments:  []string{"1-exported-data", "2-exported-data", "3-exported-data"},
		TimeSamples:  100,
		MinTime:      floatPtr(0),
		MaxTime:      floatPtr(1500),
		TimeColumn:   "time",
		SeedVars:     []string{"seed"},
		SkipMarker:   ".skip_data_process",
		LogLevel:     "info",
		Charts: ChartConfig{
			Enabled: true,
			Format:  "pdf",
			Workers: 4,
			Width:   6,
			Height:  4,
		},
		Report: ReportConfig{
			Enabled: true,
			Path:    "charts/summary_report.pdf",
		},
		Labels: map[string]Measure{
			"nodeCount":     {Description: "$n$", Unit: "nodes"},
			"meanNeighbors": {Description: "$\\mathbf{E}[\\|N\\|]$", Unit: "nodes"},
			"speed":         {Description: "$\\|\\vec{v}\\|$", Unit: "$m/s$"},
		},
	}
}

// SetDefaults registers every default with v so that partial files, env
// variables and flags layer on top of them. The time bounds are left out:
// viper cannot tell a YAML null from an absent key, and null means auto.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input_dir", d.InputDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("cache_name", d.CacheName)
	v.SetDefault("cache_backend", d.CacheBackend)
	v.SetDefault("experiments", d.Experiments)
	v.SetDefault("time_samples", d.TimeSamples)
	v.SetDefault("time_column", d.TimeColumn)
	v.SetDefault("logarithmic_time", d.LogarithmicTime)
	v.SetDefault("seed_vars", d.SeedVars)
	v.SetDefault("skip_marker", d.SkipMarker)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("charts.enabled", d.Charts.Enabled)
	v.SetDefault("charts.format", d.Charts.Format)
	v.SetDefault("charts.workers", d.Charts.Workers)
	v.SetDefault("charts.width", d.Charts.Width)
	v.SetDefault("charts.height", d.Charts.Height)
	v.SetDefault("report.enabled", d.Report.Enabled)
	v.SetDefault("report.path", d.Report.Path)
}

// Load reads configuration from path (optional), SWEEP_* environment
// variables and whatever flags were bound to v beforehand.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("SWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("failed to read config: %w", err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	doc, err := readFileDoc(v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	d := Default()
	if cfg.MinTime, err = timeBound(v, doc.raw, "min_time", d.MinTime); err != nil {
		return nil, err
	}
	if cfg.MaxTime, err = timeBound(v, doc.raw, "max_time", d.MaxTime); err != nil {
		return nil, err
	}
	cfg.Labels = d.Labels
	if doc.Labels != nil {
		cfg.Labels = doc.Labels
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// timeBound reads min_time/max_time. An env variable or flag wins, then the
// file, then def. The string "auto" and a YAML null ask for the bound to be
// detected from the data.
func timeBound(v *viper.Viper, file map[string]interface{}, key string, def *float64) (*float64, error) {
	raw := v.Get(key)
	if raw == nil {
		val, ok := file[key]
		if !ok {
			if def == nil {
				return nil, nil
			}
			f := *def
			return &f, nil
		}
		raw = val
	}
	switch raw := raw.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(raw)
		if s == "" || strings.EqualFold(s, "auto") {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &f, nil
	case int:
		f := float64(raw)
		return &f, nil
	case float64:
		return &raw, nil
	default:
		f := v.GetFloat64(key)
		return &f, nil
	}
}

// fileDoc is the part of the YAML file read around viper. Viper lower-cases
// map keys, and variable names are case sensitive.
type fileDoc struct {
	raw    map[string]interface{}
	Labels map[string]Measure `yaml:"labels"`
}

func readFileDoc(path string) (*fileDoc, error) {
	doc := &fileDoc{}
	if path == "" {
		return doc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &doc.raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse labels in %s: %w", path, err)
	}
	return doc, nil
}

// Validate checks the values the pipeline cannot work around.
func (c *Config) Validate() error {
	if c.TimeSamples < 1 {
		return fmt.Errorf("time_samples must be at least 1, got %d", c.TimeSamples)
	}
	if len(c.Experiments) == 0 {
		return errors.New("at least one experiment prefix is required")
	}
	if c.TimeColumn == "" {
		return errors.New("time_column must not be empty")
	}
	switch c.CacheBackend {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("unknown cache_backend %q (want bolt or sqlite)", c.CacheBackend)
	}
	switch c.Charts.Format {
	case "pdf", "png", "svg":
	default:
		return fmt.Errorf("unknown charts.format %q (want pdf, png or svg)", c.Charts.Format)
	}
	if c.MinTime != nil && c.MaxTime != nil && *c.MinTime > *c.MaxTime {
		return fmt.Errorf("min_time %g is after max_time %g", *c.MinTime, *c.MaxTime)
	}
	if c.LogarithmicTime {
		if (c.MinTime != nil && *c.MinTime <= 0) || (c.MaxTime != nil && *c.MaxTime <= 0) {
			return errors.New("logarithmic_time needs positive time bounds")
		}
	}
	return nil
}

// WriteFile stores cfg as YAML at path, refusing to overwrite an existing file.
func WriteFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
