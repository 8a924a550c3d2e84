package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the full application configuration. Every constant the core
// treats as tunable rather than invariant lives here: history capacity, the
// rate-noise epsilon, the summary top-N bound, the two-token prefix
// allow-list, and the polling policy.
type Config struct {
	Listen  string        `yaml:"listen"`
	Target  string        `yaml:"target"`
	Poll    PollConfig    `yaml:"poll"`
	History HistoryConfig `yaml:"history"`
	Charts  ChartsConfig  `yaml:"charts"`
	Catalog CatalogConfig `yaml:"catalog"`
	Dash    DashConfig    `yaml:"dashboard"`
}

// PollConfig controls the fetch controller.
type PollConfig struct {
	Interval Duration `yaml:"interval"`
	Attempts int      `yaml:"attempts"`
}

// Duration accepts either a Go duration string ("5s") or a bare number of
// seconds in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	// A bare YAML number decodes into a string just as well, so the string
	// decode is the single entry point and the numeric form is the fallback.
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(time.Duration(n * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return d.Std().String() }

// HistoryConfig controls the snapshot window.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// ChartsConfig controls the distribution engine.
type ChartsConfig struct {
	RateEpsilon      float64 `yaml:"rate_epsilon"`
	SummaryTopGroups int     `yaml:"summary_top_groups"`
}

// CatalogConfig controls catalog grouping.
type CatalogConfig struct {
	TwoTokenPrefixes []string `yaml:"two_token_prefixes"`
}

// DashConfig controls dashboard-layout persistence.
type DashConfig struct {
	StateDir string `yaml:"state_dir"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Listen: ":8080",
		Poll: PollConfig{
			Interval: Duration(5 * time.Second),
			Attempts: 5,
		},
		History: HistoryConfig{Capacity: 60},
		Charts: ChartsConfig{
			RateEpsilon:      0.001,
			SummaryTopGroups: 5,
		},
		Catalog: CatalogConfig{
			TwoTokenPrefixes: []string{"http", "storage"},
		},
		Dash: DashConfig{StateDir: "."},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the core cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.Attempts <= 0 {
		return fmt.Errorf("poll attempts must be positive, got %d", c.Poll.Attempts)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Charts.RateEpsilon < 0 {
		return fmt.Errorf("rate epsilon must not be negative, got %g", c.Charts.RateEpsilon)
	}
	if c.Charts.SummaryTopGroups <= 0 {
		return fmt.Errorf("summary top groups must be positive, got %d", c.Charts.SummaryTopGroups)
	}
	return nil
}
