// Package config loads user-configurable shell settings from a config
// file using Viper, the same pattern the teacher used for its own
// history/prompt settings, extended with job-table-adjacent knobs that
// are safe to make configurable without changing tinysh's invariants.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"tinysh/internal/job"
)

// Prompt holds the styling knobs consumed by internal/painter.
type Prompt struct {
	Theme               string `mapstructure:"theme"`
	PathColour          string `mapstructure:"path_colour"`
	PathColourBold      bool   `mapstructure:"path_colour_bold"`
	GitStatusColour     string `mapstructure:"git_status_colour"`
	GitStatusColourBold bool   `mapstructure:"git_status_colour_bold"`
}

// Config holds user-configurable settings for the shell.
type Config struct {
	HistoryFile     string `mapstructure:"history_file"`
	HistoryLimit    int    `mapstructure:"history_limit"`
	InterruptPrompt string `mapstructure:"interrupt_prompt"`
	EOFPrompt       string `mapstructure:"exit_message"`

	// MaxJobs and MaxProcs let an operator lower the job table's
	// effective limits; they are clamped to job.MaxJobs/job.MaxProcs
	// and never raised past them.
	MaxJobs  int `mapstructure:"max_jobs"`
	MaxProcs int `mapstructure:"max_procs"`

	// CheckInterval is the number of command lines between descriptor
	// leak checks; 0 disables the check.
	CheckInterval uint `mapstructure:"check_interval"`

	Prompt Prompt `mapstructure:"prompt"`
}

// Load reads configuration from a file named "config" in the current
// directory using Viper and unmarshals it into a Config instance. If
// reading or unmarshaling fails an error is returned along with a
// partial Config (which may be zero-valued).
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	cfg := new(Config)
	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("tinysh: boot: failed to load config: %v", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("tinysh: boot: failed to unmarshal config: %v", err)
	}
	cfg.clamp()
	return cfg, nil
}

// Default returns a Config populated with sensible defaults. This is
// used as a fallback when loading the configuration file fails.
func Default() *Config {
	return &Config{
		HistoryFile:     filepath.Join(os.Getenv("HOME"), ".tinysh_history"),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "\nexit",
		MaxJobs:         job.MaxJobs,
		MaxProcs:        job.MaxProcs,
		Prompt: Prompt{
			Theme:      "tinysh",
			PathColour: "green",
		},
	}
}

// clamp ensures a loaded config can never raise MaxJobs/MaxProcs past
// the job table's compiled-in ceiling, and fills in zero values with
// the ceiling itself.
func (c *Config) clamp() {
	if c.MaxJobs <= 0 || c.MaxJobs > job.MaxJobs {
		c.MaxJobs = job.MaxJobs
	}
	if c.MaxProcs <= 0 || c.MaxProcs > job.MaxProcs {
		c.MaxProcs = job.MaxProcs
	}
}
