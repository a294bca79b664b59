// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// ErrInvalidConfig is wrapped by every error returned by [Config.Validate]
var ErrInvalidConfig = errors.New("invalid configuration")

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config is the configuration of an analysis run. The user-facing settings are in the embedded [Options].
type Config struct {
	Options

	sourceFile string

	// timeout is the parsed value of Options.Timeout
	timeout time.Duration

	// entrypointRegexes is the compiled list of Options.Entrypoints. A nil entry means the string is matched as
	// a prefix.
	entrypointRegexes []*regexp.Regexp
}

// Options holds the global options of the abstract interpreter
type Options struct {
	// ReportsDir is the directory where all the reports will be stored. If the yaml config file this config struct has
	// been loaded does not specify a ReportsDir but sets ReportInvariants to true, then ReportsDir will be created
	// in the folder of the config file.
	ReportsDir string `yaml:"reports-dir"`

	// MaxParallelStates is the maximum number of disjuncts kept at a location. Must be at least one.
	MaxParallelStates int `yaml:"max-parallel-states"`

	// WideningThreshold is the number of times a loop head can be revisited before widening is applied
	WideningThreshold int `yaml:"widening-threshold"`

	// NarrowingIterations is the number of descending passes refining the fixpoint, recovering bounds lost by
	// widening. Zero disables narrowing.
	NarrowingIterations int `yaml:"narrowing-iterations"`

	// Domains is the ordered list of domain identifiers. More than one domain yields a composite domain.
	Domains []string `yaml:"domains"`

	// Timeout is a duration string (e.g. "30s") bounding each run. Empty or "0" means no timeout.
	Timeout string `yaml:"timeout"`

	// Entrypoints selects the procedures whose entries start the analysis
	Entrypoints []string `yaml:"entrypoints"`

	// MaxConcurrentRuns bounds the number of runs executed concurrently by the command line tool
	MaxConcurrentRuns int `yaml:"max-concurrent-runs"`

	// ReportInvariants specifies whether the invariants should be written to a yaml file in the reports directory
	ReportInvariants bool `yaml:"report-invariants"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		timeout:    DefaultTimeout,
		Options: Options{
			ReportsDir:          "",
			MaxParallelStates:   DefaultMaxParallelStates,
			WideningThreshold:   DefaultWideningThreshold,
			NarrowingIterations: DefaultNarrowingIterations,
			Domains:             []string{DomainOctagon},
			Timeout:             "",
			Entrypoints:         nil,
			MaxConcurrentRuns:   DefaultMaxConcurrentRuns,
			ReportInvariants:    false,
			LogLevel:            int(InfoLevel),
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse builds a configuration from the yaml contents b. The filename is used to resolve relative paths.
// The returned configuration has been validated.
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, &cfg.Options); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = DefaultMaxConcurrentRuns
	}
	if len(cfg.Domains) == 0 {
		cfg.Domains = []string{DomainOctagon}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.ReportInvariants {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks the options and prepares the derived settings. It must be called after the options are modified.
func (c *Config) Validate() error {
	if c.MaxParallelStates < 1 {
		return fmt.Errorf("%w: max-parallel-states must be at least 1, got %d", ErrInvalidConfig,
			c.MaxParallelStates)
	}
	if c.WideningThreshold < 0 {
		return fmt.Errorf("%w: widening-threshold must be non-negative, got %d", ErrInvalidConfig,
			c.WideningThreshold)
	}
	if c.NarrowingIterations < 0 {
		return fmt.Errorf("%w: narrowing-iterations must be non-negative, got %d", ErrInvalidConfig,
			c.NarrowingIterations)
	}
	if len(c.Domains) == 0 {
		return fmt.Errorf("%w: at least one domain is required", ErrInvalidConfig)
	}
	seen := map[string]bool{}
	for _, d := range c.Domains {
		if !slices.Contains(KnownDomains, d) {
			return fmt.Errorf("%w: unknown domain %q (known: %s)", ErrInvalidConfig, d,
				strings.Join(KnownDomains, ", "))
		}
		if seen[d] {
			return fmt.Errorf("%w: domain %q is listed twice", ErrInvalidConfig, d)
		}
		seen[d] = true
	}
	c.timeout = 0
	if c.Timeout != "" {
		t, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("%w: bad timeout %q: %v", ErrInvalidConfig, c.Timeout, err)
		}
		if t < 0 {
			return fmt.Errorf("%w: negative timeout %q", ErrInvalidConfig, c.Timeout)
		}
		c.timeout = t
	}
	c.entrypointRegexes = make([]*regexp.Regexp, len(c.Entrypoints))
	for i, e := range c.Entrypoints {
		if r, err := regexp.Compile(e); err == nil {
			c.entrypointRegexes[i] = r
		}
	}
	return nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// RunTimeout returns the timeout of a single run. Zero means no timeout.
func (c Config) RunTimeout() time.Duration {
	return c.timeout
}

// MatchEntrypoint returns true if the procedure name is selected by the entrypoints option. Every procedure is
// selected when the option is empty.
func (c Config) MatchEntrypoint(name string) bool {
	if len(c.Entrypoints) == 0 {
		return true
	}
	for i, e := range c.Entrypoints {
		if i < len(c.entrypointRegexes) && c.entrypointRegexes[i] != nil {
			if c.entrypointRegexes[i].MatchString(name) {
				return true
			}
		} else if strings.HasPrefix(name, e) {
			return true
		}
	}
	return false
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
