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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func loadFromTestDir(filename string) (string, *Config, error) {
	configFileName := filepath.Join("testdata", filename)
	config, err := Load(configFileName)
	return configFileName, config, err
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if c.MaxParallelStates != DefaultMaxParallelStates {
		t.Errorf("Default for MaxParallelStates should be %d", DefaultMaxParallelStates)
	}
	if c.WideningThreshold != DefaultWideningThreshold {
		t.Errorf("Default for WideningThreshold should be %d", DefaultWideningThreshold)
	}
	if len(c.Domains) != 1 || c.Domains[0] != DomainOctagon {
		t.Errorf("Default domains should be [octagon], got %v", c.Domains)
	}
	if c.RunTimeout() != 0 {
		t.Errorf("Default timeout should be zero")
	}
	if !c.MatchEntrypoint("anything") {
		t.Errorf("Default config should select every entrypoint")
	}
}

func TestLoadFullConfig(t *testing.T) {
	fileName, c, err := loadFromTestDir("full_config.yaml")
	if err != nil {
		t.Fatalf("Could not load %q: %v", fileName, err)
	}
	if c.LogLevel != int(DebugLevel) || !c.Verbose() {
		t.Errorf("Expected log-level 4, got %d", c.LogLevel)
	}
	if c.MaxParallelStates != 3 || c.WideningThreshold != 5 || c.MaxConcurrentRuns != 2 {
		t.Errorf("Unexpected options %+v", c.Options)
	}
	if c.NarrowingIterations != 1 {
		t.Errorf("Expected narrowing-iterations 1, got %d", c.NarrowingIterations)
	}
	if strings.Join(c.Domains, ",") != "octagon,parity" {
		t.Errorf("Expected domains octagon,parity, got %v", c.Domains)
	}
	if c.RunTimeout() != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", c.RunTimeout())
	}
	for name, expected := range map[string]bool{
		"main.main":              true,
		"main.loop":              true,
		"example.com/pkg.Run":    true,
		"example.com/pkg.Helper": false,
		"lib.main":               false,
	} {
		if c.MatchEntrypoint(name) != expected {
			t.Errorf("MatchEntrypoint(%q) should be %v", name, expected)
		}
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "no_such_file.yaml"))
	if c != nil || err == nil {
		t.Errorf("Expected error and nil value when trying to load non existent file.")
	}
}

func TestLoadBadFormatFileReturnsError(t *testing.T) {
	_, config, err := loadFromTestDir("bad_format.yaml")
	if config != nil || err == nil {
		t.Errorf("Expected error and nil value when trying to load a badly formatted file.")
	}
}

func TestLoadInvalidOptionsReturnsError(t *testing.T) {
	for _, name := range []string{"zero_parallel_states.yaml", "unknown_domain.yaml", "bad_timeout.yaml"} {
		_, config, err := loadFromTestDir(name)
		if config != nil || err == nil {
			t.Errorf("Expected error and nil value when loading %q", name)
			continue
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Error for %q should wrap ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"one state", func(c *Config) { c.MaxParallelStates = 1 }, true},
		{"no state", func(c *Config) { c.MaxParallelStates = 0 }, false},
		{"negative states", func(c *Config) { c.MaxParallelStates = -3 }, false},
		{"zero threshold", func(c *Config) { c.WideningThreshold = 0 }, true},
		{"negative threshold", func(c *Config) { c.WideningThreshold = -1 }, false},
		{"no narrowing", func(c *Config) { c.NarrowingIterations = 0 }, true},
		{"negative narrowing", func(c *Config) { c.NarrowingIterations = -2 }, false},
		{"all domains", func(c *Config) { c.Domains = KnownDomains }, true},
		{"no domain", func(c *Config) { c.Domains = nil }, false},
		{"duplicate domain", func(c *Config) { c.Domains = []string{"sign", "sign"} }, false},
		{"negative timeout", func(c *Config) { c.Timeout = "-1s" }, false},
		{"timeout", func(c *Config) { c.Timeout = "1m" }, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := NewDefault()
			test.modify(c)
			err := c.Validate()
			if test.valid && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !test.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEntrypointPrefixFallback(t *testing.T) {
	c := NewDefault()
	c.Entrypoints = []string{"pkg.(*T"}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if !c.MatchEntrypoint("pkg.(*T).Run") {
		t.Errorf("entrypoints that are not regexes should be matched as prefixes")
	}
	if c.MatchEntrypoint("pkg.T.Run") {
		t.Errorf("pkg.T.Run should not match pkg.(*T")
	}
}

func TestLoadWithReports(t *testing.T) {
	_, c, err := loadFromTestDir("config_with_reports.yaml")
	if err != nil {
		t.Fatalf("could not load config with reports: %v", err)
	}
	defer os.Remove("example-report")
	if c.ReportsDir != "example-report" || !c.ReportInvariants {
		t.Errorf("Expected reports dir to be set, got %+v", c.Options)
	}
	if c.RelPath("example-report") != filepath.Join("testdata", "example-report") {
		t.Errorf("RelPath should be relative to the config file, got %q", c.RelPath("example-report"))
	}
}

func TestLoadWithReportNoDirReturnsError(t *testing.T) {
	_, config, err := loadFromTestDir("config_with_reports_bad_dir.yaml")
	if config != nil || err == nil {
		t.Errorf("Expected error and nil value when trying to load config with a report dir that has a non-existing" +
			"directory name")
	}
}

func TestLoadWithNoSpecifiedReportsDir(t *testing.T) {
	fileName, config, err := loadFromTestDir("config_with_reports_no_dir_spec.yaml")
	if config == nil || err != nil {
		t.Fatalf("Could not load %q", fileName)
	}
	if config.ReportsDir == "" {
		t.Errorf("Expected reports-dir to be non-empty after loading config %q", fileName)
	}
	os.Remove(config.ReportsDir)
}

func TestLogGroupLevels(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	var buf bytes.Buffer
	l := NewLogGroupWithOutput(c, &buf)
	l.SetAllFlags(0)
	l.Infof("hidden")
	l.Warnf("shown %d", 1)
	l.Errorf("error")
	if buf.String() != "[WARN] shown 1\n[ERROR] error\n" {
		t.Errorf("unexpected log output %q", buf.String())
	}
	if l.LogsDebug() || l.LogsTrace() {
		t.Errorf("warn level should not log debug or trace")
	}
	c.LogLevel = int(TraceLevel)
	if l2 := NewLogGroupWithOutput(c, &buf); !l2.LogsTrace() || !l2.LogsDebug() {
		t.Errorf("trace level should log debug and trace")
	}
}
