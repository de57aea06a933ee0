// Package config reads and writes minion run files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFilename  = "minion.yaml"
	DefaultBinPath   = "out/test.minion"
	DefaultTest      = "fib"
	DefaultStepLimit = 100000
	DefaultPerfCount = 1000
)

// Config describes one minion run. CLI flags override the file.
type Config struct {
	Version int    `yaml:"version"`
	BinPath string `yaml:"binPath"`
	// BinMem loads the whole binary into memory before parsing it.
	BinMem bool   `yaml:"binMem,omitempty"`
	Test   string `yaml:"test"`

	Echo  EchoConfig  `yaml:"echo"`
	Debug DebugConfig `yaml:"debug,omitempty"`

	StepLimit int `yaml:"stepLimit"`
	PerfCount int `yaml:"perfCount"`
}

type EchoConfig struct {
	Instrs       bool `yaml:"instrs,omitempty"`
	ABINames     bool `yaml:"abiNames"`
	AltMnemonics bool `yaml:"altMnemonics"`
}

type DebugConfig struct {
	Silent   bool   `yaml:"silent,omitempty"`
	ExecDbg  bool   `yaml:"execDbg,omitempty"`
	DbgFregs bool   `yaml:"dbgFregs,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Echo: EchoConfig{ABINames: true, AltMnemonics: true},
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.BinPath == "" {
		c.BinPath = DefaultBinPath
	}
	if c.Test == "" {
		c.Test = DefaultTest
	}
	if c.StepLimit == 0 {
		c.StepLimit = DefaultStepLimit
	}
	if c.PerfCount <= 0 {
		c.PerfCount = DefaultPerfCount
	}
	if c.Debug.LogLevel == "" {
		c.Debug.LogLevel = "info"
	}
}

// Load reads a run file. Missing fields get their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Write stores cfg at path, creating parent directories.
func Write(path string, cfg Config) error {
	cfg.normalize()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
