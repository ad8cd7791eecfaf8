// Package config loads and saves the on-disk, user-facing defaults that
// front cpu.Resolve: which architecture to build, CLI run defaults, and
// display preferences for a host front-end. The resolved cpu.Configuration
// itself stays an immutable value produced fresh by cpu.Resolve every run,
// matching spec.md §3's "immutable after init" invariant — this package
// only persists the *request* a user wants to repeat.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/BinaryMelodies/all-the-arm/cpu"
)

// Config is the on-disk, user-editable settings file. Its Architecture
// section maps directly onto a cpu.ConfigRequest; the Execution and Display
// sections are CLI/front-end conveniences with no kernel counterpart.
type Config struct {
	Architecture struct {
		Arch        string `toml:"arch"`
		Thumb       bool   `toml:"thumb"`
		ThumbEE     bool   `toml:"thumbee"`
		Jazelle     bool   `toml:"jazelle"`
		JazelleExt  bool   `toml:"jazelle_ext"`
		FP          bool   `toml:"fp"`
		SecurityExt bool   `toml:"security_ext"`
		VirtExt     bool   `toml:"virt_ext"`
		EL2         bool   `toml:"el2"`
		EL3         bool   `toml:"el3"`
		BigEndian   bool   `toml:"big_endian"`
		BigEndian32 bool   `toml:"big_endian_32"`
	} `toml:"architecture"`

	Execution struct {
		MaxCycles    uint64 `toml:"max_cycles"`
		DefaultEntry string `toml:"default_entry"`
		StackSize    uint   `toml:"stack_size"`
		CaptureTraps bool   `toml:"capture_traps"`
	} `toml:"execution"`

	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec
	} `toml:"display"`
}

// DefaultConfig returns the settings a fresh install runs with: a v7
// core with Thumb-2 and VFP, matching the teacher's own emulated target
// (an ARM2-class core extended forward) but scaled to this kernel's wider
// architecture range.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Architecture.Arch = "v7"
	cfg.Architecture.Thumb = true
	cfg.Architecture.FP = true

	cfg.Execution.MaxCycles = 1_000_000
	cfg.Execution.DefaultEntry = "0x8000"
	cfg.Execution.StackSize = 65536
	cfg.Execution.CaptureTraps = true

	cfg.Display.ColorOutput = true
	cfg.Display.NumberFormat = "hex"
	return cfg
}

// Request converts the on-disk settings into a cpu.ConfigRequest, ready for
// cpu.Resolve.
func (c *Config) Request() cpu.ConfigRequest {
	endian := cpu.LittleEndian
	switch {
	case c.Architecture.BigEndian32:
		endian = cpu.BigEndian32
	case c.Architecture.BigEndian:
		endian = cpu.BigEndian8
	}
	return cpu.ConfigRequest{
		Arch:         c.Architecture.Arch,
		Thumb:        c.Architecture.Thumb,
		ThumbEE:      c.Architecture.ThumbEE,
		Jazelle:      c.Architecture.Jazelle,
		JazelleExt:   c.Architecture.JazelleExt,
		FP:           c.Architecture.FP,
		SecurityExt:  c.Architecture.SecurityExt,
		VirtExt:      c.Architecture.VirtExt,
		EL2Supported: c.Architecture.EL2,
		EL3Supported: c.Architecture.EL3,
		Endianness:   endian,
	}
}

// ConfigPath returns the platform-specific settings file path, following
// the same XDG/AppData convention the teacher's GetConfigPath does.
func ConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "all-the-arm")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		dir = filepath.Join(home, ".config", "all-the-arm")
	default:
		return "config.toml"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// Load reads settings from the default path, falling back to defaults if
// no file exists yet.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads settings from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes settings to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes settings to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
