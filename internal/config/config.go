// Package config loads grocer's layered JSONC configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/grocer/internal/store"
)

// Errors.
var (
	ErrFileNotFound   = errors.New("config file not found")
	ErrFileRead       = errors.New("cannot read config file")
	ErrInvalid        = errors.New("invalid config file")
	ErrDataDirEmpty   = errors.New("data-dir cannot be empty")
	ErrBackend        = errors.New("backend must be file, sqlite or memory")
	ErrServiceTimeout = errors.New("service_timeout must be a positive duration")
	ErrLogLevel       = errors.New("log_level must be debug, info, warn or error")
	ErrTimezone       = errors.New("unknown timezone")
)

// FileName is the project config file name.
const FileName = ".grocer.json"

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DataDir        string `json:"data_dir"`
	Backend        string `json:"backend,omitempty"`
	Owner          string `json:"owner,omitempty"`
	ServiceURL     string `json:"service_url,omitempty"`
	ServiceTimeout string `json:"service_timeout,omitempty"`
	LogLevel       string `json:"log_level,omitempty"`
	Timezone       string `json:"timezone,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string         `json:"-"`
	DataDirAbs   string         `json:"-"`
	Timeout      time.Duration  `json:"-"`
	Level        slog.Level     `json:"-"`
	Location     *time.Location `json:"-"`

	// Sources tracks which config files were loaded
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataDir:        ".grocer",
		Backend:        store.BackendFile,
		Owner:          store.GuestOwner,
		ServiceTimeout: "8s",
		LogLevel:       "warn",
	}
}

// globalPath returns $XDG_CONFIG_HOME/grocer/config.json, falling back to
// ~/.config/grocer/config.json. Empty when neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "grocer", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "grocer", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string // -C/--cwd; os.Getwd() when empty
	ConfigPath      string // -c/--config
	DataDir         *string
	Owner           *string
	ServiceURL      *string
	Env             map[string]string
}

// Load resolves configuration with the following precedence (highest wins):
//  1. Defaults
//  2. Global user config
//  3. Project config (.grocer.json) or the explicit -c file
//  4. Environment (GROCER_OWNER, GROCER_SERVICE_URL, GROCER_LOG_LEVEL)
//  5. CLI flags
func Load(in Input) (Config, error) {
	workDir := in.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(in.Env); path != "" {
		global, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, global)
		}
	}

	project, projectPath, err := loadProject(workDir, in.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, project)

	cfg = merge(cfg, Config{
		Owner:      in.Env["GROCER_OWNER"],
		ServiceURL: in.Env["GROCER_SERVICE_URL"],
		LogLevel:   in.Env["GROCER_LOG_LEVEL"],
	})

	if in.DataDir != nil {
		if strings.TrimSpace(*in.DataDir) == "" {
			return Config{}, ErrDataDirEmpty
		}

		cfg.DataDir = *in.DataDir
	}

	if in.Owner != nil {
		cfg.Owner = strings.TrimSpace(*in.Owner)
	}

	if in.ServiceURL != nil {
		cfg.ServiceURL = strings.TrimSpace(*in.ServiceURL)
	}

	err = resolve(&cfg, workDir)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadProject(workDir, configPath string) (Config, string, error) {
	path := filepath.Join(workDir, FileName)
	mustExist := false

	if configPath != "" {
		path = configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		mustExist = true

		_, statErr := os.Stat(path)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadFile(path, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile reads one JSONC file. Missing optional files are not an error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

// merge overlays every non-empty field of overlay onto base.
func merge(base, overlay Config) Config {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}

	set(&base.DataDir, overlay.DataDir)
	set(&base.Backend, overlay.Backend)
	set(&base.Owner, overlay.Owner)
	set(&base.ServiceURL, overlay.ServiceURL)
	set(&base.ServiceTimeout, overlay.ServiceTimeout)
	set(&base.LogLevel, overlay.LogLevel)
	set(&base.Timezone, overlay.Timezone)

	return base
}

func resolve(cfg *Config, workDir string) error {
	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DataDir) {
		cfg.DataDirAbs = cfg.DataDir
	} else {
		cfg.DataDirAbs = filepath.Join(workDir, cfg.DataDir)
	}

	cfg.Backend = strings.ToLower(cfg.Backend)
	switch cfg.Backend {
	case store.BackendFile, store.BackendSQLite, store.BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrBackend, cfg.Backend)
	}

	if cfg.Owner == "" {
		cfg.Owner = store.GuestOwner
	}

	timeout, err := time.ParseDuration(cfg.ServiceTimeout)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("%w: %q", ErrServiceTimeout, cfg.ServiceTimeout)
	}

	cfg.Timeout = timeout

	err = cfg.Level.UnmarshalText([]byte(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevel, cfg.LogLevel)
	}

	cfg.Location = time.Local

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrTimezone, cfg.Timezone)
		}

		cfg.Location = loc
	}

	return nil
}
