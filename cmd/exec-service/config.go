package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"wasmexec/internal/exec/sandbox/engine"
	"wasmexec/internal/exec/sandbox/profile"
	"wasmexec/internal/exec/sandbox/spec"
	"wasmexec/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = "8080"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultExecTimeout     = 30 * time.Second
	defaultPoolSize        = 4
	defaultMaxPayloadMiB   = 32
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// Addr joins host and port into a listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// SandboxConfig holds sandbox engine settings.
type SandboxConfig struct {
	Profile                       string `yaml:"profile"`
	InitialMemoryReservationBytes int64  `yaml:"initialMemoryReservationBytes"`
	GrowthReservationBytes        int64  `yaml:"growthReservationBytes"`
	GuardPageSizeBytes            int64  `yaml:"guardPageSizeBytes"`
	AllowMemoryRelocation         *bool  `yaml:"allowMemoryRelocation"`
	CaptureMaxBytes               int    `yaml:"captureMaxBytes"`
	Interruptible                 *bool  `yaml:"interruptible"`
	CompilationCache              bool   `yaml:"compilationCache"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	PoolSize int           `yaml:"poolSize"`
	Timeout  time.Duration `yaml:"timeout"`
	SlotWait time.Duration `yaml:"slotWait"`
}

// HTTPConfig holds request handling settings.
type HTTPConfig struct {
	MaxPayloadBytes int64 `yaml:"maxPayloadBytes"`
}

// AppConfig holds exec-service config.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Worker  WorkerConfig  `yaml:"worker"`
	HTTP    HTTPConfig    `yaml:"http"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads the YAML config and applies defaults and
// environment overrides. A missing file at the default path is not an
// error; the service then runs on defaults plus HOST/PORT.
func loadAppConfig(path string, optional bool) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		if !(optional && errors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if _, err := profile.Parse(cfg.Sandbox.Profile); err != nil {
		return nil, err
	}
	if err := cfg.Sandbox.toLimits().Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = defaultPoolSize
	}
	if cfg.Worker.Timeout == 0 {
		cfg.Worker.Timeout = defaultExecTimeout
	}
	if cfg.HTTP.MaxPayloadBytes <= 0 {
		cfg.HTTP.MaxPayloadBytes = defaultMaxPayloadMiB << 20
	}
	if cfg.Sandbox.InitialMemoryReservationBytes == 0 &&
		cfg.Sandbox.GrowthReservationBytes == 0 {
		defaults := spec.DefaultLimits()
		cfg.Sandbox.InitialMemoryReservationBytes = defaults.InitialMemoryReservationBytes
		cfg.Sandbox.GrowthReservationBytes = defaults.GrowthReservationBytes
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
}

func (s SandboxConfig) toLimits() spec.Limits {
	allowRelocation := true
	if s.AllowMemoryRelocation != nil {
		allowRelocation = *s.AllowMemoryRelocation
	}
	return spec.Limits{
		InitialMemoryReservationBytes: s.InitialMemoryReservationBytes,
		GrowthReservationBytes:        s.GrowthReservationBytes,
		GuardPageSizeBytes:            s.GuardPageSizeBytes,
		AllowMemoryRelocation:         allowRelocation,
	}
}

func (s SandboxConfig) toEngineConfig() (engine.Config, error) {
	kind, err := profile.Parse(s.Profile)
	if err != nil {
		return engine.Config{}, err
	}
	interruptible := true
	if s.Interruptible != nil {
		interruptible = *s.Interruptible
	}
	return engine.Config{
		Limits:           s.toLimits(),
		Profile:          kind,
		CaptureBytes:     s.CaptureMaxBytes,
		Interruptible:    interruptible,
		CompilationCache: s.CompilationCache,
	}, nil
}
