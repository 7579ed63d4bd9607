// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server modes.
const (
	ModeChat   = "chat"
	ModeCombat = "combat"
)

// Default room capacities per mode when room.capacity is left at zero.
const (
	DefaultChatCapacity   = 3
	DefaultCombatCapacity = 2
	maxChatCapacity       = 16
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode selects the room protocol: "chat" or "combat".
	Mode string `mapstructure:"mode"`
}

// ListenerConfig holds the line protocol listener settings.
type ListenerConfig struct {
	// Host is the bind address for the TCP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the listener. Zero picks an ephemeral port.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout. Zero disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout. Zero disables it.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
func (l ListenerConfig) Addr() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// RoomConfig holds the rules applied to newly created rooms.
type RoomConfig struct {
	// Capacity is the maximum number of peers per room. Zero selects the mode default.
	Capacity int `mapstructure:"capacity"`
	// StartingHP is each combatant's hit points on join.
	StartingHP int `mapstructure:"starting_hp"`
	// StartingDefense is each combatant's defense on join.
	StartingDefense int `mapstructure:"starting_defense"`
	// PresetsDir optionally points at a directory of per-room YAML overrides.
	PresetsDir string `mapstructure:"presets_dir"`
}

// EffectiveCapacity resolves the configured capacity for the given mode.
//
// Postcondition: Returns Capacity when set, otherwise the mode default.
func (r RoomConfig) EffectiveCapacity(mode string) int {
	if r.Capacity > 0 {
		return r.Capacity
	}
	if mode == ModeCombat {
		return DefaultCombatCapacity
	}
	return DefaultChatCapacity
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds PostgreSQL connection settings for match history.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AdminConfig holds the operator-facing gRPC and HTTP endpoints.
type AdminConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port"`
}

// GRPCAddr returns the "host:port" gRPC address.
func (a AdminConfig) GRPCAddr() string {
	return net.JoinHostPort(a.GRPCHost, strconv.Itoa(a.GRPCPort))
}

// HTTPAddr returns the "host:port" HTTP address.
func (a AdminConfig) HTTPAddr() string {
	return net.JoinHostPort(a.HTTPHost, strconv.Itoa(a.HTTPPort))
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Listener ListenerConfig `mapstructure:"listener"`
	Room     RoomConfig     `mapstructure:"room"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// SetBindAddr overrides the listener host and port from a "host:port" string.
//
// Postcondition: Listener.Host and Listener.Port are updated, or an error is returned
// and the config is unchanged.
func (c *Config) SetBindAddr(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parsing bind address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("parsing bind port %q: %w", portStr, err)
	}
	c.Listener.Host = host
	c.Listener.Port = port
	return nil
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateListener(c.Listener); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoom(c.Room, c.Server.Mode); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Admin.Enabled {
		if err := validateAdmin(c.Admin); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Mode != ModeChat && s.Mode != ModeCombat {
		return fmt.Errorf("server.mode must be one of [chat, combat], got %q", s.Mode)
	}
	return nil
}

func validateListener(l ListenerConfig) error {
	var errs []string
	if l.Port < 0 || l.Port > 65535 {
		errs = append(errs, fmt.Sprintf("listener.port must be 0-65535, got %d", l.Port))
	}
	if l.ReadTimeout < 0 {
		errs = append(errs, "listener.read_timeout must not be negative")
	}
	if l.WriteTimeout < 0 {
		errs = append(errs, "listener.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateCapacity checks a room capacity against the mode's limits.
// It is shared with room preset loading.
func ValidateCapacity(capacity int, mode string) error {
	switch mode {
	case ModeCombat:
		if capacity != DefaultCombatCapacity {
			return fmt.Errorf("combat rooms must have capacity %d, got %d", DefaultCombatCapacity, capacity)
		}
	default:
		if capacity < 2 || capacity > maxChatCapacity {
			return fmt.Errorf("chat room capacity must be 2-%d, got %d", maxChatCapacity, capacity)
		}
	}
	return nil
}

func validateRoom(r RoomConfig, mode string) error {
	var errs []string
	if r.Capacity < 0 {
		errs = append(errs, fmt.Sprintf("room.capacity must be >= 0, got %d", r.Capacity))
	} else if err := ValidateCapacity(r.EffectiveCapacity(mode), mode); err != nil {
		errs = append(errs, "room.capacity: "+err.Error())
	}
	if r.StartingHP < 1 {
		errs = append(errs, fmt.Sprintf("room.starting_hp must be >= 1, got %d", r.StartingHP))
	}
	if r.StartingDefense < 0 {
		errs = append(errs, fmt.Sprintf("room.starting_defense must be >= 0, got %d", r.StartingDefense))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be between 0 and database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAdmin(a AdminConfig) error {
	var errs []string
	if a.GRPCPort < 0 || a.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("admin.grpc_port must be 0-65535, got %d", a.GRPCPort))
	}
	if a.HTTPPort < 0 || a.HTTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("admin.http_port must be 0-65535, got %d", a.HTTPPort))
	}
	if a.GRPCPort != 0 && a.GRPCPort == a.HTTPPort && a.GRPCHost == a.HTTPHost {
		errs = append(errs, "admin.grpc_port and admin.http_port must differ")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", ModeCombat)

	v.SetDefault("listener.host", "127.0.0.1")
	v.SetDefault("listener.port", 8080)
	v.SetDefault("listener.read_timeout", "0s")
	v.SetDefault("listener.write_timeout", "10s")

	v.SetDefault("room.capacity", 0)
	v.SetDefault("room.starting_hp", 10)
	v.SetDefault("room.starting_defense", 10)
	v.SetDefault("room.presets_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.grpc_host", "127.0.0.1")
	v.SetDefault("admin.grpc_port", 9090)
	v.SetDefault("admin.http_host", "127.0.0.1")
	v.SetDefault("admin.http_port", 9091)
}
