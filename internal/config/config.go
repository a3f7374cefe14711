// Package config loads the server configuration from a YAML file, with
// COMMANDBOOK_ environment overrides and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"commandbook/internal/session"
	"commandbook/internal/teleport"
)

// EnvPrefix prefixes environment overrides: server.address is read from
// COMMANDBOOK_SERVER_ADDRESS.
const EnvPrefix = "COMMANDBOOK"

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Console   ConsoleConfig
	Worlds    []WorldConfig `mapstructure:"worlds"`
	Teleport  TeleportConfig
	Locations LocationsConfig
	Messages  MessagesConfig
}

type ServerConfig struct {
	Address       string
	TLS           bool   `mapstructure:"tls"`
	CertFile      string `mapstructure:"cert"`
	KeyFile       string `mapstructure:"key"`
	Admin         string
	EveryoneAdmin bool `mapstructure:"everyone_admin"`
}

type DataConfig struct {
	Accounts    string
	Locations   string
	Sessions    string
	Permissions string
}

type ConsoleConfig struct {
	// Address is empty when the remote console is off.
	Address   string
	JWTSecret string `mapstructure:"jwt_secret"`
}

type WorldConfig struct {
	Name        string
	Environment string
	Ground      int
	MaxHeight   int       `mapstructure:"max_height"`
	Spawn       []float64 `mapstructure:"spawn"`
}

type TeleportConfig struct {
	HistorySize            int           `mapstructure:"history_size"`
	BringableWindow        time.Duration `mapstructure:"bringable_window"`
	RequestCooldown        time.Duration `mapstructure:"request_cooldown"`
	ReconnectGrace         time.Duration `mapstructure:"reconnect_grace"`
	MaxAge                 time.Duration `mapstructure:"max_age"`
	SweepInterval          time.Duration `mapstructure:"sweep_interval"`
	AllowVehicles          bool          `mapstructure:"allow_vehicles"`
	InformManyWhenExcluded bool          `mapstructure:"inform_many_when_excluded"`
	InformManyWhenIncluded bool          `mapstructure:"inform_many_when_included"`
	DisplayNames           bool          `mapstructure:"display_names"`
}

type LocationsConfig struct {
	Homes         bool
	Warps         bool
	PerWorldHomes bool `mapstructure:"per_world_homes"`
	PerWorldWarps bool `mapstructure:"per_world_warps"`
}

type MessagesConfig struct {
	CallSender  string `mapstructure:"call_sender"`
	CallTarget  string `mapstructure:"call_target"`
	CallTooSoon string `mapstructure:"call_too_soon"`
	BringSender string `mapstructure:"bring_sender"`
	BringTarget string `mapstructure:"bring_target"`
	BringNoPerm string `mapstructure:"bring_no_perm"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":4000")
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert", "data/tls/cert.pem")
	v.SetDefault("server.key", "data/tls/key.pem")
	v.SetDefault("server.admin", "admin")
	v.SetDefault("server.everyone_admin", false)

	v.SetDefault("data.accounts", "data/accounts.json")
	v.SetDefault("data.locations", "data/locations.db")
	v.SetDefault("data.sessions", "data/sessions.zst")
	v.SetDefault("data.permissions", "data/permissions.yaml")

	v.SetDefault("console.address", "")
	v.SetDefault("console.jwt_secret", "")

	s := session.DefaultSettings()
	v.SetDefault("teleport.history_size", s.HistorySize)
	v.SetDefault("teleport.bringable_window", s.BringableWindow)
	v.SetDefault("teleport.request_cooldown", s.RequestCooldown)
	v.SetDefault("teleport.reconnect_grace", s.ReconnectGrace)
	v.SetDefault("teleport.max_age", s.MaxAge)
	v.SetDefault("teleport.sweep_interval", s.SweepInterval)
	t := teleport.DefaultConfig()
	v.SetDefault("teleport.allow_vehicles", t.AllowVehicles)
	v.SetDefault("teleport.inform_many_when_excluded", t.InformManyWhenExcluded)
	v.SetDefault("teleport.inform_many_when_included", t.InformManyWhenIncluded)
	v.SetDefault("teleport.display_names", true)

	v.SetDefault("locations.homes", true)
	v.SetDefault("locations.warps", true)
	v.SetDefault("locations.per_world_homes", false)
	v.SetDefault("locations.per_world_warps", false)

	m := t.Messages
	v.SetDefault("messages.call_sender", m.CallSender)
	v.SetDefault("messages.call_target", m.CallTarget)
	v.SetDefault("messages.call_too_soon", m.CallTooSoon)
	v.SetDefault("messages.bring_sender", m.BringSender)
	v.SetDefault("messages.bring_target", m.BringTarget)
	v.SetDefault("messages.bring_no_perm", m.BringNoPerm)
}

// DefaultWorlds is used when the file lists none.
func DefaultWorlds() []WorldConfig {
	return []WorldConfig{
		{Name: "world", Environment: "normal", Ground: 64, MaxHeight: 256, Spawn: []float64{0.5, 64, 0.5}},
		{Name: "world_nether", Environment: "nether", Ground: 32, MaxHeight: 128, Spawn: []float64{0.5, 32, 0.5}},
		{Name: "world_the_end", Environment: "end", Ground: 48, MaxHeight: 256, Spawn: []float64{100.5, 49, 0.5}},
	}
}

// Load reads path. A missing file is not an error: defaults and the
// environment apply. An empty path skips the file.
func Load(path string, logger *log.Logger) (*Config, error) {
	if logger == nil {
		logger = log.Default()
	}
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			logger.Printf("config file %s not found, using defaults", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Worlds) == 0 {
		cfg.Worlds = DefaultWorlds()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, w := range c.Worlds {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return fmt.Errorf("world %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("world %q listed twice", name)
		}
		seen[name] = true
		if w.Spawn != nil && len(w.Spawn) != 3 {
			return fmt.Errorf("world %q: spawn needs three coordinates", name)
		}
		if w.MaxHeight <= 0 {
			return fmt.Errorf("world %q: max_height must be positive", name)
		}
	}
	if c.Console.Address != "" && c.Console.JWTSecret == "" {
		return errors.New("console.jwt_secret is required when the console is enabled")
	}
	return nil
}

// SessionSettings converts the teleport section into session settings.
func (t TeleportConfig) SessionSettings() session.Settings {
	return session.Settings{
		HistorySize:     t.HistorySize,
		BringableWindow: t.BringableWindow,
		RequestCooldown: t.RequestCooldown,
		ReconnectGrace:  t.ReconnectGrace,
		MaxAge:          t.MaxAge,
		SweepInterval:   t.SweepInterval,
	}
}

// ExecutorConfig combines the teleport and messages sections.
func (c *Config) ExecutorConfig(highlight func(string) string) teleport.Config {
	return teleport.Config{
		AllowVehicles:          c.Teleport.AllowVehicles,
		InformManyWhenExcluded: c.Teleport.InformManyWhenExcluded,
		InformManyWhenIncluded: c.Teleport.InformManyWhenIncluded,
		Highlight:              highlight,
		Messages: teleport.Messages{
			CallSender:  c.Messages.CallSender,
			CallTarget:  c.Messages.CallTarget,
			CallTooSoon: c.Messages.CallTooSoon,
			BringSender: c.Messages.BringSender,
			BringTarget: c.Messages.BringTarget,
			BringNoPerm: c.Messages.BringNoPerm,
		},
	}
}
