// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/wfw/internal/core"
)

// DefaultPath is where the daemon looks for its configuration file.
const DefaultPath = "/etc/wfw/wfw.cfg"

// EnvPrefix prefixes every environment override, e.g. WFW_PORT or
// WFW_LOG_LEVEL.
const EnvPrefix = "WFW"

// Config is the complete runtime configuration.
type Config struct {
	Device    string     `mapstructure:"device" yaml:"device"`
	Port      uint16     `mapstructure:"port" yaml:"port"`
	Broadcast netip.Addr `mapstructure:"broadcast" yaml:"broadcast"`
	PIDFile   string     `mapstructure:"pidfile" yaml:"pidfile,omitempty"`

	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Policy  PolicyConfig  `mapstructure:"policy" yaml:"policy"`
	Link    LinkConfig    `mapstructure:"link" yaml:"link"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string     `mapstructure:"level" yaml:"level"`     // trace / debug / info / warn / error
	Pattern string     `mapstructure:"pattern" yaml:"pattern"` // %time %level %field %msg %caller %func %n
	Time    string     `mapstructure:"time" yaml:"time"`       // Go reference layout
	File    FileConfig `mapstructure:"file" yaml:"file"`

	// Unsolicited-connection warnings per transport peer per window
	// (0 = unlimited).
	WarnLimit  int           `mapstructure:"warn_limit" yaml:"warn_limit"`
	WarnWindow time.Duration `mapstructure:"warn_window" yaml:"warn_window"`
}

// FileConfig configures rotated file output.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Policy ───

// PolicyConfig controls how the bridge treats flagged traffic.
type PolicyConfig struct {
	Blacklisted BlacklistPolicy `mapstructure:"blacklisted" yaml:"blacklisted"`
}

// ─── Link ───

// LinkConfig controls optional link configuration of a Linux TAP device.
type LinkConfig struct {
	Up  bool `mapstructure:"up" yaml:"up"`
	MTU int  `mapstructure:"mtu" yaml:"mtu"` // 0 leaves the kernel default
}

// BroadcastEndpoint is the transport address every unresolved frame is
// sent to, and the address the inbound socket is bound to.
func (c *Config) BroadcastEndpoint() netip.AddrPort {
	return netip.AddrPortFrom(c.Broadcast, c.Port)
}

// ─── Loading ───

// Load reads the file at path and applies environment overrides.
// The file type follows the extension: .cfg and .conf files hold flat
// "key=value" lines, .yml/.yaml/.toml/.json are parsed natively.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType(configType(path))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func configType(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "cfg", "conf", "env", "":
		return "dotenv"
	case "yml":
		return "yaml"
	default:
		return ext
	}
}

// setDefaults registers every key so that environment overrides apply even
// when the file omits it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("device", "")
	v.SetDefault("port", 0)
	v.SetDefault("broadcast", "")
	v.SetDefault("pidfile", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", "%time [%level] %field %msg%n")
	v.SetDefault("log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "/var/log/wfw/wfw.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
	v.SetDefault("log.warn_limit", 10)
	v.SetDefault("log.warn_window", "1m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9464")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("policy.blacklisted", "forward")

	v.SetDefault("link.up", false)
	v.SetDefault("link.mtu", 0)
}

// ValidateAndApplyDefaults validates configuration and fills derived
// values. Every failure wraps core.ErrConfigInvalid.
func (cfg *Config) ValidateAndApplyDefaults() error {
	if cfg.Device == "" {
		return fmt.Errorf("%w: device is required", core.ErrConfigInvalid)
	}
	if cfg.Port == 0 {
		return fmt.Errorf("%w: port is required", core.ErrConfigInvalid)
	}
	if !cfg.Broadcast.IsValid() {
		return fmt.Errorf("%w: broadcast address is required", core.ErrConfigInvalid)
	}
	cfg.Broadcast = cfg.Broadcast.Unmap()
	if !cfg.Broadcast.Is4() {
		return fmt.Errorf("%w: broadcast %s is not an IPv4 address", core.ErrConfigInvalid, cfg.Broadcast)
	}

	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.WarnLimit < 0 {
		return fmt.Errorf("%w: log.warn_limit must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Log.WarnLimit > 0 && cfg.Log.WarnWindow <= 0 {
		return fmt.Errorf("%w: log.warn_window must be positive", core.ErrConfigInvalid)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			cfg.Metrics.Path = "/" + cfg.Metrics.Path
		}
	}

	if cfg.Link.MTU < 0 || cfg.Link.MTU > core.MaxPayloadLen {
		return fmt.Errorf("%w: link.mtu %d out of range 0-%d", core.ErrConfigInvalid, cfg.Link.MTU, core.MaxPayloadLen)
	}
	return nil
}
