package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"ssm-keeper/internal/env"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. "127.0.0.1:8470")
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for stdout only
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Well known directories used by the keeper
 */
type DirectoryConfig struct {
	Logs  string `mapstructure:"logs"`
	Cache string `mapstructure:"cache"`
	Run   string `mapstructure:"run"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address for metrics
 */
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
}

/**
 * Self update configuration
 * @property {string} repository - GitHub repository slug holding release assets
 */
type UpgradeConfig struct {
	Repository string `mapstructure:"repository"`
}

/**
 * Background loop intervals, in seconds. A value <= 0 disables the loop.
 */
type IntervalConfig struct {
	Monitoring    int `mapstructure:"monitoring"`
	MetricsReport int `mapstructure:"metrics_report"`
}

/**
 * Session launch and termination parameters
 * @property {string} command - Tunnel launcher executable, normally the aws CLI
 * @property {[]string} args - Argument template expanded per session
 * @property {string} document_name - SSM document establishing the port forwarding
 * @property {string} ready_marker - Stdout marker preceding the session id
 */
type SessionConfig struct {
	Command         string        `mapstructure:"command"`
	Args            []string      `mapstructure:"args"`
	DocumentName    string        `mapstructure:"document_name"`
	ReadyMarker     string        `mapstructure:"ready_marker"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	KillTimeout     time.Duration `mapstructure:"kill_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

/**
 * One invocation signature for matching tunnel subprocesses in the OS
 * process table
 * @property {string} executable - Executable base name, e.g. "aws"
 * @property {string} contains - Substring the command line must carry
 */
type ProcessPattern struct {
	Executable string `mapstructure:"executable"`
	Contains   string `mapstructure:"contains"`
}

/**
 * Orphan scanning configuration
 */
type OrphanConfig struct {
	Patterns []ProcessPattern `mapstructure:"patterns"`
}

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Upgrade   UpgradeConfig   `mapstructure:"upgrade"`
	Interval  IntervalConfig  `mapstructure:"interval"`
	Session   SessionConfig   `mapstructure:"session"`
	Orphan    OrphanConfig    `mapstructure:"orphan"`
	Profiles  []ProfileConfig `mapstructure:"profiles"`
}

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(env.KeeperDir)
	viper.AddConfigPath("/etc/ssm-keeper")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:8470"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Directory.Logs == "" {
		cfg.Directory.Logs = filepath.Join(env.KeeperDir, "logs")
	}
	if cfg.Directory.Cache == "" {
		cfg.Directory.Cache = filepath.Join(env.KeeperDir, "cache")
	}
	if cfg.Directory.Run == "" {
		cfg.Directory.Run = filepath.Join(env.KeeperDir, "run")
	}
	if cfg.Upgrade.Repository == "" {
		cfg.Upgrade.Repository = "zgsm-ai/ssm-keeper"
	}
	if cfg.Interval.Monitoring <= 0 {
		cfg.Interval.Monitoring = 60
	}
	if cfg.Session.Command == "" {
		cfg.Session.Command = "aws"
	}
	if len(cfg.Session.Args) == 0 {
		cfg.Session.Args = []string{
			"ssm", "start-session",
			"--target", "{{.InstanceID}}",
			"--document-name", "{{.DocumentName}}",
			"--parameters", `{"localPortNumber":["{{.LocalPort}}"],"portNumber":["{{.RemotePort}}"]}`,
		}
	}
	if cfg.Session.DocumentName == "" {
		cfg.Session.DocumentName = "AWS-StartPortForwardingSession"
	}
	if cfg.Session.ReadyMarker == "" {
		cfg.Session.ReadyMarker = "Starting session with SessionId:"
	}
	if cfg.Session.LaunchTimeout <= 0 {
		cfg.Session.LaunchTimeout = 30 * time.Second
	}
	if cfg.Session.SettleDelay <= 0 {
		cfg.Session.SettleDelay = 500 * time.Millisecond
	}
	if cfg.Session.GracefulTimeout <= 0 {
		cfg.Session.GracefulTimeout = 5 * time.Second
	}
	if cfg.Session.KillTimeout <= 0 {
		cfg.Session.KillTimeout = 3 * time.Second
	}
	if cfg.Session.PollInterval <= 0 {
		cfg.Session.PollInterval = 100 * time.Millisecond
	}
	if len(cfg.Orphan.Patterns) == 0 {
		cfg.Orphan.Patterns = []ProcessPattern{
			{Executable: "aws", Contains: "ssm start-session"},
			{Executable: "session-manager-plugin"},
		}
	}
	return cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}

// Reload re-reads the configuration file and replaces the package level
// Config. Returns the refreshed configuration.
func Reload() (*AppConfig, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	Config = *cfg
	collectConfig(&Config)
	return &Config, nil
}
