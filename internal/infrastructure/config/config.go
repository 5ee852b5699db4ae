package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the theatre controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Theatre     TheatreConfig     `yaml:"theatre"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Controller  ControllerConfig  `yaml:"controller"`
	Devices     DevicesConfig     `yaml:"devices"`
	MediaCenter MediaCenterConfig `yaml:"media_center"`
	MovieDB     MovieDBConfig     `yaml:"movie_db"`
	HTPC        HTPCConfig        `yaml:"htpc"`
}

// TheatreConfig identifies the installation.
type TheatreConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ControllerConfig tunes the event dispatcher.
type ControllerConfig struct {
	// ActionTimeout bounds a single rule action. Zero disables the bound.
	ActionTimeout time.Duration `yaml:"action_timeout"`

	// ShutdownTimeout bounds the shutdown hook.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// AuditEnabled records every executed rule action in SQLite.
	AuditEnabled bool `yaml:"audit_enabled"`
}

// DevicesConfig names the devices on the MQTT bus and how they are driven.
type DevicesConfig struct {
	VideoProcessor string `yaml:"video_processor"`
	Display        string `yaml:"display"`
	AudioProcessor string `yaml:"audio_processor"`
	MediaPlayer    string `yaml:"media_player"`

	// RequestTimeout bounds request/response exchanges such as content lookups.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the per-device command circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32 `yaml:"max_failures"`

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// MediaCenterConfig configures the media-center web service poller.
type MediaCenterConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URL          string        `yaml:"url"`
	Zone         int           `yaml:"zone"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// MovieDBConfig configures the movie database lookup.
type MovieDBConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTPCConfig configures how the home-theater PC switches between 2D and 3D.
type HTPCConfig struct {
	// Mode is "remote" (HTTP), "local" (profile commands) or "disabled".
	Mode string `yaml:"mode"`

	// URL is the base address of the remote switcher service.
	URL string `yaml:"url"`

	// SettleDelay is how long to wait after routing the display ports
	// before switching the presentation mode.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// Profile2D and Profile3D are the local commands that load each
	// presentation profile.
	Profile2D CommandConfig `yaml:"profile_2d"`
	Profile3D CommandConfig `yaml:"profile_3d"`

	// CommandTimeout bounds a local profile command.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// CommandConfig is an external command line.
type CommandConfig struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// HTPC switcher modes.
const (
	HTPCModeRemote   = "remote"
	HTPCModeLocal    = "local"
	HTPCModeDisabled = "disabled"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Theatre: TheatreConfig{
			ID:   "theatre-001",
			Name: "Home Theatre",
		},
		Database: DatabaseConfig{
			Path:        "./data/theatre.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "theatre-core",
			},
			QoS:         1,
			TopicPrefix: "theatre",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Controller: ControllerConfig{
			ActionTimeout:   30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AuditEnabled:    true,
		},
		Devices: DevicesConfig{
			VideoProcessor: "lumagen",
			Display:        "projector",
			AudioProcessor: "trinnov",
			MediaPlayer:    "kaleidescape",
			RequestTimeout: 5 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		MediaCenter: MediaCenterConfig{
			URL:          "http://localhost:52199",
			Zone:         -1,
			PollInterval: time.Second,
			Timeout:      5 * time.Second,
		},
		MovieDB: MovieDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: 5 * time.Second,
		},
		HTPC: HTPCConfig{
			Mode:           HTPCModeDisabled,
			SettleDelay:    5 * time.Second,
			CommandTimeout: 30 * time.Second,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: THEATRE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("THEATRE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("THEATRE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("THEATRE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("THEATRE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("THEATRE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("THEATRE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Movie database key. TMDB_APIKEY is accepted for existing installs.
	if v := firstEnv("THEATRE_MOVIEDB_API_KEY", "TMDB_APIKEY"); v != "" {
		cfg.MovieDB.APIKey = v
	}

	// Media player serial number doubles as its bus identifier.
	if v := firstEnv("THEATRE_MEDIA_PLAYER", "KPLAYER_SERIAL_NUMBER"); v != "" {
		cfg.Devices.MediaPlayer = v
	}

	if v := os.Getenv("THEATRE_HTPC_URL"); v != "" {
		cfg.HTPC.URL = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Theatre.ID == "" {
		errs = append(errs, "theatre.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Controller.ActionTimeout < 0 {
		errs = append(errs, "controller.action_timeout must not be negative")
	}
	if c.Controller.ShutdownTimeout <= 0 {
		errs = append(errs, "controller.shutdown_timeout must be positive")
	}

	for _, d := range []struct{ key, id string }{
		{"devices.video_processor", c.Devices.VideoProcessor},
		{"devices.display", c.Devices.Display},
		{"devices.audio_processor", c.Devices.AudioProcessor},
		{"devices.media_player", c.Devices.MediaPlayer},
	} {
		if d.id == "" {
			errs = append(errs, d.key+" is required")
		} else if strings.ContainsAny(d.id, "/+#") {
			errs = append(errs, d.key+" must not contain MQTT wildcards or separators")
		}
	}

	if c.MediaCenter.Enabled {
		if c.MediaCenter.URL == "" {
			errs = append(errs, "media_center.url is required when enabled")
		}
		if c.MediaCenter.PollInterval <= 0 {
			errs = append(errs, "media_center.poll_interval must be positive")
		}
	}

	if c.MovieDB.Enabled && c.MovieDB.APIKey == "" {
		errs = append(errs, "movie_db.api_key is required when enabled (set THEATRE_MOVIEDB_API_KEY)")
	}

	switch c.HTPC.Mode {
	case HTPCModeDisabled:
	case HTPCModeRemote:
		if c.HTPC.URL == "" {
			errs = append(errs, "htpc.url is required in remote mode")
		}
	case HTPCModeLocal:
		if c.HTPC.Profile2D.Binary == "" || c.HTPC.Profile3D.Binary == "" {
			errs = append(errs, "htpc.profile_2d and htpc.profile_3d are required in local mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("htpc.mode %q must be remote, local or disabled", c.HTPC.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
