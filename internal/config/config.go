// Package config loads the collector configuration from the three YAML
// files (config.yaml, routes.yaml, alerts.yaml) plus environment
// overrides for secrets. The resulting Config is immutable and passed by
// reference to every component at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// KnownChannels is the set of channel names a route may enable.
// Unknown names are rejected at load time instead of silently failing
// at send time.
var KnownChannels = map[string]bool{
	"email":    true,
	"telegram": true,
	"viber":    true,
	"signal":   true,
}

// Config holds all configuration for one collector invocation.
type Config struct {
	BaseDir    string
	Timezone   string
	Google     GoogleConfig
	Database   DatabaseConfig
	Collection CollectionConfig
	Alerts     AlertsConfig
	Routes     []Route
}

type GoogleConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
	Region   string `yaml:"region"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type CollectionConfig struct {
	WindowBeforeMinutes int  `yaml:"window_before_minutes"`
	WindowAfterMinutes  int  `yaml:"window_after_minutes"`
	RequestAlternatives bool `yaml:"request_alternatives"`
}

// AlertsConfig mirrors alerts.yaml: global thresholds plus one section
// per channel.
type AlertsConfig struct {
	Settings AlertSettings  `yaml:"alert_settings"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
	Viber    ViberConfig    `yaml:"viber"`
	Signal   SignalConfig   `yaml:"signal"`
}

type AlertSettings struct {
	TrafficThresholdPercent int `yaml:"traffic_threshold_percent"`
	MinSamplesForAlerts     int `yaml:"min_samples_for_alerts"`
	MaxAlertsPerDay         int `yaml:"max_alerts_per_day"`
}

type EmailConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Method         string   `yaml:"method"` // "smtp" or "sendmail"
	Recipients     []string `yaml:"recipients"`
	FromAddress    string   `yaml:"from_address"`
	FromName       string   `yaml:"from_name"`
	SMTPHost       string   `yaml:"smtp_host"`
	SMTPPort       int      `yaml:"smtp_port"`
	SMTPEncryption string   `yaml:"smtp_encryption"` // "tls", "ssl" or "none"
	SMTPUsername   string   `yaml:"smtp_username"`
	SMTPPassword   string   `yaml:"smtp_password"`
}

type TelegramConfig struct {
	Enabled  bool     `yaml:"enabled"`
	BotToken string   `yaml:"bot_token"`
	ChatIDs  []string `yaml:"chat_ids"`
	APIURL   string   `yaml:"api_url"` // override for tests
}

type ViberConfig struct {
	Enabled     bool     `yaml:"enabled"`
	AuthToken   string   `yaml:"auth_token"`
	ReceiverIDs []string `yaml:"receiver_ids"`
	APIURL      string   `yaml:"api_url"`
}

type SignalConfig struct {
	Enabled          bool     `yaml:"enabled"`
	APIURL           string   `yaml:"api_url"`
	SenderNumber     string   `yaml:"sender_number"`
	RecipientNumbers []string `yaml:"recipient_numbers"`
}

// Route is one monitored origin/destination pair. Routes are defined in
// routes.yaml and immutable at runtime.
type Route struct {
	ID          string          `yaml:"id"`
	Label       string          `yaml:"label"`
	Origin      string          `yaml:"origin"`
	Destination string          `yaml:"destination"`
	TravelMode  string          `yaml:"travel_mode"`
	Schedule    []ScheduleEntry `yaml:"schedule"`
	Alerts      []string        `yaml:"alerts"`
}

// ScheduleEntry is one recurrence rule: a day set plus exactly one of
// depart / arrive. When both are present depart wins; with neither the
// entry is inert.
type ScheduleEntry struct {
	Days   string `yaml:"days"`
	Depart string `yaml:"depart"`
	Arrive string `yaml:"arrive"`
}

type routesFile struct {
	Routes []Route `yaml:"routes"`
}

type mainFile struct {
	Timezone   string           `yaml:"timezone"`
	Google     GoogleConfig     `yaml:"google_maps"`
	Database   DatabaseConfig   `yaml:"database"`
	Collection CollectionConfig `yaml:"collection"`
}

// Load reads configuration from baseDir. A .env file next to the config
// files is honoured for secret overrides.
func Load(baseDir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(baseDir, ".env"))

	var main mainFile
	if err := parseYAMLFile(filepath.Join(baseDir, "config.yaml"), &main); err != nil {
		return nil, err
	}

	var routes routesFile
	if err := parseYAMLFile(filepath.Join(baseDir, "routes.yaml"), &routes); err != nil {
		return nil, err
	}

	var alerts AlertsConfig
	if err := parseYAMLFile(filepath.Join(baseDir, "alerts.yaml"), &alerts); err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseDir:    baseDir,
		Timezone:   main.Timezone,
		Google:     main.Google,
		Database:   main.Database,
		Collection: main.Collection,
		Alerts:     alerts,
		Routes:     routes.Routes,
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseYAMLFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("configuration file not found: %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Athens"
	}
	if c.Google.Language == "" {
		c.Google.Language = "el"
	}
	if c.Google.Region == "" {
		c.Google.Region = "gr"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/routes.sqlite"
	}
	if c.Collection.WindowBeforeMinutes == 0 {
		c.Collection.WindowBeforeMinutes = 15
	}
	if c.Collection.WindowAfterMinutes == 0 {
		c.Collection.WindowAfterMinutes = 5
	}
	if c.Alerts.Settings.TrafficThresholdPercent == 0 {
		c.Alerts.Settings.TrafficThresholdPercent = 30
	}
	if c.Alerts.Settings.MinSamplesForAlerts == 0 {
		c.Alerts.Settings.MinSamplesForAlerts = 5
	}
	if c.Alerts.Settings.MaxAlertsPerDay == 0 {
		c.Alerts.Settings.MaxAlertsPerDay = 3
	}
	if c.Alerts.Email.SMTPPort == 0 {
		c.Alerts.Email.SMTPPort = 587
	}
	if c.Alerts.Email.SMTPEncryption == "" {
		c.Alerts.Email.SMTPEncryption = "tls"
	}
	if c.Alerts.Email.Method == "" {
		c.Alerts.Email.Method = "smtp"
	}
	if c.Alerts.Telegram.APIURL == "" {
		c.Alerts.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Alerts.Viber.APIURL == "" {
		c.Alerts.Viber.APIURL = "https://chatapi.viber.com"
	}
	if c.Alerts.Signal.APIURL == "" {
		c.Alerts.Signal.APIURL = "http://localhost:8080"
	}
	for i := range c.Routes {
		if c.Routes[i].TravelMode == "" {
			c.Routes[i].TravelMode = "driving"
		}
	}
}

func (c *Config) applyEnvOverrides() {
	c.Google.APIKey = getEnv("GOOGLE_MAPS_API_KEY", c.Google.APIKey)
	c.Database.Path = getEnv("ROUTE_TRACKER_DB", c.Database.Path)
	c.Alerts.Email.SMTPPassword = getEnv("SMTP_PASSWORD", c.Alerts.Email.SMTPPassword)
	c.Alerts.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Alerts.Telegram.BotToken)
	c.Alerts.Viber.AuthToken = getEnv("VIBER_AUTH_TOKEN", c.Alerts.Viber.AuthToken)
	c.Alerts.Settings.MaxAlertsPerDay = getEnvInt("MAX_ALERTS_PER_DAY", c.Alerts.Settings.MaxAlertsPerDay)
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Routes))
	for _, r := range c.Routes {
		if r.ID == "" {
			return fmt.Errorf("route with empty id (label %q)", r.Label)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate route id: %s", r.ID)
		}
		seen[r.ID] = true

		for _, ch := range r.Alerts {
			if !KnownChannels[ch] {
				return fmt.Errorf("route %s: unknown alert channel %q", r.ID, ch)
			}
		}
	}
	return nil
}

// DBPath returns the database path, resolving a relative path against
// the config base directory.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.BaseDir, c.Database.Path)
}

// GetRoute returns the route with the given id, or nil.
func (c *Config) GetRoute(id string) *Route {
	for i := range c.Routes {
		if c.Routes[i].ID == id {
			return &c.Routes[i]
		}
	}
	return nil
}

// ChannelEnabled reports whether a channel is switched on in alerts.yaml.
func (c *Config) ChannelEnabled(name string) bool {
	switch name {
	case "email":
		return c.Alerts.Email.Enabled
	case "telegram":
		return c.Alerts.Telegram.Enabled
	case "viber":
		return c.Alerts.Viber.Enabled
	case "signal":
		return c.Alerts.Signal.Enabled
	}
	return false
}

// AlertChannels returns the route's channels filtered to those enabled
// globally.
func (c *Config) AlertChannels(r Route) []string {
	var out []string
	for _, ch := range r.Alerts {
		if c.ChannelEnabled(ch) {
			out = append(out, ch)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
