package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"camellia/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Business   BusinessConfig   `yaml:"business"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Drive      DriveConfig      `yaml:"drive"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BusinessConfig describes the salon's weekly schedule. Times are "HH:MM"
// wall-clock values in Timezone.
type BusinessConfig struct {
	Open                   string   `yaml:"open"`
	Close                  string   `yaml:"close"`
	BreakStart             string   `yaml:"break_start"`
	BreakEnd               string   `yaml:"break_end"`
	ClosedWeekdays         []string `yaml:"closed_weekdays"`
	SlotStepMinutes        int      `yaml:"slot_step_minutes"`
	DefaultDurationMinutes int      `yaml:"default_duration_minutes"`
	Timezone               string   `yaml:"timezone"`
	MaxBookingDays         int      `yaml:"max_booking_days"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	RootFolderID    string `yaml:"root_folder_id"`
	MaxRetries      int    `yaml:"max_retries"`
	MinWidth        int    `yaml:"min_width"`
	MinHeight       int    `yaml:"min_height"`
	MaxUploadWidth  int    `yaml:"max_upload_width"`
}

type UploadsConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// Load reads the yaml config, expanding ${VAR} references from the
// environment (a .env file is honored when present).
func Load(configPath string) (*Config, error) {
	// .env is optional; env vars may come from the real environment.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := parseClock(c.Business.Open); err != nil {
		return fmt.Errorf("business.open: %w", err)
	}
	openAt, _ := parseClock(c.Business.Open)
	closeAt, err := parseClock(c.Business.Close)
	if err != nil {
		return fmt.Errorf("business.close: %w", err)
	}
	if closeAt <= openAt {
		return errors.New("business.close must be after business.open")
	}

	if c.Business.BreakStart != "" || c.Business.BreakEnd != "" {
		bs, err := parseClock(c.Business.BreakStart)
		if err != nil {
			return fmt.Errorf("business.break_start: %w", err)
		}
		be, err := parseClock(c.Business.BreakEnd)
		if err != nil {
			return fmt.Errorf("business.break_end: %w", err)
		}
		if be <= bs {
			return errors.New("business.break_end must be after business.break_start")
		}
	}

	for _, day := range c.Business.ClosedWeekdays {
		if _, err := ParseWeekday(day); err != nil {
			return fmt.Errorf("business.closed_weekdays: %w", err)
		}
	}

	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("business.timezone: %w", err)
	}

	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth.api_keys is required when auth is enabled")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "camellia"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Business.Open == "" {
		c.Business.Open = "08:00"
	}
	if c.Business.Close == "" {
		c.Business.Close = "18:00"
	}
	if c.Business.BreakStart == "" && c.Business.BreakEnd == "" {
		c.Business.BreakStart = "13:00"
		c.Business.BreakEnd = "14:00"
	}
	if len(c.Business.ClosedWeekdays) == 0 {
		c.Business.ClosedWeekdays = []string{"Sunday"}
	}
	if c.Business.SlotStepMinutes == 0 {
		c.Business.SlotStepMinutes = models.SlotStepMinutes
	}
	if c.Business.DefaultDurationMinutes == 0 {
		c.Business.DefaultDurationMinutes = models.DefaultDurationMinutes
	}
	if c.Business.Timezone == "" {
		c.Business.Timezone = "Local"
	}
	if c.Business.MaxBookingDays == 0 {
		c.Business.MaxBookingDays = models.DefaultMaxBookingDays
	}

	if c.Drive.MaxRetries == 0 {
		c.Drive.MaxRetries = 3
	}
	if c.Drive.MinWidth == 0 {
		c.Drive.MinWidth = 400
	}
	if c.Drive.MinHeight == 0 {
		c.Drive.MinHeight = 400
	}
	if c.Drive.MaxUploadWidth == 0 {
		c.Drive.MaxUploadWidth = 1600
	}

	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.BaseURL == "" {
		c.Uploads.BaseURL = "/uploads"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}

// parseClock converts "HH:MM" to an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Clock is the parsed form of an "HH:MM" config value.
func Clock(s string) time.Duration {
	d, _ := parseClock(s)
	return d
}

// ParseWeekday maps an English weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}
