package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// ErrNoWebhook is returned by Validate when neither the holidays nor the
// announcements webhook is set.
var ErrNoWebhook = errors.New("no webhook configured: set WEBHOOK_ANNOUNCEMENTS or WEBHOOK_HOLIDAYS")

// CronParser accepts standard five-field specs and descriptors like @daily.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var reHHMM = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Storage  StorageConfig     `mapstructure:"storage"`
	Schedule ScheduleConfig    `mapstructure:"schedule"`
	Webhooks map[string]string `mapstructure:"webhooks"`
	Holidays HolidaysConfig    `mapstructure:"holidays"`
	AI       AIConfig          `mapstructure:"ai"`
	Notifier NotifierConfig    `mapstructure:"notifier"`
	Branding BrandingConfig    `mapstructure:"branding"`
	Roles    map[string]string `mapstructure:"roles"`
	TestMode bool              `mapstructure:"test_mode"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type StorageConfig struct {
	FilePath string `mapstructure:"file_path"`
}

type ScheduleConfig struct {
	Timezone      string        `mapstructure:"timezone"`
	Cron          string        `mapstructure:"cron"`
	GuardTime     string        `mapstructure:"guard_time"`
	GuardInterval time.Duration `mapstructure:"guard_interval"`
}

type HolidaysConfig struct {
	Country         string        `mapstructure:"country"`
	CalendarificKey string        `mapstructure:"calendarific_key"`
	AbstractKey     string        `mapstructure:"abstract_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type AIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotifierConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type BrandingConfig struct {
	Team      string `mapstructure:"team"`
	BotName   string `mapstructure:"bot_name"`
	AvatarURL string `mapstructure:"avatar_url"`
}

var envBindings = map[string]string{
	"webhooks.announcements":    "WEBHOOK_ANNOUNCEMENTS",
	"webhooks.updates":          "WEBHOOK_UPDATES",
	"webhooks.holidays":         "WEBHOOK_HOLIDAYS",
	"webhooks.general":          "WEBHOOK_GENERAL",
	"ai.api_key":                "GOOGLE_AI_API_KEY",
	"holidays.calendarific_key": "CALENDARIFIC_API_KEY",
	"holidays.abstract_key":     "ABSTRACT_API_KEY",
	"schedule.timezone":         "TIMEZONE",
	"server.port":               "DASHBOARD_PORT",
	"server.password":           "DASHBOARD_PASSWORD",
	"storage.file_path":         "STATE_FILE",
	"test_mode":                 "TEST_MODE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":3000")
	v.SetDefault("server.password", "")
	v.SetDefault("storage.file_path", "data/state.json")
	v.SetDefault("schedule.timezone", "Asia/Kolkata")
	v.SetDefault("schedule.cron", "0 0 * * *")
	v.SetDefault("schedule.guard_time", "00:00")
	v.SetDefault("schedule.guard_interval", "30s")
	v.SetDefault("holidays.country", "IN")
	v.SetDefault("holidays.calendarific_key", "demo")
	v.SetDefault("holidays.abstract_key", "demo")
	v.SetDefault("holidays.timeout", "10s")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", "15s")
	v.SetDefault("notifier.max_attempts", 3)
	v.SetDefault("notifier.initial_backoff", "1s")
	v.SetDefault("notifier.max_backoff", "30s")
	v.SetDefault("notifier.timeout", "10s")
	v.SetDefault("branding.team", "Digital Labour")
	v.SetDefault("branding.bot_name", "Holiday Bot")
	v.SetDefault("branding.avatar_url", "")
	v.SetDefault("roles", map[string]string{"everyone": "@everyone"})
	v.SetDefault("test_mode", false)
}

// LoadConfig reads path (optional) and the environment. Environment
// variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	webhooks := make(map[string]string, len(c.Webhooks))
	for k, v := range c.Webhooks {
		webhooks[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	c.Webhooks = webhooks

	roles := make(map[string]string, len(c.Roles))
	for k, v := range c.Roles {
		roles[strings.ToLower(k)] = v
	}
	c.Roles = roles

	if c.Server.Port != "" && !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
}

// Validate fails on settings the process cannot start without.
func (c *Config) Validate() error {
	if c.PrimaryWebhook() == "" {
		return ErrNoWebhook
	}
	if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
		return fmt.Errorf("invalid schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if !reHHMM.MatchString(c.Schedule.GuardTime) {
		return fmt.Errorf("invalid schedule.guard_time %q (want HH:MM)", c.Schedule.GuardTime)
	}
	if c.Schedule.GuardInterval <= 0 {
		return fmt.Errorf("schedule.guard_interval must be > 0")
	}
	return nil
}

// PrimaryWebhook is where holiday announcements go.
func (c *Config) PrimaryWebhook() string {
	if url := c.Webhooks["holidays"]; url != "" {
		return url
	}
	return c.Webhooks["announcements"]
}

// ConfiguredWebhooks counts channels with a URL.
func (c *Config) ConfiguredWebhooks() int {
	n := 0
	for _, url := range c.Webhooks {
		if url != "" {
			n++
		}
	}
	return n
}
