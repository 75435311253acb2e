package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	UploadDir                     string        `mapstructure:"UPLOAD_DIR"`
	MaxUploadSize                 int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	AdminKey                      string        `mapstructure:"ADMIN_KEY"`
	JWTSecret                     string        `mapstructure:"JWT_SECRET"`
	AdminSessionTTL               time.Duration `mapstructure:"ADMIN_SESSION_TTL"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	ResendAPIKey                  string        `mapstructure:"RESEND_API_KEY"`
	EmailFrom                     string        `mapstructure:"EMAIL_FROM"`
	CoupleEmail                   string        `mapstructure:"COUPLE_EMAIL"`
	CoupleNames                   string        `mapstructure:"COUPLE_NAMES"`
	SiteURL                       string        `mapstructure:"SITE_URL"`
	EnableCORS                    bool          `mapstructure:"ENABLE_CORS"`
	CORSOrigins                   []string      `mapstructure:"CORS_ORIGINS"`
	LogLevel                      string        `mapstructure:"LOG_LEVEL"`
	LogFormat                     string        `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"PORT":                             "8080",
	"DATABASE_PATH":                    "wedding.db",
	"UPLOAD_DIR":                       "uploads",
	"MAX_UPLOAD_SIZE":                  int64(15 << 20),
	"ADMIN_KEY":                        "",
	"JWT_SECRET":                       "",
	"ADMIN_SESSION_TTL":                "12h",
	"DISCORD_BOT_TOKEN":                "",
	"DISCORD_NOTIFICATIONS_CHANNEL_ID": "",
	"RESEND_API_KEY":                   "",
	"EMAIL_FROM":                       "",
	"COUPLE_EMAIL":                     "",
	"COUPLE_NAMES":                     "Anna & Ben",
	"SITE_URL":                         "http://127.0.0.1:8080",
	"ENABLE_CORS":                      false,
	"CORS_ORIGINS":                     []string{"http://127.0.0.1:4000"},
	"LOG_LEVEL":                        "info",
	"LOG_FORMAT":                       "json",
}

// LoadConfig reads the process configuration from the environment, after
// loading a .env file from the working directory if there is one.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.JWTSecret == "" {
		config.JWTSecret = config.AdminKey
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.AdminKey == "" {
		errs = append(errs, errors.New("ADMIN_KEY must be set"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize))
	}
	if c.AdminSessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("ADMIN_SESSION_TTL must be positive, got %s", c.AdminSessionTTL))
	}
	if c.DiscordBotToken != "" && c.DiscordNotificationsChannelID == "" {
		errs = append(errs, errors.New("DISCORD_NOTIFICATIONS_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set"))
	}
	if c.ResendAPIKey != "" && c.EmailFrom == "" {
		errs = append(errs, errors.New("EMAIL_FROM is required when RESEND_API_KEY is set"))
	}
	return errors.Join(errs...)
}
