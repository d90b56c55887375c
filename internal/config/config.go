package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appDir   = "weather-cli"
	fileName = "config.json"

	DefaultProvider = "open-meteo"
)

var validate = validator.New()

type Config struct {
	// Provider is the default provider name used when --provider is not given.
	Provider string `mapstructure:"provider" validate:"required"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	HTTPRetries int           `mapstructure:"http_retries" validate:"gte=0,lte=10"`
	UserAgent   string        `mapstructure:"user_agent" validate:"required"`

	Geocoder     string `mapstructure:"geocoder" validate:"oneof=nominatim google"`
	GoogleAPIKey string `mapstructure:"google_api_key" validate:"required_if=Geocoder google"`
	NominatimURL string `mapstructure:"nominatim_url" validate:"required,url"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`
	// LogFile is a path, "-" for stderr, or empty to discard logs.
	LogFile string `mapstructure:"log_file"`

	Port          string        `mapstructure:"port" validate:"required,numeric"`
	WatchInterval time.Duration `mapstructure:"watch_interval" validate:"gt=0"`

	// Path is the config file the settings were read from (it may not exist yet).
	Path string `mapstructure:"-"`
}

// Dir returns the per-user configuration directory of the application.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Load reads configuration with the usual precedence: environment variables
// (WEATHER_ prefixed, plus a .env file in the working directory) over the
// JSON config file in dir over defaults.
func Load(dir, version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, dir, version)

	path := filepath.Join(dir, fileName)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("WEATHER")
	v.AutomaticEnv()
	// Unprefixed names kept for deployment convenience.
	_ = v.BindEnv("port", "WEATHER_PORT", "PORT")
	_ = v.BindEnv("log_level", "WEATHER_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "WEATHER_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log_file", "WEATHER_LOG_FILE", "LOG_FILE")
	_ = v.BindEnv("google_api_key", "WEATHER_GOOGLE_API_KEY", "GOOGLE_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Path = path

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir, version string) {
	if version == "" {
		version = "dev"
	}

	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("http_retries", 0)
	v.SetDefault("user_agent", fmt.Sprintf("weather-cli/%s github.com/i474232898/weather-cli", version))
	v.SetDefault("geocoder", "nominatim")
	v.SetDefault("google_api_key", "")
	v.SetDefault("nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", filepath.Join(dir, "weather.log"))
	v.SetDefault("port", "8080")
	v.SetDefault("watch_interval", 15*time.Minute)
}

// SaveProvider persists the default provider to the config file, keeping any
// other settings already in it. Environment overrides are not written back.
func (c *Config) SaveProvider(name string) error {
	v := viper.New()
	v.SetConfigFile(c.Path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config %s: %w", c.Path, err)
		}
	}
	v.Set("provider", name)

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := v.WriteConfigAs(c.Path); err != nil {
		return fmt.Errorf("write config %s: %w", c.Path, err)
	}

	c.Provider = name
	return nil
}
