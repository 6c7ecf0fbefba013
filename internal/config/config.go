package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// ConfigError names the variable that failed to load.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	errEmptyList     = errors.New("at least one entry is required")
	errBadLocation   = errors.New("expected city:country")
	errDuplicate     = errors.New("duplicate entry")
	errMissingSource = errors.New("no url configured for source")
)

// validate reports fields by their environment variable name.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("envconfig")
	})
	return v
}()

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// AppConfig is populated from the environment.
type AppConfig struct {
	LocationsRaw string `envconfig:"WEATHER_LOCATIONS" validate:"required"`
	SourcesRaw   string `envconfig:"WEATHER_SOURCES" default:"openweathermap,weatherapi,weatherbit"`

	OpenWeatherMapAPIKey string `envconfig:"OPENWEATHERMAP_API_KEY"`
	OpenWeatherMapURL    string `envconfig:"OPENWEATHERMAP_URL" default:"https://api.openweathermap.org/data/2.5/weather" validate:"omitempty,url"`
	WeatherAPIKey        string `envconfig:"WEATHERAPI_API_KEY"`
	WeatherAPIURL        string `envconfig:"WEATHERAPI_URL" default:"https://api.weatherapi.com/v1/current.json" validate:"omitempty,url"`
	WeatherBitAPIKey     string `envconfig:"WEATHERBIT_API_KEY"`
	WeatherBitURL        string `envconfig:"WEATHERBIT_URL" default:"https://api.weatherbit.io/v2.0/current" validate:"omitempty,url"`

	ScheduleMode       string        `envconfig:"SCHEDULE_MODE" default:"cron" validate:"oneof=cron fixed-delay"`
	ScheduleCron       string        `envconfig:"SCHEDULE_CRON" default:"0 */15 * * * *"`
	ScheduleFixedDelay time.Duration `envconfig:"SCHEDULE_FIXED_DELAY" default:"15m" validate:"gt=0"`
	ScheduleRunOnStart bool          `envconfig:"SCHEDULE_RUN_ON_START" default:"false"`

	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	LocationTimeout time.Duration `envconfig:"LOCATION_TIMEOUT" default:"30s" validate:"gte=0"`
	Workers         int           `envconfig:"WORKERS" default:"4" validate:"min=1,max=64"`

	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5" validate:"min=1"`
	BreakerTimeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"2m" validate:"gt=0"`

	StoreDriver     string        `envconfig:"STORE_DRIVER" default:"memory" validate:"oneof=memory postgres"`
	DatabaseURL     string        `envconfig:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`
	StoreMaxHistory int           `envconfig:"STORE_MAX_HISTORY" default:"0" validate:"gte=0"`
	StoreMaxAge     time.Duration `envconfig:"STORE_MAX_AGE" default:"0" validate:"gte=0"`

	ReportTimezone string `envconfig:"REPORT_TIMEZONE" default:"UTC"`

	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	KafkaBrokersRaw string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic      string `envconfig:"KAFKA_TOPIC" default:"temperature-samples"`

	// Derived from the raw values above.
	Locations    []weather.Location `ignored:"true"`
	Sources      []weather.Source   `ignored:"true"`
	ReportZone   *time.Location     `ignored:"true"`
	KafkaBrokers []string           `ignored:"true"`

	// EnvFileErr is why no .env file was loaded, if one was not. It is not fatal.
	EnvFileErr error `ignored:"true"`
}

// Load reads configuration from a .env file, if present, and the environment.
func Load() (*AppConfig, error) {
	// Timestamps are stored and compared in UTC.
	time.Local = time.UTC

	envFileErr := godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Field: "environment", Err: err}
	}
	cfg.EnvFileErr = envFileErr

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ConfigError{Field: verrs[0].Field(), Err: err}
		}
		return nil, &ConfigError{Field: "validation", Err: err}
	}

	if cfg.ScheduleMode == "cron" {
		if _, err := cronParser.Parse(cfg.ScheduleCron); err != nil {
			return nil, &ConfigError{Field: "SCHEDULE_CRON", Err: err}
		}
	}

	locs, err := ParseLocations(cfg.LocationsRaw)
	if err != nil {
		return nil, &ConfigError{Field: "WEATHER_LOCATIONS", Err: err}
	}
	cfg.Locations = locs

	sources, err := cfg.parseSources()
	if err != nil {
		return nil, &ConfigError{Field: "WEATHER_SOURCES", Err: err}
	}
	cfg.Sources = sources

	zone, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return nil, &ConfigError{Field: "REPORT_TIMEZONE", Err: err}
	}
	cfg.ReportZone = zone

	cfg.KafkaBrokers = splitList(cfg.KafkaBrokersRaw)

	return &cfg, nil
}

// ParseLocations parses comma separated city:country pairs.
func ParseLocations(raw string) ([]weather.Location, error) {
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil, errEmptyList
	}

	seen := make(map[string]struct{}, len(parts))
	locs := make([]weather.Location, 0, len(parts))
	for _, part := range parts {
		city, country, ok := strings.Cut(part, ":")
		city, country = strings.TrimSpace(city), strings.TrimSpace(country)
		if !ok || city == "" || country == "" {
			return nil, fmt.Errorf("%w: %q", errBadLocation, part)
		}
		loc := weather.Location{City: city, Country: country}
		if _, dup := seen[loc.Key()]; dup {
			return nil, fmt.Errorf("%w: %q", errDuplicate, part)
		}
		seen[loc.Key()] = struct{}{}
		locs = append(locs, loc)
	}
	return locs, nil
}

func (c *AppConfig) parseSources() ([]weather.Source, error) {
	names := splitList(c.SourcesRaw)
	if len(names) == 0 {
		return nil, errEmptyList
	}

	seen := make(map[weather.SourceName]struct{}, len(names))
	sources := make([]weather.Source, 0, len(names))
	for _, raw := range names {
		name, err := weather.ParseSourceName(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", errDuplicate, raw)
		}
		seen[name] = struct{}{}

		src := c.source(name)
		if src.BaseURL == "" {
			return nil, fmt.Errorf("%w: %s", errMissingSource, name)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (c *AppConfig) source(name weather.SourceName) weather.Source {
	switch name {
	case weather.SourceOpenWeatherMap:
		return weather.Source{Name: name, APIKey: c.OpenWeatherMapAPIKey, BaseURL: c.OpenWeatherMapURL}
	case weather.SourceWeatherAPI:
		return weather.Source{Name: name, APIKey: c.WeatherAPIKey, BaseURL: c.WeatherAPIURL}
	case weather.SourceWeatherBit:
		return weather.Source{Name: name, APIKey: c.WeatherBitAPIKey, BaseURL: c.WeatherBitURL}
	}
	return weather.Source{Name: name}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
