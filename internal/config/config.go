package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type MetricsExporter string

const (
	MetricsExporterOTLP   MetricsExporter = "otlp"
	MetricsExporterStdout MetricsExporter = "stdout"
	MetricsExporterNone   MetricsExporter = "none"
)

var defaultDevelopmentOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3000",
}

// Namespace overrides. Zero values mean "use the built-in default".
type NamespaceOverride struct {
	TTL     time.Duration
	MaxSize int
}

type rawConfig struct {
	Environment string `env:"LANA_ENVIRONMENT"`
	Port        string `env:"PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`

	SentryDSN    string `env:"SENTRY_DSN"`
	GroqAPIKey   string `env:"GROQ_API_KEY"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	JWTSecret    string `env:"JWT_SECRET"`

	GoogleTTSVoice    string        `env:"GOOGLE_TTS_VOICE" envDefault:"Leda"`
	GeneratorTimeout  time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"25s"`
	PopularTopicsFile string        `env:"POPULAR_TOPICS_FILE"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	MetricsExporter   string        `env:"OTEL_METRICS_EXPORTER" envDefault:"otlp"`

	LessonsTTL     time.Duration `env:"CACHE_LESSONS_TTL"`
	LessonsMaxSize int           `env:"CACHE_LESSONS_MAX_SIZE"`
	TTSTTL         time.Duration `env:"CACHE_TTS_TTL"`
	TTSMaxSize     int           `env:"CACHE_TTS_MAX_SIZE"`
	HistoryTTL     time.Duration `env:"CACHE_HISTORY_TTL"`
	HistoryMaxSize int           `env:"CACHE_HISTORY_MAX_SIZE"`
	PopularTTL     time.Duration `env:"CACHE_POPULAR_TTL"`
	PopularMaxSize int           `env:"CACHE_POPULAR_MAX_SIZE"`
	MathTTL        time.Duration `env:"CACHE_MATH_TTL"`
	MathMaxSize    int           `env:"CACHE_MATH_MAX_SIZE"`
}

type Config struct {
	port              string
	databaseURL       string
	sqlitePath        string
	sentryDSN         string
	groqAPIKey        string
	googleAPIKey      string
	jwtSecret         string
	googleTTSVoice    string
	generatorTimeout  time.Duration
	popularTopicsFile string
	allowedOrigins    []string
	metricsExporter   MetricsExporter
	namespaces        map[string]NamespaceOverride
	env               environment
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

func (c *Config) SQLitePath() string {
	return c.sqlitePath
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) GroqAPIKey() string {
	return c.groqAPIKey
}

func (c *Config) GoogleAPIKey() string {
	return c.googleAPIKey
}

func (c *Config) JWTSecret() string {
	return c.jwtSecret
}

func (c *Config) GoogleTTSVoice() string {
	return c.googleTTSVoice
}

func (c *Config) GeneratorTimeout() time.Duration {
	return c.generatorTimeout
}

func (c *Config) PopularTopicsFile() string {
	return c.popularTopicsFile
}

func (c *Config) AllowedOrigins() []string {
	return append([]string(nil), c.allowedOrigins...)
}

func (c *Config) MetricsExporter() MetricsExporter {
	return c.metricsExporter
}

// Overrides for the cache namespaces, keyed by namespace name
func (c *Config) NamespaceOverrides() map[string]NamespaceOverride {
	overrides := make(map[string]NamespaceOverride, len(c.namespaces))
	for name, override := range c.namespaces {
		overrides[name] = override
	}
	return overrides
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, sqlite: %t, postgres: %t, metrics: %s, origins: %d, ...}",
		string(c.env),
		c.port,
		c.sqlitePath != "",
		c.databaseURL != "",
		string(c.metricsExporter),
		len(c.allowedOrigins),
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	raw, err := env.ParseAs[rawConfig]()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}

	var environ environment
	switch raw.Environment {
	case "":
		return missingKey("LANA_ENVIRONMENT")
	case "production":
		environ = production
	case "staging":
		environ = staging
	case "development":
		environ = development
	default:
		return Config{}, fmt.Errorf("%w: LANA_ENVIRONMENT (%s)", ErrInvalidValue, raw.Environment)
	}

	if environ == production || environ == staging {
		if raw.DatabaseURL == "" {
			return missingKey("DATABASE_URL")
		}
		if raw.SentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if raw.GroqAPIKey == "" {
			return missingKey("GROQ_API_KEY")
		}
		if raw.GoogleAPIKey == "" {
			return missingKey("GOOGLE_API_KEY")
		}
		if raw.JWTSecret == "" {
			return missingKey("JWT_SECRET")
		}
	}

	if raw.GeneratorTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: GENERATOR_TIMEOUT (%s)", ErrInvalidValue, raw.GeneratorTimeout)
	}

	var exporter MetricsExporter
	switch MetricsExporter(strings.ToLower(raw.MetricsExporter)) {
	case MetricsExporterOTLP:
		exporter = MetricsExporterOTLP
	case MetricsExporterStdout:
		exporter = MetricsExporterStdout
	case MetricsExporterNone:
		exporter = MetricsExporterNone
	default:
		return Config{}, fmt.Errorf("%w: OTEL_METRICS_EXPORTER (%s)", ErrInvalidValue, raw.MetricsExporter)
	}

	origins := make([]string, 0, len(raw.AllowedOrigins))
	for _, origin := range raw.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 && environ == development {
		origins = append(origins, defaultDevelopmentOrigins...)
	}

	namespaces := map[string]NamespaceOverride{
		"lessons": {TTL: raw.LessonsTTL, MaxSize: raw.LessonsMaxSize},
		"tts":     {TTL: raw.TTSTTL, MaxSize: raw.TTSMaxSize},
		"history": {TTL: raw.HistoryTTL, MaxSize: raw.HistoryMaxSize},
		"popular": {TTL: raw.PopularTTL, MaxSize: raw.PopularMaxSize},
		"math":    {TTL: raw.MathTTL, MaxSize: raw.MathMaxSize},
	}
	for name, override := range namespaces {
		if override.TTL < 0 || override.MaxSize < 0 {
			return Config{}, fmt.Errorf("%w: cache namespace %s has a negative override", ErrInvalidValue, name)
		}
		if override == (NamespaceOverride{}) {
			delete(namespaces, name)
		}
	}

	return Config{
		port:              raw.Port,
		databaseURL:       raw.DatabaseURL,
		sqlitePath:        raw.SQLitePath,
		sentryDSN:         raw.SentryDSN,
		groqAPIKey:        raw.GroqAPIKey,
		googleAPIKey:      raw.GoogleAPIKey,
		jwtSecret:         raw.JWTSecret,
		googleTTSVoice:    raw.GoogleTTSVoice,
		generatorTimeout:  raw.GeneratorTimeout,
		popularTopicsFile: raw.PopularTopicsFile,
		allowedOrigins:    origins,
		metricsExporter:   exporter,
		namespaces:        namespaces,
		env:               environ,
	}, nil
}
