package config_test

import (
	"testing"
	"time"

	"github.com/Amund211/lana/internal/config"
	"github.com/stretchr/testify/require"
)

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

var requiredOutsideDevelopment = []string{"DATABASE_URL", "SENTRY_DSN", "GROQ_API_KEY", "GOOGLE_API_KEY", "JWT_SECRET"}

func TestGetConfig(t *testing.T) {
	compareConfig := func(databaseURL, sentryDSN, groqAPIKey, googleAPIKey, jwtSecret string, env environment, conf config.Config) {
		t.Helper()
		require.Equal(t, databaseURL, conf.DatabaseURL())
		require.Equal(t, sentryDSN, conf.SentryDSN())
		require.Equal(t, groqAPIKey, conf.GroqAPIKey())
		require.Equal(t, googleAPIKey, conf.GoogleAPIKey())
		require.Equal(t, jwtSecret, conf.JWTSecret())
		require.Equal(t, env == production, conf.IsProduction())
		require.Equal(t, env == staging, conf.IsStaging())
		require.Equal(t, env == development, conf.IsDevelopment())
	}

	t.Run("ensure base environment is clean", func(t *testing.T) {
		t.Run("environment is missing", func(t *testing.T) {
			// LANA_ENVIRONMENT is required, so this should fail
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrMissingRequiredValue)
		})

		t.Run("development environment should be empty", func(t *testing.T) {
			t.Setenv("LANA_ENVIRONMENT", "development")

			conf, err := config.ConfigFromEnv()
			require.NoError(t, err)
			compareConfig("", "", "", "", "", development, conf)
		})
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LANA_ENVIRONMENT", "development")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		require.Equal(t, "8080", conf.Port())
		require.Equal(t, "Leda", conf.GoogleTTSVoice())
		require.Equal(t, 25*time.Second, conf.GeneratorTimeout())
		require.Equal(t, config.MetricsExporterOTLP, conf.MetricsExporter())
		require.Equal(t, []string{"http://localhost:3000", "http://localhost:3001", "http://127.0.0.1:3000"}, conf.AllowedOrigins())
		require.Empty(t, conf.NamespaceOverrides())
	})

	t.Run("values are read correctly", func(t *testing.T) {
		for _, variable := range requiredOutsideDevelopment {
			t.Setenv(variable, variable)
		}

		for _, env := range []environment{production, staging, development} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("LANA_ENVIRONMENT", string(env))

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)
				compareConfig("DATABASE_URL", "SENTRY_DSN", "GROQ_API_KEY", "GOOGLE_API_KEY", "JWT_SECRET", env, conf)
			})
		}
	})

	t.Run("optional values", func(t *testing.T) {
		t.Setenv("LANA_ENVIRONMENT", "development")
		t.Setenv("PORT", "9000")
		t.Setenv("SQLITE_PATH", "/tmp/lana.db")
		t.Setenv("GOOGLE_TTS_VOICE", "Kore")
		t.Setenv("GENERATOR_TIMEOUT", "5s")
		t.Setenv("POPULAR_TOPICS_FILE", "topics.yaml")
		t.Setenv("ALLOWED_ORIGINS", "https://lana.example.com, https://www.lana.example.com,")
		t.Setenv("OTEL_METRICS_EXPORTER", "stdout")
		t.Setenv("CACHE_LESSONS_TTL", "10m")
		t.Setenv("CACHE_MATH_MAX_SIZE", "12")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)

		require.Equal(t, "9000", conf.Port())
		require.Equal(t, "/tmp/lana.db", conf.SQLitePath())
		require.Equal(t, "Kore", conf.GoogleTTSVoice())
		require.Equal(t, 5*time.Second, conf.GeneratorTimeout())
		require.Equal(t, "topics.yaml", conf.PopularTopicsFile())
		require.Equal(t, []string{"https://lana.example.com", "https://www.lana.example.com"}, conf.AllowedOrigins())
		require.Equal(t, config.MetricsExporterStdout, conf.MetricsExporter())
		require.Equal(t, map[string]config.NamespaceOverride{
			"lessons": {TTL: 10 * time.Minute},
			"math":    {MaxSize: 12},
		}, conf.NamespaceOverrides())
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		// Set all variables
		for _, variable := range requiredOutsideDevelopment {
			t.Setenv(variable, "placeholder_value")
		}

		for _, env := range []environment{production, staging} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("LANA_ENVIRONMENT", string(env))

				for _, variable := range requiredOutsideDevelopment {
					t.Run(variable, func(t *testing.T) {
						t.Setenv(variable, "")

						_, err := config.ConfigFromEnv()
						require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					})
				}
			})
		}
	})

	t.Run("invalid environment", func(t *testing.T) {
		for _, env := range []string{"invalid", "my-env"} {
			t.Run(env, func(t *testing.T) {
				t.Setenv("LANA_ENVIRONMENT", env)
				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := map[string]string{
			"GENERATOR_TIMEOUT":     "soon",
			"OTEL_METRICS_EXPORTER": "carrier-pigeon",
			"CACHE_TTS_MAX_SIZE":    "-1",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				t.Setenv("LANA_ENVIRONMENT", "development")
				t.Setenv(key, value)
				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}
	})
}
