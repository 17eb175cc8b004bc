package config_test

import (
	"testing"

	"github.com/pedroanisio/tracker-gg-api/internal/config"
	"github.com/stretchr/testify/require"
)

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

var requiredVariablesExceptEnv = []string{"DATABASE_URL", "FLARESOLVERR_URL", "SENTRY_DSN"}

func TestGetConfig(t *testing.T) {
	compareConfig := func(databaseURL, flareSolverrURL, sentryDSN string, env environment, conf config.Config) {
		t.Helper()
		require.Equal(t, databaseURL, conf.DatabaseURL())
		require.Equal(t, flareSolverrURL, conf.FlareSolverrURL())
		require.Equal(t, sentryDSN, conf.SentryDSN())
		require.Equal(t, env == production, conf.IsProduction())
		require.Equal(t, env == staging, conf.IsStaging())
		require.Equal(t, env == development, conf.IsDevelopment())
	}

	t.Run("ensure base environment is clean", func(t *testing.T) {
		t.Run("environment is missing", func(t *testing.T) {
			// TRACKER_ENVIRONMENT is required, so this should fail
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrMissingRequiredValue)
		})

		t.Run("development environment should be empty", func(t *testing.T) {
			t.Setenv("TRACKER_ENVIRONMENT", "development")

			conf, err := config.ConfigFromEnv()
			require.NoError(t, err)
			compareConfig("", "", "", development, conf)
		})
	})

	t.Run("values are read correctly", func(t *testing.T) {
		for _, variable := range requiredVariablesExceptEnv {
			t.Setenv(variable, variable)
		}

		for _, env := range []environment{production, staging, development} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("TRACKER_ENVIRONMENT", string(env))

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)
				compareConfig("DATABASE_URL", "FLARESOLVERR_URL", "SENTRY_DSN", env, conf)
			})
		}
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		for _, variable := range requiredVariablesExceptEnv {
			t.Setenv(variable, "placeholder_value")
		}

		for _, env := range []environment{production, staging} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("TRACKER_ENVIRONMENT", string(env))

				for _, variable := range requiredVariablesExceptEnv {
					t.Run(variable, func(t *testing.T) {
						t.Setenv(variable, "")

						_, err := config.ConfigFromEnv()
						require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					})
				}
			})
		}
	})

	t.Run("proxy list is parsed", func(t *testing.T) {
		t.Setenv("TRACKER_ENVIRONMENT", "development")
		t.Setenv("PROXY_LIST", "socks5://one:1080, socks5://two:1080,,")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		require.Equal(t, []string{"socks5://one:1080", "socks5://two:1080"}, conf.ProxyList())
	})

	t.Run("port defaults to 8080", func(t *testing.T) {
		t.Setenv("TRACKER_ENVIRONMENT", "development")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		require.Equal(t, "8080", conf.Port())
	})

	t.Run("invalid environment", func(t *testing.T) {
		for _, env := range []string{"", "invalid", "my-env"} {
			t.Run(env, func(t *testing.T) {
				t.Setenv("TRACKER_ENVIRONMENT", env)
				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}
	})
}
