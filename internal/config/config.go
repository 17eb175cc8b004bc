package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type Config struct {
	databaseURL     string
	flareSolverrURL string
	sentryDSN       string
	proxyList       []string
	port            string
	env             environment
}

func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

func (c *Config) FlareSolverrURL() string {
	return c.flareSolverrURL
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) ProxyList() []string {
	return c.proxyList
}

func (c *Config) Port() string {
	return c.port
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
	return fmt.Sprintf("Config{env: %s, proxies: %d, ...}", string(c.env), len(c.proxyList))
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("TRACKER_ENVIRONMENT")
	if !ok {
		return missingKey("TRACKER_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: TRACKER_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	flareSolverrURL := os.Getenv("FLARESOLVERR_URL")
	sentryDSN := os.Getenv("SENTRY_DSN")
	rawProxyList := os.Getenv("PROXY_LIST")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	var proxyList []string
	if rawProxyList != "" {
		for _, proxy := range strings.Split(rawProxyList, ",") {
			proxy = strings.TrimSpace(proxy)
			if proxy == "" {
				continue
			}
			proxyList = append(proxyList, proxy)
		}
	}

	if env == production || env == staging {
		if databaseURL == "" {
			return missingKey("DATABASE_URL")
		}
		if flareSolverrURL == "" {
			return missingKey("FLARESOLVERR_URL")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		databaseURL:     databaseURL,
		flareSolverrURL: flareSolverrURL,
		sentryDSN:       sentryDSN,
		proxyList:       proxyList,
		port:            port,
		env:             env,
	}, nil
}
