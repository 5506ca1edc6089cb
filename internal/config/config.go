package config

import (
	"fmt"
	"time"
)

// DefaultBaseURL is the assistant service address used when none is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: 60,
		},
		Session: SessionConfig{
			Language: "en",
		},
		Credentials: CredentialsConfig{
			Store: "sqlite",
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
				Key:  "medchat:credentials",
			},
		},
		Logging: LoggingConfig{
			Level:        "warn",
			ConsoleStyle: "pretty",
		},
	}
}

// Timeout returns the per-request HTTP timeout.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
