package config

import (
	"fmt"
	"net/url"
	"slices"

	"golang.org/x/text/language"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// API validation
	if cfg.API.BaseURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "api.baseUrl",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, ValidationIssue{
			Path:    "api.baseUrl",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", cfg.API.BaseURL),
		})
	}

	if cfg.API.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "api.timeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.API.TimeoutSeconds),
		})
	}

	// Session validation
	if cfg.Session.Language != "" {
		if _, err := language.Parse(cfg.Session.Language); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "session.language",
				Message: fmt.Sprintf("not a valid language tag: %q", cfg.Session.Language),
			})
		}
	}

	// Credential store validation
	validStores := []string{"sqlite", "memory", "redis"}
	if cfg.Credentials.Store != "" && !slices.Contains(validStores, cfg.Credentials.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "credentials.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Credentials.Store),
		})
	}

	if cfg.Credentials.Store == "redis" {
		if cfg.Credentials.Redis.Addr == "" {
			issues = append(issues, ValidationIssue{
				Path:    "credentials.redis.addr",
				Message: "required when credentials.store is redis",
			})
		}
		if cfg.Credentials.Redis.DB < 0 {
			issues = append(issues, ValidationIssue{
				Path:    "credentials.redis.db",
				Message: fmt.Sprintf("must not be negative, got %d", cfg.Credentials.Redis.DB),
			})
		}
		if cfg.Credentials.Redis.TTLMinutes < 0 {
			issues = append(issues, ValidationIssue{
				Path:    "credentials.redis.ttlMinutes",
				Message: fmt.Sprintf("must not be negative, got %d", cfg.Credentials.Redis.TTLMinutes),
			})
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
