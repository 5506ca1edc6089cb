package config

// Config is the root configuration for medchat.
type Config struct {
	API         APIConfig         `yaml:"api,omitempty"`
	Session     SessionConfig     `yaml:"session,omitempty"`
	Credentials CredentialsConfig `yaml:"credentials,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
}

// APIConfig points the client at the assistant service.
type APIConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	// LegacyCredentialReplay resends name/dob/pin with every message instead
	// of a bearer token. Only for servers that never issue tokens.
	LegacyCredentialReplay bool `yaml:"legacyCredentialReplay,omitempty"`
}

// SessionConfig controls conversation defaults.
type SessionConfig struct {
	Language string `yaml:"language,omitempty"` // BCP-47 tag, e.g. "en", "hi"
	Welcome  string `yaml:"welcome,omitempty"`  // overrides the built-in welcome text
}

// CredentialsConfig selects where login state is persisted.
type CredentialsConfig struct {
	Store string      `yaml:"store,omitempty"` // "sqlite" | "memory" | "redis"
	Path  string      `yaml:"path,omitempty"`  // sqlite file; defaults under the data dir
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis credential store.
type RedisConfig struct {
	Addr       string `yaml:"addr,omitempty"`
	Password   string `yaml:"password,omitempty"`
	DB         int    `yaml:"db,omitempty"`
	Key        string `yaml:"key,omitempty"`
	TTLMinutes int    `yaml:"ttlMinutes,omitempty"` // 0 keeps the key until logout
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
