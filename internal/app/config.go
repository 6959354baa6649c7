package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("TASKNEST_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("TASKNEST_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("TASKNEST_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TASKNEST_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TASKNEST_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TASKNEST_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TASKNEST_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("TASKNEST_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TASKNEST_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TASKNEST_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("TASKNEST_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvStrings("TASKNEST_CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "http://127.0.0.1:*"}),
		CORSAllowCredentials: EnvBool("TASKNEST_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("TASKNEST_CORS_MAX_AGE_SECONDS", 600),
	}
}
