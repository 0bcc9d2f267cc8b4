package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Application environment constants
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// EnvDemo relaxes a few diagnostics; notably the login page may echo a
	// submitted password back into the form. Production never does.
	EnvDemo = "demo"
)

// Cache backend constants
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string
	Env        string // "production", "development" or "demo"

	// Session settings
	SessionSecret string
	SessionMaxAge int // seconds

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Authentication
	AuthMethod      string // "standard", "ldap", "social" or "saml"
	DefaultUserRole string // role attached to first-time logins

	// SAML
	SAMLEnabled   bool
	SAMLLogoutURL string // external identity provider logout endpoint

	// Directory group sync
	GroupSyncEnabled bool
	GroupRoleMap     map[string]string // external group name -> local role

	// Avatar fetching
	AvatarFetchEnabled  bool
	AvatarSourceURL     string
	AvatarTimeout       time.Duration
	AvatarMaxRetries    int
	AvatarRetryDelay    time.Duration
	AvatarMaxRetryDelay time.Duration

	// Social login drivers
	GitHubOAuthEnabled     bool
	GitHubClientID         string
	GitHubClientSecret     string
	GitHubOAuthRedirectURL string
	GitHubOAuthScopes      []string

	GoogleOAuthEnabled     bool
	GoogleClientID         string
	GoogleClientSecret     string
	GoogleOAuthRedirectURL string
	GoogleOAuthScopes      []string

	// User cache
	CacheBackend  string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserCacheTTL  time.Duration

	// Observability
	EnableMetrics   bool
	AuditEnabled    bool
	AuditBufferSize int
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsDemo reports whether demo-mode diagnostics are allowed.
func (c *Config) IsDemo() bool {
	return c.Env == EnvDemo
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "auth.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		Env:            getEnv("APP_ENV", EnvProduction),
		SessionSecret:  getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge:  getEnvInt("SESSION_MAX_AGE", 86400),
		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		// Authentication
		AuthMethod:      getEnv("AUTH_METHOD", "standard"),
		DefaultUserRole: getEnv("DEFAULT_USER_ROLE", "viewer"),

		// SAML
		SAMLEnabled:   getEnvBool("SAML_ENABLED", false),
		SAMLLogoutURL: getEnv("SAML_LOGOUT_URL", "/saml2/logout"),

		// Directory group sync
		GroupSyncEnabled: getEnvBool("GROUP_SYNC_ENABLED", false),
		GroupRoleMap:     getEnvMap("GROUP_ROLE_MAP"),

		// Avatar fetching
		AvatarFetchEnabled:  getEnvBool("AVATAR_FETCH_ENABLED", true),
		AvatarSourceURL:     getEnv("AVATAR_SOURCE_URL", "https://www.gravatar.com/avatar"),
		AvatarTimeout:       getEnvDuration("AVATAR_TIMEOUT", 10*time.Second),
		AvatarMaxRetries:    getEnvInt("AVATAR_MAX_RETRIES", 2),
		AvatarRetryDelay:    getEnvDuration("AVATAR_RETRY_DELAY", 500*time.Millisecond),
		AvatarMaxRetryDelay: getEnvDuration("AVATAR_MAX_RETRY_DELAY", 3*time.Second),

		// GitHub social login
		GitHubOAuthEnabled:     getEnvBool("GITHUB_OAUTH_ENABLED", false),
		GitHubClientID:         getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret:     getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubOAuthRedirectURL: getEnv("GITHUB_REDIRECT_URL", ""),
		GitHubOAuthScopes:      getEnvSlice("GITHUB_SCOPES", []string{"user:email"}),

		// Google social login
		GoogleOAuthEnabled:     getEnvBool("GOOGLE_OAUTH_ENABLED", false),
		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleOAuthRedirectURL: getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleOAuthScopes:      getEnvSlice("GOOGLE_SCOPES", []string{"openid", "email", "profile"}),

		// User cache
		CacheBackend:  getEnv("CACHE_BACKEND", CacheBackendMemory),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		UserCacheTTL:  getEnvDuration("USER_CACHE_TTL", 5*time.Minute),

		// Observability
		EnableMetrics:   getEnvBool("ENABLE_METRICS", true),
		AuditEnabled:    getEnvBool("AUDIT_ENABLED", true),
		AuditBufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 1000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := splitAndTrim(value, ",")
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// getEnvMap parses "key=value,key2=value2" pairs, e.g.
// GROUP_ROLE_MAP="wiki-admins=admin,wiki-editors=editor".
func getEnvMap(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range splitAndTrim(os.Getenv(key), ",") {
		k, v, found := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if found && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
