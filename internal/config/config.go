package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	JWT       JWTConfig       `env:",prefix=JWT_"`
	Discord   DiscordConfig   `env:",prefix=DISCORD_"`
	Session   SessionConfig   `env:",prefix=SESSION_"`
	RateLimit RateLimitConfig `env:",prefix=RATELIMIT_"`
	Security  SecurityConfig  `env:",prefix=SECURITY_"`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	BaseURL      string   `env:"BASE_URL,required"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host          string `env:"HOST,default=localhost"`
	Port          string `env:"PORT,default=5432"`
	User          string `env:"USER,default=case_service"`
	Password      string `env:"PASSWORD,default=case_service_password"`
	DBName        string `env:"DB,default=case_service_db"`
	SSLMode       string `env:"SSLMODE,default=disable"`
	MigrationsDir string `env:"MIGRATIONS_DIR,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	AccessTokenExpiry Duration `env:"ACCESS_TOKEN_EXPIRY,default=10m"`
}

type DiscordConfig struct {
	ClientID     string   `env:"CLIENT_ID,required"`
	ClientSecret string   `env:"CLIENT_SECRET,required"`
	RedirectURI  string   `env:"REDIRECT_URI,required"`
	Timeout      Duration `env:"TIMEOUT,default=10s"`
}

type SessionConfig struct {
	RefreshSecret      string   `env:"REFRESH_SECRET,required"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=21d"`
	MaxActiveSessions  int      `env:"MAX_ACTIVE,default=5"`
	OAuthAttemptExpiry Duration `env:"OAUTH_ATTEMPT_EXPIRY,default=10m"`
	SweepInterval      Duration `env:"SWEEP_INTERVAL,default=1h"`
}

type RateLimitConfig struct {
	Window     Duration `env:"WINDOW,default=1m"`
	MaxPerUser int      `env:"MAX_PER_USER,default=60"`
	MaxLogin   int      `env:"MAX_LOGIN,default=10"`
	MaxRefresh int      `env:"MAX_REFRESH,default=15"`
	MaxWrite   int      `env:"MAX_WRITE,default=30"`
}

type SecurityConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default="`
	CookieSecure   *bool    `env:"COOKIE_SECURE"`
	AuditLogPath   string   `env:"AUDIT_LOG_PATH,default="`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection URL used by the migration runner
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(p.User), url.QueryEscape(p.Password), p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// CsrfSecret derives the CSRF signing secret from the JWT secret
func (j JWTConfig) CsrfSecret() string {
	sum := sha256.Sum256([]byte(j.Secret))
	return hex.EncodeToString(sum[:])
}

// CookieSecureEnabled resolves the cookie Secure flag, defaulting to the
// scheme of the base URL when not set explicitly
func (c *Config) CookieSecureEnabled() bool {
	if c.Security.CookieSecure != nil {
		return *c.Security.CookieSecure
	}
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

// OriginAllowList returns the hosts allowed in the Origin header on
// state-changing requests: the base URL plus any configured extra origins
func (c *Config) OriginAllowList() []string {
	origins := []string{c.Server.BaseURL}
	origins = append(origins, c.Security.AllowedOrigins...)

	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			origin = "http://" + origin
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if len(config.Session.RefreshSecret) < 32 {
		return nil, fmt.Errorf("SESSION_REFRESH_SECRET must be at least 32 characters long")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
