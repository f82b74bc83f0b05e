package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "BOOKMARKS"
	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabaseDriver  = DriverSQLite
	defaultDatabasePath    = "bookmarks.db"
	defaultMongoDatabase   = "bookmarks"
	defaultLogLevel        = "info"
	defaultCookieName      = "auth_token"
	defaultIssuer          = "bookmarks-api"
	defaultTokenTTL        = 7 * 24 * time.Hour
	defaultFetchTimeout    = 10 * time.Second
	defaultMaxBodyBytes    = 2 << 20
	defaultUserAgent       = "bookmarks-api/1.0 (+metadata-fetcher)"
	defaultCacheTTL        = 24 * time.Hour
	defaultRedisConnect    = 10 * time.Second
	defaultSummaryProvider = SummaryProviderHeuristic
	defaultGeminiModel     = "gemini-2.5-flash"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Supported summary providers.
const (
	SummaryProviderHeuristic = "heuristic"
	SummaryProviderGemini    = "gemini"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	LogLevel       string
	LogPretty      bool

	DatabaseDriver string
	DatabasePath   string
	DatabaseDSN    string
	MongoURI       string
	MongoDatabase  string

	SigningSecret string
	CookieName    string
	TokenIssuer   string
	TokenTTL      time.Duration

	FetchTimeout    time.Duration
	MaxBodyBytes    int64
	UserAgent       string
	CacheTTL        time.Duration
	SummaryProvider string
	GeminiModel     string

	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisConnectTimeout time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{})
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.pretty", false)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("mongo.database", defaultMongoDatabase)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.token_ttl", defaultTokenTTL)
	configViper.SetDefault("enrichment.timeout", defaultFetchTimeout)
	configViper.SetDefault("enrichment.max_body_bytes", defaultMaxBodyBytes)
	configViper.SetDefault("enrichment.user_agent", defaultUserAgent)
	configViper.SetDefault("enrichment.cache_ttl", defaultCacheTTL)
	configViper.SetDefault("summary.provider", defaultSummaryProvider)
	configViper.SetDefault("gemini.model", defaultGeminiModel)
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("redis.connect_timeout", defaultRedisConnect)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		AllowedOrigins:      splitList(configViper.GetStringSlice("http.allowed_origins")),
		LogLevel:            configViper.GetString("log.level"),
		LogPretty:           configViper.GetBool("log.pretty"),
		DatabaseDriver:      strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:        configViper.GetString("database.path"),
		DatabaseDSN:         configViper.GetString("database.dsn"),
		MongoURI:            configViper.GetString("mongo.uri"),
		MongoDatabase:       configViper.GetString("mongo.database"),
		SigningSecret:       configViper.GetString("auth.signing_secret"),
		CookieName:          configViper.GetString("auth.cookie_name"),
		TokenIssuer:         configViper.GetString("auth.issuer"),
		TokenTTL:            configViper.GetDuration("auth.token_ttl"),
		FetchTimeout:        configViper.GetDuration("enrichment.timeout"),
		MaxBodyBytes:        configViper.GetInt64("enrichment.max_body_bytes"),
		UserAgent:           configViper.GetString("enrichment.user_agent"),
		CacheTTL:            configViper.GetDuration("enrichment.cache_ttl"),
		SummaryProvider:     strings.ToLower(strings.TrimSpace(configViper.GetString("summary.provider"))),
		GeminiModel:         configViper.GetString("gemini.model"),
		RedisAddr:           strings.TrimSpace(configViper.GetString("redis.addr")),
		RedisPassword:       configViper.GetString("redis.password"),
		RedisDB:             configViper.GetInt("redis.db"),
		RedisConnectTimeout: configViper.GetDuration("redis.connect_timeout"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("mongo.uri is required for the mongo driver")
		}
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for account storage")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.DatabaseDriver)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("enrichment.timeout must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("enrichment.max_body_bytes must be positive")
	}
	switch c.SummaryProvider {
	case SummaryProviderHeuristic, SummaryProviderGemini:
	default:
		return fmt.Errorf("unsupported summary.provider %q", c.SummaryProvider)
	}
	return nil
}

func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
