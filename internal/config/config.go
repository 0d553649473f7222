package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RateLimits struct {
	Window     time.Duration
	Default    int
	Login      int
	Register   int
	Refresh    int
	RolesWrite int
	RolesRead  int
}

type Config struct {
	Addr     string
	LogLevel string

	SecretKey  []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	DatabaseURL string
	RedisURL    string

	TranslateURL      string
	TranslateAPIKey   string
	TranslateFolderID string
	TranslateCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	RateLimits     RateLimits
	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string

	RefreshSweepInterval time.Duration
	CookieSecure         bool
	CSRFProtection       bool
}

var supportedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS384": {},
	"HS512": {},
}

func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := Config{
		Addr:     EnvDefault("APP_ADDR", ":8000"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		SecretKey:  []byte(os.Getenv("SECRET_KEY")),
		Algorithm:  strings.ToUpper(EnvDefault("ALGORITHM", "HS256")),
		AccessTTL:  time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTTL: time.Duration(EnvIntDefault("REFRESH_TOKEN_EXPIRE_MINUTES", 7*24*60)) * time.Minute,

		DatabaseURL: databaseURL(),
		RedisURL:    EnvDefault("REDIS_URL", "redis://localhost:6379/0"),

		TranslateURL:      EnvDefault("YANDEX_TRANSLATE_URL", "https://translate.api.cloud.yandex.net/translate/v2/translate"),
		TranslateAPIKey:   os.Getenv("YANDEX_TRANSLATE_API_KEY"),
		TranslateFolderID: os.Getenv("YANDEX_TRANSLATE_FOLDER_ID"),
		TranslateCacheTTL: EnvDurationDefault("TRANSLATE_CACHE_TTL", 24*time.Hour),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),

		RateLimits: RateLimits{
			Window:     EnvDurationDefault("RATE_LIMIT_WINDOW", time.Minute),
			Default:    EnvIntDefault("RATE_LIMIT_DEFAULT", 20),
			Login:      EnvIntDefault("RATE_LIMIT_LOGIN", 5),
			Register:   EnvIntDefault("RATE_LIMIT_REGISTER", 5),
			Refresh:    EnvIntDefault("RATE_LIMIT_REFRESH", 10),
			RolesWrite: EnvIntDefault("RATE_LIMIT_ROLES_WRITE", 5),
			RolesRead:  EnvIntDefault("RATE_LIMIT_ROLES_READ", 20),
		},

		TrustedProxies: CSV(os.Getenv("TRUSTED_PROXIES")),

		RefreshSweepInterval: EnvDurationDefault("REFRESH_SWEEP_INTERVAL", 0),
		CookieSecure:         EnvBoolDefault("COOKIE_SECURE", true),
		CSRFProtection:       EnvBoolDefault("CSRF_PROTECTION", false),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.SecretKey) == 0 {
		return errors.New("SECRET_KEY is required")
	}
	if _, ok := supportedAlgorithms[c.Algorithm]; !ok {
		return fmt.Errorf("unsupported ALGORITHM %q", c.Algorithm)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is empty")
	}
	if c.RateLimits.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	for name, v := range map[string]int{
		"RATE_LIMIT_DEFAULT":     c.RateLimits.Default,
		"RATE_LIMIT_LOGIN":       c.RateLimits.Login,
		"RATE_LIMIT_REGISTER":    c.RateLimits.Register,
		"RATE_LIMIT_REFRESH":     c.RateLimits.Refresh,
		"RATE_LIMIT_ROLES_WRITE": c.RateLimits.RolesWrite,
		"RATE_LIMIT_ROLES_READ":  c.RateLimits.RolesRead,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, v)
		}
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
	}
	return nil
}

func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		EnvDefault("DB_USER", "postgres"),
		EnvDefault("DB_PASSWORD", "password"),
		EnvDefault("DB_HOST", "db"),
		EnvDefault("DB_PORT", "5432"),
		EnvDefault("DB_NAME", "postgres"),
	)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDurationDefault accepts Go duration strings ("90s", "24h").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
