package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LMSAccount is one named credential pair for the external LMS. When
// ClassPrefixes is non-empty, the grade report only keeps courses whose
// class label starts with one of the prefixes.
type LMSAccount struct {
	Username      string
	Password      string
	ClassPrefixes []string
}

// Config holds runtime configuration values for the API service. It is
// constructed once in main and passed to every component that needs it.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string

	JWTSecret string
	JWTTTL    time.Duration

	UploadDir   string
	UploadMaxMB int

	GenAPIToken   string
	GenAPIBaseURL string
	GenAPIModel   string

	LMSBaseURL  string
	LMSUsername string
	LMSPassword string
	LMSAccounts map[uint]LMSAccount
	LMSCacheTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SHKOLA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Shkola API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "168h")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("genapi.base_url", "https://api.gen-api.ru")
	v.SetDefault("genapi.model", "deepseek-chat")
	v.SetDefault("lms.cache_ttl", "10m")

	ttl, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("lms.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid lms cache ttl: %w", err)
	}

	accounts, err := ParseLMSAccounts(v.GetString("lms.accounts"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid lms accounts: %w", err)
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		DatabaseURL:   v.GetString("database.url"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		JWTSecret:     v.GetString("jwt.secret"),
		JWTTTL:        ttl,
		UploadDir:     v.GetString("upload.dir"),
		UploadMaxMB:   v.GetInt("upload.max_mb"),
		GenAPIToken:   v.GetString("genapi.token"),
		GenAPIBaseURL: v.GetString("genapi.base_url"),
		GenAPIModel:   v.GetString("genapi.model"),
		LMSBaseURL:    v.GetString("lms.base_url"),
		LMSUsername:   v.GetString("lms.username"),
		LMSPassword:   v.GetString("lms.password"),
		LMSAccounts:   accounts,
		LMSCacheTTL:   cacheTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}

	return cfg, nil
}

// ParseLMSAccounts parses the lms.accounts value. Entries are separated by
// ';' and shaped as teacherID:username:password[:prefix|prefix...], e.g.
// "1:zdekh:secret;2:vasilieva:secret:5|6".
func ParseLMSAccounts(raw string) (map[uint]LMSAccount, error) {
	accounts := make(map[uint]LMSAccount)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return accounts, nil
	}

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("malformed entry %q", entry)
		}

		id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed teacher id in %q", entry)
		}

		account := LMSAccount{
			Username: strings.TrimSpace(parts[1]),
			Password: parts[2],
		}
		if account.Username == "" || account.Password == "" {
			return nil, fmt.Errorf("missing credentials in %q", entry)
		}

		if len(parts) == 4 {
			for _, prefix := range strings.Split(parts[3], "|") {
				prefix = strings.TrimSpace(prefix)
				if prefix != "" {
					account.ClassPrefixes = append(account.ClassPrefixes, prefix)
				}
			}
		}

		accounts[uint(id)] = account
	}

	return accounts, nil
}
