// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/errs"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/vapid"
)

// Environment variable names.
const (
	KeyPort               = "PORT"
	KeyDatabaseURL        = "DATABASE_URL"
	KeyRedisAddr          = "REDIS_ADDR"
	KeyRedisPassword      = "REDIS_PASSWORD"
	KeyRedisDB            = "REDIS_DB"
	KeyAppSecret          = "APP_SECRET"
	KeyVAPIDPublicKey     = "VAPID_PUBLIC_KEY"
	KeyVAPIDPrivateKey    = "VAPID_PRIVATE_KEY"
	KeyVAPIDSubject       = "VAPID_SUBJECT"
	KeyPushConcurrency    = "PUSH_CONCURRENCY"
	KeyPushHTTPTimeout    = "PUSH_HTTP_TIMEOUT"
	KeyPushEncryptPayload = "PUSH_ENCRYPT_PAYLOAD"
	KeyWebhookSecret      = "DISPATCH_WEBHOOK_SECRET"
	KeySessionSecure      = "SESSION_SECURE"
	KeyTokenTTL           = "AUTH_TOKEN_TTL"
	KeyCacheVersion       = "SW_CACHE_VERSION"
	KeyLogLevel           = "LOG_LEVEL"
)

// Config is the static part of the configuration, read once at startup.
// VAPID keys are not part of it; Loader.VAPIDKeys reads them per dispatch.
type Config struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AppSecret     string
	TokenTTL      time.Duration
	SessionSecure bool
	WebhookSecret string

	VAPIDSubject       string
	PushConcurrency    int
	PushHTTPTimeout    time.Duration
	PushEncryptPayload bool

	CacheVersion string
	LogLevel     string
}

// Loader wraps the viper instance so VAPID keys can be re-read at invocation time.
type Loader struct {
	v *viper.Viper
}

// NewLoader loads envFiles (".env" when none are given) into the process
// environment, ignoring missing files, and binds viper to the environment.
func NewLoader(envFiles ...string) (*Loader, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyVAPIDSubject, "mailto:support@askify.app")
	v.SetDefault(KeyPushConcurrency, 8)
	v.SetDefault(KeyPushHTTPTimeout, 30*time.Second)
	v.SetDefault(KeyPushEncryptPayload, false)
	v.SetDefault(KeySessionSecure, true)
	v.SetDefault(KeyTokenTTL, 7*24*time.Hour)
	v.SetDefault(KeyCacheVersion, "askify-v1")
	v.SetDefault(KeyLogLevel, "info")

	return &Loader{v: v}, nil
}

// Load returns the static configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := &Config{
		Port:               l.v.GetString(KeyPort),
		DatabaseURL:        l.v.GetString(KeyDatabaseURL),
		RedisAddr:          l.v.GetString(KeyRedisAddr),
		RedisPassword:      l.v.GetString(KeyRedisPassword),
		RedisDB:            l.v.GetInt(KeyRedisDB),
		AppSecret:          l.v.GetString(KeyAppSecret),
		TokenTTL:           l.v.GetDuration(KeyTokenTTL),
		SessionSecure:      l.v.GetBool(KeySessionSecure),
		WebhookSecret:      l.v.GetString(KeyWebhookSecret),
		VAPIDSubject:       l.v.GetString(KeyVAPIDSubject),
		PushConcurrency:    l.v.GetInt(KeyPushConcurrency),
		PushHTTPTimeout:    l.v.GetDuration(KeyPushHTTPTimeout),
		PushEncryptPayload: l.v.GetBool(KeyPushEncryptPayload),
		CacheVersion:       l.v.GetString(KeyCacheVersion),
		LogLevel:           strings.ToLower(l.v.GetString(KeyLogLevel)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s environment variable is required", KeyDatabaseURL)
	}
	if len(c.AppSecret) < 32 {
		return fmt.Errorf("%s must be at least 32 characters", KeyAppSecret)
	}
	if c.PushConcurrency < 1 {
		return fmt.Errorf("%s must be positive", KeyPushConcurrency)
	}
	return nil
}

// VAPIDKeys reads the key pair from the environment at call time.
func (l *Loader) VAPIDKeys() (vapid.KeyPair, error) {
	pair := vapid.KeyPair{
		PublicKey:  l.v.GetString(KeyVAPIDPublicKey),
		PrivateKey: l.v.GetString(KeyVAPIDPrivateKey),
	}
	if pair.Empty() {
		return vapid.KeyPair{}, errs.ErrMissingVAPIDKeys
	}
	return pair, nil
}
