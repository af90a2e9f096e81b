package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddress string
	GRPCAddress string
	DatabaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	Issuer            string
	Audience          string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ResetTokenTTL     time.Duration
	TokenLeeway       time.Duration

	PasswordPepper string

	CookieDomain string
	CookieSecure bool

	HTTPSCertFile string
	HTTPSKeyFile  string

	FrontendURL string
	AdminEmail  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	NotifyTimeout  time.Duration
	NotifyStream   string
	NotifyGroup    string
	NotifyConsumer string

	RateLimitHTTP  int
	RateLimitBurst int
	RateLimitGRPC  int

	LogLevel string
}

var required = []string{
	"DATABASE_URL",
	"REDIS_ADDRESS",
	"JWT_PRIVATE_KEY_PATH",
	"JWT_PUBLIC_KEY_PATH",
	"JWT_ISSUER",
	"PASSWORD_PEPPER",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("GRPC_ADDRESS", ":50051")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_AUDIENCE", "vinylkeeper")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("RESET_TOKEN_TTL", "15m")
	v.SetDefault("TOKEN_LEEWAY", "30s")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_STREAM", "vinylkeeper:notifications")
	v.SetDefault("NOTIFY_GROUP", "mailers")
	v.SetDefault("NOTIFY_CONSUMER", "mailer-1")
	v.SetDefault("RATE_LIMIT_HTTP", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("RATE_LIMIT_GRPC", 10)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads config.yaml from the working directory when present and lets
// environment variables override every key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var missing []string
	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		HTTPAddress:       v.GetString("HTTP_ADDRESS"),
		GRPCAddress:       v.GetString("GRPC_ADDRESS"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisAddress:      v.GetString("REDIS_ADDRESS"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		JWTPrivateKeyPath: v.GetString("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  v.GetString("JWT_PUBLIC_KEY_PATH"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Audience:          v.GetString("JWT_AUDIENCE"),
		AccessTokenTTL:    v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:   v.GetDuration("REFRESH_TOKEN_TTL"),
		ResetTokenTTL:     v.GetDuration("RESET_TOKEN_TTL"),
		TokenLeeway:       v.GetDuration("TOKEN_LEEWAY"),
		PasswordPepper:    v.GetString("PASSWORD_PEPPER"),
		CookieDomain:      v.GetString("COOKIE_DOMAIN"),
		CookieSecure:      v.GetBool("COOKIE_SECURE"),
		HTTPSCertFile:     v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:      v.GetString("HTTPS_KEY_FILE"),
		FrontendURL:       strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		SMTPHost:          v.GetString("SMTP_HOST"),
		SMTPPort:          v.GetInt("SMTP_PORT"),
		SMTPUsername:      v.GetString("SMTP_USERNAME"),
		SMTPPassword:      v.GetString("SMTP_PASSWORD"),
		SMTPFrom:          v.GetString("SMTP_FROM"),
		NotifyTimeout:     v.GetDuration("NOTIFY_TIMEOUT"),
		NotifyStream:      v.GetString("NOTIFY_STREAM"),
		NotifyGroup:       v.GetString("NOTIFY_GROUP"),
		NotifyConsumer:    v.GetString("NOTIFY_CONSUMER"),
		RateLimitHTTP:     v.GetInt("RATE_LIMIT_HTTP"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		RateLimitGRPC:     v.GetInt("RATE_LIMIT_GRPC"),
		LogLevel:          v.GetString("LOG_LEVEL"),
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 || cfg.ResetTokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if cfg.NotifyTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}

	return cfg, nil
}
