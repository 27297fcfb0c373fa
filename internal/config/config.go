package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config は起動時に環境変数から1回だけ読み込む設定。以後は変更しない。
type Config struct {
	DatabaseURL string `validate:"required"`
	ServerPort  string `validate:"required,numeric"`

	// CORSAllowedOrigin は "*" またはカンマ区切りのオリジン一覧。
	CORSAllowedOrigin string

	// TrustedProxies は転送ヘッダーを信頼するプロキシのCIDRまたはIP。空なら転送ヘッダーは使わない。
	TrustedProxies []string `validate:"omitempty,dive,cidr|ip"`

	// 1分あたりのリクエスト数
	RateLimitGeneral int `validate:"gt=0"`
	RateLimitWrite   int `validate:"gt=0"`

	LogLevel slog.Level

	ImportBaseURL     string        `validate:"required,http_url"`
	ImportTimeout     time.Duration `validate:"gt=0"`
	ImportMaxSize     int64         `validate:"gt=0"`
	ImportAPIInterval time.Duration `validate:"gte=0"`
	ImportInterval    time.Duration `validate:"gte=1m"`
}

// LoadDotEnv は.envファイルの内容を環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが存在しない場合は何もしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込み、値を検証する。
// DATABASE_URLが未設定の場合や、値が範囲外の場合はエラーを返す。
// 数値や期間として解釈できない値は既定値に置き換える。
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ServerPort:        getEnvString("SERVER_PORT", "8080"),
		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "*"),
		TrustedProxies:    splitList(os.Getenv("TRUSTED_PROXIES")),
		RateLimitGeneral:  getEnv("RATE_LIMIT_GENERAL", 120, strconv.Atoi),
		RateLimitWrite:    getEnv("RATE_LIMIT_WRITE", 30, strconv.Atoi),
		LogLevel:          getEnv("LOG_LEVEL", slog.LevelInfo, parseLogLevel),
		ImportBaseURL:     strings.TrimRight(getEnvString("IMPORT_BASE_URL", "https://swapi.dev/api"), "/"),
		ImportTimeout:     getEnv("IMPORT_TIMEOUT", 10*time.Second, time.ParseDuration),
		ImportMaxSize:     getEnv("IMPORT_MAX_SIZE", int64(5<<20), parseInt64),
		ImportAPIInterval: getEnv("IMPORT_API_INTERVAL", 500*time.Millisecond, time.ParseDuration),
		ImportInterval:    getEnv("IMPORT_INTERVAL", 24*time.Hour, time.ParseDuration),
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", describeValidationError(err))
	}
	return cfg, nil
}

// describeValidationError は検証エラーを "Field(tag=param)" の一覧にまとめる。
func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		desc := fe.Field() + "(" + fe.Tag()
		if fe.Param() != "" {
			desc += "=" + fe.Param()
		}
		fields = append(fields, desc+")")
	}
	return errors.New(strings.Join(fields, ", "))
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnv は環境変数をparseで変換する。未設定または変換に失敗した場合はdefaultValを返す。
func getEnv[T any](key string, defaultVal T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := parse(v)
	if err != nil {
		slog.Warn("ignoring invalid environment variable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return defaultVal
	}
	return parsed
}

// splitList はカンマ区切りの値を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// parseLogLevel は debug / info / warn / error を受け付ける。
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}
