package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// BoardConfig はサーバーとターミナルクライアントで共通のボード設定です。
type BoardConfig struct {
	DefaultRows  int
	DefaultCols  int
	MaxBoardSize int
	PieceSeed    int64 // 0 の場合は毎回ランダム
}

// Config はAPIサーバーの実行時設定です。すべて環境変数から読み込みます。
type Config struct {
	BoardConfig
	Port           string
	SessionTimeout time.Duration
	ReapInterval   time.Duration
	AllowedOrigins []string
	JWTSecret      string
	BypassAuth     bool
	LogLevel       log.Level
}

// LoadDotEnv は本番環境以外で .env ファイルを読み込みます。ファイルがなくてもエラーにはしません。
func LoadDotEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Debugf("[Config] .env not loaded (this is fine in production): %v", err)
	}
}

// LoadBoard はボード関連の環境変数だけを読み込みます。ターミナルクライアントはこちらを使います。
func LoadBoard() (BoardConfig, error) {
	var (
		b   BoardConfig
		err error
	)
	if b.DefaultRows, err = getInt("DEFAULT_ROWS", 16); err != nil {
		return b, err
	}
	if b.DefaultCols, err = getInt("DEFAULT_COLS", 16); err != nil {
		return b, err
	}
	if b.MaxBoardSize, err = getInt("MAX_BOARD_SIZE", 64); err != nil {
		return b, err
	}
	seed, err := getInt("PIECE_SEED", 0)
	if err != nil {
		return b, err
	}
	b.PieceSeed = int64(seed)

	if b.MaxBoardSize <= 0 {
		return b, fmt.Errorf("MAX_BOARD_SIZE must be positive, got %d", b.MaxBoardSize)
	}
	if b.DefaultRows <= 0 || b.DefaultCols <= 0 || b.DefaultRows > b.MaxBoardSize || b.DefaultCols > b.MaxBoardSize {
		return b, fmt.Errorf("default board %dx%d must be within 1..%d", b.DefaultRows, b.DefaultCols, b.MaxBoardSize)
	}
	return b, nil
}

// Load は環境変数からAPIサーバーの設定を読み込みます。
func Load() (*Config, error) {
	board, err := LoadBoard()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		BoardConfig:    board,
		Port:           getString("PORT", "8080"),
		AllowedOrigins: splitList(getString("ALLOWED_ORIGINS", "http://localhost:3000")),
		JWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
	}

	if cfg.SessionTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReapInterval, err = getDuration("SESSION_REAP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.BypassAuth, err = getBool("BYPASS_AUTH", false); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = ParseLogLevel(); err != nil {
		return nil, err
	}

	if !cfg.BypassAuth && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET is required unless BYPASS_AUTH=true")
	}
	return cfg, nil
}

// ParseLogLevel は LOG_LEVEL を logrus のレベルに変換します（既定は info）。
func ParseLogLevel() (log.Level, error) {
	level, err := log.ParseLevel(getString("LOG_LEVEL", "info"))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

// ConfigureLogging は logrus の出力形式とレベルを設定します。
func (c *Config) ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(c.LogLevel)
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
