package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// スナップショットの保存先
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod

	SnapshotStore string        // postgres/redis/memory
	RedisAddr     string        // localhost:6379
	RedisPassword string        //
	RedisDB       int           //
	SnapshotTTL   time.Duration // 0なら期限なし（redisのみ）

	PersistMaxTries       uint          // 書き込みのリトライ回数
	PersistInitialBackoff time.Duration // 最初の待ち時間

	ResetCartsOnMerchantSwitch bool // merchant切替時にカートを消すか
	SeedDemo                   bool // デモ用merchant/商品を投入するか
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv: os.Getenv("GO_ENV"),

		SnapshotStore: strings.ToLower(getenv("SNAPSHOT_STORE", StorePostgres)),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.PostgresPort, err = atoiOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = atoiOr("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SnapshotTTL, err = durationOr("SNAPSHOT_TTL", 0); err != nil {
		return Config{}, err
	}
	tries, err := atoiOr("PERSIST_MAX_TRIES", 5)
	if err != nil {
		return Config{}, err
	}
	if tries < 1 {
		return Config{}, fmt.Errorf("PERSIST_MAX_TRIES must be positive")
	}
	cfg.PersistMaxTries = uint(tries)
	if cfg.PersistInitialBackoff, err = durationOr("PERSIST_INITIAL_BACKOFF", 200*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.ResetCartsOnMerchantSwitch, err = boolOr("RESET_CARTS_ON_MERCHANT_SWITCH", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemo, err = boolOr("SEED_DEMO", false); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	switch cfg.SnapshotStore {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return Config{}, fmt.Errorf("SNAPSHOT_STORE must be one of postgres, redis, memory")
	}

	// DBはカタログと売上で常に使う
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}

	return cfg, nil
}

// DSN はDATABASE_URLかPOSTGRES_*から組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は":8080"の形
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}
