// Package config は環境変数からサービス設定を読み込む。
//
// 起動時に .env ファイルがあれば読み込み、環境変数が未設定の項目には
// 開発用のデフォルト値を使用する。
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load はカレントディレクトリまたは実行ファイルと同じディレクトリの .env を読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func Load() {
	if err := godotenv.Load(); err == nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(os.Args[0]), ".env"))
}

// GetEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func GetEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt は環境変数を整数として取得する。未設定または不正な値の場合はデフォルト値を返す。
func GetEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvFloat は環境変数を浮動小数点数として取得する。
func GetEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// GetEnvBool は環境変数を真偽値として取得する。
func GetEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// GetEnvDuration は環境変数を time.Duration として取得する（例: "24h", "500ms"）。
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvList はカンマ区切りの環境変数をスライスとして取得する。空要素は除外する。
func GetEnvList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}

// Common は全サービスで共通の設定。
type Common struct {
	// Service はサービス名。ログとメトリクスのラベルに使用する。
	Service string
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// JWTSecret はJWT署名用の共有シークレット。
	JWTSecret string
	// AccessTokenTTL はアクセストークンの有効期間。
	AccessTokenTTL time.Duration
	// RefreshTokenTTL はリフレッシュトークンの有効期間。
	RefreshTokenTTL time.Duration
	// DBDriver はデータベースドライバ名（sqlite または postgres）。
	DBDriver string
	// DBDSN はデータベース接続文字列。
	DBDSN string
	// DBMaxIdleConns はコネクションプールのアイドル接続数上限。
	DBMaxIdleConns int
	// DBMaxOpenConns はコネクションプールの接続数上限。
	DBMaxOpenConns int
	// DBConnMaxLifetime は接続の最大生存期間。
	DBConnMaxLifetime time.Duration
	// CORSAllowedOrigins はCORSで許可するオリジン。
	CORSAllowedOrigins []string
	// RateLimitRPS はクライアントごとの毎秒リクエスト数上限。
	RateLimitRPS float64
	// RateLimitBurst はレート制限のバースト量。
	RateLimitBurst int
	// NATSURL はイベント配信先のNATS URL。空の場合はイベントを配信しない。
	NATSURL string
	// LogLevel はログレベル。
	LogLevel string
	// LogFormat はログ形式（json または text）。
	LogFormat string
}

// LoadCommon は環境変数から共通設定を読み込む。
// defaultPort と defaultDSN はサービスごとのデフォルト値。
func LoadCommon(service, defaultPort, defaultDSN string) Common {
	return Common{
		Service:            service,
		Port:               GetEnvOr("PORT", defaultPort),
		JWTSecret:          GetEnvOr("JWT_SECRET", "dev-secret-key"),
		AccessTokenTTL:     GetEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
		RefreshTokenTTL:    GetEnvDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		DBDriver:           GetEnvOr("DB_DRIVER", "sqlite"),
		DBDSN:              GetEnvOr("DB_DSN", defaultDSN),
		DBMaxIdleConns:     GetEnvInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:     GetEnvInt("DB_MAX_OPEN_CONNS", 50),
		DBConnMaxLifetime:  GetEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		CORSAllowedOrigins: GetEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:       GetEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     GetEnvInt("RATE_LIMIT_BURST", 40),
		NATSURL:            os.Getenv("NATS_URL"),
		LogLevel:           GetEnvOr("LOG_LEVEL", "info"),
		LogFormat:          GetEnvOr("LOG_FORMAT", "json"),
	}
}
