package auth

import (
	"github.com/nao1215/pulse/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

// Config は認証サービスの設定。
type Config struct {
	config.Common
	// BcryptCost はパスワードハッシュのコスト。
	BcryptCost int
	// AdminEmails は登録時にADMINロールを付与するメールアドレス。
	AdminEmails []string
	// AuthRateLimitRPS は登録・ログイン・再発行に対する毎秒リクエスト数上限。0以下の場合は制限しない。
	AuthRateLimitRPS float64
	// AuthRateLimitBurst は登録・ログイン・再発行に対するバースト量。
	AuthRateLimitBurst int
	// RedisAddr は他サービスと共有するユーザーキャッシュのRedisアドレス。
	// 設定するとアカウント停止・解除時にキャッシュを破棄する。
	RedisAddr string
	// RedisPassword はRedisのパスワード。
	RedisPassword string
	// RedisDB はRedisのDB番号。
	RedisDB int
}

// LoadConfig は環境変数から認証サービスの設定を読み込む。
func LoadConfig() Config {
	cost := config.GetEnvInt("BCRYPT_COST", 12)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Config{
		Common:             config.LoadCommon("auth", "8081", "file:auth.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"),
		BcryptCost:         cost,
		AdminEmails:        config.GetEnvList("ADMIN_EMAILS", nil),
		AuthRateLimitRPS:   config.GetEnvFloat("AUTH_RATE_LIMIT_RPS", 1),
		AuthRateLimitBurst: config.GetEnvInt("AUTH_RATE_LIMIT_BURST", 10),
		RedisAddr:          config.GetEnvOr("REDIS_ADDR", ""),
		RedisPassword:      config.GetEnvOr("REDIS_PASSWORD", ""),
		RedisDB:            config.GetEnvInt("REDIS_DB", 0),
	}
}
