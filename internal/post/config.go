package post

import (
	"time"

	"github.com/nao1215/pulse/pkg/config"
	"github.com/nao1215/pulse/pkg/content"
	"github.com/nao1215/pulse/pkg/httpclient"
)

// Config は投稿サービスの設定。
type Config struct {
	config.Common
	// UserServiceURL はユーザーディレクトリのベースURL。
	UserServiceURL string
	// UserService はユーザーディレクトリへのタイムアウトとリトライの設定。
	UserService httpclient.Options
	// RedisAddr はユーザーキャッシュのRedisアドレス。空の場合はキャッシュしない。
	RedisAddr string
	// RedisPassword はRedisのパスワード。
	RedisPassword string
	// RedisDB はRedisのDB番号。
	RedisDB int
	// UserCacheTTL はユーザーキャッシュの有効期間。
	UserCacheTTL time.Duration
	// MaxPostLength は投稿本文の最大文字数。
	MaxPostLength int
	// MaxCommentLength はコメント本文の最大文字数。
	MaxCommentLength int
	// MaxImages は添付画像の最大数。
	MaxImages int
}

// LoadConfig は環境変数から投稿サービスの設定を読み込む。
func LoadConfig() Config {
	defaults := httpclient.DefaultOptions()
	return Config{
		Common:         config.LoadCommon("post", "8082", "file:post.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"),
		UserServiceURL: config.GetEnvOr("USER_SERVICE_URL", "http://localhost:8081"),
		UserService: httpclient.Options{
			ServiceName:    defaults.ServiceName,
			ConnectTimeout: config.GetEnvDuration("USER_SERVICE_CONNECT_TIMEOUT", defaults.ConnectTimeout),
			ReadTimeout:    config.GetEnvDuration("USER_SERVICE_READ_TIMEOUT", defaults.ReadTimeout),
			Retry: httpclient.RetryPolicy{
				InitialInterval: config.GetEnvDuration("USER_SERVICE_RETRY_INTERVAL", defaults.Retry.InitialInterval),
				MaxInterval:     config.GetEnvDuration("USER_SERVICE_RETRY_MAX_INTERVAL", defaults.Retry.MaxInterval),
				MaxAttempts:     config.GetEnvInt("USER_SERVICE_RETRY_MAX_ATTEMPTS", defaults.Retry.MaxAttempts),
			},
		},
		RedisAddr:        config.GetEnvOr("REDIS_ADDR", ""),
		RedisPassword:    config.GetEnvOr("REDIS_PASSWORD", ""),
		RedisDB:          config.GetEnvInt("REDIS_DB", 0),
		UserCacheTTL:     config.GetEnvDuration("USER_CACHE_TTL", 5*time.Minute),
		MaxPostLength:    config.GetEnvInt("MAX_POST_LENGTH", content.DefaultMaxPostLength),
		MaxCommentLength: config.GetEnvInt("MAX_COMMENT_LENGTH", content.DefaultMaxCommentLength),
		MaxImages:        config.GetEnvInt("MAX_IMAGES", content.DefaultMaxImages),
	}
}

// Validator は設定値から本文の検証器を生成する。
func (c Config) Validator() *content.Validator {
	return &content.Validator{
		MaxPostLength:    c.MaxPostLength,
		MaxCommentLength: c.MaxCommentLength,
		MaxImages:        c.MaxImages,
	}
}
