package tweet

import (
	"github.com/nao1215/pulse/pkg/config"
	"github.com/nao1215/pulse/pkg/content"
)

// DefaultMaxTweetLength はツイート本文の最大文字数。
const DefaultMaxTweetLength = 280

// Config はツイートサービスの設定。
type Config struct {
	config.Common
	// MaxTweetLength はツイートとコメントの最大文字数。
	MaxTweetLength int
	// DefaultPageSize は一覧取得でsize未指定時の件数。
	DefaultPageSize int
}

// LoadConfig は環境変数からツイートサービスの設定を読み込む。
func LoadConfig() Config {
	return Config{
		Common:          config.LoadCommon("tweet", "8083", "file:tweet.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"),
		MaxTweetLength:  config.GetEnvInt("MAX_TWEET_LENGTH", DefaultMaxTweetLength),
		DefaultPageSize: config.GetEnvInt("TWEET_PAGE_SIZE", 10),
	}
}

// Validator は設定値から本文の検証器を生成する。
// ツイートとコメントは同じ上限を使う。
func (c Config) Validator() *content.Validator {
	return &content.Validator{
		MaxPostLength:    c.MaxTweetLength,
		MaxCommentLength: c.MaxTweetLength,
	}
}
