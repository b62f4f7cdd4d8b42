package tweet

import (
	"github.com/nao1215/pulse/pkg/migration"
	"gorm.io/gorm"
)

// Migrations はツイートサービスのマイグレーション。
func Migrations() []migration.Step {
	return []migration.Step{
		{
			Version: 1,
			Name:    "create_tweets",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Tweet{})
			},
		},
		{
			Version: 2,
			Name:    "create_tweet_comments_and_likes",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&TweetComment{}, &TweetLike{})
			},
		},
	}
}
