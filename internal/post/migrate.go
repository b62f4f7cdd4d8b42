package post

import (
	"github.com/nao1215/pulse/pkg/migration"
	"gorm.io/gorm"
)

// Migrations は投稿サービスのマイグレーション。
func Migrations() []migration.Step {
	return []migration.Step{
		{
			Version: 1,
			Name:    "create_posts",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Post{})
			},
		},
		{
			Version: 2,
			Name:    "create_comments",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Comment{})
			},
		},
		{
			Version: 3,
			Name:    "create_likes",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&PostLike{}, &CommentLike{})
			},
		},
	}
}
