package auth

import (
	"github.com/nao1215/pulse/pkg/migration"
	"gorm.io/gorm"
)

// Migrations は認証サービスのマイグレーション。
func Migrations() []migration.Step {
	return []migration.Step{
		{
			Version: 1,
			Name:    "create_users",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&User{})
			},
		},
	}
}
