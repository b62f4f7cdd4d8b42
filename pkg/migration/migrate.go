// Package migration はgormで管理するデータベースのマイグレーションを提供する。
// 各サービスはバージョン付きのStepを定義し、schema_migrationsテーブルで適用状態を追跡する。
package migration

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Step は1つのマイグレーション。
type Step struct {
	// Version はバージョン番号。昇順に適用する。
	Version int
	// Name はマイグレーションの説明。
	Name string
	// Up はスキーマを変更する処理。トランザクション内で呼ばれる。
	Up func(tx *gorm.DB) error
}

// SchemaMigration は適用済みマイグレーションの記録。
type SchemaMigration struct {
	// Version はバージョン番号。
	Version int `gorm:"primaryKey;autoIncrement:false"`
	// Name はマイグレーションの説明。
	Name string `gorm:"size:255;not null"`
	// AppliedAt は適用日時。
	AppliedAt time.Time `gorm:"not null"`
}

// TableName はテーブル名を返す。
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Run はマイグレーションをバージョン順に適用する。
// 未適用のマイグレーションのみ実行し、適用済みのものはスキップする。
func Run(db *gorm.DB, logger logrus.FieldLogger, steps []Step) error {
	sorted, err := sortSteps(steps)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	for _, s := range sorted {
		if applied[s.Version] {
			continue
		}
		if err := apply(db, s); err != nil {
			return fmt.Errorf("マイグレーション %06d の適用に失敗: %w", s.Version, err)
		}
		logger.WithFields(logrus.Fields{
			"version": s.Version,
			"name":    s.Name,
		}).Info("[Migration] マイグレーションを適用しました")
	}
	return nil
}

// sortSteps はバージョン順に並べ替える。バージョンの重複はエラーにする。
func sortSteps(steps []Step) ([]Step, error) {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Version == sorted[i-1].Version {
			return nil, fmt.Errorf("マイグレーションのバージョンが重複しています: %06d", sorted[i].Version)
		}
	}
	return sorted, nil
}

// appliedVersions は適用済みのマイグレーションバージョンを取得する。
func appliedVersions(db *gorm.DB) (map[int]bool, error) {
	var versions []int
	if err := db.Model(&SchemaMigration{}).Order("version").Pluck("version", &versions).Error; err != nil {
		return nil, err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// apply は1つのマイグレーションをトランザクション内で適用する。
func apply(db *gorm.DB, s Step) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := s.Up(tx); err != nil {
			return err
		}
		record := SchemaMigration{Version: s.Version, Name: s.Name, AppliedAt: time.Now().UTC()}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("バージョン記録に失敗: %w", err)
		}
		return nil
	})
}
