package migration

import (
	"errors"
	"testing"

	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/logging"
	"gorm.io/gorm"
)

// widget はテスト用のモデル。
type widget struct {
	ID   uint
	Name string
}

// setupTestDB はテスト用のインメモリSQLiteを生成する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("テスト用DBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("未適用のステップがバージョン順に適用されること", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		var order []int
		steps := []Step{
			{Version: 2, Name: "add_name_index", Up: func(tx *gorm.DB) error {
				order = append(order, 2)
				return tx.Exec("CREATE INDEX idx_widgets_name ON widgets(name)").Error
			}},
			{Version: 1, Name: "create_widgets", Up: func(tx *gorm.DB) error {
				order = append(order, 1)
				return tx.AutoMigrate(&widget{})
			}},
		}

		if err := Run(db, logging.Discard(), steps); err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if len(order) != 2 || order[0] != 1 || order[1] != 2 {
			t.Errorf("適用順 = %v, want [1 2]", order)
		}

		var count int64
		db.Model(&SchemaMigration{}).Count(&count)
		if count != 2 {
			t.Errorf("schema_migrations件数 = %d, want 2", count)
		}
	})

	t.Run("適用済みのステップは再実行されないこと", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		calls := 0
		steps := []Step{{Version: 1, Name: "create_widgets", Up: func(tx *gorm.DB) error {
			calls++
			return tx.AutoMigrate(&widget{})
		}}}

		for i := 0; i < 2; i++ {
			if err := Run(db, logging.Discard(), steps); err != nil {
				t.Fatalf("Run()でエラーが発生: %v", err)
			}
		}
		if calls != 1 {
			t.Errorf("実行回数 = %d, want 1", calls)
		}
	})

	t.Run("失敗したステップは記録されずロールバックされること", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		steps := []Step{{Version: 1, Name: "broken", Up: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&widget{}); err != nil {
				return err
			}
			if err := tx.Create(&widget{Name: "x"}).Error; err != nil {
				return err
			}
			return errors.New("意図的な失敗")
		}}}

		if err := Run(db, logging.Discard(), steps); err == nil {
			t.Fatal("Run()がエラーを返すべき")
		}

		var count int64
		db.Model(&SchemaMigration{}).Count(&count)
		if count != 0 {
			t.Errorf("schema_migrations件数 = %d, want 0", count)
		}
	})

	t.Run("バージョンが重複している場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		noop := func(*gorm.DB) error { return nil }
		steps := []Step{{Version: 1, Name: "a", Up: noop}, {Version: 1, Name: "b", Up: noop}}

		if err := Run(db, logging.Discard(), steps); err == nil {
			t.Fatal("Run()がエラーを返すべき")
		}
	})
}
