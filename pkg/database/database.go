// Package database はgormのデータベース接続を提供する。
//
// 本番ではPostgreSQL（pgx）、開発とテストではpure GoのSQLite（modernc.org/sqlite）を使う。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// modernc.org/sqlite は "sqlite" ドライバーとして登録される
	_ "modernc.org/sqlite"
)

// ドライバー名。
const (
	// DriverSQLite はSQLite。
	DriverSQLite = "sqlite"
	// DriverPostgres はPostgreSQL。
	DriverPostgres = "postgres"
)

// Config はデータベース接続の設定。
type Config struct {
	// Driver は sqlite または postgres。
	Driver string
	// DSN は接続文字列。
	DSN string
	// MaxIdleConns はアイドル接続の最大数。
	MaxIdleConns int
	// MaxOpenConns はオープン接続の最大数。
	MaxOpenConns int
	// ConnMaxLifetime は接続の最大生存期間。
	ConnMaxLifetime time.Duration
}

// Open は設定に従ってデータベースに接続する。
func Open(cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
		}
		configurePool(pool, cfg)
		return openGorm(postgres.New(postgres.Config{Conn: pool}))
	case DriverSQLite, "":
		pool, err := openSQLitePool(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if isMemoryDSN(cfg.DSN) {
			// インメモリDBは接続ごとに別のDBになるため1接続に固定する
			pool.SetMaxOpenConns(1)
		} else {
			configurePool(pool, cfg)
		}
		return openGorm(sqlite.New(sqlite.Config{DriverName: DriverSQLite, Conn: pool}))
	default:
		return nil, fmt.Errorf("未対応のデータベースドライバー: %s", cfg.Driver)
	}
}

// OpenSQLite はSQLiteに接続する。dsn に ":memory:" を指定するとインメモリDBになる。
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return Open(Config{Driver: DriverSQLite, DSN: dsn})
}

// openSQLitePool はmodernc.org/sqliteで接続プールを開く。
func openSQLitePool(dsn string) (*sql.DB, error) {
	pool, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLiteへの接続に失敗: %w", err)
	}
	return pool, nil
}

// isMemoryDSN はインメモリDBのDSNかどうかを返す。
func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// configurePool は接続プールの設定を反映する。
func configurePool(pool *sql.DB, cfg Config) {
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// openGorm はgormを初期化する。時刻はUTCで記録する。
func openGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("gormの初期化に失敗: %w", err)
	}
	return db, nil
}

// Ping はデータベースへの疎通を確認する。
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("接続プールの取得に失敗: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}
	return nil
}

// Close は接続プールを閉じる。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("接続プールの取得に失敗: %w", err)
	}
	return sqlDB.Close()
}

// IsUniqueViolation は一意制約違反のエラーかどうかを返す。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
