// Package cliapp は各サービスのコマンドラインエントリポイントを組み立てる。
//
// すべてのサービスは serve（既定）と migrate の2つのサブコマンドを持つ。
package cliapp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pulse/pkg/config"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/event"
	"github.com/nao1215/pulse/pkg/logging"
	"github.com/nao1215/pulse/pkg/migration"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// Runtime はサービス起動時に組み立てる共通の依存オブジェクト。
type Runtime struct {
	// DB はマイグレーション済みのデータベース。
	DB *gorm.DB
	// Logger はサービス名付きのロガー。
	Logger *logrus.Logger
	// Emitter はイベント配信。
	Emitter *event.Emitter
}

// Service はサービスごとのエントリポイントの定義。
type Service struct {
	// Name はサービス名。
	Name string
	// Usage はサービスの説明。
	Usage string
	// Common は共通設定。
	Common config.Common
	// Migrations はサービスのマイグレーション。
	Migrations []migration.Step
	// Serve は依存オブジェクトを受け取り、ctxがキャンセルされるまでサーバーを動かす。
	Serve func(ctx context.Context, rt *Runtime) error
}

// NewApp はserveとmigrateを持つCLIアプリケーションを生成する。
func NewApp(svc Service) *cli.App {
	serve := &cli.Command{
		Name:   "serve",
		Usage:  "HTTPサーバーを起動する",
		Action: func(c *cli.Context) error { return run(c.Context, svc) },
	}
	migrate := &cli.Command{
		Name:  "migrate",
		Usage: "マイグレーションを適用して終了する",
		Action: func(c *cli.Context) error {
			logger := logging.New(svc.Name, svc.Common.LogLevel, svc.Common.LogFormat)
			db, err := openDatabase(svc.Common, logger, svc.Migrations)
			if err != nil {
				return err
			}
			logger.Info("マイグレーションを適用しました")
			return database.Close(db)
		},
	}
	return &cli.App{
		Name:     svc.Name,
		Usage:    svc.Usage,
		Action:   serve.Action,
		Commands: []*cli.Command{serve, migrate},
	}
}

// Main は .env を読み込んだ後にアプリケーションを実行する。
// SIGINT と SIGTERM を受けるとサーバーを停止する。
func Main(newService func() Service) {
	config.Load()
	svc := newService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewApp(svc).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", svc.Name, err)
		stop()
		os.Exit(1)
	}
}

// run は依存オブジェクトを組み立ててサーバーを起動する。
func run(ctx context.Context, svc Service) error {
	logger := logging.New(svc.Name, svc.Common.LogLevel, svc.Common.LogFormat)

	db, err := openDatabase(svc.Common, logger, svc.Migrations)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.WithError(err).Warn("データベースのクローズに失敗")
		}
	}()

	publisher, err := event.NewPublisher(svc.Common.NATSURL, svc.Name)
	if err != nil {
		return fmt.Errorf("イベント配信の初期化に失敗: %w", err)
	}
	defer publisher.Close()

	logger.WithField("port", svc.Common.Port).Info("サービスを起動します")
	rt := &Runtime{DB: db, Logger: logger, Emitter: event.NewEmitter(publisher, logger)}
	if err := svc.Serve(ctx, rt); err != nil {
		return fmt.Errorf("サービスの起動に失敗: %w", err)
	}
	logger.Info("サービスを停止しました")
	return nil
}

// openDatabase はデータベースに接続してマイグレーションを適用する。
func openDatabase(c config.Common, logger logrus.FieldLogger, steps []migration.Step) (*gorm.DB, error) {
	db, err := database.Open(database.Config{
		Driver:          c.DBDriver,
		DSN:             c.DBDSN,
		MaxIdleConns:    c.DBMaxIdleConns,
		MaxOpenConns:    c.DBMaxOpenConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("データベースの初期化に失敗: %w", err)
	}
	if err := migration.Run(db, logger, steps); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return db, nil
}
