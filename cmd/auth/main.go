// 認証サービスのエントリポイント。
// ユーザー登録・ログイン・トークン更新と、他サービス向けのユーザーディレクトリを提供する。
package main

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/nao1215/pulse/internal/auth"
	"github.com/nao1215/pulse/pkg/cliapp"
	"github.com/nao1215/pulse/pkg/middleware"
	"github.com/nao1215/pulse/pkg/userclient"
)

func main() {
	cliapp.Main(func() cliapp.Service {
		cfg := auth.LoadConfig()
		return cliapp.Service{
			Name:       cfg.Service,
			Usage:      "認証サービス",
			Common:     cfg.Common,
			Migrations: auth.Migrations(),
			Serve: func(ctx context.Context, rt *cliapp.Runtime) error {
				issuer := middleware.TokenIssuer{
					Secret:     cfg.JWTSecret,
					AccessTTL:  cfg.AccessTokenTTL,
					RefreshTTL: cfg.RefreshTokenTTL,
				}
				service := auth.NewService(auth.NewRepository(rt.DB), issuer, cfg.BcryptCost, cfg.AdminEmails, rt.Emitter, rt.Logger)
				if cfg.RedisAddr != "" {
					rdb := redis.NewClient(&redis.Options{
						Addr:     cfg.RedisAddr,
						Password: cfg.RedisPassword,
						DB:       cfg.RedisDB,
					})
					defer rdb.Close()
					if err := rdb.Ping(ctx).Err(); err != nil {
						rt.Logger.WithError(err).Warn("Redisに接続できません。ユーザーキャッシュは破棄されません")
					}
					// TTLは参照側が設定するため破棄にしか使わない
					service.SetUserCache(userclient.NewRedisCache(rdb, 0))
				}
				return auth.NewServer(cfg, rt.DB, service, rt.Logger).Run(ctx)
			},
		}
	})
}
