// 投稿サービスのエントリポイント。
// 投稿・コメント・いいねを管理し、投稿者の情報は認証サービスのユーザーディレクトリから取得する。
package main

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/nao1215/pulse/internal/post"
	"github.com/nao1215/pulse/pkg/cliapp"
	"github.com/nao1215/pulse/pkg/httpclient"
	"github.com/nao1215/pulse/pkg/userclient"
)

func main() {
	cliapp.Main(func() cliapp.Service {
		cfg := post.LoadConfig()
		return cliapp.Service{
			Name:       cfg.Service,
			Usage:      "投稿サービス",
			Common:     cfg.Common,
			Migrations: post.Migrations(),
			Serve: func(ctx context.Context, rt *cliapp.Runtime) error {
				var cache userclient.Cache = userclient.NopCache{}
				if cfg.RedisAddr != "" {
					rdb := redis.NewClient(&redis.Options{
						Addr:     cfg.RedisAddr,
						Password: cfg.RedisPassword,
						DB:       cfg.RedisDB,
					})
					defer rdb.Close()
					if err := rdb.Ping(ctx).Err(); err != nil {
						rt.Logger.WithError(err).Warn("Redisに接続できません。キャッシュなしで動作します")
					}
					cache = userclient.NewRedisCache(rdb, cfg.UserCacheTTL)
				}

				users := userclient.New(httpclient.NewWithOptions(cfg.UserServiceURL, cfg.UserService), cache, rt.Logger)
				service := post.NewService(post.NewRepository(rt.DB), users, cfg.Validator(), rt.Emitter, rt.Logger)
				return post.NewServer(cfg, rt.DB, service, rt.Logger).Run(ctx)
			},
		}
	})
}
