// ツイートサービスのエントリポイント。
// 280文字以内のツイートとコメント、いいねを管理する。
package main

import (
	"context"

	"github.com/nao1215/pulse/internal/tweet"
	"github.com/nao1215/pulse/pkg/cliapp"
)

func main() {
	cliapp.Main(func() cliapp.Service {
		cfg := tweet.LoadConfig()
		return cliapp.Service{
			Name:       cfg.Service,
			Usage:      "ツイートサービス",
			Common:     cfg.Common,
			Migrations: tweet.Migrations(),
			Serve: func(ctx context.Context, rt *cliapp.Runtime) error {
				service := tweet.NewService(tweet.NewRepository(rt.DB), cfg.Validator(), rt.Emitter, rt.Logger)
				return tweet.NewServer(cfg, rt.DB, service, rt.Logger).Run(ctx)
			},
		}
	})
}
