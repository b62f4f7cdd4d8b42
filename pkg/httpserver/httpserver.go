// Package httpserver は各サービス共通のGinエンジンの組み立てとHTTPサーバーの起動を提供する。
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pulse/pkg/middleware"
	"github.com/sirupsen/logrus"
)

// Options はエンジンに適用するミドルウェアの設定。
type Options struct {
	// Service はサービス名。ヘルスチェックとメトリクスに使用する。
	Service string
	// CORSAllowedOrigins はCORSで許可するオリジン。
	CORSAllowedOrigins []string
	// RateLimitRPS はクライアントごとの毎秒リクエスト数上限。0以下の場合は制限しない。
	RateLimitRPS float64
	// RateLimitBurst はレート制限のバースト量。
	RateLimitBurst int
}

// NewEngine は共通ミドルウェアと /health、/metrics を設定したGinエンジンを生成する。
func NewEngine(opts Options, logger logrus.FieldLogger) *gin.Engine {
	metrics := middleware.NewMetrics(opts.Service)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(opts.CORSAllowedOrigins))
	router.Use(metrics.Handler())
	if opts.RateLimitRPS > 0 {
		router.Use(middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Handler())
	}

	router.GET("/health", HealthHandler(opts.Service))
	router.GET("/metrics", metrics.Expose())
	return router
}

// HealthHandler はヘルスチェックのハンドラを返す。
func HealthHandler(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": service})
	}
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
// キャンセル後は処理中のリクエストを最大10秒待ってから停止する。
func Run(ctx context.Context, handler http.Handler, port string, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", port).Info("HTTPサーバーを起動します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}
