package tweet

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/httpserver"
	"github.com/nao1215/pulse/pkg/middleware"
	"github.com/nao1215/pulse/pkg/pagination"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// msgInternal は内部エラー時にクライアントへ返すメッセージ。
const msgInternal = "内部サーバーエラーが発生しました"

// Server はツイートサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// service はツイートのビジネスロジック。
	service *Service
	// db はヘルスチェックで疎通確認するデータベース。
	db *gorm.DB
	// cfg はサービス設定。
	cfg Config
	// logger はロガー。
	logger logrus.FieldLogger
}

// NewServer は新しいツイートサーバーを生成する。
func NewServer(cfg Config, db *gorm.DB, service *Service, logger logrus.FieldLogger) *Server {
	router := httpserver.NewEngine(httpserver.Options{
		Service:            cfg.Service,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}, logger)

	s := &Server{
		router:  router,
		service: service,
		db:      db,
		cfg:     cfg,
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	return httpserver.Run(ctx, s.router, s.cfg.Port, s.logger)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	tweets := s.router.Group("/api/tweets")

	// ヘルスチェック
	tweets.GET("/health", s.handleHealth())

	// ツイート一覧
	tweets.GET("", s.handleList())
	// 投稿者ごとのツイート一覧
	tweets.GET("/author/:username", s.handleListByAuthor())
	// ツイート検索
	tweets.GET("/search", s.handleSearch())
	// ユーザーの集計
	tweets.GET("/users/:username/stats", s.handleUserStats())
	// ユーザーが付けたいいね一覧
	tweets.GET("/users/:username/likes", s.handleUserLikes())
	// ツイート取得
	tweets.GET("/:id", s.handleGetByID())
	// コメントといいねを含むツイート取得
	tweets.GET("/:id/details", s.handleGetDetails())
	// コメント一覧
	tweets.GET("/:id/comments", s.handleListComments())
	// いいね一覧
	tweets.GET("/:id/likes", s.handleListLikes())

	auth := tweets.Group("")
	auth.Use(middleware.JWTAuth(s.cfg.JWTSecret))
	{
		// ツイート作成
		auth.POST("", s.handleCreate())
		// ツイート更新
		auth.PUT("/:id", s.handleUpdate())
		// ツイート削除
		auth.DELETE("/:id", s.handleDelete())
		// コメント作成
		auth.POST("/:id/comments", s.handleCreateComment())
		// コメント削除
		auth.DELETE("/comments/:commentId", s.handleDeleteComment())
		// いいね
		auth.POST("/:id/like", s.handleLike())
		// いいね取り消し
		auth.DELETE("/:id/like", s.handleUnlike())
		// 自分がいいねしているかどうか
		auth.GET("/:id/like", s.handleHasLiked())
	}
}

// contentRequest は本文を持つリクエストのJSON構造。
type contentRequest struct {
	// Content は本文。
	Content string `json:"content"`
}

// respondError はエラーの種類に応じたステータスコードでエラーを返す。
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperror.Message(err, msgInternal)})
}

// bindJSON はリクエストボディをデコードする。失敗した場合は400を返して false を返す。
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
		return false
	}
	return true
}

// pageRequest はクエリパラメータからページング条件を組み立てる。
func (s *Server) pageRequest(c *gin.Context) pagination.Request {
	size := s.cfg.DefaultPageSize
	if size <= 0 {
		size = 10
	}
	return pagination.FromQuerySize(c, size)
}

// sortFromQuery は sortBy と sortDir から並び順を組み立てる。既定は作成日時の降順。
func sortFromQuery(c *gin.Context) Sort {
	return Sort{
		By:   c.DefaultQuery("sortBy", "createdAt"),
		Desc: !strings.EqualFold(c.Query("sortDir"), "asc"),
	}
}

// handleCreate はツイート作成ハンドラ。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if !bindJSON(c, &req) {
			return
		}

		view, err := s.service.CreateTweet(c.Request.Context(), middleware.GetUsername(c), req.Content)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// handleGetByID はツイート取得ハンドラ。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.service.GetTweet(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleGetDetails はコメントといいねを含むツイート取得ハンドラ。
func (s *Server) handleGetDetails() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.service.GetTweetDetails(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleList はツイート一覧ハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.ListTweets(c.Request.Context(), sortFromQuery(c), s.pageRequest(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleListByAuthor は投稿者ごとのツイート一覧ハンドラ。
func (s *Server) handleListByAuthor() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.ListByAuthor(c.Request.Context(), c.Param("username"), s.pageRequest(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleSearch はツイート検索ハンドラ。
func (s *Server) handleSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.Search(c.Request.Context(), c.Query("keyword"), s.pageRequest(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleUpdate はツイート更新ハンドラ。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if !bindJSON(c, &req) {
			return
		}

		view, err := s.service.UpdateTweet(c.Request.Context(), c.Param("id"), middleware.GetUsername(c), req.Content)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleDelete はツイート削除ハンドラ。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.DeleteTweet(c.Request.Context(), c.Param("id"), middleware.GetUsername(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ツイートを削除しました"})
	}
}

// handleCreateComment はコメント作成ハンドラ。
func (s *Server) handleCreateComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if !bindJSON(c, &req) {
			return
		}

		view, err := s.service.AddComment(c.Request.Context(), c.Param("id"), middleware.GetUsername(c), req.Content)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// handleListComments はコメント一覧ハンドラ。
func (s *Server) handleListComments() gin.HandlerFunc {
	return func(c *gin.Context) {
		comments, err := s.service.ListComments(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, comments)
	}
}

// handleDeleteComment はコメント削除ハンドラ。
func (s *Server) handleDeleteComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.DeleteComment(c.Request.Context(), c.Param("commentId"), middleware.GetUsername(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "コメントを削除しました"})
	}
}

// handleLike はいいねハンドラ。
func (s *Server) handleLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		like, err := s.service.LikeTweet(c.Request.Context(), c.Param("id"), middleware.GetUsername(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, like)
	}
}

// handleUnlike はいいね取り消しハンドラ。
func (s *Server) handleUnlike() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.UnlikeTweet(c.Request.Context(), c.Param("id"), middleware.GetUsername(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "いいねを取り消しました"})
	}
}

// handleHasLiked は呼び出し元がいいねしているかどうかを返すハンドラ。
func (s *Server) handleHasLiked() gin.HandlerFunc {
	return func(c *gin.Context) {
		liked, err := s.service.HasLiked(c.Request.Context(), c.Param("id"), middleware.GetUsername(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": liked})
	}
}

// handleListLikes はツイートへのいいね一覧ハンドラ。
func (s *Server) handleListLikes() gin.HandlerFunc {
	return func(c *gin.Context) {
		likes, err := s.service.ListLikes(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, likes)
	}
}

// handleUserLikes はユーザーが付けたいいね一覧ハンドラ。
func (s *Server) handleUserLikes() gin.HandlerFunc {
	return func(c *gin.Context) {
		likes, err := s.service.ListLikesByUser(c.Request.Context(), c.Param("username"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, likes)
	}
}

// handleUserStats はユーザーの集計ハンドラ。
func (s *Server) handleUserStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := s.service.UserStats(c.Request.Context(), c.Param("username"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// handleHealth はデータベースの疎通を含めたヘルスチェックハンドラ。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.Ping(ctx, s.db); err != nil {
			s.logger.WithError(err).Warn("データベースに接続できません")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "service": s.cfg.Service, "database": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": s.cfg.Service, "database": "UP"})
	}
}
