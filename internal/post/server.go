package post

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/httpclient"
	"github.com/nao1215/pulse/pkg/httpserver"
	"github.com/nao1215/pulse/pkg/middleware"
	"github.com/nao1215/pulse/pkg/pagination"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// msgInternal は内部エラー時にクライアントへ返すメッセージ。
const msgInternal = "内部サーバーエラーが発生しました"

// Server は投稿サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// service は投稿のビジネスロジック。
	service *Service
	// db はヘルスチェックで疎通確認するデータベース。
	db *gorm.DB
	// cfg はサービス設定。
	cfg Config
	// logger はロガー。
	logger logrus.FieldLogger
}

// NewServer は新しい投稿サーバーを生成する。
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
// 参照系はトークンが任意、更新系はトークンが必須。
func (s *Server) setupRoutes() {
	posts := s.router.Group("/api/posts")

	// ヘルスチェック
	posts.GET("/health", s.handleHealth())

	read := posts.Group("")
	read.Use(middleware.OptionalJWTAuth(s.cfg.JWTSecret))
	{
		// 投稿一覧
		read.GET("", s.handleList())
		// 投稿者ごとの投稿一覧
		read.GET("/author/:authorId", s.handleListByAuthor())
		// フォロー中のユーザーの投稿
		read.GET("/feed", s.handleFeed())
		// 投稿検索
		read.GET("/search", s.handleSearch())
		// トレンド
		read.GET("/trending", s.handleTrending())
		// 投稿詳細
		read.GET("/:id", s.handleGetByID())
		// いいねしたユーザー一覧
		read.GET("/:id/likes", s.handleListLikes())
		// コメント一覧
		read.GET("/:id/comments", s.handleListComments())
		// 返信一覧
		read.GET("/comments/:commentId/replies", s.handleListReplies())
	}

	write := posts.Group("")
	write.Use(middleware.JWTAuth(s.cfg.JWTSecret))
	{
		// 投稿作成
		write.POST("", s.handleCreate())
		// 投稿編集
		write.PUT("/:id", s.handleUpdate())
		// 投稿削除
		write.DELETE("/:id", s.handleDelete())
		// いいね
		write.POST("/:id/like", s.handleLike())
		// いいね取り消し
		write.DELETE("/:id/like", s.handleUnlike())
		// コメント作成
		write.POST("/:id/comments", s.handleCreateComment())
		// コメント編集
		write.PUT("/comments/:commentId", s.handleUpdateComment())
		// コメント削除
		write.DELETE("/comments/:commentId", s.handleDeleteComment())
		// コメントへのいいね
		write.POST("/comments/:commentId/like", s.handleLikeComment())
		// コメントへのいいね取り消し
		write.DELETE("/comments/:commentId/like", s.handleUnlikeComment())
	}
}

// createPostRequest は投稿作成リクエストのJSON構造。
type createPostRequest struct {
	// Content は本文。
	Content string `json:"content"`
	// ImageURLs は添付画像のURL。
	ImageURLs []string `json:"image_urls"`
	// VideoURL は添付動画のURL。
	VideoURL string `json:"video_url"`
}

// contentRequest は本文のみを持つリクエストのJSON構造。
type contentRequest struct {
	// Content は本文。
	Content string `json:"content"`
}

// createCommentRequest はコメント作成リクエストのJSON構造。
type createCommentRequest struct {
	// Content は本文。
	Content string `json:"content"`
	// ParentID は返信先のコメントID。
	ParentID string `json:"parent_id"`
}

// requestContext はリクエストのコンテキストに呼び出し元のAuthorizationヘッダーを載せる。
// ユーザーディレクトリへの呼び出しにそのまま引き継ぐ。
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if auth := c.GetHeader("Authorization"); auth != "" {
		ctx = httpclient.WithAuthorization(ctx, auth)
	}
	if userID := middleware.GetUserID(c); userID != "" {
		ctx = httpclient.WithUserID(ctx, userID)
	}
	return ctx
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

// handleCreate は投稿作成ハンドラ。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPostRequest
		if !bindJSON(c, &req) {
			return
		}

		view, err := s.service.CreatePost(requestContext(c), middleware.GetUserID(c), CreatePostInput{
			Content:   req.Content,
			ImageURLs: req.ImageURLs,
			VideoURL:  req.VideoURL,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// handleGetByID は投稿詳細ハンドラ。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.service.GetPost(requestContext(c), c.Param("id"), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleList は投稿一覧ハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.ListPosts(requestContext(c), pagination.FromQuery(c), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleListByAuthor は投稿者ごとの投稿一覧ハンドラ。
func (s *Server) handleListByAuthor() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.ListByAuthor(requestContext(c), c.Param("authorId"), pagination.FromQuery(c), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleFeed はフォロー中のユーザーの投稿ハンドラ。following はカンマ区切りまたは複数指定。
func (s *Server) handleFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		var following []string
		for _, v := range c.QueryArray("following") {
			for id := range strings.SplitSeq(v, ",") {
				if id = strings.TrimSpace(id); id != "" {
					following = append(following, id)
				}
			}
		}

		page, err := s.service.Feed(requestContext(c), following, pagination.FromQuery(c), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleSearch は投稿検索ハンドラ。
func (s *Server) handleSearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.Search(requestContext(c), c.Query("q"), pagination.FromQuery(c), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleTrending はトレンドハンドラ。
func (s *Server) handleTrending() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.service.Trending(requestContext(c), pagination.FromQuery(c), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleUpdate は投稿編集ハンドラ。本文はJSONボディかクエリパラメータ content で受け取る。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		if req.Content == "" {
			req.Content = c.Query("content")
		}

		view, err := s.service.UpdatePost(requestContext(c), c.Param("id"), middleware.GetUserID(c), req.Content)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleDelete は投稿削除ハンドラ。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.DeletePost(requestContext(c), c.Param("id"), middleware.GetUserID(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "投稿を削除しました"})
	}
}

// handleLike はいいねハンドラ。
func (s *Server) handleLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.LikePost(requestContext(c), c.Param("id"), middleware.GetUserID(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "いいねしました"})
	}
}

// handleUnlike はいいね取り消しハンドラ。
func (s *Server) handleUnlike() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.UnlikePost(requestContext(c), c.Param("id"), middleware.GetUserID(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "いいねを取り消しました"})
	}
}

// handleListLikes はいいねしたユーザー一覧ハンドラ。
func (s *Server) handleListLikes() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDs, err := s.service.ListPostLikers(requestContext(c), c.Param("id"))
		if err != nil {
			s.respondError(c, err)
			return
		}
		if userIDs == nil {
			userIDs = []string{}
		}
		c.JSON(http.StatusOK, userIDs)
	}
}

// handleCreateComment はコメント作成ハンドラ。
func (s *Server) handleCreateComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCommentRequest
		if !bindJSON(c, &req) {
			return
		}

		view, err := s.service.CreateComment(requestContext(c), c.Param("id"), middleware.GetUserID(c), req.Content, req.ParentID)
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
		page, err := s.service.ListComments(requestContext(c), c.Param("id"), pagination.FromQuery(c), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// handleListReplies は返信一覧ハンドラ。
func (s *Server) handleListReplies() gin.HandlerFunc {
	return func(c *gin.Context) {
		replies, err := s.service.ListReplies(requestContext(c), c.Param("commentId"), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, replies)
	}
}

// handleUpdateComment はコメント編集ハンドラ。
func (s *Server) handleUpdateComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if !bindJSON(c, &req) {
			return
		}

		view, err := s.service.UpdateComment(requestContext(c), c.Param("commentId"), middleware.GetUserID(c), req.Content)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// handleDeleteComment はコメント削除ハンドラ。
func (s *Server) handleDeleteComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.DeleteComment(requestContext(c), c.Param("commentId"), middleware.GetUserID(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "コメントを削除しました"})
	}
}

// handleLikeComment はコメントへのいいねハンドラ。
func (s *Server) handleLikeComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.LikeComment(requestContext(c), c.Param("commentId"), middleware.GetUserID(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "いいねしました"})
	}
}

// handleUnlikeComment はコメントへのいいね取り消しハンドラ。
func (s *Server) handleUnlikeComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.UnlikeComment(requestContext(c), c.Param("commentId"), middleware.GetUserID(c)); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "いいねを取り消しました"})
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
