package auth

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
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// msgInternal は内部エラー時にクライアントへ返すメッセージ。
const msgInternal = "内部サーバーエラーが発生しました"

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// service は認証のビジネスロジック。
	service *Service
	// db はヘルスチェックで疎通確認するデータベース。
	db *gorm.DB
	// cfg はサービス設定。
	cfg Config
	// logger はロガー。
	logger logrus.FieldLogger
}

// NewServer は新しい認証サーバーを生成する。
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
	jwtAuth := middleware.JWTAuth(s.cfg.JWTSecret)

	authAPI := s.router.Group("/api/auth")
	{
		// 登録・ログイン・再発行はパスワード総当たり対策で別枠の制限をかける
		public := authAPI.Group("")
		if s.cfg.AuthRateLimitRPS > 0 {
			public.Use(middleware.NewRateLimiter(s.cfg.AuthRateLimitRPS, s.cfg.AuthRateLimitBurst).Handler())
		}
		// ユーザー登録
		public.POST("/register", s.handleRegister())
		// ログイン
		public.POST("/login", s.handleLogin())
		// トークン再発行
		public.POST("/refresh", s.handleRefresh())

		// ヘルスチェック
		authAPI.GET("/health", s.handleHealth())

		protected := authAPI.Group("")
		protected.Use(jwtAuth)
		{
			// ログアウト
			protected.POST("/logout", s.handleLogout())
			// ログイン中のユーザー取得
			protected.GET("/me", s.handleMe())
			// パスワード変更
			protected.POST("/change-password", s.handleChangePassword())
			// ユーザー一覧
			protected.GET("/users", s.handleListUsers())
		}

		admin := authAPI.Group("/users")
		admin.Use(jwtAuth, middleware.RequireRole(RoleAdmin))
		{
			// アカウント停止
			admin.POST("/:id/ban", s.handleBan())
			// アカウント停止解除
			admin.POST("/:id/unban", s.handleUnban())
		}
	}

	// 他サービス向けのユーザーディレクトリ
	users := s.router.Group("/api/users")
	{
		users.GET("/batch", s.handleGetUsersBatch())
		users.GET("/:id", s.handleGetUser())
	}
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	// Username はユーザー名。
	Username string `json:"username" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password はパスワード。
	Password string `json:"password" binding:"required"`
	// DisplayName は表示名。
	DisplayName string `json:"display_name"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Username はユーザー名またはメールアドレス。
	Username string `json:"username" binding:"required"`
	// Password はパスワード。
	Password string `json:"password" binding:"required"`
}

// refreshRequest はトークン再発行リクエストのJSON構造。
type refreshRequest struct {
	// RefreshToken はリフレッシュトークン。
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// changePasswordRequest はパスワード変更リクエストのJSON構造。
type changePasswordRequest struct {
	// CurrentPassword は現在のパスワード。
	CurrentPassword string `json:"current_password" binding:"required"`
	// NewPassword は新しいパスワード。
	NewPassword string `json:"new_password" binding:"required"`
}

// tokenResponse はトークン発行時のJSONレスポンス構造。
type tokenResponse struct {
	// Token はアクセストークン。
	Token string `json:"token"`
	// RefreshToken はリフレッシュトークン。
	RefreshToken string `json:"refresh_token"`
	// TokenType はトークン種別。常に Bearer。
	TokenType string `json:"token_type"`
	// ExpiresIn はアクセストークンの有効期間（秒）。
	ExpiresIn int64 `json:"expires_in"`
	// UserID はユーザーID。
	UserID string `json:"user_id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// Role はロール。
	Role string `json:"role"`
}

// userResponse はユーザーのJSONレスポンス構造。パスワードハッシュは含めない。
type userResponse struct {
	// ID はユーザーID。
	ID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// DisplayName は表示名。
	DisplayName string `json:"display_name"`
	// Bio は自己紹介文。
	Bio string `json:"bio"`
	// AvatarURL はアバター画像のURL。
	AvatarURL string `json:"avatar_url"`
	// Verified は認証済みアカウントかどうか。
	Verified bool `json:"verified"`
	// Role はロール。
	Role string `json:"role"`
	// Status はアカウントの状態。
	Status string `json:"status"`
	// FollowersCount はフォロワー数。
	FollowersCount int `json:"followers_count"`
	// FollowingCount はフォロー数。
	FollowingCount int `json:"following_count"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// toUserResponse はモデルをレスポンス構造に変換する。
func toUserResponse(u *User) userResponse {
	return userResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		AvatarURL:      u.AvatarURL,
		Verified:       u.Verified,
		Role:           u.Role,
		Status:         u.Status,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// directoryUser はユーザーディレクトリで公開するユーザー情報。メールアドレスとロールは含めない。
type directoryUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url"`
	Verified       bool      `json:"verified"`
	Status         string    `json:"status"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func toDirectoryUser(u *User) directoryUser {
	return directoryUser{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		AvatarURL:      u.AvatarURL,
		Verified:       u.Verified,
		Status:         u.Status,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
	}
}

// toTokenResponse はセッションをレスポンス構造に変換する。
func toTokenResponse(sess *Session) tokenResponse {
	return tokenResponse{
		Token:        sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    sess.Tokens.ExpiresIn,
		UserID:       sess.User.ID,
		Username:     sess.User.Username,
		Email:        sess.User.Email,
		Role:         sess.User.Role,
	}
}

// respondError はエラーの種類に応じたステータスコードでエラーを返す。
func (s *Server) respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperror.Message(err, msgInternal)})
}

// handleRegister はユーザー登録ハンドラ。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名、有効なメールアドレス、パスワードは必須です"})
			return
		}

		sess, err := s.service.Register(c.Request.Context(), RegisterInput{
			Username:    req.Username,
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toTokenResponse(sess))
	}
}

// handleLogin はログインハンドラ。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ユーザー名とパスワードは必須です"})
			return
		}

		sess, err := s.service.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTokenResponse(sess))
	}
}

// handleRefresh はトークン再発行ハンドラ。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リフレッシュトークンは必須です"})
			return
		}

		sess, err := s.service.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTokenResponse(sess))
	}
}

// handleLogout はログアウトハンドラ。トークンはステートレスなのでサーバー側では破棄しない。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.logger.WithField("user_id", middleware.GetUserID(c)).Info("ログアウトしました")
		c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
	}
}

// handleMe はログイン中のユーザーを返すハンドラ。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.service.GetUser(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}

// handleChangePassword はパスワード変更ハンドラ。
func (s *Server) handleChangePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "現在のパスワードと新しいパスワードは必須です"})
			return
		}

		if err := s.service.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "パスワードを変更しました"})
	}
}

// handleListUsers はユーザー一覧ハンドラ。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.service.ListUsers(c.Request.Context())
		if err != nil {
			s.respondError(c, err)
			return
		}
		result := make([]userResponse, len(users))
		for i := range users {
			result[i] = toUserResponse(&users[i])
		}
		c.JSON(http.StatusOK, result)
	}
}

// handleBan はアカウント停止ハンドラ。
func (s *Server) handleBan() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.Ban(c.Request.Context(), c.Param("id")); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "アカウントを停止しました"})
	}
}

// handleUnban はアカウント停止解除ハンドラ。
func (s *Server) handleUnban() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.Unban(c.Request.Context(), c.Param("id")); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "アカウントの停止を解除しました"})
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

// handleGetUser はユーザーディレクトリの単一取得ハンドラ。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.service.GetUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(apperror.HTTPStatus(err), gin.H{"success": false, "error": apperror.Message(err, msgInternal)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"user": toDirectoryUser(u)}})
	}
}

// handleGetUsersBatch はユーザーディレクトリの一括取得ハンドラ。ids はカンマ区切り。
func (s *Server) handleGetUsersBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ids []string
		for id := range strings.SplitSeq(c.Query("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}

		users, err := s.service.GetUsers(c.Request.Context(), ids)
		if err != nil {
			c.JSON(apperror.HTTPStatus(err), gin.H{"success": false, "error": apperror.Message(err, msgInternal)})
			return
		}
		result := make([]directoryUser, len(users))
		for i := range users {
			result[i] = toDirectoryUser(&users[i])
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"users": result}})
	}
}
