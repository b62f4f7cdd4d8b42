package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// トークン種別。リフレッシュトークンでAPIを呼び出せないように区別する。
const (
	// TokenTypeAccess はAPI呼び出しに使用するアクセストークン。
	TokenTypeAccess = "access"
	// TokenTypeRefresh はアクセストークンの再発行にのみ使用するリフレッシュトークン。
	TokenTypeRefresh = "refresh"
)

// Ginコンテキストに格納する認証情報のキー。
const (
	contextKeyUserID   = "user_id"
	contextKeyEmail    = "email"
	contextKeyUsername = "username"
	contextKeyRole     = "role"
)

// headerKeyUserID はサービス間でユーザーIDを伝播するためのHTTPヘッダーキー。
const headerKeyUserID = "X-User-ID"

// defaultIssuer はトークンの発行者名。
const defaultIssuer = "pulse-auth"

// ErrInvalidToken はトークンの署名・有効期限・種別のいずれかが不正であることを表す。
var ErrInvalidToken = errors.New("トークンが無効です")

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
// Subject にはユーザー名を入れる。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Role はユーザーのロール（USER または ADMIN）。
	Role string `json:"role"`
	// TokenType はトークン種別（access または refresh）。
	TokenType string `json:"token_type"`
}

// Identity はトークンに埋め込むユーザー情報。
type Identity struct {
	// UserID はユーザーID。
	UserID string
	// Email はメールアドレス。
	Email string
	// Username はユーザー名。
	Username string
	// Role はロール。
	Role string
}

// Identity はクレームからユーザー情報を取り出す。
// user_id クレームが空の古いトークンでは Subject をユーザー名として扱う。
func (c *JWTClaims) Identity() Identity {
	username := c.Username
	if username == "" {
		username = c.Subject
	}
	return Identity{
		UserID:   c.UserID,
		Email:    c.Email,
		Username: username,
		Role:     c.Role,
	}
}

// TokenPair はアクセストークンとリフレッシュトークンの組。
type TokenPair struct {
	// AccessToken はAPI呼び出し用のトークン。
	AccessToken string
	// RefreshToken は再発行用のトークン。
	RefreshToken string
	// ExpiresIn はアクセストークンの有効期間（秒）。
	ExpiresIn int64
}

// TokenIssuer はアクセストークンとリフレッシュトークンを発行する。
type TokenIssuer struct {
	// Secret はHS256署名用のシークレット。
	Secret string
	// AccessTTL はアクセストークンの有効期間。
	AccessTTL time.Duration
	// RefreshTTL はリフレッシュトークンの有効期間。
	RefreshTTL time.Duration
	// Issuer は iss クレームに入れる発行者名。空の場合は pulse-auth。
	Issuer string
}

// Issue はユーザー情報からトークンの組を発行する。
func (ti TokenIssuer) Issue(id Identity) (TokenPair, error) {
	access, err := ti.sign(id, TokenTypeAccess, ti.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := ti.sign(id, TokenTypeRefresh, ti.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(ti.AccessTTL / time.Second),
	}, nil
}

// sign は指定した種別と有効期間でトークンに署名する。
func (ti TokenIssuer) sign(id Identity, tokenType string, ttl time.Duration) (string, error) {
	issuer := ti.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		UserID:    id.UserID,
		Email:     id.Email,
		Username:  id.Username,
		Role:      id.Role,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ti.Secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// GenerateJWT はユーザー情報から24時間有効なアクセストークンを生成する。
func GenerateJWT(secret string, id Identity) (string, error) {
	return TokenIssuer{Secret: secret, AccessTTL: 24 * time.Hour}.sign(id, TokenTypeAccess, 24*time.Hour)
}

// ParseToken はトークンの署名と有効期限を検証してクレームを返す。
// 署名アルゴリズムはHS256のみ受け付ける。
func ParseToken(secret, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccessToken はアクセストークンを検証する。リフレッシュトークンは拒否する。
func ParseAccessToken(secret, tokenString string) (*JWTClaims, error) {
	claims, err := ParseToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType == TokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken はリフレッシュトークンを検証する。アクセストークンは拒否する。
func ParseRefreshToken(secret, tokenString string) (*JWTClaims, error) {
	claims, err := ParseToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "user_id"、"email"、"username"、"role" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := GetBearerToken(c)
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims, err := ParseAccessToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		setIdentity(c, claims.Identity())
		c.Next()
	}
}

// OptionalJWTAuth は有効なトークンがあれば認証情報を設定するGinミドルウェアを返す。
// トークンが無い、または無効な場合も匿名リクエストとして処理を続行する。
func OptionalJWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, found := GetBearerToken(c); found {
			if claims, err := ParseAccessToken(secret, tokenString); err == nil {
				setIdentity(c, claims.Identity())
			}
		}
		c.Next()
	}
}

// RequireRole は指定したロールを持たないリクエストを403で拒否するGinミドルウェアを返す。
// JWTAuthの後に適用する。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "この操作を行う権限がありません",
			})
			return
		}
		c.Next()
	}
}

// setIdentity はコンテキストとレスポンスヘッダーに認証情報を設定する。
func setIdentity(c *gin.Context, id Identity) {
	c.Set(contextKeyUserID, id.UserID)
	c.Set(contextKeyEmail, id.Email)
	c.Set(contextKeyUsername, id.Username)
	c.Set(contextKeyRole, id.Role)
	c.Header(headerKeyUserID, id.UserID)
}

// SetIdentity はテストやサービス内部で認証情報を直接設定する。
func SetIdentity(c *gin.Context, id Identity) {
	setIdentity(c, id)
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetUsername はGinコンテキストからユーザー名を取得する。
func GetUsername(c *gin.Context) string {
	return c.GetString(contextKeyUsername)
}

// GetEmail はGinコンテキストからメールアドレスを取得する。
func GetEmail(c *gin.Context) string {
	return c.GetString(contextKeyEmail)
}

// GetRole はGinコンテキストからロールを取得する。
func GetRole(c *gin.Context) string {
	return c.GetString(contextKeyRole)
}

// GetBearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func GetBearerToken(c *gin.Context) (string, bool) {
	return strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
}
