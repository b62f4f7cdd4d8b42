package auth

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/event"
	"github.com/nao1215/pulse/pkg/middleware"
	"github.com/nao1215/pulse/pkg/userclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ユーザー名の制約。
const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
)

// usernamePattern はユーザー名に使える文字。メンション（@\w+）で参照できる文字に限る。
var usernamePattern = regexp.MustCompile(`^\w+$`)

// passwordSpecialChars はパスワードの記号として数える文字。
const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// クライアント向けのエラーメッセージ。
const (
	msgUsernameTaken      = "ユーザー名は既に使用されています"
	msgEmailInUse         = "メールアドレスは既に使用されています"
	msgInvalidCredentials = "ユーザー名またはパスワードが正しくありません"
	msgAccountBanned      = "アカウントは停止されています"
	msgInvalidRefresh     = "リフレッシュトークンが無効です"
	msgWrongPassword      = "現在のパスワードが正しくありません"
	msgUserNotFound       = "ユーザーが見つかりません"
	msgAlreadyBanned      = "ユーザーは既に停止されています"
	msgNotBanned          = "ユーザーは停止されていません"
)

// Service は認証のビジネスロジック。
type Service struct {
	// repo はユーザーリポジトリ。
	repo *Repository
	// issuer はトークン発行者。
	issuer middleware.TokenIssuer
	// bcryptCost はパスワードハッシュのコスト。
	bcryptCost int
	// adminEmails は登録時にADMINロールを付与するメールアドレス。
	adminEmails []string
	// emitter はイベント配信。
	emitter *event.Emitter
	// userCache は他サービスが参照するユーザーキャッシュ。
	userCache userclient.Cache
	// logger はロガー。
	logger logrus.FieldLogger
}

// NewService はServiceを生成する。
func NewService(repo *Repository, issuer middleware.TokenIssuer, bcryptCost int, adminEmails []string, emitter *event.Emitter, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:        repo,
		issuer:      issuer,
		bcryptCost:  bcryptCost,
		adminEmails: adminEmails,
		emitter:     emitter,
		userCache:   userclient.NopCache{},
		logger:      logger,
	}
}

// SetUserCache はアカウント状態の変更時に破棄するユーザーキャッシュを設定する。
func (s *Service) SetUserCache(cache userclient.Cache) {
	if cache == nil {
		cache = userclient.NopCache{}
	}
	s.userCache = cache
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	// Username はユーザー名。
	Username string
	// Email はメールアドレス。
	Email string
	// Password は平文のパスワード。
	Password string
	// DisplayName は表示名。空の場合はユーザー名を使う。
	DisplayName string
}

// Session は認証に成功したユーザーと発行したトークン。
type Session struct {
	// User は認証されたユーザー。
	User *User
	// Tokens は発行したトークン。
	Tokens middleware.TokenPair
}

// Register はユーザーを登録してトークンを発行する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if exists, err := s.repo.ExistsByUsername(ctx, username); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict(msgUsernameTaken)
	}
	if exists, err := s.repo.ExistsByEmail(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict(msgEmailInUse)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperror.Internal("パスワードのハッシュ化に失敗", err)
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}
	role := RoleUser
	if slices.Contains(s.adminEmails, email) {
		role = RoleAdmin
	}

	u := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
		Status:       StatusActive,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			if strings.Contains(strings.ToLower(err.Error()), "email") {
				return nil, apperror.Conflict(msgEmailInUse)
			}
			return nil, apperror.Conflict(msgUsernameTaken)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("ユーザーを登録しました")
	s.emitter.Emit(ctx, u.ID, event.AggregateTypeUser, event.TypeUserRegistered, event.UserRegisteredData{
		Username: u.Username,
		Email:    u.Email,
	})
	return s.newSession(u)
}

// Login はユーザー名またはメールアドレスとパスワードで認証してトークンを発行する。
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}
	u, err := s.repo.FindByLogin(ctx, login)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}
	if u.IsBanned() {
		return nil, apperror.Forbidden(msgAccountBanned)
	}

	s.logger.WithField("user_id", u.ID).Info("ログインしました")
	return s.newSession(u)
}

// Refresh はリフレッシュトークンを検証して新しいトークンを発行する。
// ユーザーの現在のロールと状態を反映する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := middleware.ParseRefreshToken(s.issuer.Secret, refreshToken)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUnauthorized, msgInvalidRefresh, err)
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, apperror.Unauthorized(msgInvalidRefresh)
	}
	if err != nil {
		return nil, err
	}
	if u.IsBanned() {
		return nil, apperror.Forbidden(msgAccountBanned)
	}
	return s.newSession(u)
}

// GetUser はIDでユーザーを取得する。
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, apperror.NotFound(msgUserNotFound)
	}
	return u, err
}

// GetUsers は複数のIDでユーザーを取得する。存在しないIDは無視する。
func (s *Service) GetUsers(ctx context.Context, ids []string) ([]User, error) {
	return s.repo.FindByIDs(ctx, ids)
}

// ListUsers は全ユーザーを取得する。
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// ChangePassword は現在のパスワードを確認してからパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return apperror.BadRequest(msgWrongPassword)
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return apperror.Internal("パスワードのハッシュ化に失敗", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.logger.WithField("user_id", userID).Info("パスワードを変更しました")
	return nil
}

// Ban はアカウントを停止する。
func (s *Service) Ban(ctx context.Context, userID string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsBanned() {
		return apperror.BadRequest(msgAlreadyBanned)
	}
	if err := s.repo.UpdateStatus(ctx, userID, StatusBanned); err != nil {
		return err
	}
	s.invalidateUserCache(ctx, userID)
	s.logger.WithField("user_id", userID).Info("アカウントを停止しました")
	return nil
}

// Unban はアカウントの停止を解除する。
func (s *Service) Unban(ctx context.Context, userID string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.IsBanned() {
		return apperror.BadRequest(msgNotBanned)
	}
	if err := s.repo.UpdateStatus(ctx, userID, StatusActive); err != nil {
		return err
	}
	s.invalidateUserCache(ctx, userID)
	s.logger.WithField("user_id", userID).Info("アカウントの停止を解除しました")
	return nil
}

// invalidateUserCache はユーザーキャッシュを破棄する。失敗してもログを出すだけにする。
func (s *Service) invalidateUserCache(ctx context.Context, userID string) {
	if err := s.userCache.Delete(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("ユーザーキャッシュの破棄に失敗")
	}
}

// newSession はユーザーにトークンを発行する。
func (s *Service) newSession(u *User) (*Session, error) {
	tokens, err := s.issuer.Issue(middleware.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	})
	if err != nil {
		return nil, apperror.Internal("トークンの発行に失敗", err)
	}
	return &Session{User: u, Tokens: tokens}, nil
}

// validateUsername はユーザー名の長さと文字種を検証する。
func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return apperror.BadRequest(fmt.Sprintf("ユーザー名は%d〜%d文字で入力してください", minUsernameLength, maxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return apperror.BadRequest("ユーザー名には英数字とアンダースコアのみ使用できます")
	}
	return nil
}

// ValidatePassword はパスワードの強度を検証する。
// 8文字以上で、大文字・小文字・数字・記号をそれぞれ1文字以上含む必要がある。
func ValidatePassword(password string) error {
	var problems []string
	if utf8.RuneCountInString(password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("%d文字以上にしてください", minPasswordLength))
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecialChars, r):
			special = true
		}
	}
	if !upper {
		problems = append(problems, "大文字を含めてください")
	}
	if !lower {
		problems = append(problems, "小文字を含めてください")
	}
	if !digit {
		problems = append(problems, "数字を含めてください")
	}
	if !special {
		problems = append(problems, "記号を含めてください")
	}
	if len(problems) > 0 {
		return apperror.BadRequest("パスワードが要件を満たしていません: " + strings.Join(problems, "、"))
	}
	return nil
}
