package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/pulse/pkg/apperror"
	"gorm.io/gorm"
)

// Repository はユーザーの永続化を行う。
type Repository struct {
	db *gorm.DB
}

// NewRepository はRepositoryを生成する。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create はユーザーを作成する。
func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return nil
}

// FindByID はIDでユーザーを取得する。
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByLogin はユーザー名またはメールアドレスでユーザーを取得する。
func (r *Repository) FindByLogin(ctx context.Context, login string) (*User, error) {
	return r.first(ctx, "username = ? OR email = ?", login, login)
}

// first は条件に一致する最初のユーザーを取得する。
func (r *Repository) first(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("ユーザーが見つかりません")
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return &u, nil
}

// ExistsByUsername はユーザー名が使用済みかどうかを返す。
func (r *Repository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

// ExistsByEmail はメールアドレスが使用済みかどうかを返す。
func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

// exists は条件に一致するユーザーが存在するかどうかを返す。
func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, fmt.Errorf("ユーザーの存在確認に失敗: %w", err)
	}
	return count > 0, nil
}

// List は全ユーザーを作成日時の昇順で取得する。
func (r *Repository) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	return users, nil
}

// FindByIDs は複数のIDでユーザーを取得する。
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]User, error) {
	var users []User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("ユーザーの一括取得に失敗: %w", err)
	}
	return users, nil
}

// UpdatePasswordHash はパスワードハッシュを更新する。
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("パスワードの更新に失敗: %w", err)
	}
	return nil
}

// UpdateStatus はアカウントの状態を更新する。
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	if err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("アカウント状態の更新に失敗: %w", err)
	}
	return nil
}
