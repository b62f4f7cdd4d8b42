package auth

import "time"

// ロール。
const (
	// RoleUser は一般ユーザー。
	RoleUser = "USER"
	// RoleAdmin は管理者。
	RoleAdmin = "ADMIN"
)

// アカウントの状態。
const (
	// StatusActive は利用可能なアカウント。
	StatusActive = "ACTIVE"
	// StatusBanned は停止されたアカウント。
	StatusBanned = "BANNED"
)

// User はユーザーアカウント。
type User struct {
	// ID はユーザーID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// Username はユーザー名。一意。
	Username string `gorm:"size:50;not null;uniqueIndex"`
	// Email はメールアドレス。一意。
	Email string `gorm:"size:255;not null;uniqueIndex"`
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string `gorm:"size:255;not null"`
	// DisplayName は表示名。
	DisplayName string `gorm:"size:100"`
	// Bio は自己紹介文。
	Bio string `gorm:"size:500"`
	// AvatarURL はアバター画像のURL。
	AvatarURL string `gorm:"size:500"`
	// Verified は認証済みアカウントかどうか。
	Verified bool `gorm:"not null;default:false"`
	// Role はロール（USER または ADMIN）。
	Role string `gorm:"size:20;not null;default:USER"`
	// Status はアカウントの状態（ACTIVE または BANNED）。
	Status string `gorm:"size:20;not null;default:ACTIVE;index"`
	// FollowersCount はフォロワー数。
	FollowersCount int `gorm:"not null;default:0"`
	// FollowingCount はフォロー数。
	FollowingCount int `gorm:"not null;default:0"`
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// IsBanned はアカウントが停止されているかどうかを返す。
func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}
