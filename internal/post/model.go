package post

import (
	"time"

	"gorm.io/datatypes"
)

// 投稿の状態。
const (
	// StatusPublished は公開中。
	StatusPublished = "PUBLISHED"
	// StatusDraft は下書き。
	StatusDraft = "DRAFT"
	// StatusHidden は非表示。
	StatusHidden = "HIDDEN"
	// StatusPendingModeration は審査待ち。
	StatusPendingModeration = "PENDING_MODERATION"
	// StatusRemoved は削除済み。
	StatusRemoved = "REMOVED"
)

// Post は投稿。
type Post struct {
	// ID は投稿ID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// AuthorID は投稿者のユーザーID。
	AuthorID string `gorm:"size:36;not null;index"`
	// Content はサニタイズ済みの本文。
	Content string `gorm:"type:text;not null"`
	// ImageURLs は添付画像のURL。
	ImageURLs datatypes.JSONSlice[string]
	// VideoURL は添付動画のURL。
	VideoURL string `gorm:"size:500"`
	// Hashtags は本文から抽出したハッシュタグ。
	Hashtags datatypes.JSONSlice[string]
	// Mentions は本文から抽出したメンション。
	Mentions datatypes.JSONSlice[string]
	// Status は投稿の状態。
	Status string `gorm:"size:30;not null;default:PUBLISHED;index"`
	// LikeCount はいいね数。
	LikeCount int `gorm:"not null;default:0"`
	// CommentCount はコメント数。
	CommentCount int `gorm:"not null;default:0"`
	// ShareCount は共有数。
	ShareCount int `gorm:"not null;default:0"`
	// ViewCount は閲覧数。
	ViewCount int `gorm:"not null;default:0"`
	// IsEdited は編集済みかどうか。
	IsEdited bool `gorm:"not null;default:false"`
	// EditedAt は最終編集日時。
	EditedAt *time.Time
	// CreatedAt は作成日時。
	CreatedAt time.Time `gorm:"index"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// Comment は投稿へのコメント。ParentID があれば返信。
type Comment struct {
	// ID はコメントID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// PostID はコメント先の投稿ID。
	PostID string `gorm:"size:36;not null;index"`
	// AuthorID はコメントしたユーザーのID。
	AuthorID string `gorm:"size:36;not null;index"`
	// Content はサニタイズ済みの本文。
	Content string `gorm:"type:text;not null"`
	// ParentID は返信先のコメントID。
	ParentID *string `gorm:"size:36;index"`
	// LikeCount はいいね数。
	LikeCount int `gorm:"not null;default:0"`
	// ReplyCount は返信数。
	ReplyCount int `gorm:"not null;default:0"`
	// Status はコメントの状態（PUBLISHED または REMOVED）。
	Status string `gorm:"size:30;not null;default:PUBLISHED"`
	// IsEdited は編集済みかどうか。
	IsEdited bool `gorm:"not null;default:false"`
	// EditedAt は最終編集日時。
	EditedAt *time.Time
	// CreatedAt は作成日時。
	CreatedAt time.Time `gorm:"index"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// PostLike は投稿へのいいね。投稿とユーザーの組で一意。
type PostLike struct {
	// ID はいいねID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// PostID は投稿ID。
	PostID string `gorm:"size:36;not null;uniqueIndex:idx_post_likes_post_user"`
	// UserID はいいねしたユーザーのID。
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_post_likes_post_user;index"`
	// CreatedAt はいいねした日時。
	CreatedAt time.Time
}

// CommentLike はコメントへのいいね。コメントとユーザーの組で一意。
type CommentLike struct {
	// ID はいいねID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// CommentID はコメントID。
	CommentID string `gorm:"size:36;not null;uniqueIndex:idx_comment_likes_comment_user"`
	// UserID はいいねしたユーザーのID。
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_comment_likes_comment_user"`
	// CreatedAt はいいねした日時。
	CreatedAt time.Time
}
