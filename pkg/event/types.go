package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
	// AggregateTypePost は投稿エンティティを表す。
	AggregateTypePost AggregateType = "Post"
	// AggregateTypeComment はコメントエンティティを表す。
	AggregateTypeComment AggregateType = "Comment"
	// AggregateTypeTweet はツイートエンティティを表す。
	AggregateTypeTweet AggregateType = "Tweet"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeUserRegistered はユーザーが登録されたことを表す。
	TypeUserRegistered Type = "UserRegistered"

	// TypePostCreated は投稿が作成されたことを表す。
	TypePostCreated Type = "PostCreated"
	// TypePostUpdated は投稿が編集されたことを表す。
	TypePostUpdated Type = "PostUpdated"
	// TypePostDeleted は投稿が削除されたことを表す。
	TypePostDeleted Type = "PostDeleted"
	// TypePostLiked は投稿にいいねされたことを表す。
	TypePostLiked Type = "PostLiked"
	// TypePostUnliked は投稿のいいねが取り消されたことを表す。
	TypePostUnliked Type = "PostUnliked"

	// TypeCommentCreated はコメントが作成されたことを表す。
	TypeCommentCreated Type = "CommentCreated"
	// TypeCommentDeleted はコメントが削除されたことを表す。
	TypeCommentDeleted Type = "CommentDeleted"

	// TypeTweetCreated はツイートが作成されたことを表す。
	TypeTweetCreated Type = "TweetCreated"
	// TypeTweetUpdated はツイートが編集されたことを表す。
	TypeTweetUpdated Type = "TweetUpdated"
	// TypeTweetDeleted はツイートが削除されたことを表す。
	TypeTweetDeleted Type = "TweetDeleted"
	// TypeTweetLiked はツイートにいいねされたことを表す。
	TypeTweetLiked Type = "TweetLiked"
)

// Event はサービス間で通知するドメインイベントを表す。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// UserRegisteredData はUserRegisteredイベントのデータ。
type UserRegisteredData struct {
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
}

// PostData は投稿の作成・編集・削除イベントのデータ。
type PostData struct {
	// AuthorID は投稿者のユーザーID。
	AuthorID string `json:"author_id"`
	// Hashtags は投稿に含まれるハッシュタグ。
	Hashtags []string `json:"hashtags,omitempty"`
	// Mentions は投稿でメンションされたユーザー名。
	Mentions []string `json:"mentions,omitempty"`
}

// LikeData はいいね関連イベントのデータ。
type LikeData struct {
	// UserID はいいねしたユーザーのIDまたはユーザー名。
	UserID string `json:"user_id"`
	// TargetAuthor はいいねされた投稿の投稿者。
	TargetAuthor string `json:"target_author,omitempty"`
}

// CommentData はコメント関連イベントのデータ。
type CommentData struct {
	// PostID はコメント先の投稿ID。
	PostID string `json:"post_id"`
	// AuthorID はコメントしたユーザーのID。
	AuthorID string `json:"author_id"`
	// ParentID は返信先のコメントID。トップレベルの場合は空。
	ParentID string `json:"parent_id,omitempty"`
}

// TweetData はツイート関連イベントのデータ。
type TweetData struct {
	// AuthorUsername は投稿者のユーザー名。
	AuthorUsername string `json:"author_username"`
}
