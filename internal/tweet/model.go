package tweet

import "time"

// Tweet はツイート。
type Tweet struct {
	// ID はツイートID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// Content は本文。
	Content string `gorm:"type:text;not null"`
	// AuthorUsername は投稿者のユーザー名。
	AuthorUsername string `gorm:"size:50;not null;index"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `gorm:"index"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
	// Comments はツイートへのコメント。
	Comments []TweetComment `gorm:"foreignKey:TweetID"`
	// Likes はツイートへのいいね。
	Likes []TweetLike `gorm:"foreignKey:TweetID"`
}

// TweetComment はツイートへのコメント。
type TweetComment struct {
	// ID はコメントID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// TweetID はコメント先のツイートID。
	TweetID string `gorm:"size:36;not null;index"`
	// Content は本文。
	Content string `gorm:"type:text;not null"`
	// AuthorUsername はコメントしたユーザー名。
	AuthorUsername string `gorm:"size:50;not null;index"`
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// TweetLike はツイートへのいいね。同じユーザーは1ツイートに1回だけいいねできる。
type TweetLike struct {
	// ID はいいねID（UUID）。
	ID string `gorm:"primaryKey;size:36"`
	// TweetID はいいね先のツイートID。
	TweetID string `gorm:"size:36;not null;uniqueIndex:idx_tweet_likes_tweet_username"`
	// Username はいいねしたユーザー名。
	Username string `gorm:"size:50;not null;uniqueIndex:idx_tweet_likes_tweet_username;index"`
	// CreatedAt は作成日時。
	CreatedAt time.Time
}
