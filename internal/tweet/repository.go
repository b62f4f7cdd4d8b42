package tweet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/pagination"
	"gorm.io/gorm"
)

// エラーメッセージ。
const (
	msgTweetNotFound   = "ツイートが見つかりません"
	msgCommentNotFound = "コメントが見つかりません"
	msgAlreadyLiked    = "既にこのツイートにいいねしています"
	msgLikeNotFound    = "このツイートにはいいねしていません"
)

// sortColumns は一覧の並び替えに使える項目とカラム名の対応。
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// Sort は一覧の並び順。
type Sort struct {
	// By は並び替える項目（createdAt または updatedAt）。
	By string
	// Desc は降順かどうか。
	Desc bool
}

// clause はORDER BY句を返す。未知の項目は作成日時として扱う。
func (s Sort) clause() string {
	column, ok := sortColumns[s.By]
	if !ok {
		column = "created_at"
	}
	if s.Desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// Counts はツイートごとのコメント数といいね数。
type Counts struct {
	// Comments はコメント数。
	Comments int64
	// Likes はいいね数。
	Likes int64
}

// Stats はユーザーごとの集計。
type Stats struct {
	// TweetCount は投稿したツイート数。
	TweetCount int64 `json:"tweet_count"`
	// CommentCount は投稿したコメント数。
	CommentCount int64 `json:"comment_count"`
	// LikeCount は付けたいいね数。
	LikeCount int64 `json:"like_count"`
}

// Repository はツイート・コメント・いいねの永続化を行う。
type Repository struct {
	db *gorm.DB
}

// NewRepository はRepositoryを生成する。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTweet はツイートを作成する。
func (r *Repository) CreateTweet(ctx context.Context, t *Tweet) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("ツイートの作成に失敗: %w", err)
	}
	return nil
}

// FindTweet はIDでツイートを取得する。
func (r *Repository) FindTweet(ctx context.Context, id string) (*Tweet, error) {
	var t Tweet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgTweetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ツイートの取得に失敗: %w", err)
	}
	return &t, nil
}

// FindTweetWithDetails はコメントを古い順、いいねを新しい順に読み込んだツイートを取得する。
func (r *Repository) FindTweetWithDetails(ctx context.Context, id string) (*Tweet, error) {
	var t Tweet
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgTweetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ツイートの取得に失敗: %w", err)
	}
	return &t, nil
}

// ListTweets はツイートを指定の順に取得する。
func (r *Repository) ListTweets(ctx context.Context, sort Sort, req pagination.Request) ([]Tweet, int64, error) {
	return r.pageTweets(r.db.WithContext(ctx).Model(&Tweet{}), req, sort.clause())
}

// ListByAuthor は投稿者のツイートを新しい順に取得する。
func (r *Repository) ListByAuthor(ctx context.Context, username string, req pagination.Request) ([]Tweet, int64, error) {
	q := r.db.WithContext(ctx).Model(&Tweet{}).Where("author_username = ?", username)
	return r.pageTweets(q, req, "created_at DESC")
}

// Search は本文に keyword を含むツイートを大文字小文字を区別せず新しい順に取得する。
func (r *Repository) Search(ctx context.Context, keyword string, req pagination.Request) ([]Tweet, int64, error) {
	q := r.db.WithContext(ctx).Model(&Tweet{}).
		Where("LOWER(content) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(keyword))+"%")
	return r.pageTweets(q, req, "created_at DESC")
}

// pageTweets は件数とページ分のツイートを取得する。
func (r *Repository) pageTweets(q *gorm.DB, req pagination.Request, order string) ([]Tweet, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ツイート件数の取得に失敗: %w", err)
	}
	var tweets []Tweet
	if err := q.Session(&gorm.Session{}).Order(order).Order("id").Offset(req.Offset()).Limit(req.Size).Find(&tweets).Error; err != nil {
		return nil, 0, fmt.Errorf("ツイート一覧の取得に失敗: %w", err)
	}
	return tweets, total, nil
}

// CountsFor は tweetIDs ごとのコメント数といいね数を返す。
func (r *Repository) CountsFor(ctx context.Context, tweetIDs []string) (map[string]Counts, error) {
	counts := make(map[string]Counts, len(tweetIDs))
	if len(tweetIDs) == 0 {
		return counts, nil
	}

	type row struct {
		TweetID string
		N       int64
	}
	var comments, likes []row
	db := r.db.WithContext(ctx)
	if err := db.Model(&TweetComment{}).Select("tweet_id, COUNT(*) AS n").
		Where("tweet_id IN ?", tweetIDs).Group("tweet_id").Scan(&comments).Error; err != nil {
		return nil, fmt.Errorf("コメント数の集計に失敗: %w", err)
	}
	if err := db.Model(&TweetLike{}).Select("tweet_id, COUNT(*) AS n").
		Where("tweet_id IN ?", tweetIDs).Group("tweet_id").Scan(&likes).Error; err != nil {
		return nil, fmt.Errorf("いいね数の集計に失敗: %w", err)
	}

	for _, c := range comments {
		v := counts[c.TweetID]
		v.Comments = c.N
		counts[c.TweetID] = v
	}
	for _, l := range likes {
		v := counts[l.TweetID]
		v.Likes = l.N
		counts[l.TweetID] = v
	}
	return counts, nil
}

// UpdateTweetContent はツイートの本文を更新する。
func (r *Repository) UpdateTweetContent(ctx context.Context, t *Tweet) error {
	if err := r.db.WithContext(ctx).Model(t).Select("content", "updated_at").Updates(t).Error; err != nil {
		return fmt.Errorf("ツイートの更新に失敗: %w", err)
	}
	return nil
}

// DeleteTweet はツイートとそのコメント・いいねを削除する。
func (r *Repository) DeleteTweet(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tweet_id = ?", id).Delete(&TweetLike{}).Error; err != nil {
			return fmt.Errorf("いいねの削除に失敗: %w", err)
		}
		if err := tx.Where("tweet_id = ?", id).Delete(&TweetComment{}).Error; err != nil {
			return fmt.Errorf("コメントの削除に失敗: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&Tweet{}).Error; err != nil {
			return fmt.Errorf("ツイートの削除に失敗: %w", err)
		}
		return nil
	})
}

// CreateComment はコメントを作成する。
func (r *Repository) CreateComment(ctx context.Context, c *TweetComment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("コメントの作成に失敗: %w", err)
	}
	return nil
}

// FindComment はIDでコメントを取得する。
func (r *Repository) FindComment(ctx context.Context, id string) (*TweetComment, error) {
	var c TweetComment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgCommentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗: %w", err)
	}
	return &c, nil
}

// ListComments はツイートのコメントを古い順に取得する。
func (r *Repository) ListComments(ctx context.Context, tweetID string) ([]TweetComment, error) {
	var comments []TweetComment
	err := r.db.WithContext(ctx).Where("tweet_id = ?", tweetID).Order("created_at ASC").Order("id").Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗: %w", err)
	}
	return comments, nil
}

// DeleteComment はコメントを削除する。
func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&TweetComment{}).Error; err != nil {
		return fmt.Errorf("コメントの削除に失敗: %w", err)
	}
	return nil
}

// CreateLike はいいねを作成する。既にいいねしている場合はConflictを返す。
func (r *Repository) CreateLike(ctx context.Context, l *TweetLike) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.Conflict(msgAlreadyLiked)
		}
		return fmt.Errorf("いいねの作成に失敗: %w", err)
	}
	return nil
}

// DeleteLike はいいねを取り消す。いいねしていない場合はNotFoundを返す。
func (r *Repository) DeleteLike(ctx context.Context, tweetID, username string) error {
	res := r.db.WithContext(ctx).Where("tweet_id = ? AND username = ?", tweetID, username).Delete(&TweetLike{})
	if res.Error != nil {
		return fmt.Errorf("いいねの削除に失敗: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound(msgLikeNotFound)
	}
	return nil
}

// HasLiked は username が tweetID にいいねしているかどうかを返す。
func (r *Repository) HasLiked(ctx context.Context, tweetID, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&TweetLike{}).Where("tweet_id = ? AND username = ?", tweetID, username).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("いいね状態の取得に失敗: %w", err)
	}
	return n > 0, nil
}

// ListLikesByTweet はツイートへのいいねを新しい順に取得する。
func (r *Repository) ListLikesByTweet(ctx context.Context, tweetID string) ([]TweetLike, error) {
	return r.listLikes(ctx, "tweet_id = ?", tweetID)
}

// ListLikesByUser はユーザーが付けたいいねを新しい順に取得する。
func (r *Repository) ListLikesByUser(ctx context.Context, username string) ([]TweetLike, error) {
	return r.listLikes(ctx, "username = ?", username)
}

// listLikes は条件に一致するいいねを新しい順に取得する。
func (r *Repository) listLikes(ctx context.Context, cond string, arg string) ([]TweetLike, error) {
	var likes []TweetLike
	if err := r.db.WithContext(ctx).Where(cond, arg).Order("created_at DESC").Order("id").Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗: %w", err)
	}
	return likes, nil
}

// StatsFor はユーザーのツイート数・コメント数・いいね数を集計する。
func (r *Repository) StatsFor(ctx context.Context, username string) (Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx)
	if err := db.Model(&Tweet{}).Where("author_username = ?", username).Count(&stats.TweetCount).Error; err != nil {
		return Stats{}, fmt.Errorf("ツイート数の集計に失敗: %w", err)
	}
	if err := db.Model(&TweetComment{}).Where("author_username = ?", username).Count(&stats.CommentCount).Error; err != nil {
		return Stats{}, fmt.Errorf("コメント数の集計に失敗: %w", err)
	}
	if err := db.Model(&TweetLike{}).Where("username = ?", username).Count(&stats.LikeCount).Error; err != nil {
		return Stats{}, fmt.Errorf("いいね数の集計に失敗: %w", err)
	}
	return stats, nil
}

// escapeLike はLIKEのワイルドカードをエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
