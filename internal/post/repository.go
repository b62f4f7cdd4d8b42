package post

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/pagination"
	"gorm.io/gorm"
)

// エラーメッセージ。
const (
	msgPostNotFound     = "投稿が見つかりません"
	msgCommentNotFound  = "コメントが見つかりません"
	msgPostAlreadyLiked = "既にこの投稿にいいねしています"
	msgCommentLiked     = "既にこのコメントにいいねしています"
	msgLikeNotFound     = "いいねが見つかりません"
)

// decrement は0未満にならないようにカウンタを1減らす式を返す。
func decrement(column string) any {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column))
}

// increment はカウンタを1増やす式を返す。
func increment(column string) any {
	return gorm.Expr(column + " + 1")
}

// Repository は投稿・コメント・いいねの永続化を行う。
type Repository struct {
	db *gorm.DB
}

// NewRepository はRepositoryを生成する。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatePost は投稿を作成する。
func (r *Repository) CreatePost(ctx context.Context, p *Post) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("投稿の作成に失敗: %w", err)
	}
	return nil
}

// FindPost は状態を問わずIDで投稿を取得する。
func (r *Repository) FindPost(ctx context.Context, id string) (*Post, error) {
	return firstOf[Post](r.db.WithContext(ctx).Where("id = ?", id), msgPostNotFound)
}

// FindPublishedPost は公開中の投稿をIDで取得する。
func (r *Repository) FindPublishedPost(ctx context.Context, id string) (*Post, error) {
	return firstOf[Post](r.db.WithContext(ctx).Where("id = ? AND status = ?", id, StatusPublished), msgPostNotFound)
}

// IncrementViewCount は閲覧数を1増やす。
func (r *Repository) IncrementViewCount(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&Post{}).Where("id = ?", id).
		UpdateColumn("view_count", increment("view_count")).Error
	if err != nil {
		return fmt.Errorf("閲覧数の更新に失敗: %w", err)
	}
	return nil
}

// ListPublished は公開中の投稿を新しい順に取得する。
func (r *Repository) ListPublished(ctx context.Context, req pagination.Request) ([]Post, int64, error) {
	return r.pagePosts(r.published(ctx), req, "created_at DESC")
}

// ListByAuthor は投稿者の公開中の投稿を新しい順に取得する。
func (r *Repository) ListByAuthor(ctx context.Context, authorID string, req pagination.Request) ([]Post, int64, error) {
	return r.pagePosts(r.published(ctx).Where("author_id = ?", authorID), req, "created_at DESC")
}

// ListByAuthors は複数の投稿者の公開中の投稿を新しい順に取得する。
func (r *Repository) ListByAuthors(ctx context.Context, authorIDs []string, req pagination.Request) ([]Post, int64, error) {
	return r.pagePosts(r.published(ctx).Where("author_id IN ?", authorIDs), req, "created_at DESC")
}

// Search は本文に query を含む公開中の投稿を大文字小文字を区別せず新しい順に取得する。
func (r *Repository) Search(ctx context.Context, query string, req pagination.Request) ([]Post, int64, error) {
	q := r.published(ctx).Where("LOWER(content) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(query))+"%")
	return r.pagePosts(q, req, "created_at DESC")
}

// Trending は since 以降の公開中の投稿をいいね数の多い順、同数なら新しい順に取得する。
func (r *Repository) Trending(ctx context.Context, since time.Time, req pagination.Request) ([]Post, int64, error) {
	return r.pagePosts(r.published(ctx).Where("created_at >= ?", since), req, "like_count DESC, created_at DESC")
}

// published は公開中の投稿に絞ったクエリを返す。
func (r *Repository) published(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&Post{}).Where("status = ?", StatusPublished)
}

// pagePosts は件数とページ分の投稿を取得する。
func (r *Repository) pagePosts(q *gorm.DB, req pagination.Request, order string) ([]Post, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("投稿件数の取得に失敗: %w", err)
	}
	var posts []Post
	if err := q.Session(&gorm.Session{}).Order(order).Offset(req.Offset()).Limit(req.Size).Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, total, nil
}

// UpdatePostContent は本文とハッシュタグ・メンションを更新し、編集済みにする。
func (r *Repository) UpdatePostContent(ctx context.Context, p *Post) error {
	now := time.Now().UTC()
	p.IsEdited = true
	p.EditedAt = &now
	p.UpdatedAt = now
	err := r.db.WithContext(ctx).Model(p).Select("content", "hashtags", "mentions", "is_edited", "edited_at", "updated_at").Updates(p).Error
	if err != nil {
		return fmt.Errorf("投稿の更新に失敗: %w", err)
	}
	return nil
}

// UpdatePostStatus は投稿の状態を更新する。
func (r *Repository) UpdatePostStatus(ctx context.Context, id, status string) error {
	if err := r.db.WithContext(ctx).Model(&Post{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("投稿の状態の更新に失敗: %w", err)
	}
	return nil
}

// LikePost は投稿にいいねを付け、いいね数を1増やす。
func (r *Repository) LikePost(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := &PostLike{ID: uuid.New().String(), PostID: postID, UserID: userID}
		if err := tx.Create(like).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.Conflict(msgPostAlreadyLiked)
			}
			return fmt.Errorf("いいねの作成に失敗: %w", err)
		}
		if err := tx.Model(&Post{}).Where("id = ?", postID).UpdateColumn("like_count", increment("like_count")).Error; err != nil {
			return fmt.Errorf("いいね数の更新に失敗: %w", err)
		}
		return nil
	})
}

// UnlikePost は投稿のいいねを取り消し、いいね数を1減らす。
func (r *Repository) UnlikePost(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&PostLike{})
		if res.Error != nil {
			return fmt.Errorf("いいねの削除に失敗: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound(msgLikeNotFound)
		}
		if err := tx.Model(&Post{}).Where("id = ?", postID).UpdateColumn("like_count", decrement("like_count")).Error; err != nil {
			return fmt.Errorf("いいね数の更新に失敗: %w", err)
		}
		return nil
	})
}

// ListPostLikers は投稿にいいねしたユーザーIDを新しい順に取得する。
func (r *Repository) ListPostLikers(ctx context.Context, postID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&PostLike{}).Where("post_id = ?", postID).
		Order("created_at DESC").Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗: %w", err)
	}
	return ids, nil
}

// LikedPostIDs は postIDs のうち userID がいいねした投稿IDの集合を返す。
func (r *Repository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return r.likedIDs(ctx, &PostLike{}, "post_id", userID, postIDs)
}

// LikedCommentIDs は commentIDs のうち userID がいいねしたコメントIDの集合を返す。
func (r *Repository) LikedCommentIDs(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	return r.likedIDs(ctx, &CommentLike{}, "comment_id", userID, commentIDs)
}

// likedIDs はいいね済みの対象IDの集合を返す。
func (r *Repository) likedIDs(ctx context.Context, model any, column, userID string, targetIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(targetIDs))
	if userID == "" || len(targetIDs) == 0 {
		return liked, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND "+column+" IN ?", userID, targetIDs).Pluck(column, &ids).Error
	if err != nil {
		return nil, fmt.Errorf("いいね状態の取得に失敗: %w", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// CreateComment はコメントを作成し、投稿のコメント数と返信先の返信数を1増やす。
func (r *Repository) CreateComment(ctx context.Context, c *Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("コメントの作成に失敗: %w", err)
		}
		if err := tx.Model(&Post{}).Where("id = ?", c.PostID).UpdateColumn("comment_count", increment("comment_count")).Error; err != nil {
			return fmt.Errorf("コメント数の更新に失敗: %w", err)
		}
		if c.ParentID != nil {
			if err := tx.Model(&Comment{}).Where("id = ?", *c.ParentID).UpdateColumn("reply_count", increment("reply_count")).Error; err != nil {
				return fmt.Errorf("返信数の更新に失敗: %w", err)
			}
		}
		return nil
	})
}

// FindComment は公開中のコメントをIDで取得する。
func (r *Repository) FindComment(ctx context.Context, id string) (*Comment, error) {
	return firstOf[Comment](r.db.WithContext(ctx).Where("id = ? AND status = ?", id, StatusPublished), msgCommentNotFound)
}

// ListTopLevelComments は投稿のトップレベルのコメントを新しい順に取得する。
func (r *Repository) ListTopLevelComments(ctx context.Context, postID string, req pagination.Request) ([]Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&Comment{}).
		Where("post_id = ? AND parent_id IS NULL AND status = ?", postID, StatusPublished)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("コメント件数の取得に失敗: %w", err)
	}
	var comments []Comment
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Offset(req.Offset()).Limit(req.Size).Find(&comments).Error; err != nil {
		return nil, 0, fmt.Errorf("コメント一覧の取得に失敗: %w", err)
	}
	return comments, total, nil
}

// ListReplies はコメントへの返信を古い順に取得する。
func (r *Repository) ListReplies(ctx context.Context, parentID string) ([]Comment, error) {
	var replies []Comment
	err := r.db.WithContext(ctx).Where("parent_id = ? AND status = ?", parentID, StatusPublished).
		Order("created_at ASC").Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("返信一覧の取得に失敗: %w", err)
	}
	return replies, nil
}

// UpdateCommentContent はコメントの本文を更新し、編集済みにする。
func (r *Repository) UpdateCommentContent(ctx context.Context, c *Comment) error {
	now := time.Now().UTC()
	c.IsEdited = true
	c.EditedAt = &now
	c.UpdatedAt = now
	err := r.db.WithContext(ctx).Model(c).Select("content", "is_edited", "edited_at", "updated_at").Updates(c).Error
	if err != nil {
		return fmt.Errorf("コメントの更新に失敗: %w", err)
	}
	return nil
}

// DeleteComment はコメントを論理削除し、投稿のコメント数と返信先の返信数を1減らす。
func (r *Repository) DeleteComment(ctx context.Context, c *Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Comment{}).Where("id = ?", c.ID).Update("status", StatusRemoved).Error; err != nil {
			return fmt.Errorf("コメントの削除に失敗: %w", err)
		}
		if err := tx.Model(&Post{}).Where("id = ?", c.PostID).UpdateColumn("comment_count", decrement("comment_count")).Error; err != nil {
			return fmt.Errorf("コメント数の更新に失敗: %w", err)
		}
		if c.ParentID != nil {
			if err := tx.Model(&Comment{}).Where("id = ?", *c.ParentID).UpdateColumn("reply_count", decrement("reply_count")).Error; err != nil {
				return fmt.Errorf("返信数の更新に失敗: %w", err)
			}
		}
		return nil
	})
}

// LikeComment はコメントにいいねを付け、いいね数を1増やす。
func (r *Repository) LikeComment(ctx context.Context, commentID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := &CommentLike{ID: uuid.New().String(), CommentID: commentID, UserID: userID}
		if err := tx.Create(like).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.Conflict(msgCommentLiked)
			}
			return fmt.Errorf("いいねの作成に失敗: %w", err)
		}
		if err := tx.Model(&Comment{}).Where("id = ?", commentID).UpdateColumn("like_count", increment("like_count")).Error; err != nil {
			return fmt.Errorf("いいね数の更新に失敗: %w", err)
		}
		return nil
	})
}

// UnlikeComment はコメントのいいねを取り消し、いいね数を1減らす。
func (r *Repository) UnlikeComment(ctx context.Context, commentID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&CommentLike{})
		if res.Error != nil {
			return fmt.Errorf("いいねの削除に失敗: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound(msgLikeNotFound)
		}
		if err := tx.Model(&Comment{}).Where("id = ?", commentID).UpdateColumn("like_count", decrement("like_count")).Error; err != nil {
			return fmt.Errorf("いいね数の更新に失敗: %w", err)
		}
		return nil
	})
}

// firstOf は条件に一致する最初のレコードを取得する。見つからない場合はNotFoundを返す。
func firstOf[T any](q *gorm.DB, notFound string) (*T, error) {
	var v T
	err := q.First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(notFound)
	}
	if err != nil {
		return nil, fmt.Errorf("レコードの取得に失敗: %w", err)
	}
	return &v, nil
}

// escapeLike はLIKEのワイルドカードをエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
