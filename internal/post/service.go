package post

import (
	"context"
	"strings"
	"time"

	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/content"
	"github.com/nao1215/pulse/pkg/event"
	"github.com/nao1215/pulse/pkg/pagination"
	"github.com/nao1215/pulse/pkg/userclient"
	"github.com/sirupsen/logrus"
)

// trendingWindow はトレンドの集計対象期間。
const trendingWindow = 24 * time.Hour

// クライアント向けのエラーメッセージ。
const (
	msgInactiveAuthor        = "ユーザーが存在しないか、利用できない状態です"
	msgInappropriate         = "コミュニティガイドラインに違反する内容が含まれています"
	msgNotPostOwnerUpdate    = "この投稿を編集する権限がありません"
	msgNotPostOwnerDelete    = "この投稿を削除する権限がありません"
	msgNotCommentOwnerEdit   = "このコメントを編集する権限がありません"
	msgNotCommentOwnerDelete = "このコメントを削除する権限がありません"
	msgParentMismatch        = "返信先のコメントはこの投稿に属していません"
	msgEmptySearchQuery      = "検索キーワードを入力してください"
)

// Service は投稿のビジネスロジック。
type Service struct {
	// repo はリポジトリ。
	repo *Repository
	// users はユーザーディレクトリのクライアント。
	users *userclient.Client
	// validator は本文と添付URLの検証器。
	validator *content.Validator
	// emitter はイベント配信。
	emitter *event.Emitter
	// logger はロガー。
	logger logrus.FieldLogger
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo *Repository, users *userclient.Client, validator *content.Validator, emitter *event.Emitter, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		validator: validator,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePostInput は投稿作成の入力。
type CreatePostInput struct {
	// Content は本文。
	Content string
	// ImageURLs は添付画像のURL。
	ImageURLs []string
	// VideoURL は添付動画のURL。
	VideoURL string
}

// PostView は投稿者情報といいね状態を付けた投稿。
type PostView struct {
	// ID は投稿ID。
	ID string `json:"id"`
	// Content は本文。
	Content string `json:"content"`
	// ImageURLs は添付画像のURL。
	ImageURLs []string `json:"image_urls"`
	// VideoURL は添付動画のURL。
	VideoURL string `json:"video_url,omitempty"`
	// Hashtags はハッシュタグ。
	Hashtags []string `json:"hashtags"`
	// Mentions はメンション。
	Mentions []string `json:"mentions"`
	// Status は投稿の状態。
	Status string `json:"status"`
	// IsEdited は編集済みかどうか。
	IsEdited bool `json:"is_edited"`
	// EditedAt は最終編集日時。
	EditedAt *time.Time `json:"edited_at,omitempty"`
	// LikeCount はいいね数。
	LikeCount int `json:"like_count"`
	// CommentCount はコメント数。
	CommentCount int `json:"comment_count"`
	// ShareCount は共有数。
	ShareCount int `json:"share_count"`
	// ViewCount は閲覧数。
	ViewCount int `json:"view_count"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
	// Author は投稿者。
	Author *userclient.User `json:"author"`
	// IsLiked は閲覧者がいいねしているかどうか。
	IsLiked bool `json:"is_liked"`
}

// CommentView は投稿者情報といいね状態を付けたコメント。
type CommentView struct {
	// ID はコメントID。
	ID string `json:"id"`
	// PostID は投稿ID。
	PostID string `json:"post_id"`
	// ParentID は返信先のコメントID。
	ParentID *string `json:"parent_id,omitempty"`
	// Content は本文。
	Content string `json:"content"`
	// LikeCount はいいね数。
	LikeCount int `json:"like_count"`
	// ReplyCount は返信数。
	ReplyCount int `json:"reply_count"`
	// IsEdited は編集済みかどうか。
	IsEdited bool `json:"is_edited"`
	// EditedAt は最終編集日時。
	EditedAt *time.Time `json:"edited_at,omitempty"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
	// Author はコメントしたユーザー。
	Author *userclient.User `json:"author"`
	// IsLiked は閲覧者がいいねしているかどうか。
	IsLiked bool `json:"is_liked"`
}

// CreatePost は投稿を作成する。投稿者はユーザーディレクトリで ACTIVE である必要がある。
func (s *Service) CreatePost(ctx context.Context, authorID string, in CreatePostInput) (*PostView, error) {
	if !s.users.IsUserActive(ctx, authorID) {
		return nil, apperror.BadRequest(msgInactiveAuthor)
	}

	body, err := s.validator.ValidatePost(in.Content)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateImageURLs(in.ImageURLs); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateVideoURL(in.VideoURL); err != nil {
		return nil, err
	}
	if !content.IsAppropriate(body) {
		return nil, apperror.BadRequest(msgInappropriate)
	}

	p := &Post{
		AuthorID:  authorID,
		Content:   body,
		ImageURLs: in.ImageURLs,
		VideoURL:  strings.TrimSpace(in.VideoURL),
		Hashtags:  content.ExtractHashtags(in.Content),
		Mentions:  content.ExtractMentions(in.Content),
		Status:    StatusPublished,
	}
	if err := s.repo.CreatePost(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"post_id": p.ID, "author_id": authorID}).Info("投稿を作成しました")
	s.emitter.Emit(ctx, p.ID, event.AggregateTypePost, event.TypePostCreated, event.PostData{
		AuthorID: authorID,
		Hashtags: p.Hashtags,
		Mentions: p.Mentions,
	})
	views, err := s.postViews(ctx, []Post{*p}, authorID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// GetPost は公開中の投稿を取得し、閲覧数を1増やす。
func (s *Service) GetPost(ctx context.Context, id, viewerID string) (*PostView, error) {
	p, err := s.repo.FindPublishedPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		return nil, err
	}
	p.ViewCount++

	views, err := s.postViews(ctx, []Post{*p}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListPosts は公開中の投稿を新しい順に取得する。
func (s *Service) ListPosts(ctx context.Context, req pagination.Request, viewerID string) (pagination.Page[PostView], error) {
	posts, total, err := s.repo.ListPublished(ctx, req)
	return s.postPage(ctx, posts, total, err, req, viewerID)
}

// ListByAuthor は投稿者の公開中の投稿を新しい順に取得する。
func (s *Service) ListByAuthor(ctx context.Context, authorID string, req pagination.Request, viewerID string) (pagination.Page[PostView], error) {
	posts, total, err := s.repo.ListByAuthor(ctx, authorID, req)
	return s.postPage(ctx, posts, total, err, req, viewerID)
}

// Feed はフォロー中のユーザーの投稿を新しい順に取得する。フォローが無ければ空のページを返す。
func (s *Service) Feed(ctx context.Context, following []string, req pagination.Request, viewerID string) (pagination.Page[PostView], error) {
	if len(following) == 0 {
		return pagination.NewPage[PostView](nil, req, 0), nil
	}
	posts, total, err := s.repo.ListByAuthors(ctx, following, req)
	return s.postPage(ctx, posts, total, err, req, viewerID)
}

// Search は本文に query を含む投稿を新しい順に取得する。
func (s *Service) Search(ctx context.Context, query string, req pagination.Request, viewerID string) (pagination.Page[PostView], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pagination.Page[PostView]{}, apperror.BadRequest(msgEmptySearchQuery)
	}
	posts, total, err := s.repo.Search(ctx, query, req)
	return s.postPage(ctx, posts, total, err, req, viewerID)
}

// Trending は直近24時間の投稿をいいね数の多い順に取得する。
func (s *Service) Trending(ctx context.Context, req pagination.Request, viewerID string) (pagination.Page[PostView], error) {
	since := s.now().UTC().Add(-trendingWindow)
	posts, total, err := s.repo.Trending(ctx, since, req)
	return s.postPage(ctx, posts, total, err, req, viewerID)
}

// UpdatePost は投稿の本文を編集する。投稿者本人のみ編集できる。
func (s *Service) UpdatePost(ctx context.Context, id, userID, newContent string) (*PostView, error) {
	p, err := s.repo.FindPublishedPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != userID {
		return nil, apperror.Forbidden(msgNotPostOwnerUpdate)
	}

	body, err := s.validator.ValidatePost(newContent)
	if err != nil {
		return nil, err
	}
	if !content.IsAppropriate(body) {
		return nil, apperror.BadRequest(msgInappropriate)
	}

	p.Content = body
	// タグとメンションはエスケープ前の本文から抽出する
	p.Hashtags = content.ExtractHashtags(newContent)
	p.Mentions = content.ExtractMentions(newContent)
	if err := s.repo.UpdatePostContent(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithField("post_id", id).Info("投稿を編集しました")
	s.emitter.Emit(ctx, p.ID, event.AggregateTypePost, event.TypePostUpdated, event.PostData{
		AuthorID: p.AuthorID,
		Hashtags: p.Hashtags,
		Mentions: p.Mentions,
	})
	views, err := s.postViews(ctx, []Post{*p}, userID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost は投稿を論理削除する。投稿者本人のみ削除できる。
func (s *Service) DeletePost(ctx context.Context, id, userID string) error {
	p, err := s.repo.FindPost(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != userID {
		return apperror.Forbidden(msgNotPostOwnerDelete)
	}
	if err := s.repo.UpdatePostStatus(ctx, id, StatusRemoved); err != nil {
		return err
	}

	s.logger.WithField("post_id", id).Info("投稿を削除しました")
	s.emitter.Emit(ctx, id, event.AggregateTypePost, event.TypePostDeleted, event.PostData{AuthorID: p.AuthorID})
	return nil
}

// LikePost は投稿にいいねする。
func (s *Service) LikePost(ctx context.Context, id, userID string) error {
	p, err := s.repo.FindPublishedPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.LikePost(ctx, id, userID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, id, event.AggregateTypePost, event.TypePostLiked, event.LikeData{UserID: userID, TargetAuthor: p.AuthorID})
	return nil
}

// UnlikePost は投稿のいいねを取り消す。
func (s *Service) UnlikePost(ctx context.Context, id, userID string) error {
	p, err := s.repo.FindPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UnlikePost(ctx, id, userID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, id, event.AggregateTypePost, event.TypePostUnliked, event.LikeData{UserID: userID, TargetAuthor: p.AuthorID})
	return nil
}

// ListPostLikers は投稿にいいねしたユーザーIDを新しい順に取得する。
func (s *Service) ListPostLikers(ctx context.Context, id string) ([]string, error) {
	if _, err := s.repo.FindPublishedPost(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListPostLikers(ctx, id)
}

// CreateComment は投稿にコメントする。parentID を指定すると返信になる。
func (s *Service) CreateComment(ctx context.Context, postID, authorID, text, parentID string) (*CommentView, error) {
	if _, err := s.repo.FindPublishedPost(ctx, postID); err != nil {
		return nil, err
	}
	body, err := s.validator.ValidateComment(text)
	if err != nil {
		return nil, err
	}
	if !content.IsAppropriate(body) {
		return nil, apperror.BadRequest(msgInappropriate)
	}

	c := &Comment{PostID: postID, AuthorID: authorID, Content: body, Status: StatusPublished}
	if parentID != "" {
		parent, err := s.repo.FindComment(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, apperror.BadRequest(msgParentMismatch)
		}
		c.ParentID = &parent.ID
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"comment_id": c.ID, "post_id": postID}).Info("コメントを作成しました")
	s.emitter.Emit(ctx, c.ID, event.AggregateTypeComment, event.TypeCommentCreated, event.CommentData{
		PostID:   postID,
		AuthorID: authorID,
		ParentID: parentID,
	})
	views, err := s.commentViews(ctx, []Comment{*c}, authorID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListComments は投稿のトップレベルのコメントを新しい順に取得する。
func (s *Service) ListComments(ctx context.Context, postID string, req pagination.Request, viewerID string) (pagination.Page[CommentView], error) {
	if _, err := s.repo.FindPublishedPost(ctx, postID); err != nil {
		return pagination.Page[CommentView]{}, err
	}
	comments, total, err := s.repo.ListTopLevelComments(ctx, postID, req)
	if err != nil {
		return pagination.Page[CommentView]{}, err
	}
	views, err := s.commentViews(ctx, comments, viewerID)
	if err != nil {
		return pagination.Page[CommentView]{}, err
	}
	return pagination.NewPage(views, req, total), nil
}

// ListReplies はコメントへの返信を古い順に取得する。
func (s *Service) ListReplies(ctx context.Context, commentID, viewerID string) ([]CommentView, error) {
	if _, err := s.repo.FindComment(ctx, commentID); err != nil {
		return nil, err
	}
	replies, err := s.repo.ListReplies(ctx, commentID)
	if err != nil {
		return nil, err
	}
	return s.commentViews(ctx, replies, viewerID)
}

// UpdateComment はコメントの本文を編集する。コメントした本人のみ編集できる。
func (s *Service) UpdateComment(ctx context.Context, commentID, userID, text string) (*CommentView, error) {
	c, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != userID {
		return nil, apperror.Forbidden(msgNotCommentOwnerEdit)
	}
	body, err := s.validator.ValidateComment(text)
	if err != nil {
		return nil, err
	}
	if !content.IsAppropriate(body) {
		return nil, apperror.BadRequest(msgInappropriate)
	}

	c.Content = body
	if err := s.repo.UpdateCommentContent(ctx, c); err != nil {
		return nil, err
	}
	views, err := s.commentViews(ctx, []Comment{*c}, userID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeleteComment はコメントを論理削除する。コメントした本人のみ削除できる。
func (s *Service) DeleteComment(ctx context.Context, commentID, userID string) error {
	c, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != userID {
		return apperror.Forbidden(msgNotCommentOwnerDelete)
	}
	if err := s.repo.DeleteComment(ctx, c); err != nil {
		return err
	}

	s.logger.WithField("comment_id", commentID).Info("コメントを削除しました")
	var parentID string
	if c.ParentID != nil {
		parentID = *c.ParentID
	}
	s.emitter.Emit(ctx, commentID, event.AggregateTypeComment, event.TypeCommentDeleted, event.CommentData{
		PostID:   c.PostID,
		AuthorID: c.AuthorID,
		ParentID: parentID,
	})
	return nil
}

// LikeComment はコメントにいいねする。
func (s *Service) LikeComment(ctx context.Context, commentID, userID string) error {
	if _, err := s.repo.FindComment(ctx, commentID); err != nil {
		return err
	}
	return s.repo.LikeComment(ctx, commentID, userID)
}

// UnlikeComment はコメントのいいねを取り消す。
func (s *Service) UnlikeComment(ctx context.Context, commentID, userID string) error {
	if _, err := s.repo.FindComment(ctx, commentID); err != nil {
		return err
	}
	return s.repo.UnlikeComment(ctx, commentID, userID)
}

// postPage は取得した投稿をページに変換する。
func (s *Service) postPage(ctx context.Context, posts []Post, total int64, err error, req pagination.Request, viewerID string) (pagination.Page[PostView], error) {
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	views, err := s.postViews(ctx, posts, viewerID)
	if err != nil {
		return pagination.Page[PostView]{}, err
	}
	return pagination.NewPage(views, req, total), nil
}

// postViews は投稿者をまとめて取得し、いいね状態を付けて変換する。
func (s *Service) postViews(ctx context.Context, posts []Post, viewerID string) ([]PostView, error) {
	ids := make([]string, len(posts))
	authorIDs := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs[i] = p.AuthorID
	}

	authors := s.users.GetUsersByIDs(ctx, authorIDs)
	liked, err := s.repo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, len(posts))
	for i := range posts {
		views[i] = toPostView(&posts[i], authorOrUnknown(authors, posts[i].AuthorID), liked[posts[i].ID])
	}
	return views, nil
}

// commentViews はコメントした人をまとめて取得し、いいね状態を付けて変換する。
func (s *Service) commentViews(ctx context.Context, comments []Comment, viewerID string) ([]CommentView, error) {
	ids := make([]string, len(comments))
	authorIDs := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		authorIDs[i] = c.AuthorID
	}

	authors := s.users.GetUsersByIDs(ctx, authorIDs)
	liked, err := s.repo.LikedCommentIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = CommentView{
			ID:         c.ID,
			PostID:     c.PostID,
			ParentID:   c.ParentID,
			Content:    c.Content,
			LikeCount:  c.LikeCount,
			ReplyCount: c.ReplyCount,
			IsEdited:   c.IsEdited,
			EditedAt:   c.EditedAt,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
			Author:     authorOrUnknown(authors, c.AuthorID),
			IsLiked:    liked[c.ID],
		}
	}
	return views, nil
}

// authorOrUnknown は取得済みのユーザーを返す。取得できていなければ代替ユーザーを返す。
func authorOrUnknown(authors map[string]*userclient.User, id string) *userclient.User {
	if u, ok := authors[id]; ok {
		return u
	}
	return userclient.UnknownUser(id)
}

// toPostView は投稿をレスポンス用に変換する。
func toPostView(p *Post, author *userclient.User, liked bool) PostView {
	return PostView{
		ID:           p.ID,
		Content:      p.Content,
		ImageURLs:    nonNil(p.ImageURLs),
		VideoURL:     p.VideoURL,
		Hashtags:     nonNil(p.Hashtags),
		Mentions:     nonNil(p.Mentions),
		Status:       p.Status,
		IsEdited:     p.IsEdited,
		EditedAt:     p.EditedAt,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		ShareCount:   p.ShareCount,
		ViewCount:    p.ViewCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Author:       author,
		IsLiked:      liked,
	}
}

// nonNil はnilのスライスを空のスライスにする。
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
