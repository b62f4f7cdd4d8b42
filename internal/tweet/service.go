package tweet

import (
	"context"
	"strings"
	"time"

	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/content"
	"github.com/nao1215/pulse/pkg/event"
	"github.com/nao1215/pulse/pkg/pagination"
	"github.com/sirupsen/logrus"
)

// クライアント向けのエラーメッセージ。
const (
	msgNotTweetOwnerUpdate   = "自分のツイートのみ編集できます"
	msgNotTweetOwnerDelete   = "自分のツイートのみ削除できます"
	msgNotCommentOwnerDelete = "自分のコメントのみ削除できます"
	msgEmptyKeyword          = "検索キーワードを入力してください"
)

// Service はツイートのビジネスロジック。
type Service struct {
	// repo はリポジトリ。
	repo *Repository
	// validator は本文の検証器。
	validator *content.Validator
	// emitter はイベント配信。
	emitter *event.Emitter
	// logger はロガー。
	logger logrus.FieldLogger
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo *Repository, validator *content.Validator, emitter *event.Emitter, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// TweetView はコメント数といいね数を付けたツイート。
type TweetView struct {
	// ID はツイートID。
	ID string `json:"id"`
	// Content は本文。
	Content string `json:"content"`
	// AuthorUsername は投稿者のユーザー名。
	AuthorUsername string `json:"author_username"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
	// CommentCount はコメント数。
	CommentCount int64 `json:"comment_count"`
	// LikeCount はいいね数。
	LikeCount int64 `json:"like_count"`
	// Comments はコメント。詳細取得の時だけ含める。
	Comments []CommentView `json:"comments,omitempty"`
	// Likes はいいね。詳細取得の時だけ含める。
	Likes []LikeView `json:"likes,omitempty"`
}

// CommentView はコメント。
type CommentView struct {
	// ID はコメントID。
	ID string `json:"id"`
	// TweetID はツイートID。
	TweetID string `json:"tweet_id"`
	// Content は本文。
	Content string `json:"content"`
	// AuthorUsername はコメントしたユーザー名。
	AuthorUsername string `json:"author_username"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// LikeView はいいね。
type LikeView struct {
	// ID はいいねID。
	ID string `json:"id"`
	// TweetID はツイートID。
	TweetID string `json:"tweet_id"`
	// Username はいいねしたユーザー名。
	Username string `json:"username"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
}

// CreateTweet はツイートを作成する。
func (s *Service) CreateTweet(ctx context.Context, username, body string) (*TweetView, error) {
	sanitized, err := s.validator.ValidatePost(body)
	if err != nil {
		return nil, err
	}

	t := &Tweet{Content: sanitized, AuthorUsername: username}
	if err := s.repo.CreateTweet(ctx, t); err != nil {
		return nil, apperror.Internal("ツイートの作成に失敗しました", err)
	}

	s.emitter.Emit(ctx, t.ID, event.AggregateTypeTweet, event.TypeTweetCreated, event.TweetData{AuthorUsername: username})
	return toTweetView(t, Counts{}), nil
}

// GetTweet はIDでツイートを取得する。
func (s *Service) GetTweet(ctx context.Context, id string) (*TweetView, error) {
	t, err := s.repo.FindTweet(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountsFor(ctx, []string{t.ID})
	if err != nil {
		return nil, err
	}
	return toTweetView(t, counts[t.ID]), nil
}

// GetTweetDetails はコメントといいねを含めてツイートを取得する。
func (s *Service) GetTweetDetails(ctx context.Context, id string) (*TweetView, error) {
	t, err := s.repo.FindTweetWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	view := toTweetView(t, Counts{Comments: int64(len(t.Comments)), Likes: int64(len(t.Likes))})
	view.Comments = make([]CommentView, len(t.Comments))
	for i, c := range t.Comments {
		view.Comments[i] = toCommentView(c)
	}
	view.Likes = make([]LikeView, len(t.Likes))
	for i, l := range t.Likes {
		view.Likes[i] = toLikeView(l)
	}
	return view, nil
}

// ListTweets はツイートを指定の順に取得する。
func (s *Service) ListTweets(ctx context.Context, sort Sort, req pagination.Request) (pagination.Page[TweetView], error) {
	tweets, total, err := s.repo.ListTweets(ctx, sort, req)
	return s.tweetPage(ctx, tweets, total, err, req)
}

// ListByAuthor は投稿者のツイートを新しい順に取得する。
func (s *Service) ListByAuthor(ctx context.Context, username string, req pagination.Request) (pagination.Page[TweetView], error) {
	tweets, total, err := s.repo.ListByAuthor(ctx, username, req)
	return s.tweetPage(ctx, tweets, total, err, req)
}

// Search は本文に keyword を含むツイートを新しい順に取得する。
func (s *Service) Search(ctx context.Context, keyword string, req pagination.Request) (pagination.Page[TweetView], error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return pagination.Page[TweetView]{}, apperror.BadRequest(msgEmptyKeyword)
	}
	tweets, total, err := s.repo.Search(ctx, keyword, req)
	return s.tweetPage(ctx, tweets, total, err, req)
}

// UpdateTweet はツイートの本文を更新する。投稿者本人のみ更新できる。
func (s *Service) UpdateTweet(ctx context.Context, id, username, body string) (*TweetView, error) {
	t, err := s.repo.FindTweet(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.AuthorUsername != username {
		return nil, apperror.Forbidden(msgNotTweetOwnerUpdate)
	}
	sanitized, err := s.validator.ValidatePost(body)
	if err != nil {
		return nil, err
	}

	t.Content = sanitized
	t.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateTweetContent(ctx, t); err != nil {
		return nil, apperror.Internal("ツイートの更新に失敗しました", err)
	}

	s.emitter.Emit(ctx, t.ID, event.AggregateTypeTweet, event.TypeTweetUpdated, event.TweetData{AuthorUsername: username})
	return s.GetTweet(ctx, t.ID)
}

// DeleteTweet はツイートをコメント・いいねごと削除する。投稿者本人のみ削除できる。
func (s *Service) DeleteTweet(ctx context.Context, id, username string) error {
	t, err := s.repo.FindTweet(ctx, id)
	if err != nil {
		return err
	}
	if t.AuthorUsername != username {
		return apperror.Forbidden(msgNotTweetOwnerDelete)
	}
	if err := s.repo.DeleteTweet(ctx, t.ID); err != nil {
		return apperror.Internal("ツイートの削除に失敗しました", err)
	}

	s.emitter.Emit(ctx, t.ID, event.AggregateTypeTweet, event.TypeTweetDeleted, event.TweetData{AuthorUsername: username})
	return nil
}

// AddComment はツイートにコメントする。
func (s *Service) AddComment(ctx context.Context, tweetID, username, body string) (*CommentView, error) {
	t, err := s.repo.FindTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	sanitized, err := s.validator.ValidateComment(body)
	if err != nil {
		return nil, err
	}

	c := &TweetComment{TweetID: t.ID, Content: sanitized, AuthorUsername: username}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, apperror.Internal("コメントの作成に失敗しました", err)
	}
	view := toCommentView(*c)
	return &view, nil
}

// ListComments はツイートのコメントを古い順に取得する。
func (s *Service) ListComments(ctx context.Context, tweetID string) ([]CommentView, error) {
	if _, err := s.repo.FindTweet(ctx, tweetID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = toCommentView(c)
	}
	return views, nil
}

// DeleteComment はコメントを削除する。コメントした本人のみ削除できる。
func (s *Service) DeleteComment(ctx context.Context, commentID, username string) error {
	c, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.AuthorUsername != username {
		return apperror.Forbidden(msgNotCommentOwnerDelete)
	}
	if err := s.repo.DeleteComment(ctx, c.ID); err != nil {
		return apperror.Internal("コメントの削除に失敗しました", err)
	}
	return nil
}

// LikeTweet はツイートにいいねする。
func (s *Service) LikeTweet(ctx context.Context, tweetID, username string) (*LikeView, error) {
	t, err := s.repo.FindTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	l := &TweetLike{TweetID: t.ID, Username: username}
	if err := s.repo.CreateLike(ctx, l); err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, t.ID, event.AggregateTypeTweet, event.TypeTweetLiked, event.LikeData{UserID: username, TargetAuthor: t.AuthorUsername})
	view := toLikeView(*l)
	return &view, nil
}

// UnlikeTweet はツイートのいいねを取り消す。
func (s *Service) UnlikeTweet(ctx context.Context, tweetID, username string) error {
	if _, err := s.repo.FindTweet(ctx, tweetID); err != nil {
		return err
	}
	return s.repo.DeleteLike(ctx, tweetID, username)
}

// HasLiked は username が tweetID にいいねしているかどうかを返す。
func (s *Service) HasLiked(ctx context.Context, tweetID, username string) (bool, error) {
	if _, err := s.repo.FindTweet(ctx, tweetID); err != nil {
		return false, err
	}
	return s.repo.HasLiked(ctx, tweetID, username)
}

// ListLikes はツイートへのいいねを新しい順に取得する。
func (s *Service) ListLikes(ctx context.Context, tweetID string) ([]LikeView, error) {
	if _, err := s.repo.FindTweet(ctx, tweetID); err != nil {
		return nil, err
	}
	likes, err := s.repo.ListLikesByTweet(ctx, tweetID)
	return likeViews(likes), err
}

// ListLikesByUser はユーザーが付けたいいねを新しい順に取得する。
func (s *Service) ListLikesByUser(ctx context.Context, username string) ([]LikeView, error) {
	likes, err := s.repo.ListLikesByUser(ctx, username)
	return likeViews(likes), err
}

// UserStats はユーザーのツイート数・コメント数・いいね数を返す。
func (s *Service) UserStats(ctx context.Context, username string) (Stats, error) {
	return s.repo.StatsFor(ctx, username)
}

// tweetPage はリポジトリの結果をコメント数といいね数付きのページにする。
func (s *Service) tweetPage(ctx context.Context, tweets []Tweet, total int64, err error, req pagination.Request) (pagination.Page[TweetView], error) {
	if err != nil {
		return pagination.Page[TweetView]{}, err
	}
	ids := make([]string, len(tweets))
	for i, t := range tweets {
		ids[i] = t.ID
	}
	counts, err := s.repo.CountsFor(ctx, ids)
	if err != nil {
		return pagination.Page[TweetView]{}, err
	}

	views := make([]TweetView, len(tweets))
	for i := range tweets {
		views[i] = *toTweetView(&tweets[i], counts[tweets[i].ID])
	}
	return pagination.NewPage(views, req, total), nil
}

func toTweetView(t *Tweet, counts Counts) *TweetView {
	return &TweetView{
		ID:             t.ID,
		Content:        t.Content,
		AuthorUsername: t.AuthorUsername,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CommentCount:   counts.Comments,
		LikeCount:      counts.Likes,
	}
}

func toCommentView(c TweetComment) CommentView {
	return CommentView{
		ID:             c.ID,
		TweetID:        c.TweetID,
		Content:        c.Content,
		AuthorUsername: c.AuthorUsername,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toLikeView(l TweetLike) LikeView {
	return LikeView{ID: l.ID, TweetID: l.TweetID, Username: l.Username, CreatedAt: l.CreatedAt}
}

func likeViews(likes []TweetLike) []LikeView {
	views := make([]LikeView, len(likes))
	for i, l := range likes {
		views[i] = toLikeView(l)
	}
	return views
}
