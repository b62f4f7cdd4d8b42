package tweet

import (
	"sync"
	"testing"

	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/logging"
	"github.com/nao1215/pulse/pkg/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm/schema"
)

// setupTestRepository はインメモリSQLiteのリポジトリを生成する。
func setupTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, migration.Run(db, logging.Discard(), Migrations()))
	return NewRepository(db)
}

func TestSortClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sort Sort
		want string
	}{
		{sort: Sort{By: "createdAt", Desc: true}, want: "created_at DESC"},
		{sort: Sort{By: "updatedAt"}, want: "updated_at ASC"},
		{sort: Sort{By: "content; DROP TABLE tweets", Desc: true}, want: "created_at DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.sort.clause())
	}
}

func TestRepositoryCountsFor(t *testing.T) {
	t.Parallel()

	repo := setupTestRepository(t)
	ctx := t.Context()

	busy := &Tweet{AuthorUsername: "alice", Content: "busy"}
	quiet := &Tweet{AuthorUsername: "alice", Content: "quiet"}
	require.NoError(t, repo.CreateTweet(ctx, busy))
	require.NoError(t, repo.CreateTweet(ctx, quiet))
	require.NoError(t, repo.CreateComment(ctx, &TweetComment{TweetID: busy.ID, AuthorUsername: "bob", Content: "1"}))
	require.NoError(t, repo.CreateComment(ctx, &TweetComment{TweetID: busy.ID, AuthorUsername: "bob", Content: "2"}))
	require.NoError(t, repo.CreateLike(ctx, &TweetLike{TweetID: busy.ID, Username: "bob"}))

	counts, err := repo.CountsFor(ctx, []string{busy.ID, quiet.ID})
	require.NoError(t, err)
	assert.Equal(t, Counts{Comments: 2, Likes: 1}, counts[busy.ID])
	assert.Equal(t, Counts{}, counts[quiet.ID])

	empty, err := repo.CountsFor(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryDeleteTweetCascades(t *testing.T) {
	t.Parallel()

	repo := setupTestRepository(t)
	ctx := t.Context()

	tw := &Tweet{AuthorUsername: "alice", Content: "hello"}
	require.NoError(t, repo.CreateTweet(ctx, tw))
	c := &TweetComment{TweetID: tw.ID, AuthorUsername: "bob", Content: "hi"}
	require.NoError(t, repo.CreateComment(ctx, c))
	require.NoError(t, repo.CreateLike(ctx, &TweetLike{TweetID: tw.ID, Username: "bob"}))

	require.NoError(t, repo.DeleteTweet(ctx, tw.ID))

	_, err := repo.FindTweet(ctx, tw.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = repo.FindComment(ctx, c.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	liked, err := repo.HasLiked(ctx, tw.ID, "bob")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestRepositoryLikes(t *testing.T) {
	t.Parallel()

	repo := setupTestRepository(t)
	ctx := t.Context()

	tw := &Tweet{AuthorUsername: "alice", Content: "hello"}
	require.NoError(t, repo.CreateTweet(ctx, tw))

	require.NoError(t, repo.CreateLike(ctx, &TweetLike{TweetID: tw.ID, Username: "bob"}))
	err := repo.CreateLike(ctx, &TweetLike{TweetID: tw.ID, Username: "bob"})
	assert.True(t, apperror.Is(err, apperror.KindConflict), "一意制約違反はConflictになること: %v", err)

	require.NoError(t, repo.DeleteLike(ctx, tw.ID, "bob"))
	err = repo.DeleteLike(ctx, tw.ID, "bob")
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "いいねが無い場合はNotFoundになること: %v", err)
}

// TestContentColumnType は本文カラムがエスケープ後の長さに制限されないことを検証する。
func TestContentColumnType(t *testing.T) {
	t.Parallel()

	for _, model := range []any{&Tweet{}, &TweetComment{}} {
		s, err := schema.Parse(model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)

		field := s.LookUpField("Content")
		require.NotNil(t, field)
		assert.Equal(t, "text", postgres.Dialector{}.DataTypeOf(field), s.Name)
	}
}
