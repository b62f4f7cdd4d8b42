package tweet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pulse/pkg/config"
	"github.com/nao1215/pulse/pkg/database"
	"github.com/nao1215/pulse/pkg/event"
	"github.com/nao1215/pulse/pkg/logging"
	"github.com/nao1215/pulse/pkg/middleware"
	"github.com/nao1215/pulse/pkg/migration"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用のJWTシークレット。
const testSecret = "test-secret"

// baseTime はテストデータの基準時刻。
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// testEnv はテスト用のサーバーと依存オブジェクト。
type testEnv struct {
	// router はHTTPルーター。
	router http.Handler
	// repo はリポジトリ。テストデータの直接投入に使う。
	repo *Repository
	// recorder は配信されたイベント。
	recorder *event.Recorder
}

// setupTestServer はテスト用のツイートサーバーをインメモリSQLiteで構築する。
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	logger := logging.Discard()
	if err := migration.Run(db, logger, Migrations()); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}

	cfg := Config{
		Common:          config.Common{Service: "tweet", Port: "0", JWTSecret: testSecret},
		MaxTweetLength:  DefaultMaxTweetLength,
		DefaultPageSize: 10,
	}
	recorder := &event.Recorder{}
	repo := NewRepository(db)
	service := NewService(repo, cfg.Validator(), event.NewEmitter(recorder, logger), logger)
	s := NewServer(cfg, db, service, logger)
	return &testEnv{router: s.Handler(), repo: repo, recorder: recorder}
}

// tokenFor はテスト用のアクセストークンを生成する。
func tokenFor(t *testing.T, username string) string {
	t.Helper()
	token, err := middleware.GenerateJWT(testSecret, middleware.Identity{UserID: "id-" + username, Username: username, Role: "USER"})
	if err != nil {
		t.Fatalf("トークンの生成に失敗: %v", err)
	}
	return token
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのパースに失敗: %v, body: %s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []any {
	t.Helper()
	var result []any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のパースに失敗: %v, body: %s", err, w.Body.String())
	}
	return result
}

// createTweet はAPI経由でツイートを作成し、ツイートIDを返すヘルパー関数。
func createTweet(t *testing.T, env *testEnv, username, text string) string {
	t.Helper()
	w := doRequest(env.router, http.MethodPost, "/api/tweets", tokenFor(t, username), map[string]any{"content": text})
	if w.Code != http.StatusCreated {
		t.Fatalf("ツイートの作成に失敗: status=%d body=%s", w.Code, w.Body.String())
	}
	return parseJSON(t, w)["id"].(string)
}

// insertTweet はテスト用にツイートをDBに直接挿入するヘルパー関数。
func insertTweet(t *testing.T, env *testEnv, username, text string, createdAt, updatedAt time.Time) string {
	t.Helper()
	tw := &Tweet{AuthorUsername: username, Content: text, CreatedAt: createdAt, UpdatedAt: updatedAt}
	if err := env.repo.CreateTweet(t.Context(), tw); err != nil {
		t.Fatalf("テスト用ツイートの作成に失敗: %v", err)
	}
	return tw.ID
}

// insertComment はテスト用にコメントをDBに直接挿入するヘルパー関数。
func insertComment(t *testing.T, env *testEnv, tweetID, username, text string, createdAt time.Time) string {
	t.Helper()
	c := &TweetComment{TweetID: tweetID, AuthorUsername: username, Content: text, CreatedAt: createdAt}
	if err := env.repo.CreateComment(t.Context(), c); err != nil {
		t.Fatalf("テスト用コメントの作成に失敗: %v", err)
	}
	return c.ID
}

// like はAPI経由でいいねするヘルパー関数。
func like(t *testing.T, env *testEnv, tweetID, username string) {
	t.Helper()
	w := doRequest(env.router, http.MethodPost, "/api/tweets/"+tweetID+"/like", tokenFor(t, username), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("いいねに失敗: status=%d body=%s", w.Code, w.Body.String())
	}
}

// contentIDs はページレスポンスのcontentからIDを取り出す。
func contentIDs(t *testing.T, page map[string]any) []string {
	t.Helper()
	items := page["content"].([]any)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.(map[string]any)["id"].(string)
	}
	return ids
}

// fieldOf は配列レスポンスの各要素から key の値を取り出す。
func fieldOf(items []any, key string) []string {
	values := make([]string, len(items))
	for i, item := range items {
		values[i], _ = item.(map[string]any)[key].(string)
	}
	return values
}

func TestHandleCreate(t *testing.T) {
	t.Parallel()

	t.Run("正常にツイートを作成できること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env.router, http.MethodPost, "/api/tweets", tokenFor(t, "alice"), map[string]any{"content": "はじめてのツイート"})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}

		resp := parseJSON(t, w)
		if resp["content"] != "はじめてのツイート" {
			t.Errorf("content = %v", resp["content"])
		}
		if resp["author_username"] != "alice" {
			t.Errorf("author_username = %v, want alice", resp["author_username"])
		}
		if resp["comment_count"] != float64(0) || resp["like_count"] != float64(0) {
			t.Errorf("カウント = %v/%v, want 0/0", resp["comment_count"], resp["like_count"])
		}

		types := env.recorder.Types()
		if len(types) != 1 || types[0] != event.TypeTweetCreated {
			t.Errorf("配信イベント = %v, want [TweetCreated]", types)
		}
	})

	tests := []struct {
		name     string
		token    bool
		body     any
		wantCode int
	}{
		{name: "空の本文は400を返すこと", token: true, body: map[string]any{"content": "   "}, wantCode: http.StatusBadRequest},
		{name: "280文字を超える本文は400を返すこと", token: true, body: map[string]any{"content": strings.Repeat("あ", 281)}, wantCode: http.StatusBadRequest},
		{name: "280文字ちょうどは作成できること", token: true, body: map[string]any{"content": strings.Repeat("あ", 280)}, wantCode: http.StatusCreated},
		{name: "エスケープで長くなる280文字の本文も作成できること", token: true, body: map[string]any{"content": strings.Repeat(`"`, 280)}, wantCode: http.StatusCreated},
		{name: "トークンが無い場合は401を返すこと", token: false, body: map[string]any{"content": "hello"}, wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestServer(t)

			token := ""
			if tt.token {
				token = tokenFor(t, "alice")
			}
			w := doRequest(env.router, http.MethodPost, "/api/tweets", token, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード = %d, want %d, body: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestHandleGet(t *testing.T) {
	t.Parallel()

	t.Run("ツイートを取得できること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")

		w := doRequest(env.router, http.MethodGet, "/api/tweets/"+id, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := parseJSON(t, w)["id"]; got != id {
			t.Errorf("id = %v, want %s", got, id)
		}
	})

	t.Run("存在しないツイートは404を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env.router, http.MethodGet, "/api/tweets/unknown", "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		if got := parseJSON(t, w)["error"]; got != msgTweetNotFound {
			t.Errorf("error = %v, want %s", got, msgTweetNotFound)
		}
	})

	t.Run("詳細にはコメントといいねが含まれること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")
		second := insertComment(t, env, id, "bob", "2番目", baseTime.Add(2*time.Minute))
		first := insertComment(t, env, id, "carol", "1番目", baseTime.Add(time.Minute))
		like(t, env, id, "bob")
		like(t, env, id, "carol")

		w := doRequest(env.router, http.MethodGet, "/api/tweets/"+id+"/details", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		resp := parseJSON(t, w)
		if resp["comment_count"] != float64(2) || resp["like_count"] != float64(2) {
			t.Errorf("カウント = %v/%v, want 2/2", resp["comment_count"], resp["like_count"])
		}
		if got := fieldOf(resp["comments"].([]any), "id"); !slices.Equal(got, []string{first, second}) {
			t.Errorf("コメントの順序 = %v, want [%s %s]", got, first, second)
		}
		if got := len(resp["likes"].([]any)); got != 2 {
			t.Errorf("いいね件数 = %d, want 2", got)
		}
	})
}

func TestHandleUpdate(t *testing.T) {
	t.Parallel()

	t.Run("投稿者は本文を更新できること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "before")

		w := doRequest(env.router, http.MethodPut, "/api/tweets/"+id, tokenFor(t, "alice"), map[string]any{"content": "after"})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}
		if got := parseJSON(t, w)["content"]; got != "after" {
			t.Errorf("content = %v, want after", got)
		}

		types := env.recorder.Types()
		if len(types) != 2 || types[1] != event.TypeTweetUpdated {
			t.Errorf("配信イベント = %v", types)
		}
	})

	t.Run("投稿者以外は403を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "before")

		w := doRequest(env.router, http.MethodPut, "/api/tweets/"+id, tokenFor(t, "bob"), map[string]any{"content": "after"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		if got := parseJSON(t, w)["error"]; got != msgNotTweetOwnerUpdate {
			t.Errorf("error = %v, want %s", got, msgNotTweetOwnerUpdate)
		}
	})

	t.Run("存在しないツイートは404を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env.router, http.MethodPut, "/api/tweets/unknown", tokenFor(t, "alice"), map[string]any{"content": "after"})
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestHandleDelete(t *testing.T) {
	t.Parallel()

	t.Run("削除するとコメントといいねも消えること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")
		insertComment(t, env, id, "bob", "コメント", baseTime)
		like(t, env, id, "bob")

		w := doRequest(env.router, http.MethodDelete, "/api/tweets/"+id, tokenFor(t, "alice"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
		}

		if w := doRequest(env.router, http.MethodGet, "/api/tweets/"+id, "", nil); w.Code != http.StatusNotFound {
			t.Errorf("削除後の取得 = %d, want %d", w.Code, http.StatusNotFound)
		}
		stats := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/users/bob/stats", "", nil))
		if stats["comment_count"] != float64(0) || stats["like_count"] != float64(0) {
			t.Errorf("削除後のbobの集計 = %v", stats)
		}
		if got := env.recorder.Types(); got[len(got)-1] != event.TypeTweetDeleted {
			t.Errorf("最後の配信イベント = %v, want TweetDeleted", got[len(got)-1])
		}
	})

	t.Run("投稿者以外は403を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")

		w := doRequest(env.router, http.MethodDelete, "/api/tweets/"+id, tokenFor(t, "bob"), nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		if got := parseJSON(t, w)["error"]; got != msgNotTweetOwnerDelete {
			t.Errorf("error = %v, want %s", got, msgNotTweetOwnerDelete)
		}
	})
}

func TestHandleComments(t *testing.T) {
	t.Parallel()

	t.Run("コメントは古い順に返ること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")
		later := insertComment(t, env, id, "bob", "後", baseTime.Add(time.Hour))
		earlier := insertComment(t, env, id, "bob", "先", baseTime)

		w := doRequest(env.router, http.MethodGet, "/api/tweets/"+id+"/comments", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := fieldOf(parseJSONArray(t, w), "id"); !slices.Equal(got, []string{earlier, later}) {
			t.Errorf("コメントの順序 = %v, want [%s %s]", got, earlier, later)
		}
	})

	t.Run("API経由でコメントするとカウントが増えること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")

		w := doRequest(env.router, http.MethodPost, "/api/tweets/"+id+"/comments", tokenFor(t, "bob"), map[string]any{"content": "いいね"})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		resp := parseJSON(t, w)
		if resp["tweet_id"] != id || resp["author_username"] != "bob" {
			t.Errorf("コメント = %v", resp)
		}

		got := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/"+id, "", nil))
		if got["comment_count"] != float64(1) {
			t.Errorf("comment_count = %v, want 1", got["comment_count"])
		}
	})

	t.Run("存在しないツイートへのコメントは404を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env.router, http.MethodPost, "/api/tweets/unknown/comments", tokenFor(t, "bob"), map[string]any{"content": "hi"})
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("コメントの削除は本人のみできること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")
		commentID := insertComment(t, env, id, "bob", "コメント", baseTime)

		w := doRequest(env.router, http.MethodDelete, "/api/tweets/comments/"+commentID, tokenFor(t, "alice"), nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		if got := parseJSON(t, w)["error"]; got != msgNotCommentOwnerDelete {
			t.Errorf("error = %v, want %s", got, msgNotCommentOwnerDelete)
		}

		w = doRequest(env.router, http.MethodDelete, "/api/tweets/comments/"+commentID, tokenFor(t, "bob"), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		w = doRequest(env.router, http.MethodDelete, "/api/tweets/comments/"+commentID, tokenFor(t, "bob"), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("再削除のステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestHandleLike(t *testing.T) {
	t.Parallel()

	t.Run("いいねと取り消しで状態とカウントが変わること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")
		token := tokenFor(t, "bob")

		w := doRequest(env.router, http.MethodPost, "/api/tweets/"+id+"/like", token, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
		if got := parseJSON(t, w)["username"]; got != "bob" {
			t.Errorf("username = %v, want bob", got)
		}
		if got := env.recorder.Types(); got[len(got)-1] != event.TypeTweetLiked {
			t.Errorf("最後の配信イベント = %v, want TweetLiked", got[len(got)-1])
		}

		if got := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/"+id+"/like", token, nil))["liked"]; got != true {
			t.Errorf("liked = %v, want true", got)
		}
		if got := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/"+id, "", nil))["like_count"]; got != float64(1) {
			t.Errorf("like_count = %v, want 1", got)
		}

		w = doRequest(env.router, http.MethodDelete, "/api/tweets/"+id+"/like", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("取り消しのステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/"+id+"/like", token, nil))["liked"]; got != false {
			t.Errorf("liked = %v, want false", got)
		}
	})

	t.Run("二重のいいねは409を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")
		like(t, env, id, "bob")

		w := doRequest(env.router, http.MethodPost, "/api/tweets/"+id+"/like", tokenFor(t, "bob"), nil)
		if w.Code != http.StatusConflict {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}
		if got := parseJSON(t, w)["error"]; got != msgAlreadyLiked {
			t.Errorf("error = %v, want %s", got, msgAlreadyLiked)
		}
	})

	t.Run("いいねしていないツイートの取り消しは404を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")

		w := doRequest(env.router, http.MethodDelete, "/api/tweets/"+id+"/like", tokenFor(t, "bob"), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("いいね状態の確認にはトークンが必要なこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTweet(t, env, "alice", "hello")

		w := doRequest(env.router, http.MethodGet, "/api/tweets/"+id+"/like", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("ユーザーごとのいいねは新しい順に返ること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		first := createTweet(t, env, "alice", "one")
		second := createTweet(t, env, "alice", "two")
		for i, id := range []string{first, second} {
			l := &TweetLike{TweetID: id, Username: "bob", CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
			if err := env.repo.CreateLike(t.Context(), l); err != nil {
				t.Fatalf("テスト用いいねの作成に失敗: %v", err)
			}
		}

		w := doRequest(env.router, http.MethodGet, "/api/tweets/users/bob/likes", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := fieldOf(parseJSONArray(t, w), "tweet_id"); !slices.Equal(got, []string{second, first}) {
			t.Errorf("いいねの順序 = %v, want [%s %s]", got, second, first)
		}

		w = doRequest(env.router, http.MethodGet, "/api/tweets/"+first+"/likes", "", nil)
		if got := fieldOf(parseJSONArray(t, w), "username"); !slices.Equal(got, []string{"bob"}) {
			t.Errorf("ツイートへのいいね = %v, want [bob]", got)
		}
	})
}

func TestHandleListing(t *testing.T) {
	t.Parallel()

	t.Run("一覧は既定で作成日時の新しい順に10件ずつ返ること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		var ids []string
		for i := range 12 {
			ids = append(ids, insertTweet(t, env, "alice", "tweet", baseTime.Add(time.Duration(i)*time.Minute), baseTime))
		}

		page := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets", "", nil))
		got := contentIDs(t, page)
		if len(got) != 10 || got[0] != ids[11] || got[9] != ids[2] {
			t.Errorf("1ページ目 = %v", got)
		}
		if page["total_elements"] != float64(12) || page["total_pages"] != float64(2) {
			t.Errorf("total_elements = %v, total_pages = %v", page["total_elements"], page["total_pages"])
		}

		page = parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets?page=1", "", nil))
		if got := contentIDs(t, page); len(got) != 2 || got[1] != ids[0] {
			t.Errorf("2ページ目 = %v", got)
		}
	})

	t.Run("size=0は既定の10件で返ること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		for i := range 12 {
			insertTweet(t, env, "alice", "tweet", baseTime.Add(time.Duration(i)*time.Minute), baseTime)
		}

		page := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets?size=0", "", nil))
		if got := contentIDs(t, page); len(got) != 10 {
			t.Errorf("件数 = %d, want 10", len(got))
		}
	})

	t.Run("sortByとsortDirで並び順を変えられること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		a := insertTweet(t, env, "alice", "a", baseTime, baseTime.Add(2*time.Hour))
		b := insertTweet(t, env, "alice", "b", baseTime.Add(time.Hour), baseTime.Add(time.Hour))

		tests := []struct {
			query string
			want  []string
		}{
			{query: "", want: []string{b, a}},
			{query: "?sortDir=asc", want: []string{a, b}},
			{query: "?sortBy=updatedAt", want: []string{a, b}},
			{query: "?sortBy=updatedAt&sortDir=asc", want: []string{b, a}},
			{query: "?sortBy=content", want: []string{b, a}},
		}
		for _, tt := range tests {
			page := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets"+tt.query, "", nil))
			if got := contentIDs(t, page); !slices.Equal(got, tt.want) {
				t.Errorf("%q の結果 = %v, want %v", tt.query, got, tt.want)
			}
		}
	})

	t.Run("投稿者ごとの一覧を取得できること", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		mine := insertTweet(t, env, "alice", "mine", baseTime, baseTime)
		insertTweet(t, env, "bob", "other", baseTime, baseTime)

		page := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/author/alice", "", nil))
		if got := contentIDs(t, page); !slices.Equal(got, []string{mine}) {
			t.Errorf("aliceのツイート = %v, want [%s]", got, mine)
		}
	})

	t.Run("検索は大文字小文字を区別しないこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		hit := insertTweet(t, env, "alice", "Hello Gopher", baseTime, baseTime)
		insertTweet(t, env, "alice", "こんにちは", baseTime, baseTime)
		insertTweet(t, env, "alice", "100% 達成", baseTime, baseTime)

		page := parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/search?keyword=gopher", "", nil))
		if got := contentIDs(t, page); !slices.Equal(got, []string{hit}) {
			t.Errorf("検索結果 = %v, want [%s]", got, hit)
		}

		page = parseJSON(t, doRequest(env.router, http.MethodGet, "/api/tweets/search?keyword=%25", "", nil))
		if got := contentIDs(t, page); len(got) != 1 {
			t.Errorf("%%の検索結果 = %v, want 1件", got)
		}
	})

	t.Run("空の検索キーワードは400を返すこと", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env.router, http.MethodGet, "/api/tweets/search?keyword=", "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleUserStats(t *testing.T) {
	t.Parallel()
	env := setupTestServer(t)

	first := createTweet(t, env, "alice", "one")
	createTweet(t, env, "alice", "two")
	other := createTweet(t, env, "bob", "three")
	insertComment(t, env, other, "alice", "コメント", baseTime)
	like(t, env, first, "alice")
	like(t, env, other, "alice")

	w := doRequest(env.router, http.MethodGet, "/api/tweets/users/alice/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	resp := parseJSON(t, w)
	want := map[string]float64{"tweet_count": 2, "comment_count": 1, "like_count": 2}
	for key, v := range want {
		if resp[key] != v {
			t.Errorf("%s = %v, want %v", key, resp[key], v)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	env := setupTestServer(t)

	w := doRequest(env.router, http.MethodGet, "/api/tweets/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	resp := parseJSON(t, w)
	if resp["status"] != "UP" || resp["service"] != "tweet" {
		t.Errorf("レスポンス = %v", resp)
	}
}
