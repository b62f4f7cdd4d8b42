package userclient

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/nao1215/pulse/pkg/apperror"
	"github.com/nao1215/pulse/pkg/httpclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// batchConcurrency は複数ユーザー取得時の最大並列数。
const batchConcurrency = 10

// Client はユーザーディレクトリのクライアント。
type Client struct {
	// http はリトライ付きHTTPクライアント。
	http *httpclient.Client
	// cache はユーザー情報キャッシュ。
	cache Cache
	// logger はロガー。
	logger logrus.FieldLogger
}

// New はユーザーディレクトリのクライアントを生成する。
// cache が nil の場合はキャッシュしない。
func New(hc *httpclient.Client, cache Cache, logger logrus.FieldLogger) *Client {
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{http: hc, cache: cache, logger: logger}
}

// GetUser はユーザーを取得する。キャッシュにあればHTTP呼び出しを行わない。
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, apperror.BadRequest("ユーザーIDが指定されていません")
	}

	if u, err := c.cache.Get(ctx, id); err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("ユーザーキャッシュの参照に失敗")
	} else if u != nil {
		return u, nil
	}

	body, err := c.http.GetRaw(ctx, "/api/users/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	u := parseUserEnvelope(body)
	if u == nil {
		return nil, apperror.NotFound(fmt.Sprintf("ユーザーが見つかりません: %s", id))
	}

	if err := c.cache.Set(ctx, u); err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("ユーザーキャッシュの保存に失敗")
	}
	return u, nil
}

// FindUser はユーザーを取得する。取得に失敗した場合はログを出して nil を返す。
func (c *Client) FindUser(ctx context.Context, id string) *User {
	u, err := c.GetUser(ctx, id)
	if err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("ユーザー情報の取得に失敗")
		return nil
	}
	return u
}

// GetUsersByIDs は複数ユーザーを最大10並列で取得する。
// 取得できなかったユーザーは結果に含めない。重複したIDは1回だけ取得する。
func (c *Client) GetUsersByIDs(ctx context.Context, ids []string) map[string]*User {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var (
		mu    sync.Mutex
		users = make(map[string]*User, len(unique))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, id := range unique {
		g.Go(func() error {
			u := c.FindUser(gctx, id)
			if u == nil {
				return nil
			}
			mu.Lock()
			users[id] = u
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return users
}

// IsUserActive はユーザーが存在し、かつ ACTIVE かどうかを返す。
func (c *Client) IsUserActive(ctx context.Context, id string) bool {
	return c.FindUser(ctx, id).IsActive()
}
