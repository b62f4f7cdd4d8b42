package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"
)

// RetryPolicy はリトライ回数と待機間隔の設定。
type RetryPolicy struct {
	// InitialInterval は1回目のリトライまでの待機時間。
	InitialInterval time.Duration
	// MaxInterval は待機時間の上限。
	MaxInterval time.Duration
	// MaxAttempts は初回を含む最大試行回数。
	MaxAttempts int
}

// Backoff は attempt 回目（1始まり）の失敗後に待機する時間を返す。
// 待機時間は InitialInterval × 1.5^(attempt-1) で増加し、MaxInterval で頭打ちになる。
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.InitialInterval) * math.Pow(1.5, float64(attempt-1)))
	if p.MaxInterval > 0 && d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

// Options はクライアントのタイムアウトとリトライの設定。
type Options struct {
	// ServiceName はエラーメッセージに使う接続先サービス名。
	ServiceName string
	// ConnectTimeout はTCP接続確立のタイムアウト。
	ConnectTimeout time.Duration
	// ReadTimeout はレスポンスヘッダー受信までのタイムアウト。
	ReadTimeout time.Duration
	// Retry はリトライ設定。
	Retry RetryPolicy
}

// DefaultOptions はユーザーサービス向けの既定設定を返す。
// 接続5秒、読み取り10秒、初回1秒・上限3秒・最大3回のリトライ。
func DefaultOptions() Options {
	return Options{
		ServiceName:    "ユーザーサービス",
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		Retry: RetryPolicy{
			InitialInterval: time.Second,
			MaxInterval:     3 * time.Second,
			MaxAttempts:     3,
		},
	}
}

// Client はサービス間通信用のHTTPクライアント。
// タイムアウトとリトライの設定を持つ。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
	// opts はタイムアウトとリトライの設定。
	opts Options
	// sleep はリトライ間の待機処理。テストで差し替える。
	sleep func(ctx context.Context, d time.Duration) error
}

// New は既定設定のサービス間通信用HTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://auth:8081"）を指定する。
func New(baseURL string) *Client {
	return NewWithOptions(baseURL, DefaultOptions())
}

// NewWithOptions は設定を指定してHTTPクライアントを生成する。
func NewWithOptions(baseURL string, opts Options) *Client {
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultOptions().ServiceName
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext
	transport.ResponseHeaderTimeout = opts.ReadTimeout

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.ConnectTimeout + opts.ReadTimeout,
		},
		baseURL: baseURL,
		opts:    opts,
		sleep:   sleepContext,
	}
}

// BaseURL は接続先のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	raw, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return decode(raw, result)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decode(raw, result)
}

// GetRaw は指定パスにGETリクエストを送信し、レスポンスボディをそのまま返す。
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// decode はレスポンスボディをresultにデシリアライズする。
func decode(raw []byte, result any) error {
	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
	}
	return nil
}

// do はリトライ付きでリクエストを実行し、2xxのレスポンスボディを返す。
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.Retry.MaxAttempts; attempt++ {
		raw, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable(ctx, err) || attempt == c.opts.Retry.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.opts.Retry.Backoff(attempt)); err != nil {
			return nil, fmt.Errorf("リトライ待機中に中断: %w", err)
		}
	}
	return nil, lastErr
}

// doOnce は1回分のHTTPリクエストを実行する。
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// コンテキストからユーザーIDと認証ヘッダーを伝播する
	if userID, ok := ctx.Value(contextKeyUserID).(string); ok && userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if auth, ok := ctx.Value(contextKeyAuthorization).(string); ok && auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(c.opts.ServiceName, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// transportError は接続失敗やタイムアウトなどレスポンスを受け取れなかったエラー。
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return "HTTPリクエストの送信に失敗: " + e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

// retryable は一時的な失敗（通信エラー、タイムアウト、502、503）かどうかを判定する。
// 呼び出し元のコンテキストが終了している場合はリトライしない。
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusBadGateway || se.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// sleepContext はdだけ待機する。ctxがキャンセルされた場合はエラーを返す。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// contextKey はコンテキストキーの型。
type contextKey string

const (
	// contextKeyUserID はコンテキストにユーザーIDを格納するためのキー。
	contextKeyUserID contextKey = "user_id"
	// contextKeyAuthorization はコンテキストにAuthorizationヘッダー値を格納するためのキー。
	contextKeyAuthorization contextKey = "authorization"
)

// WithUserID はコンテキストにユーザーIDを設定する。
// サービス間通信時にユーザーIDを伝播するために使用する。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// WithAuthorization はコンテキストにAuthorizationヘッダー値を設定する。
// 呼び出し元のBearerトークンをそのまま下流のサービスへ渡す場合に使用する。
func WithAuthorization(ctx context.Context, authorization string) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, authorization)
}
