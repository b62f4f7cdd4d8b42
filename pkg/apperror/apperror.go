// Package apperror はサービス層からハンドラ層へ伝えるアプリケーションエラーを提供する。
//
// エラーの種類（Kind）ごとにHTTPステータスコードが決まっており、
// ハンドラは errors.As でKindを取り出してレスポンスを組み立てる。
package apperror

import (
	"errors"
	"net/http"
)

// Kind はアプリケーションエラーの分類を表す。
type Kind int

const (
	// KindInternal は想定外の内部エラー。
	KindInternal Kind = iota
	// KindBadRequest はリクエスト内容の不備。
	KindBadRequest
	// KindUnauthorized は認証の失敗。
	KindUnauthorized
	// KindForbidden は権限不足（所有者以外の操作など）。
	KindForbidden
	// KindNotFound は対象リソースが存在しない。
	KindNotFound
	// KindConflict は一意制約違反など既存状態との衝突。
	KindConflict
	// KindTooManyRequests はレート制限超過。
	KindTooManyRequests
	// KindUnavailable は依存サービスが利用できない。
	KindUnavailable
)

// String はKindの名前を返す。
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error はKindとクライアント向けメッセージを持つエラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Message はレスポンスボディに載せるメッセージ。
	Message string
	// Err は原因となったエラー。
	Err error
}

// Error はエラーメッセージを返す。
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// New は指定したKindのエラーを生成する。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は原因エラーを保持したまま指定したKindのエラーを生成する。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// BadRequest はKindBadRequestのエラーを生成する。
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// Unauthorized はKindUnauthorizedのエラーを生成する。
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Forbidden はKindForbiddenのエラーを生成する。
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound はKindNotFoundのエラーを生成する。
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Conflict はKindConflictのエラーを生成する。
func Conflict(message string) *Error { return New(KindConflict, message) }

// Internal は原因エラーを包んだKindInternalのエラーを生成する。
func Internal(message string, err error) *Error { return Wrap(KindInternal, message, err) }

// KindOf はエラーチェーンからKindを取り出す。
// apperror.Error を含まないエラーは KindInternal とみなす。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is はエラーが指定したKindかどうかを判定する。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message はクライアントに返すメッセージを取り出す。
// 内部エラーの詳細は外部に出さず、fallbackを返す。
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return fallback
}

// HTTPStatus はエラーに対応するHTTPステータスコードを返す。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
