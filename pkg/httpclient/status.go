package httpclient

import (
	"fmt"
	"net/http"

	"github.com/nao1215/pulse/pkg/apperror"
)

// StatusError は2xx以外のレスポンスを表す。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Message はステータスコードに対応するメッセージ。
	Message string
	// Body はレスポンスボディ。
	Body []byte
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status=%d)", e.Message, e.StatusCode)
}

// statusMessage はステータスコードに対応するメッセージを返す。
func statusMessage(service string, status int) string {
	switch status {
	case http.StatusBadRequest:
		return service + "へのリクエストが不正です"
	case http.StatusUnauthorized:
		return service + "への認証に失敗しました"
	case http.StatusForbidden:
		return service + "へのアクセスが拒否されました"
	case http.StatusNotFound:
		return service + "にユーザーが見つかりません"
	case http.StatusTooManyRequests:
		return service + "のレート制限を超過しました"
	case http.StatusInternalServerError:
		return service + "で内部エラーが発生しました"
	case http.StatusBadGateway:
		return service + "を利用できません"
	case http.StatusServiceUnavailable:
		return service + "が一時的に利用できません"
	default:
		return fmt.Sprintf("%sがステータス %d を返しました", service, status)
	}
}

// statusKind はステータスコードに対応するアプリケーションエラーの種類を返す。
func statusKind(status int) apperror.Kind {
	switch status {
	case http.StatusBadRequest:
		return apperror.KindBadRequest
	case http.StatusUnauthorized:
		return apperror.KindUnauthorized
	case http.StatusForbidden:
		return apperror.KindForbidden
	case http.StatusNotFound:
		return apperror.KindNotFound
	case http.StatusTooManyRequests:
		return apperror.KindTooManyRequests
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return apperror.KindUnavailable
	default:
		return apperror.KindInternal
	}
}

// newStatusError はステータスコードからアプリケーションエラーを生成する。
// 返り値は *apperror.Error で、原因として *StatusError を保持する。
func newStatusError(service string, status int, body []byte) error {
	se := &StatusError{
		StatusCode: status,
		Message:    statusMessage(service, status),
		Body:       body,
	}
	return apperror.Wrap(statusKind(status), se.Message, se)
}
