package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "BadRequestは400", err: BadRequest("不正"), want: http.StatusBadRequest},
		{name: "Unauthorizedは401", err: Unauthorized("未認証"), want: http.StatusUnauthorized},
		{name: "Forbiddenは403", err: Forbidden("権限なし"), want: http.StatusForbidden},
		{name: "NotFoundは404", err: NotFound("なし"), want: http.StatusNotFound},
		{name: "Conflictは409", err: Conflict("重複"), want: http.StatusConflict},
		{name: "TooManyRequestsは429", err: New(KindTooManyRequests, "多すぎ"), want: http.StatusTooManyRequests},
		{name: "Unavailableは503", err: New(KindUnavailable, "停止中"), want: http.StatusServiceUnavailable},
		{name: "通常のエラーは500", err: errors.New("boom"), want: http.StatusInternalServerError},
		{name: "ラップされたNotFoundも404", err: fmt.Errorf("取得に失敗: %w", NotFound("なし")), want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	t.Run("アプリケーションエラーのメッセージを返す", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("wrap: %w", Forbidden("Not authorized to update this post"))
		assert.Equal(t, "Not authorized to update this post", Message(err, "fallback"))
	})

	t.Run("内部エラーはfallbackを返す", func(t *testing.T) {
		t.Parallel()
		err := Internal("DBエラー", errors.New("connection refused"))
		assert.Equal(t, "fallback", Message(err, "fallback"))
	})

	t.Run("原因エラーをUnwrapできる", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("cause")
		err := Wrap(KindUnavailable, "User Service unavailable", cause)
		assert.ErrorIs(t, err, cause)
		assert.True(t, Is(err, KindUnavailable))
		assert.Equal(t, "User Service unavailable: cause", err.Error())
	})
}
