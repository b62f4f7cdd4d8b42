package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
		wantHandler bool
	}{
		{
			name:        "許可されたオリジンにCORSヘッダーが設定されること",
			allowed:     []string{"http://localhost:3000", "https://example.com"},
			method:      http.MethodGet,
			origin:      "https://example.com",
			wantStatus:  http.StatusOK,
			wantAllowed: "https://example.com",
			wantHandler: true,
		},
		{
			name:        "許可されていないオリジンにはCORSヘッダーが設定されないこと",
			allowed:     []string{"http://localhost:3000"},
			method:      http.MethodGet,
			origin:      "https://evil.example.com",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "Originヘッダーが無い場合はCORSヘッダーが設定されないこと",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "ワイルドカードではすべてのオリジンが許可されること",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			origin:      "https://any.example.com",
			wantStatus:  http.StatusOK,
			wantAllowed: "https://any.example.com",
			wantHandler: true,
		},
		{
			name:        "OPTIONSリクエストで204が返りハンドラーが実行されないこと",
			allowed:     []string{"http://localhost:3000"},
			method:      http.MethodOptions,
			origin:      "http://localhost:3000",
			wantStatus:  http.StatusNoContent,
			wantAllowed: "http://localhost:3000",
		},
		{
			name:       "許可されていないオリジンのOPTIONSでも204が返ること",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodOptions,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handlerCalled := false
			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.Handle(tt.method, "/test", func(c *gin.Context) {
				handlerCalled = true
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllowed)
			}
			if handlerCalled != tt.wantHandler {
				t.Errorf("ハンドラー実行 = %v, want %v", handlerCalled, tt.wantHandler)
			}
			if tt.wantAllowed != "" {
				if got := w.Header().Get("Access-Control-Expose-Headers"); got != HeaderRequestID {
					t.Errorf("Access-Control-Expose-Headers = %q, want %q", got, HeaderRequestID)
				}
				if got := w.Header().Get("Vary"); got != "Origin" {
					t.Errorf("Vary = %q, want %q", got, "Origin")
				}
			}
		})
	}
}
