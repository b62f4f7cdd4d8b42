package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestFromQuery はクエリパラメータの解釈を検証する。
func TestFromQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  Request
	}{
		{name: "未指定は既定値になること", query: "", want: Request{Page: 0, Size: 20}},
		{name: "指定値が使われること", query: "?page=3&size=5", want: Request{Page: 3, Size: 5}},
		{name: "上限を超えるsizeは100になること", query: "?size=1000", want: Request{Page: 0, Size: 100}},
		{name: "負の値や数値以外は既定値になること", query: "?page=-1&size=abc", want: Request{Page: 0, Size: 20}},
		{name: "size=0は既定値になること", query: "?size=0", want: Request{Page: 0, Size: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			assert.Equal(t, tt.want, FromQuery(c))
		})
	}
}

// TestNewPage はページ情報の計算を検証する。
func TestNewPage(t *testing.T) {
	t.Parallel()

	t.Run("中間ページ", func(t *testing.T) {
		t.Parallel()

		p := NewPage([]int{4, 5, 6}, New(1, 3), 10)
		assert.Equal(t, 4, p.TotalPages)
		assert.Equal(t, 3, New(1, 3).Offset())
		assert.False(t, p.First)
		assert.False(t, p.Last)
		assert.False(t, p.Empty)
	})

	t.Run("最終ページ", func(t *testing.T) {
		t.Parallel()

		p := NewPage([]int{10}, New(3, 3), 10)
		assert.True(t, p.Last)
	})

	t.Run("0件の場合は空配列になること", func(t *testing.T) {
		t.Parallel()

		p := NewPage[int](nil, New(0, 20), 0)
		assert.NotNil(t, p.Content)
		assert.Equal(t, 0, p.TotalPages)
		assert.True(t, p.First)
		assert.True(t, p.Last)
		assert.True(t, p.Empty)
	})

	t.Run("Mapで要素を変換してもページ情報が保たれること", func(t *testing.T) {
		t.Parallel()

		p := Map(NewPage([]int{1, 2}, New(0, 2), 5), strconv.Itoa)
		assert.Equal(t, []string{"1", "2"}, p.Content)
		assert.Equal(t, int64(5), p.TotalElements)
		assert.Equal(t, 3, p.TotalPages)
	})
}

// TestFromQuerySize は既定件数の指定を検証する。
func TestFromQuerySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  Request
	}{
		{name: "size未指定は既定件数になること", query: "/?page=2", want: Request{Page: 2, Size: 10}},
		{name: "sizeを指定できること", query: "/?size=" + strconv.Itoa(7), want: Request{Page: 0, Size: 7}},
		{name: "size=0は既定件数になること", query: "/?size=0", want: Request{Page: 0, Size: 10}},
		{name: "負のsizeは既定件数になること", query: "/?size=-5", want: Request{Page: 0, Size: 10}},
		{name: "巨大なpageは上限に丸められること", query: "/?page=" + strconv.Itoa(math.MaxInt), want: Request{Page: MaxPage, Size: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.query, nil)
			assert.Equal(t, tt.want, FromQuerySize(c, 10))
		})
	}
}

// TestOffsetUpperBound はページ番号が大きくても Offset が溢れないことを検証する。
func TestOffsetUpperBound(t *testing.T) {
	t.Parallel()

	r := New(math.MaxInt, MaxSize)
	assert.Equal(t, MaxPage, r.Page)
	assert.Positive(t, r.Offset())
	assert.LessOrEqual(t, r.Offset(), math.MaxInt32)
}
