// Package pagination はページ番号ベースのページングを提供する。
package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultSize は size 未指定時の1ページあたりの件数。
	DefaultSize = 20
	// MaxSize は1ページあたりの最大件数。
	MaxSize = 100
	// MaxPage はページ番号の上限。Offset が int32 の範囲に収まるようにする。
	MaxPage = math.MaxInt32 / MaxSize
)

// Request はページング条件。Page は0始まり。
type Request struct {
	// Page はページ番号（0始まり）。
	Page int
	// Size は1ページあたりの件数。
	Size int
}

// FromQuery はクエリパラメータ page と size からページング条件を組み立てる。
// 不正な値は既定値に置き換え、size は MaxSize で頭打ちにする。
func FromQuery(c *gin.Context) Request {
	return FromQuerySize(c, DefaultSize)
}

// FromQuerySize は size 未指定時の件数を指定してページング条件を組み立てる。
// size が0以下の場合も defaultSize を使う。
func FromQuerySize(c *gin.Context, defaultSize int) Request {
	return normalize(atoi(c.Query("page"), 0), atoi(c.Query("size"), defaultSize), defaultSize)
}

// New はページング条件を正規化して生成する。
func New(page, size int) Request {
	return normalize(page, size, DefaultSize)
}

func normalize(page, size, defaultSize int) Request {
	if page < 0 {
		page = 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	if defaultSize <= 0 {
		defaultSize = DefaultSize
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Request{Page: page, Size: size}
}

// Offset はSQLのOFFSETを返す。
func (r Request) Offset() int {
	return r.Page * r.Size
}

// atoi は文字列を整数に変換する。変換できない場合は def を返す。
func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Page はページングされた結果。
type Page[T any] struct {
	// Content はこのページの要素。
	Content []T `json:"content"`
	// Page はページ番号（0始まり）。
	Page int `json:"page"`
	// Size は1ページあたりの件数。
	Size int `json:"size"`
	// TotalElements は全件数。
	TotalElements int64 `json:"total_elements"`
	// TotalPages は全ページ数。
	TotalPages int `json:"total_pages"`
	// First は先頭ページかどうか。
	First bool `json:"first"`
	// Last は最終ページかどうか。
	Last bool `json:"last"`
	// Empty はこのページが空かどうか。
	Empty bool `json:"empty"`
}

// NewPage はページング結果を生成する。
func NewPage[T any](content []T, req Request, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         req.Page == 0,
		Last:          req.Page+1 >= totalPages,
		Empty:         len(content) == 0,
	}
}

// Map はページの要素を変換する。ページ情報はそのまま引き継ぐ。
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, len(p.Content))
	for i, v := range p.Content {
		content[i] = fn(v)
	}
	return Page[U]{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
		Empty:         p.Empty,
	}
}
