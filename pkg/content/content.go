package content

import (
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/nao1215/pulse/pkg/apperror"
)

// 既定の上限値。
const (
	// DefaultMaxPostLength は投稿本文の最大文字数。
	DefaultMaxPostLength = 2000
	// DefaultMaxCommentLength はコメント本文の最大文字数。
	DefaultMaxCommentLength = 500
	// DefaultMaxImages は1投稿に添付できる画像の最大数。
	DefaultMaxImages = 10
)

var (
	// urlPattern はhttp(s)のURL。
	urlPattern = regexp.MustCompile(`https?://[\w-]+(\.[\w-]+)+([\w.,@?^=%&:/~+#-]*[\w@?^=%&/~+#-])?`)
	// fullURLPattern は文字列全体がURLであることを検証する。
	fullURLPattern = regexp.MustCompile(`^` + urlPattern.String() + `$`)
	// hashtagPattern はハッシュタグ。
	hashtagPattern = regexp.MustCompile(`#\w+`)
	// mentionPattern はメンション。
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// suspiciousPatterns はスクリプト実行につながる文字列。
var suspiciousPatterns = []string{
	"<script",
	"javascript:",
	"onload=",
	"onerror=",
	"onclick=",
	"data:text/html",
	"vbscript:",
	"expression(",
}

// suspiciousRegexps は suspiciousPatterns を大文字小文字を区別せずに除去する正規表現。
var suspiciousRegexps = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(suspiciousPatterns))
	for _, p := range suspiciousPatterns {
		res = append(res, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
	}
	return res
}()

// dangerousSchemes はURLとして受け付けないスキーム。
var dangerousSchemes = []string{"javascript:", "data:", "vbscript:"}

// 添付可能な拡張子。
var (
	allowedImageTypes = []string{"jpg", "jpeg", "png", "gif", "webp"}
	allowedVideoTypes = []string{"mp4", "webm", "mov"}
)

// Validator は本文と添付URLを検証する。
type Validator struct {
	// MaxPostLength は投稿本文の最大文字数。
	MaxPostLength int
	// MaxCommentLength はコメント本文の最大文字数。
	MaxCommentLength int
	// MaxImages は添付画像の最大数。
	MaxImages int
}

// NewValidator は既定値のValidatorを生成する。
func NewValidator() *Validator {
	return &Validator{
		MaxPostLength:    DefaultMaxPostLength,
		MaxCommentLength: DefaultMaxCommentLength,
		MaxImages:        DefaultMaxImages,
	}
}

// ValidatePost は投稿本文を検証し、サニタイズ済みの本文を返す。
func (v *Validator) ValidatePost(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", apperror.BadRequest("投稿内容を入力してください")
	}
	if utf8.RuneCountInString(s) > v.MaxPostLength {
		return "", apperror.BadRequest(fmt.Sprintf("投稿内容は%d文字以内で入力してください", v.MaxPostLength))
	}
	return Sanitize(s), nil
}

// ValidateComment はコメント本文を検証し、サニタイズ済みの本文を返す。
func (v *Validator) ValidateComment(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", apperror.BadRequest("コメント内容を入力してください")
	}
	if utf8.RuneCountInString(s) > v.MaxCommentLength {
		return "", apperror.BadRequest(fmt.Sprintf("コメント内容は%d文字以内で入力してください", v.MaxCommentLength))
	}
	return Sanitize(s), nil
}

// ValidateImageURLs は添付画像のURLを検証する。
func (v *Validator) ValidateImageURLs(urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	if len(urls) > v.MaxImages {
		return apperror.BadRequest(fmt.Sprintf("画像は%d枚まで添付できます", v.MaxImages))
	}
	for _, u := range urls {
		if err := validateURL(u); err != nil {
			return err
		}
		ext := strings.ToLower(FileExtension(u))
		if !slices.Contains(allowedImageTypes, ext) || mediaKind(ext) != "image" {
			return apperror.BadRequest(fmt.Sprintf("画像の形式が不正です: %s（使用可能: %s）", ext, strings.Join(allowedImageTypes, ",")))
		}
	}
	return nil
}

// ValidateVideoURL は添付動画のURLを検証する。空文字列は添付なしとして扱う。
func (v *Validator) ValidateVideoURL(u string) error {
	if strings.TrimSpace(u) == "" {
		return nil
	}
	if err := validateURL(u); err != nil {
		return err
	}
	ext := strings.ToLower(FileExtension(u))
	if !slices.Contains(allowedVideoTypes, ext) || mediaKind(ext) != "video" {
		return apperror.BadRequest(fmt.Sprintf("動画の形式が不正です: %s（使用可能: %s）", ext, strings.Join(allowedVideoTypes, ",")))
	}
	return nil
}

// mediaKind は拡張子からMIMEのトップレベル型（image、video）を返す。
func mediaKind(ext string) string {
	if ext == "jpeg" {
		ext = "jpg"
	}
	return filetype.GetType(ext).MIME.Type
}

// validateURL はURLの形式とスキームを検証する。
func validateURL(u string) error {
	if !fullURLPattern.MatchString(u) {
		return apperror.BadRequest("URLの形式が不正です: " + u)
	}
	lower := strings.ToLower(u)
	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(lower, scheme) {
			return apperror.BadRequest("使用できないURLスキームです: " + u)
		}
	}
	return nil
}

// Sanitize はHTMLをエスケープし、危険なパターンを除去して前後の空白を取り除く。
func Sanitize(s string) string {
	sanitized := html.EscapeString(s)
	for _, re := range suspiciousRegexps {
		sanitized = re.ReplaceAllLiteralString(sanitized, "")
	}
	return strings.TrimSpace(sanitized)
}

// IsAppropriate は危険なパターンを含まないかどうかを返す。
func IsAppropriate(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// ExtractHashtags はハッシュタグを小文字にして出現順に重複なく返す。
func ExtractHashtags(s string) []string {
	return distinct(hashtagPattern.FindAllString(s, -1), strings.ToLower)
}

// ExtractMentions はメンションされたユーザー名を @ を除いて出現順に重複なく返す。
func ExtractMentions(s string) []string {
	return distinct(mentionPattern.FindAllString(s, -1), func(m string) string {
		return strings.TrimPrefix(m, "@")
	})
}

// ExtractURLs は本文中のURLを出現順に重複なく返す。
func ExtractURLs(s string) []string {
	return distinct(urlPattern.FindAllString(s, -1), func(u string) string { return u })
}

// distinct は変換後の値を出現順に重複なく返す。
func distinct(matches []string, conv func(string) string) []string {
	result := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		v := conv(m)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// FileExtension はURLの最後のパス要素の拡張子を返す。拡張子が無い場合は空文字列を返す。
func FileExtension(u string) string {
	dot := strings.LastIndex(u, ".")
	slash := strings.LastIndex(u, "/")
	if dot > slash && dot < len(u)-1 {
		return u[dot+1:]
	}
	return ""
}
