package userclient

import (
	"time"

	"github.com/tidwall/gjson"
)

// StatusActive は利用可能なユーザーの状態。
const StatusActive = "ACTIVE"

// unknownUsername はユーザー情報を取得できない場合のユーザー名。
const unknownUsername = "unknown_user"

// unknownDisplayName はユーザー情報を取得できない場合の表示名。
const unknownDisplayName = "Unknown User"

// User はユーザーディレクトリから取得したユーザー情報。
type User struct {
	// ID はユーザーID。
	ID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// DisplayName は表示名。
	DisplayName string `json:"display_name"`
	// Bio は自己紹介文。
	Bio string `json:"bio"`
	// AvatarURL はアバター画像のURL。
	AvatarURL string `json:"avatar_url"`
	// Verified は認証済みアカウントかどうか。
	Verified bool `json:"verified"`
	// Status はアカウントの状態（ACTIVE、BANNED など）。
	Status string `json:"status"`
	// FollowersCount はフォロワー数。
	FollowersCount int `json:"followers_count"`
	// FollowingCount はフォロー数。
	FollowingCount int `json:"following_count"`
	// CreatedAt はアカウント作成日時。
	CreatedAt time.Time `json:"created_at"`
}

// IsActive はアカウントが利用可能かどうかを返す。
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

// Name は表示名、無ければユーザー名を返す。
func (u *User) Name() string {
	if u == nil {
		return unknownDisplayName
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return unknownDisplayName
}

// UnknownUser はユーザー情報を取得できなかった場合の代替ユーザーを返す。
func UnknownUser(id string) *User {
	return &User{
		ID:          id,
		Username:    unknownUsername,
		DisplayName: unknownDisplayName,
		Status:      "UNKNOWN",
	}
}

// str はsnake_caseとcamelCaseのどちらかで入っている文字列フィールドを取り出す。
func str(r gjson.Result, snake, camel string) string {
	if v := r.Get(snake); v.Exists() {
		return v.String()
	}
	return r.Get(camel).String()
}

// num はsnake_caseとcamelCaseのどちらかで入っている数値フィールドを取り出す。
func num(r gjson.Result, snake, camel string) int {
	if v := r.Get(snake); v.Exists() {
		return int(v.Int())
	}
	return int(r.Get(camel).Int())
}

// userFromJSON はユーザーのJSONオブジェクトをUserに変換する。
// IDが無い場合は nil を返す。
func userFromJSON(r gjson.Result) *User {
	if !r.IsObject() {
		return nil
	}
	id := r.Get("id").String()
	if id == "" {
		return nil
	}
	u := &User{
		ID:             id,
		Username:       r.Get("username").String(),
		DisplayName:    str(r, "display_name", "displayName"),
		Bio:            r.Get("bio").String(),
		AvatarURL:      str(r, "avatar_url", "avatarUrl"),
		Verified:       r.Get("verified").Bool(),
		Status:         r.Get("status").String(),
		FollowersCount: num(r, "followers_count", "followersCount"),
		FollowingCount: num(r, "following_count", "followingCount"),
	}
	if created := str(r, "created_at", "createdAt"); created != "" {
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			u.CreatedAt = t
		}
	}
	return u
}

// parseUserEnvelope は {success, data:{user}} 形式のレスポンスからユーザーを取り出す。
// data 自体がユーザーオブジェクトの形式も受け付ける。
func parseUserEnvelope(body []byte) *User {
	root := gjson.ParseBytes(body)
	if s := root.Get("success"); s.Exists() && !s.Bool() {
		return nil
	}
	if u := userFromJSON(root.Get("data.user")); u != nil {
		return u
	}
	return userFromJSON(root.Get("data"))
}
