// Package userclient はユーザーディレクトリ（認証サービスの /api/users）を参照するクライアントを提供する。
//
// 取得結果はRedisにキャッシュし、複数ユーザーの取得は最大10並列で行う。
// ユーザー情報の取得に失敗しても投稿の表示は継続できるよう、
// FindUser や GetUsersByIDs はエラーをログに出して nil を返す。
package userclient
