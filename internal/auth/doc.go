// Package auth は認証サービスを提供する。
//
// ユーザー登録、ログイン、トークンの再発行、パスワード変更、
// 管理者によるアカウント停止を扱う。
// 他のサービス向けに /api/users でユーザーディレクトリも公開する。
package auth
