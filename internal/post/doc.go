// Package post は投稿サービスを提供する。
//
// 投稿とコメントの作成・取得・編集・削除、いいね、検索、トレンドを扱う。
// 投稿者の情報はユーザーディレクトリから取得し、レスポンスに埋め込む。
package post
