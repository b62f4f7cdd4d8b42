// Package tweet はツイートサービスを提供する。
//
// 280文字以内の短いツイートとコメント、いいねを扱う。
// 利用者の識別にはJWTのユーザー名を使う。
package tweet
