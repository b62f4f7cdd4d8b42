// Package event はサービス間で通知するドメインイベントとその配信を提供する。
//
// イベントは pulse.<aggregate>.<event> のサブジェクトでNATSに配信する。
// NATS_URL が未設定の場合は配信しない。
package event
