// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// 投稿サービスからユーザーディレクトリ（認証サービス）を呼び出す際に使用する。
// 接続・読み取りのタイムアウト、一時的な失敗に対する指数バックオフ付きリトライ、
// ステータスコードからアプリケーションエラーへの変換を共通化する。
package httpclient
