// Package content は投稿・コメント本文の検証とサニタイズを提供する。
//
// HTMLエスケープと危険なパターンの除去、長さの検証、添付URLの検証、
// ハッシュタグ・メンション・URLの抽出を行う。
package content
