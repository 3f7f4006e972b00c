// Package model はドメインモデルを定義する。
package model

import "time"

// ItemAccess はパスワード保護されたアイテムの認証情報を表す。
type ItemAccess struct {
	Slug         string
	PasswordHash string // bcryptハッシュ
	UpdatedAt    time.Time
}

// AccessAttempt はパスワード照合の試行記録を表す。
type AccessAttempt struct {
	ID        string
	Slug      string
	Success   bool
	CreatedAt time.Time
}

// VerifyResult はパスワード照合エンドポイントのレスポンスを表す。
// 失敗時はMessageにユーザー向けの理由が入る。
type VerifyResult struct {
	Success bool
	Message string
}
