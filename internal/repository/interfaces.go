// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/collectnyc/archive/internal/model"
)

// ItemAccessRepository はアイテムのパスワードハッシュの永続化インターフェース。
type ItemAccessRepository interface {
	// FindBySlug は指定slugの認証情報を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.ItemAccess, error)

	// Upsert は認証情報を作成または更新する。
	Upsert(ctx context.Context, access *model.ItemAccess) error
}

// AccessAttemptRepository はパスワード照合の試行記録の永続化インターフェース。
type AccessAttemptRepository interface {
	// Create は試行記録を1件追加する。
	Create(ctx context.Context, attempt *model.AccessAttempt) error
}

// CatalogCountsRepository はナビゲーション用件数の永続化インターフェース。
type CatalogCountsRepository interface {
	// Save は件数を上書き保存する。
	Save(ctx context.Context, counts model.CatalogCounts) error

	// Latest は保存済みの件数を取得する。未保存の場合はnilを返す。
	Latest(ctx context.Context) (*model.CatalogCounts, error)
}
