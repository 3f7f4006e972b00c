// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// AllWorkLabel はフィルタ解除を表すセンチネルラベル。
const AllWorkLabel = "All Work"

// UndatedLabel は制作日が未設定のアイテムの年表示。
const UndatedLabel = "TBD"

// MediaAsset はアーカイブアイテムに含まれる画像・動画などのメディアを表す。
type MediaAsset struct {
	URL    string
	Alt    string
	Width  int
	Height int
}

// CatalogItem はアーカイブの1エントリを表す。
// Slugはカタログスナップショット内で一意。
type CatalogItem struct {
	Slug              string
	Title             string
	CreationDate      *time.Time // nilの場合は未定（TBD）として扱う
	Tags              []string   // 受信順を保持する
	Media             []MediaAsset
	SourceMediaCount  int // CMS上の画像スロット数（空・除外分を含む）
	ComingSoon        bool
	PasswordProtected bool
	Thumbnail         string
	DescriptionHTML   string // サニタイズ済みHTML
	DescriptionText   string // メタ情報用のプレーンテキスト
}

// Year は制作年を返す。制作日が未設定の場合は"TBD"を返す。
func (c CatalogItem) Year() string {
	if c.CreationDate == nil {
		return UndatedLabel
	}
	return c.CreationDate.Format("2006")
}

// MediaSlots は件数集計に使うメディア数を返す。
// CMS上のスロット数が分かっている場合はそれを使い、表示可能なメディア数より優先する。
func (c CatalogItem) MediaSlots() int {
	if c.SourceMediaCount > len(c.Media) {
		return c.SourceMediaCount
	}
	return len(c.Media)
}

// TagLine はタグを", "で連結した表示用文字列を返す。
func (c CatalogItem) TagLine() string {
	return strings.Join(c.Tags, ", ")
}

// ThumbnailURL はサムネイルのURLを返す。
// サムネイル未設定の場合は先頭メディアを使い、メディアがなければ空文字列を返す。
func (c CatalogItem) ThumbnailURL() string {
	if c.Thumbnail != "" {
		return c.Thumbnail
	}
	if len(c.Media) > 0 {
		return c.Media[0].URL
	}
	return ""
}

// TagRef はタグ絞り込みの指定を表す。
// CMSのAPIバリアントによって名前またはIDのどちらかで検索する。
type TagRef struct {
	Name string
	ID   string
}

// Label はUIに表示するフィルタラベルを返す。
func (t TagRef) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// IsZero は名前・IDの両方が未指定かを返す。
func (t TagRef) IsZero() bool {
	return t.Name == "" && t.ID == ""
}

// CatalogSnapshot はページネーション集約の結果。
// 1回の集約で生成され、以降は変更されない。
type CatalogSnapshot struct {
	items      []CatalogItem
	ItemCount  int
	MediaCount int
	TotalCount int
	CreatedAt  time.Time
}

// NewCatalogSnapshot はアイテム列から件数を計算してスナップショットを生成する。
func NewCatalogSnapshot(items []CatalogItem, now time.Time) *CatalogSnapshot {
	owned := make([]CatalogItem, len(items))
	copy(owned, items)

	media := 0
	for _, it := range owned {
		media += it.MediaSlots()
	}

	return &CatalogSnapshot{
		items:      owned,
		ItemCount:  len(owned),
		MediaCount: media,
		TotalCount: len(owned) + media,
		CreatedAt:  now,
	}
}

// Items はスナップショットのアイテム列のコピーを返す。
func (s *CatalogSnapshot) Items() []CatalogItem {
	out := make([]CatalogItem, len(s.items))
	copy(out, s.items)
	return out
}

// Find はslugに一致するアイテムを返す。見つからない場合はfalseを返す。
func (s *CatalogSnapshot) Find(slug string) (CatalogItem, bool) {
	for _, it := range s.items {
		if it.Slug == slug {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// CatalogCounts はナビゲーション表示用に永続化された件数。
type CatalogCounts struct {
	ItemCount   int
	MediaCount  int
	TotalCount  int
	RefreshedAt time.Time
}
