package listing

import (
	"slices"
	"strings"

	"github.com/collectnyc/archive/internal/model"
)

// SortDirection はタイトル順ソートの状態。
type SortDirection int

const (
	SortUnset SortDirection = iota
	SortAscending
	SortDescending
)

// String は表示用の文字列を返す。未設定の場合は空文字列。
func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return ""
	}
}

// ChronoMode は制作日順ソートの状態。
type ChronoMode int

const (
	ChronoUnset ChronoMode = iota
	ChronoNewest
	ChronoOldest
)

// String は表示用の文字列を返す。未設定の場合は空文字列。
func (m ChronoMode) String() string {
	switch m {
	case ChronoNewest:
		return "newest"
	case ChronoOldest:
		return "oldest"
	default:
		return ""
	}
}

// sortKind は最後に適用したソートの種類。
type sortKind int

const (
	sortNone sortKind = iota
	sortAlpha
	sortChrono
)

// sortByTitle はタイトルの大文字小文字を区別するバイト列比較で安定ソートする。
func sortByTitle(items []model.CatalogItem, dir SortDirection) {
	slices.SortStableFunc(items, func(a, b model.CatalogItem) int {
		if dir == SortDescending {
			return strings.Compare(b.Title, a.Title)
		}
		return strings.Compare(a.Title, b.Title)
	})
}

// sortByDate は制作日で安定ソートする。
// 制作日のないアイテムはどちらの向きでも末尾に置く。
func sortByDate(items []model.CatalogItem, mode ChronoMode) {
	slices.SortStableFunc(items, func(a, b model.CatalogItem) int {
		switch {
		case a.CreationDate == nil && b.CreationDate == nil:
			return 0
		case a.CreationDate == nil:
			return 1
		case b.CreationDate == nil:
			return -1
		}
		if mode == ChronoNewest {
			return b.CreationDate.Compare(*a.CreationDate)
		}
		return a.CreationDate.Compare(*b.CreationDate)
	})
}
