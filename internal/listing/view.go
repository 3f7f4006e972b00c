package listing

import (
	"fmt"

	"github.com/collectnyc/archive/internal/model"
)

// Row は一覧の1行分の表示用データ。
type Row struct {
	Slug       string
	Title      string
	Tags       string
	Year       string
	Thumbnail  string
	ComingSoon bool
	Protected  bool
}

// View はプレゼンテーション層に渡す一覧の描画結果。
type View struct {
	Rows         []Row
	Layout       Layout
	Filter       string
	AlphaSort    string
	DateSort     string
	EmptyMessage string
	Error        string
	ItemCount    int
	TotalCount   int
}

// View は現在の状態から描画結果を組み立てる。
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Rows:       make([]Row, 0, len(c.items)),
		Layout:     c.layout,
		AlphaSort:  c.alpha.String(),
		DateSort:   c.chrono.String(),
		ItemCount:  c.snapshot.ItemCount,
		TotalCount: c.snapshot.TotalCount,
	}
	if c.filter != nil {
		v.Filter = *c.filter
	}
	if c.lastErr != nil {
		v.Error = model.NewFilterFetchFailedError(c.lastErr.Tag.Label()).Message
	}

	for _, it := range c.items {
		v.Rows = append(v.Rows, rowOf(it))
	}

	if len(v.Rows) == 0 && v.Filter != "" && v.Filter != model.AllWorkLabel {
		v.EmptyMessage = EmptyMessage(v.Filter)
	}

	return v
}

// EmptyMessage はタグ絞り込みの結果が0件の場合のメッセージを返す。
func EmptyMessage(label string) string {
	return fmt.Sprintf("No \"%s\" items found.", label)
}

func rowOf(it model.CatalogItem) Row {
	return Row{
		Slug:       it.Slug,
		Title:      it.Title,
		Tags:       it.TagLine(),
		Year:       it.Year(),
		Thumbnail:  it.ThumbnailURL(),
		ComingSoon: it.ComingSoon,
		Protected:  it.PasswordProtected,
	}
}
