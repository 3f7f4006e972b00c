// Package viewer はアイテム1件の閲覧セッション（メディアカルーセル、
// キーボード操作、パスワードによるアクセス制御）を提供する。
package viewer

import (
	"errors"
	"strconv"
)

// ErrNoMedia はメディアを持たないアイテムでカルーセルを生成しようとしたことを表す。
var ErrNoMedia = errors.New("viewer: item has no media")

// Carousel はメディア列上の循環インデックス。
// 末尾の次は先頭、先頭の前は末尾に戻る。
type Carousel struct {
	index int
	total int
}

// NewCarousel はtotal件のメディアに対するCarouselを生成する。
// totalが0以下の場合はErrNoMediaを返す。
func NewCarousel(total int) (*Carousel, error) {
	if total <= 0 {
		return nil, ErrNoMedia
	}
	return &Carousel{total: total}, nil
}

// Next は次のメディアに進み、新しいインデックスを返す。
func (c *Carousel) Next() int {
	c.index = (c.index + 1) % c.total
	return c.index
}

// Prev は前のメディアに戻り、新しいインデックスを返す。
func (c *Carousel) Prev() int {
	c.index = (c.index - 1 + c.total) % c.total
	return c.index
}

// Index は現在のインデックス（0始まり）を返す。
func (c *Carousel) Index() int {
	return c.index
}

// Total はメディアの件数を返す。
func (c *Carousel) Total() int {
	return c.total
}

// Position は"3/12"形式（1始まり）の位置表示を返す。
func (c *Carousel) Position() string {
	return strconv.Itoa(c.index+1) + "/" + strconv.Itoa(c.total)
}
