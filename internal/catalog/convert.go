package catalog

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/collectnyc/archive/internal/cms"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/security"
)

// creationDateLayout はCMSの日付フィールドの形式。
const creationDateLayout = "2006-01-02"

// MediaValidator はクライアントに返すメディアURLを検証する。
type MediaValidator interface {
	ValidateMediaURL(rawURL string) error
}

// Converter はCMSドキュメントをCatalogItemに変換する。
// 説明文はHTMLに展開してサニタイズし、安全でないメディアURLは除外する。
type Converter struct {
	sanitizer security.ContentSanitizerService
	media     MediaValidator
	logger    *slog.Logger
}

// NewConverter はConverterの新しいインスタンスを生成する。
func NewConverter(sanitizer security.ContentSanitizerService, media MediaValidator, logger *slog.Logger) *Converter {
	return &Converter{
		sanitizer: sanitizer,
		media:     media,
		logger:    logger,
	}
}

// Convert はドキュメント1件をCatalogItemに変換する。
func (c *Converter) Convert(doc cms.Document) model.CatalogItem {
	slug := doc.UID
	if slug == "" {
		slug = doc.ID
	}

	item := model.CatalogItem{
		Slug:              slug,
		Title:             firstText(doc.Data.Title),
		CreationDate:      c.parseDate(slug, doc.Data.CreationDate),
		Tags:              append([]string(nil), doc.Tags...),
		ComingSoon:        doc.Data.ComingSoon,
		PasswordProtected: doc.Data.PasswordProtected,
		SourceMediaCount:  len(doc.Data.Images),
	}

	for _, slot := range doc.Data.Images {
		if slot.Image.URL == "" {
			continue
		}
		if !c.safeMedia(slug, slot.Image.URL) {
			continue
		}
		item.Media = append(item.Media, model.MediaAsset{
			URL:    slot.Image.URL,
			Alt:    slot.Image.Alt,
			Width:  slot.Image.Dimensions.Width,
			Height: slot.Image.Dimensions.Height,
		})
	}

	if doc.Data.Thumbnail != nil && doc.Data.Thumbnail.URL != "" && c.safeMedia(slug, doc.Data.Thumbnail.URL) {
		item.Thumbnail = doc.Data.Thumbnail.URL
	}

	if raw := renderRichText(doc.Data.Description); raw != "" {
		item.DescriptionHTML = c.sanitizer.Sanitize(raw)
		item.DescriptionText = c.sanitizer.PlainText(c.sanitizer.Sanitize(renderRichText(doc.Data.Description[:1])))
	}

	return item
}

// ConvertAll はドキュメント列を受信順のまま変換する。
func (c *Converter) ConvertAll(docs []cms.Document) []model.CatalogItem {
	items := make([]model.CatalogItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, c.Convert(d))
	}
	return items
}

func (c *Converter) parseDate(slug, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(creationDateLayout, raw)
	if err != nil {
		c.logger.Debug("制作日の形式が不正なため未定として扱います",
			slog.String("slug", slug),
			slog.String("creation_date", raw),
		)
		return nil
	}
	return &t
}

func (c *Converter) safeMedia(slug, rawURL string) bool {
	if err := c.media.ValidateMediaURL(rawURL); err != nil {
		c.logger.Warn("安全でないメディアURLを除外しました",
			slog.String("slug", slug),
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// firstText は先頭ブロックのテキストを返す。
func firstText(blocks []cms.RichTextBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	return strings.TrimSpace(blocks[0].Text)
}

// renderRichText は構造化テキストをHTMLに展開する。
// 連続するlist-item/o-list-itemは1つのul/olにまとめる。
func renderRichText(blocks []cms.RichTextBlock) string {
	var b strings.Builder
	openList := ""

	closeList := func() {
		if openList != "" {
			b.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, blk := range blocks {
		text := html.EscapeString(blk.Text)

		switch blk.Type {
		case "list-item", "o-list-item":
			want := "ul"
			if blk.Type == "o-list-item" {
				want = "ol"
			}
			if openList != want {
				closeList()
				b.WriteString("<" + want + ">")
				openList = want
			}
			b.WriteString("<li>" + text + "</li>")
			continue
		}

		closeList()
		switch blk.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + strings.TrimPrefix(blk.Type, "heading")
			b.WriteString("<" + tag + ">" + text + "</" + tag + ">")
		case "preformatted":
			b.WriteString("<pre>" + text + "</pre>")
		default:
			if text == "" {
				continue
			}
			b.WriteString("<p>" + text + "</p>")
		}
	}
	closeList()

	return b.String()
}
