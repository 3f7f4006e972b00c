package handler

import (
	"github.com/collectnyc/archive/internal/listing"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/viewer"
)

// catalogViewResponse は一覧画面のAPIレスポンス。
type catalogViewResponse struct {
	Rows         []rowResponse `json:"rows"`
	Layout       string        `json:"layout"`
	Filter       string        `json:"filter"`
	AlphaSort    string        `json:"alpha_sort,omitempty"`
	DateSort     string        `json:"date_sort,omitempty"`
	EmptyMessage string        `json:"empty_message,omitempty"`
	Error        string        `json:"error,omitempty"`
	ItemCount    int           `json:"item_count"`
	TotalCount   int           `json:"total_count"`
}

type rowResponse struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Tags       string `json:"tags"`
	Year       string `json:"year"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	ComingSoon bool   `json:"coming_soon"`
	Protected  bool   `json:"protected"`
}

func toCatalogViewResponse(v listing.View) catalogViewResponse {
	resp := catalogViewResponse{
		Rows:         make([]rowResponse, 0, len(v.Rows)),
		Layout:       string(v.Layout),
		Filter:       v.Filter,
		AlphaSort:    v.AlphaSort,
		DateSort:     v.DateSort,
		EmptyMessage: v.EmptyMessage,
		Error:        v.Error,
		ItemCount:    v.ItemCount,
		TotalCount:   v.TotalCount,
	}
	if resp.Filter == "" {
		resp.Filter = model.AllWorkLabel
	}
	for _, row := range v.Rows {
		resp.Rows = append(resp.Rows, rowResponse(row))
	}
	return resp
}

type mediaResponse struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// itemViewResponse は閲覧画面のAPIレスポンス。
// 施錠中はmediaを含めない。positionはメディアが2件以上の場合のみ含める。
type itemViewResponse struct {
	ViewerID        string         `json:"viewer_id"`
	Slug            string         `json:"slug"`
	Title           string         `json:"title"`
	Tags            []string       `json:"tags"`
	TagLine         string         `json:"tag_line"`
	Year            string         `json:"year"`
	DescriptionHTML string         `json:"description_html"`
	MetaDescription string         `json:"meta_description"`
	ComingSoon      bool           `json:"coming_soon"`
	Locked          bool           `json:"locked"`
	GateError       string         `json:"gate_error,omitempty"`
	Media           *mediaResponse `json:"media,omitempty"`
	Index           int            `json:"index"`
	Total           int            `json:"total"`
	Position        string         `json:"position,omitempty"`
	Closed          bool           `json:"closed"`
}

func toItemViewResponse(v viewer.ItemView) itemViewResponse {
	resp := itemViewResponse{
		ViewerID:        v.SessionID,
		Slug:            v.Slug,
		Title:           v.Title,
		Tags:            v.Tags,
		TagLine:         v.TagLine,
		Year:            v.Year,
		DescriptionHTML: v.DescriptionHTML,
		MetaDescription: v.MetaDescription,
		ComingSoon:      v.ComingSoon,
		Locked:          v.Locked,
		GateError:       v.GateError,
		Index:           v.Index,
		Total:           v.Total,
		Position:        v.Position,
		Closed:          v.Closed,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if v.Media != nil {
		m := toMediaResponse(*v.Media)
		resp.Media = &m
	}
	return resp
}

func toMediaResponse(m model.MediaAsset) mediaResponse {
	return mediaResponse{URL: m.URL, Alt: m.Alt, Width: m.Width, Height: m.Height}
}

// catalogItemResponse はタグ絞り込みエンドポイントが返すアイテム。
type catalogItemResponse struct {
	Slug              string          `json:"slug"`
	Title             string          `json:"title"`
	CreationDate      *string         `json:"creation_date"`
	Year              string          `json:"year"`
	Tags              []string        `json:"tags"`
	Media             []mediaResponse `json:"media"`
	ComingSoon        bool            `json:"coming_soon"`
	PasswordProtected bool            `json:"password_protected"`
	Thumbnail         string          `json:"thumbnail,omitempty"`
	DescriptionHTML   string          `json:"description_html,omitempty"`
}

func toCatalogItemResponse(it model.CatalogItem) catalogItemResponse {
	resp := catalogItemResponse{
		Slug:              it.Slug,
		Title:             it.Title,
		Year:              it.Year(),
		Tags:              append([]string{}, it.Tags...),
		Media:             make([]mediaResponse, 0, len(it.Media)),
		ComingSoon:        it.ComingSoon,
		PasswordProtected: it.PasswordProtected,
		Thumbnail:         it.ThumbnailURL(),
		DescriptionHTML:   it.DescriptionHTML,
	}
	if it.CreationDate != nil {
		d := it.CreationDate.Format("2006-01-02")
		resp.CreationDate = &d
	}
	for _, m := range it.Media {
		resp.Media = append(resp.Media, toMediaResponse(m))
	}
	return resp
}
