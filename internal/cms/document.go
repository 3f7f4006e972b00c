package cms

// Document はCMSの検索APIが返すドキュメント（未変換）を表す。
type Document struct {
	ID   string       `json:"id"`
	UID  string       `json:"uid"`
	Type string       `json:"type"`
	Tags []string     `json:"tags"`
	Data DocumentData `json:"data"`
}

// DocumentData はarchive_item型ドキュメントのフィールド群。
type DocumentData struct {
	Title             []RichTextBlock `json:"title"`
	Description       []RichTextBlock `json:"description"`
	CreationDate      string          `json:"creation_date"` // YYYY-MM-DD。未設定時はnull
	Images            []ImageSlot     `json:"images"`
	ComingSoon        bool            `json:"coming_soon"`
	PasswordProtected bool            `json:"password_protected"`
	Thumbnail         *Image          `json:"thumbnail"`
	TagLinks          []TagLinkSlot   `json:"tags"`
}

// RichTextBlock は構造化テキストの1ブロック。
type RichTextBlock struct {
	Type string `json:"type"` // paragraph, heading1..6, preformatted, list-item, o-list-item
	Text string `json:"text"`
}

// ImageSlot はimagesグループの1要素。
type ImageSlot struct {
	Image Image `json:"image"`
}

// Image は画像フィールド。
type Image struct {
	URL        string     `json:"url"`
	Alt        string     `json:"alt"`
	Dimensions Dimensions `json:"dimensions"`
}

// Dimensions は画像の寸法。
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TagLinkSlot はタグドキュメントへのリンクを持つグループ要素。
type TagLinkSlot struct {
	Tag TagLink `json:"tag"`
}

// TagLink はtagドキュメントへのリンク。
type TagLink struct {
	ID   string `json:"id"`
	UID  string `json:"uid"`
	Type string `json:"type"`
}

// SearchResponse は検索APIの1ページ分のレスポンス。
// NextPageがnilの場合は最終ページ。
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	Results          []Document `json:"results"`
}

// HasNext は後続ページが存在するかを返す。
func (r *SearchResponse) HasNext() bool {
	return r.NextPage != nil && *r.NextPage != ""
}

// apiInfo はAPIルートのレスポンス（ref一覧のみ使用）。
type apiInfo struct {
	Refs []apiRef `json:"refs"`
}

type apiRef struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}
