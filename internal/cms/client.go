// Package cms はヘッドレスCMS（Prismic REST API v2）のクライアントを提供する。
// マスターrefの取得、述語による検索、ページ単位の取得を行う。
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/collectnyc/archive/internal/model"
)

const (
	// userAgent はCMSへのリクエストに付与するUser-Agent。
	userAgent = "CollectArchive/1.0"
	// defaultMaxBodySize はレスポンスボディの最大サイズ（10MiB）。
	defaultMaxBodySize = 10 << 20
)

// ErrNoMasterRef はAPIルートにマスターrefが含まれない場合のエラー。
var ErrNoMasterRef = errors.New("cms: master ref not found")

// StatusError はCMSが200以外のステータスを返したことを表す。
type StatusError struct {
	StatusCode int
	URL        string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("cms: %s returned status %d", e.URL, e.StatusCode)
}

// PageRequest は検索APIの1ページ分のリクエストを表す。
type PageRequest struct {
	Ref          string
	DocumentType string
	Tag          model.TagRef
	PageSize     int
	Page         int
}

// Client はCMSのREST APIクライアント。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	endpoint    string // 例: https://collect.cdn.prismic.io/api/v2
	accessToken string
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。
// maxBodySizeが0以下の場合は10MiBを上限とする。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, accessToken string, maxBodySize int64) *Client {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		endpoint:    strings.TrimRight(endpoint, "/"),
		accessToken: accessToken,
		maxBodySize: maxBodySize,
	}
}

// MasterRef は公開済みコンテンツを指すマスターrefを取得する。
// 1回のカタログ走査の間は同じrefを使い、ページ間の不整合を防ぐ。
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("cms: invalid endpoint: %w", err)
	}
	if c.accessToken != "" {
		q := reqURL.Query()
		q.Set("access_token", c.accessToken)
		reqURL.RawQuery = q.Encode()
	}

	var info apiInfo
	if err := c.getJSON(ctx, reqURL, &info); err != nil {
		return "", err
	}

	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", ErrNoMasterRef
}

// QueryPage は検索APIから1ページ分のドキュメントを取得する。
func (c *Client) QueryPage(ctx context.Context, req PageRequest) (*SearchResponse, error) {
	reqURL, err := url.Parse(c.endpoint + "/documents/search")
	if err != nil {
		return nil, fmt.Errorf("cms: invalid endpoint: %w", err)
	}

	q := reqURL.Query()
	q.Set("ref", req.Ref)
	q.Set("q", buildQuery(req.DocumentType, req.Tag))
	q.Set("pageSize", strconv.Itoa(req.PageSize))
	q.Set("page", strconv.Itoa(req.Page))
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	reqURL.RawQuery = q.Encode()

	var resp SearchResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("CMSのページを取得しました",
		slog.String("document_type", req.DocumentType),
		slog.String("tag", req.Tag.Label()),
		slog.Int("page", req.Page),
		slog.Int("results", len(resp.Results)),
		slog.Bool("has_next", resp.HasNext()),
	)

	return &resp, nil
}

// GetByUID はUIDでドキュメントを1件取得する。見つからない場合はnilを返す。
func (c *Client) GetByUID(ctx context.Context, ref, documentType, uid string) (*Document, error) {
	reqURL, err := url.Parse(c.endpoint + "/documents/search")
	if err != nil {
		return nil, fmt.Errorf("cms: invalid endpoint: %w", err)
	}

	q := reqURL.Query()
	q.Set("ref", ref)
	q.Set("q", fmt.Sprintf("[[at(my.%s.uid,%s)]]", documentType, strconv.Quote(uid)))
	q.Set("pageSize", "1")
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	reqURL.RawQuery = q.Encode()

	var resp SearchResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// getJSON はGETリクエストを送信しJSONレスポンスをデコードする。
func (c *Client) getJSON(ctx context.Context, reqURL *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("cms: failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("CMSへのリクエストに失敗しました",
			slog.String("path", reqURL.Path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("cms: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("CMSがエラーステータスを返しました",
			slog.String("path", reqURL.Path),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{StatusCode: resp.StatusCode, URL: reqURL.Path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return fmt.Errorf("cms: failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("cms: failed to decode response: %w", err)
	}
	return nil
}

// buildQuery は検索述語を組み立てる。
// タグ名指定はdocument.tags、タグID指定はタググループのリンクフィールドで絞り込む。
func buildQuery(documentType string, tag model.TagRef) string {
	preds := []string{
		fmt.Sprintf("[at(document.type,%s)]", strconv.Quote(documentType)),
	}
	switch {
	case tag.ID != "":
		preds = append(preds, fmt.Sprintf("[at(my.%s.tags.tag,%s)]", documentType, strconv.Quote(tag.ID)))
	case tag.Name != "":
		preds = append(preds, fmt.Sprintf("[at(document.tags,[%s])]", strconv.Quote(tag.Name)))
	}
	return "[" + strings.Join(preds, "") + "]"
}
