package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/collectnyc/archive/internal/access"
	"github.com/collectnyc/archive/internal/model"
)

// TagQuerierInterface はタグ絞り込みエンドポイントが必要とするインターフェース。
type TagQuerierInterface interface {
	QueryTag(ctx context.Context, tag model.TagRef) ([]model.CatalogItem, error)
}

// VerifierInterface はパスワード照合エンドポイントが必要とするインターフェース。
type VerifierInterface interface {
	Verify(ctx context.Context, slug, candidate string) (model.VerifyResult, error)
}

// EndpointHandler はタグ絞り込みとパスワード照合のエンドポイントを提供する。
type EndpointHandler struct {
	querier  TagQuerierInterface
	verifier VerifierInterface
}

// NewEndpointHandler はEndpointHandlerを生成する。
func NewEndpointHandler(querier TagQuerierInterface, verifier VerifierInterface) *EndpointHandler {
	return &EndpointHandler{
		querier:  querier,
		verifier: verifier,
	}
}

// tagQueryRequest はタグ絞り込みリクエストのボディ。
// tagIdが指定された場合はIDで、それ以外はtagIdentifierOrNameをタグ名として検索する。
type tagQueryRequest struct {
	TagIdentifierOrName string `json:"tagIdentifierOrName"`
	TagID               string `json:"tagId"`
}

type tagQueryResponse struct {
	Results []catalogItemResponse `json:"results"`
}

type verifyRequest struct {
	ItemSlug          string `json:"itemSlug"`
	CandidatePassword string `json:"candidatePassword"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TagQuery は指定タグに属するアイテムを返す。
// POST /tag-query
// 該当なしの場合は空配列を返す。
func (h *EndpointHandler) TagQuery(w http.ResponseWriter, r *http.Request) {
	var req tagQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tag := model.TagRef{Name: req.TagIdentifierOrName, ID: req.TagID}
	if tag.IsZero() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTagError())
		return
	}

	items, err := h.querier.QueryTag(r.Context(), tag)
	if err != nil {
		handleServiceError(w, err, tag.Label())
		return
	}

	resp := tagQueryResponse{Results: make([]catalogItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Results = append(resp.Results, toCatalogItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Verify はアイテムのパスワードを照合する。
// POST /verify
// 照合失敗は200でsuccess=falseを返す。照合自体が行えない場合は503を返す。
func (h *EndpointHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.verifier.Verify(r.Context(), req.ItemSlug, req.CandidatePassword)
	if err != nil {
		if errors.Is(err, access.ErrEmptySlug) {
			handleServiceError(w, err, req.ItemSlug)
			return
		}
		slog.Error("パスワード照合に失敗しました",
			slog.String("slug", req.ItemSlug),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewVerifyUnavailableError())
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Success: result.Success,
		Message: result.Message,
	})
}
