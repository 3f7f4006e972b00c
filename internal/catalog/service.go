package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/collectnyc/archive/internal/cms"
	"github.com/collectnyc/archive/internal/model"
)

// ErrEmptyTag はタグ名・IDのどちらも指定されていないことを表す。
var ErrEmptyTag = errors.New("catalog: tag name or id is required")

// DocumentSource はUID指定でドキュメントを1件取得するソース。
// *cms.Client が実装する。
type DocumentSource interface {
	MasterRef(ctx context.Context) (string, error)
	GetByUID(ctx context.Context, ref, documentType, uid string) (*cms.Document, error)
}

// CountsReader は永続化済みのカタログ件数を読み取る。
type CountsReader interface {
	// Latest は最新の件数を返す。未保存の場合はnilを返す。
	Latest(ctx context.Context) (*model.CatalogCounts, error)
}

// Service はカタログの取得・タグ絞り込み・単一アイテム取得・件数取得を提供する。
type Service struct {
	aggregator   *Aggregator
	documents    DocumentSource
	converter    *Converter
	counts       CountsReader
	logger       *slog.Logger
	documentType string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	aggregator *Aggregator,
	documents DocumentSource,
	converter *Converter,
	counts CountsReader,
	logger *slog.Logger,
	documentType string,
) *Service {
	return &Service{
		aggregator:   aggregator,
		documents:    documents,
		converter:    converter,
		counts:       counts,
		logger:       logger,
		documentType: documentType,
	}
}

// Catalog はカタログ全体を集約したスナップショットを返す。
func (s *Service) Catalog(ctx context.Context) (*model.CatalogSnapshot, error) {
	return s.aggregator.Aggregate(ctx, model.TagRef{})
}

// QueryTag は指定タグに属するアイテムをCMSから取得し直して返す。
// 該当なしの場合は空のスライスを返す（エラーではない）。
func (s *Service) QueryTag(ctx context.Context, tag model.TagRef) ([]model.CatalogItem, error) {
	if tag.IsZero() {
		return nil, ErrEmptyTag
	}
	snapshot, err := s.aggregator.Aggregate(ctx, tag)
	if err != nil {
		return nil, err
	}
	return snapshot.Items(), nil
}

// Item はslugに一致するアイテムを取得する。見つからない場合はnilを返す。
func (s *Service) Item(ctx context.Context, slug string) (*model.CatalogItem, error) {
	ref, err := s.documents.MasterRef(ctx)
	if err != nil {
		return nil, &FetchError{Page: 0, Err: err}
	}

	doc, err := s.documents.GetByUID(ctx, ref, s.documentType, slug)
	if err != nil {
		return nil, &FetchError{Page: 1, Err: err}
	}
	if doc == nil {
		return nil, nil
	}

	item := s.converter.Convert(*doc)
	return &item, nil
}

// Counts はナビゲーション表示用の件数を返す。
// ワーカーが保存した件数を優先し、未保存の場合はその場で集約する。
func (s *Service) Counts(ctx context.Context) (model.CatalogCounts, error) {
	stored, err := s.counts.Latest(ctx)
	if err != nil {
		s.logger.Warn("保存済み件数の取得に失敗したため集約にフォールバックします",
			slog.String("error", err.Error()),
		)
	}
	if err == nil && stored != nil {
		return *stored, nil
	}

	snapshot, err := s.Catalog(ctx)
	if err != nil {
		return model.CatalogCounts{}, fmt.Errorf("件数の集約に失敗: %w", err)
	}
	return CountsOf(snapshot), nil
}

// CountsOf はスナップショットから永続化用の件数を作る。
func CountsOf(snapshot *model.CatalogSnapshot) model.CatalogCounts {
	return model.CatalogCounts{
		ItemCount:   snapshot.ItemCount,
		MediaCount:  snapshot.MediaCount,
		TotalCount:  snapshot.TotalCount,
		RefreshedAt: snapshot.CreatedAt,
	}
}
