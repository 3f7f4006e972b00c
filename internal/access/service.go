// Package access はパスワード保護されたアイテムの照合と、
// パスワードハッシュの登録を提供する。
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/repository"
)

// MessageIncorrectPassword は照合失敗時にユーザーへ返すメッセージ。
const MessageIncorrectPassword = "Incorrect password."

// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const maxPasswordBytes = 72

var (
	// ErrEmptySlug はslugが指定されていないことを表す。
	ErrEmptySlug = errors.New("access: slug is required")
	// ErrInvalidPassword は登録しようとしたパスワードが空または長すぎることを表す。
	ErrInvalidPassword = errors.New("access: password must be 1-72 bytes")
)

// Service はパスワード照合サービス。
// 照合のたびに試行記録を残す。
type Service struct {
	access   repository.ItemAccessRepository
	attempts repository.AccessAttemptRepository
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	cost     int
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	access repository.ItemAccessRepository,
	attempts repository.AccessAttemptRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		access:   access,
		attempts: attempts,
		metrics:  collector,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Verify はslugのアイテムに対してパスワードを照合する。
// 照合の成否はVerifyResultで返し、errorは照合自体が行えなかった場合のみ返す。
func (s *Service) Verify(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.VerifyResult{}, ErrEmptySlug
	}

	stored, err := s.access.FindBySlug(ctx, slug)
	if err != nil {
		return model.VerifyResult{}, fmt.Errorf("認証情報の取得に失敗: %w", err)
	}

	success := false
	switch {
	case stored == nil:
		s.logger.Warn("パスワードが登録されていないアイテムへの照合です",
			slog.String("slug", slug),
		)
	case candidate == "":
	default:
		err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(candidate))
		switch {
		case err == nil:
			success = true
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		default:
			return model.VerifyResult{}, fmt.Errorf("パスワードハッシュの照合に失敗: %w", err)
		}
	}

	s.record(ctx, slug, success)
	s.metrics.RecordVerifyOutcome(success)

	if !success {
		return model.VerifyResult{Success: false, Message: MessageIncorrectPassword}, nil
	}
	return model.VerifyResult{Success: true}, nil
}

// record は試行記録を保存する。保存に失敗しても照合結果には影響しない。
func (s *Service) record(ctx context.Context, slug string, success bool) {
	attempt := &model.AccessAttempt{
		ID:        ulid.Make().String(),
		Slug:      slug,
		Success:   success,
		CreatedAt: s.now(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Error("照合試行の記録に失敗しました",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}
}

// SetPassword はアイテムのパスワードをbcryptハッシュとして登録する。
// 既に登録済みの場合は上書きする。
func (s *Service) SetPassword(ctx context.Context, slug, password string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ErrEmptySlug
	}
	if password == "" || len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("パスワードハッシュの生成に失敗: %w", err)
	}

	if err := s.access.Upsert(ctx, &model.ItemAccess{
		Slug:         slug,
		PasswordHash: string(hash),
		UpdatedAt:    s.now(),
	}); err != nil {
		return fmt.Errorf("認証情報の保存に失敗: %w", err)
	}

	s.logger.Info("アイテムのパスワードを登録しました", slog.String("slug", slug))
	return nil
}
