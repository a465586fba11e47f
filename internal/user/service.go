// Package user はユーザーアカウントのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/repository"
)

// Service はユーザーアカウントのサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	cache       cache.Store
}

// NewService はServiceの新しいインスタンスを生成する。storeがnilの場合はキャッシュを使わない。
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, store cache.Store) *Service {
	if store == nil {
		store = cache.NopStore{}
	}
	return &Service{userRepo: userRepo, sessionRepo: sessionRepo, cache: store}
}

// Withdraw はユーザーの退会処理を実行する。
// セッションを削除した後にユーザーを削除する。投稿、いいね、フォロー、レビュー、スタンス、
// ボイコット参加、プロフィール、identityはCASCADE削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します", slog.String("user_id", userID))

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	// 削除された投稿やレビューが集計済みの一覧に残らないようにする
	if err := s.cache.Invalidate(ctx, cache.KeyPosts, cache.KeyCompanies, cache.KeyBoycotts, cache.KeyBoycottStats); err != nil {
		slog.Warn("cache invalidation after withdrawal failed", slog.String("error", err.Error()))
	}

	slog.Info("退会処理が完了しました", slog.String("user_id", userID))
	return nil
}
