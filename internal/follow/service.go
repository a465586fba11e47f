// Package follow はユーザー間のフォロー関係を管理する。
package follow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/repository"
)

// Service はフォローのサービス層。
type Service struct {
	followRepo  repository.FollowRepository
	profileRepo repository.ProfileRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(followRepo repository.FollowRepository, profileRepo repository.ProfileRepository) *Service {
	return &Service{followRepo: followRepo, profileRepo: profileRepo}
}

// Follow はfollowerIDのユーザーがfollowingIDのユーザーをフォローする。
func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return model.NewCannotFollowSelfError()
	}

	target, err := s.profileRepo.FindByUserID(ctx, followingID)
	if err != nil {
		return fmt.Errorf("フォロー対象の取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.NewProfileNotFoundError(followingID)
	}

	f := &model.Follow{
		ID:          uuid.New().String(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now(),
	}
	if err := s.followRepo.Create(ctx, f); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.NewAlreadyFollowingError()
		}
		return fmt.Errorf("フォローに失敗しました: %w", err)
	}
	return nil
}

// Unfollow はフォローを解除する。フォローしていない場合はNOT_FOLLOWINGを返す。
func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	deleted, err := s.followRepo.Delete(ctx, followerID, followingID)
	if err != nil {
		return fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNotFollowingError()
	}
	return nil
}

// FollowingIDs はユーザーがフォローしているユーザーIDを返す。
func (s *Service) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.followRepo.ListFollowingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
}

// Followers はユーザーのフォロワーをプロフィールとして返す。
func (s *Service) Followers(ctx context.Context, userID string) ([]*model.Profile, error) {
	ids, err := s.followRepo.ListFollowerIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロワー一覧の取得に失敗しました: %w", err)
	}
	return s.profiles(ctx, ids)
}

// Following はユーザーがフォローしているユーザーをプロフィールとして返す。
func (s *Service) Following(ctx context.Context, userID string) ([]*model.Profile, error) {
	ids, err := s.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, ids)
}

func (s *Service) profiles(ctx context.Context, ids []string) ([]*model.Profile, error) {
	if len(ids) == 0 {
		return []*model.Profile{}, nil
	}
	profiles, err := s.profileRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return profiles, nil
}
