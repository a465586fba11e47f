// Package profile はユーザーの公開プロフィールと集計値のドメインロジックを提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/repository"
	"github.com/hitoshi/ethicheck/internal/security"
)

const (
	// DefaultCreatorLimit はクリエイター一覧の最大件数。
	DefaultCreatorLimit = 50

	maxDisplayNameLength = 50
	maxBioLength         = 500
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// PostCounter はユーザーの投稿数を返す。
type PostCounter interface {
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// Update はプロフィール更新の入力。nilのフィールドは変更しない。
type Update struct {
	DisplayName *string
	Username    *string
	Bio         *string
	AvatarURL   *string
	ProfileType *model.ProfileType
}

// Service はプロフィールのサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
	followRepo  repository.FollowRepository
	stanceRepo  repository.StanceRepository
	posts       PostCounter
	sanitizer   security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	followRepo repository.FollowRepository,
	stanceRepo repository.StanceRepository,
	posts PostCounter,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		followRepo:  followRepo,
		stanceRepo:  stanceRepo,
		posts:       posts,
		sanitizer:   security.NewTextSanitizer(),
	}
}

// Get はユーザーのプロフィールを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError(userID)
	}
	return p, nil
}

// Update はプロフィールを更新する。ユーザー名が他のユーザーと重複する場合はUSERNAME_TAKENを返す。
func (s *Service) Update(ctx context.Context, userID string, in Update) (*model.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(s.sanitizer.Clean(*in.DisplayName))
		if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, model.NewValidationError("display_name", fmt.Sprintf("表示名は1〜%d文字で入力してください", maxDisplayNameLength))
		}
		p.DisplayName = name
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != "" && !usernamePattern.MatchString(username) {
			return nil, model.NewValidationError("username", "ユーザー名は3〜30文字の英数字とアンダースコアで入力してください")
		}
		p.Username = username
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(s.sanitizer.Clean(*in.Bio))
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, model.NewValidationError("bio", fmt.Sprintf("自己紹介は%d文字以内で入力してください", maxBioLength))
		}
		p.Bio = bio
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" && !isHTTPURL(avatar) {
			return nil, model.NewValidationError("avatar_url", "アバターURLはhttpまたはhttpsで指定してください")
		}
		p.AvatarURL = avatar
	}
	if in.ProfileType != nil {
		if !in.ProfileType.Valid() {
			return nil, model.NewValidationError("profile_type", fmt.Sprintf("無効なプロフィール種別です: %s", *in.ProfileType))
		}
		p.ProfileType = *in.ProfileType
	}

	p.UpdatedAt = time.Now()
	if err := s.profileRepo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUsernameTakenError(p.Username)
		}
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return p, nil
}

// ListCreators はクリエイタープロフィールを新しい順に返す。
func (s *Service) ListCreators(ctx context.Context) ([]*model.Profile, error) {
	creators, err := s.profileRepo.ListCreators(ctx, DefaultCreatorLimit)
	if err != nil {
		return nil, fmt.Errorf("クリエイター一覧の取得に失敗しました: %w", err)
	}
	return creators, nil
}

// Stats はフォロー数、投稿数、スタンス種別ごとの件数を返す。
func (s *Service) Stats(ctx context.Context, userID string) (*model.ProfileStats, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	followers, following, err := s.followRepo.Counts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロー数の取得に失敗しました: %w", err)
	}
	posts, err := s.posts.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}
	stances, err := s.stanceRepo.CountByStance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("スタンス数の取得に失敗しました: %w", err)
	}

	return &model.ProfileStats{
		Followers:       followers,
		Following:       following,
		Posts:           posts,
		RecommendCount:  stances[model.StanceRecommend],
		NeutralCount:    stances[model.StanceNeutral],
		DiscourageCount: stances[model.StanceDiscourage],
	}, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
