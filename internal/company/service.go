// Package company は企業評価、レビュー、スタンス、ボイコットカテゴリのドメインロジックを提供する。
package company

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/post"
	"github.com/hitoshi/ethicheck/internal/postcodec"
	"github.com/hitoshi/ethicheck/internal/repository"
	"github.com/hitoshi/ethicheck/internal/security"
)

// FeedPoster はフィードへの投稿作成を抽象化する。post.Serviceが実装する。
type FeedPoster interface {
	Create(ctx context.Context, userID string, in post.CreateInput) (*model.Post, error)
}

// ReviewInput はレビュー登録の入力。
type ReviewInput struct {
	CompanyName string
	Category    model.ReviewCategory
	Rating      int
	ReviewText  string
	PostToFeed  bool
}

// StanceInput はスタンス登録の入力。評価値は任意で、指定する場合は1から5。
type StanceInput struct {
	CompanyName       string
	CompanyCategory   string
	Stance            model.StanceType
	EthicsRating      *int
	EnvironmentRating *int
	PoliticsRating    *int
	OverallRating     *int
	Notes             string
	PostToFeed        bool
}

// ReviewResult はレビュー登録の結果。Postはフィード投稿を作成した場合のみ設定される。
type ReviewResult struct {
	Review *model.Review
	Post   *model.Post
}

// StanceResult はスタンス登録の結果。
type StanceResult struct {
	Stance *model.Stance
	Post   *model.Post
}

// Service は企業関連のサービス層。
type Service struct {
	companyRepo  repository.CompanyRepository
	reviewRepo   repository.ReviewRepository
	stanceRepo   repository.StanceRepository
	categoryRepo repository.CategoryRepository
	poster       FeedPoster
	cache        cache.Store
	sanitizer    security.TextSanitizer
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。cacheがnilの場合はキャッシュしない。
func NewService(
	companyRepo repository.CompanyRepository,
	reviewRepo repository.ReviewRepository,
	stanceRepo repository.StanceRepository,
	categoryRepo repository.CategoryRepository,
	poster FeedPoster,
	store cache.Store,
) *Service {
	if store == nil {
		store = cache.NopStore{}
	}
	return &Service{
		companyRepo:  companyRepo,
		reviewRepo:   reviewRepo,
		stanceRepo:   stanceRepo,
		categoryRepo: categoryRepo,
		poster:       poster,
		cache:        store,
		sanitizer:    security.NewTextSanitizer(),
		now:          time.Now,
	}
}

// ListCompanies は企業評価一覧を返す。結果はKeyCompaniesでキャッシュする。
func (s *Service) ListCompanies(ctx context.Context) ([]*model.CompanyRating, error) {
	if data, ok, err := s.cache.Get(ctx, cache.KeyCompanies); err != nil {
		slog.Warn("company cache read failed", slog.String("error", err.Error()))
	} else if ok {
		var ratings []*model.CompanyRating
		if err := json.Unmarshal(data, &ratings); err == nil {
			return ratings, nil
		}
	}

	ratings, err := s.companyRepo.ListRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("企業一覧の取得に失敗しました: %w", err)
	}
	if data, err := json.Marshal(ratings); err == nil {
		if err := s.cache.Set(ctx, cache.KeyCompanies, data); err != nil {
			slog.Warn("company cache write failed", slog.String("error", err.Error()))
		}
	}
	return ratings, nil
}

// GetCompany は企業名で企業評価を取得する。
func (s *Service) GetCompany(ctx context.Context, name string) (*model.CompanyRating, error) {
	rating, err := s.companyRepo.FindRatingByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if rating == nil {
		return nil, model.NewCompanyNotFoundError(name)
	}
	return rating, nil
}

// UpsertReview は(user, company, category)ごとのレビューを作成または更新する。
// PostToFeedが指定され本文が空でない場合は、レビュー投稿をフィードにも作成する。
func (s *Service) UpsertReview(ctx context.Context, userID string, in ReviewInput) (*ReviewResult, error) {
	in.CompanyName = strings.TrimSpace(s.sanitizer.Clean(in.CompanyName))
	in.ReviewText = strings.TrimSpace(s.sanitizer.Clean(in.ReviewText))

	if in.CompanyName == "" {
		return nil, model.NewValidationError("company_name", "企業名を入力してください")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, model.NewValidationError("rating", "評価は1から5で指定してください")
	}
	if !in.Category.Valid() {
		return nil, model.NewValidationError("category", fmt.Sprintf("無効なカテゴリです: %s", in.Category))
	}

	company, err := s.findCompany(ctx, in.CompanyName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	review := &model.Review{
		ID:          uuid.New().String(),
		UserID:      userID,
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Category:    in.Category,
		Rating:      in.Rating,
		ReviewText:  in.ReviewText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.reviewRepo.Upsert(ctx, review); err != nil {
		return nil, fmt.Errorf("レビューの保存に失敗しました: %w", err)
	}
	s.invalidateCompanies(ctx)

	result := &ReviewResult{Review: review}
	if in.PostToFeed && in.ReviewText != "" && s.poster != nil {
		p, err := s.poster.Create(ctx, userID, post.CreateInput{Intent: postcodec.Intent{
			Kind: postcodec.InteractionReview,
			Review: &postcodec.ReviewIntent{
				CompanyName: company.Name,
				Category:    in.Category,
				Rating:      in.Rating,
				ReviewText:  in.ReviewText,
			},
		}})
		if err != nil {
			return nil, err
		}
		result.Post = p
	}
	return result, nil
}

// ListUserReviews はユーザーのレビュー一覧を返す。
func (s *Service) ListUserReviews(ctx context.Context, userID string) ([]*model.Review, error) {
	reviews, err := s.reviewRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	return reviews, nil
}

// ListCompanyReviews は企業のレビュー一覧を返す。
func (s *Service) ListCompanyReviews(ctx context.Context, companyName string) ([]*model.Review, error) {
	company, err := s.findCompany(ctx, companyName)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListByCompanyID(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	return reviews, nil
}

// DeleteReview は本人のレビューを削除する。
func (s *Service) DeleteReview(ctx context.Context, userID, reviewID string) error {
	if _, err := uuid.Parse(reviewID); err != nil {
		return model.NewReviewNotFoundError(reviewID)
	}
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	if review == nil || review.UserID != userID {
		return model.NewReviewNotFoundError(reviewID)
	}
	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("レビューの削除に失敗しました: %w", err)
	}
	s.invalidateCompanies(ctx)
	return nil
}

// UpsertStance は(user, company)ごとのスタンスを作成または更新する。
// PostToFeedが指定されコメントが空でない場合は、スタンス投稿をフィードにも作成する。
func (s *Service) UpsertStance(ctx context.Context, userID string, in StanceInput) (*StanceResult, error) {
	in.CompanyName = strings.TrimSpace(s.sanitizer.Clean(in.CompanyName))
	in.CompanyCategory = strings.TrimSpace(s.sanitizer.Clean(in.CompanyCategory))
	in.Notes = strings.TrimSpace(s.sanitizer.Clean(in.Notes))

	if in.CompanyName == "" {
		return nil, model.NewValidationError("company_name", "企業名を入力してください")
	}
	if !in.Stance.Valid() {
		return nil, model.NewValidationError("stance", fmt.Sprintf("無効なスタンスです: %s", in.Stance))
	}
	for field, rating := range map[string]*int{
		"ethics_rating":      in.EthicsRating,
		"environment_rating": in.EnvironmentRating,
		"politics_rating":    in.PoliticsRating,
		"overall_rating":     in.OverallRating,
	} {
		if rating != nil && (*rating < 1 || *rating > 5) {
			return nil, model.NewValidationError(field, "評価は1から5で指定してください")
		}
	}

	company, err := s.findCompany(ctx, in.CompanyName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stance := &model.Stance{
		ID:                uuid.New().String(),
		UserID:            userID,
		CompanyID:         company.ID,
		CompanyName:       company.Name,
		Stance:            in.Stance,
		EthicsRating:      in.EthicsRating,
		EnvironmentRating: in.EnvironmentRating,
		PoliticsRating:    in.PoliticsRating,
		OverallRating:     in.OverallRating,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.stanceRepo.Upsert(ctx, stance); err != nil {
		return nil, fmt.Errorf("スタンスの保存に失敗しました: %w", err)
	}
	s.invalidateCompanies(ctx)

	result := &StanceResult{Stance: stance}
	if in.PostToFeed && in.Notes != "" && s.poster != nil {
		category := in.CompanyCategory
		if category == "" {
			category = company.Industry
		}
		p, err := s.poster.Create(ctx, userID, post.CreateInput{Intent: postcodec.Intent{
			Kind: postcodec.InteractionStance,
			Stance: &postcodec.StanceIntent{
				CompanyName:     company.Name,
				CompanyCategory: category,
				Stance:          in.Stance,
				Notes:           in.Notes,
			},
		}})
		if err != nil {
			return nil, err
		}
		result.Post = p
	}
	return result, nil
}

// ListUserStances はユーザーのスタンス一覧を返す。
func (s *Service) ListUserStances(ctx context.Context, userID string) ([]*model.Stance, error) {
	stances, err := s.stanceRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("スタンス一覧の取得に失敗しました: %w", err)
	}
	return stances, nil
}

// DeleteStance は本人のスタンスを削除する。
func (s *Service) DeleteStance(ctx context.Context, userID, stanceID string) error {
	if _, err := uuid.Parse(stanceID); err != nil {
		return model.NewStanceNotFoundError(stanceID)
	}
	stance, err := s.stanceRepo.FindByID(ctx, stanceID)
	if err != nil {
		return fmt.Errorf("スタンスの取得に失敗しました: %w", err)
	}
	if stance == nil || stance.UserID != userID {
		return model.NewStanceNotFoundError(stanceID)
	}
	if err := s.stanceRepo.Delete(ctx, stanceID); err != nil {
		return fmt.Errorf("スタンスの削除に失敗しました: %w", err)
	}
	s.invalidateCompanies(ctx)
	return nil
}

// ListCategories はボイコットカテゴリ一覧を返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

func (s *Service) findCompany(ctx context.Context, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	company, err := s.companyRepo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	if company == nil {
		return nil, model.NewCompanyNotFoundError(name)
	}
	return company, nil
}

func (s *Service) invalidateCompanies(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.KeyCompanies); err != nil {
		slog.Warn("company cache invalidation failed", slog.String("error", err.Error()))
	}
}
