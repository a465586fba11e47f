package company

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/model"
	"github.com/hitoshi/ethicheck/internal/post"
	"github.com/hitoshi/ethicheck/internal/postcodec"
)

// --- モック ---

type mockCompanyRepo struct {
	findByNameFn       func(ctx context.Context, name string) (*model.Company, error)
	listRatingsFn      func(ctx context.Context) ([]*model.CompanyRating, error)
	findRatingByNameFn func(ctx context.Context, name string) (*model.CompanyRating, error)
}

func (m *mockCompanyRepo) FindByName(ctx context.Context, name string) (*model.Company, error) {
	if m.findByNameFn != nil {
		return m.findByNameFn(ctx, name)
	}
	return nil, nil
}
func (m *mockCompanyRepo) ListRatings(ctx context.Context) ([]*model.CompanyRating, error) {
	if m.listRatingsFn != nil {
		return m.listRatingsFn(ctx)
	}
	return nil, nil
}
func (m *mockCompanyRepo) FindRatingByName(ctx context.Context, name string) (*model.CompanyRating, error) {
	if m.findRatingByNameFn != nil {
		return m.findRatingByNameFn(ctx, name)
	}
	return nil, nil
}
func (m *mockCompanyRepo) ListMissingLogo(ctx context.Context, limit int) ([]*model.Company, error) {
	return nil, nil
}
func (m *mockCompanyRepo) UpdateLogo(ctx context.Context, companyID, logoURL string) error {
	return nil
}

type mockReviewRepo struct {
	upsertFn   func(ctx context.Context, review *model.Review) error
	findByIDFn func(ctx context.Context, id string) (*model.Review, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockReviewRepo) Upsert(ctx context.Context, review *model.Review) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, review)
	}
	return nil
}
func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockReviewRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Review, error) {
	return nil, nil
}
func (m *mockReviewRepo) ListByCompanyID(ctx context.Context, companyID string) ([]*model.Review, error) {
	return []*model.Review{{ID: "r-1", CompanyID: companyID}}, nil
}
func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockStanceRepo struct {
	upsertFn   func(ctx context.Context, stance *model.Stance) error
	findByIDFn func(ctx context.Context, id string) (*model.Stance, error)
}

func (m *mockStanceRepo) Upsert(ctx context.Context, stance *model.Stance) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, stance)
	}
	return nil
}
func (m *mockStanceRepo) FindByID(ctx context.Context, id string) (*model.Stance, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockStanceRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Stance, error) {
	return nil, nil
}
func (m *mockStanceRepo) CountByStance(ctx context.Context, userID string) (map[model.StanceType]int, error) {
	return nil, nil
}
func (m *mockStanceRepo) Delete(ctx context.Context, id string) error { return nil }

type mockCategoryRepo struct{}

func (m *mockCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	return []*model.Category{{ID: "c-1", Name: "Environment"}}, nil
}
func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	return nil, nil
}

type mockPoster struct {
	inputs []post.CreateInput
	err    error
}

func (m *mockPoster) Create(ctx context.Context, userID string, in post.CreateInput) (*model.Post, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &model.Post{ID: "post-1", UserID: userID}, nil
}

type countingStore struct {
	data        map[cache.Key][]byte
	invalidated int
}

func (c *countingStore) Get(ctx context.Context, key cache.Key) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}
func (c *countingStore) Set(ctx context.Context, key cache.Key, value []byte) error {
	c.data[key] = value
	return nil
}
func (c *countingStore) Invalidate(ctx context.Context, keys ...cache.Key) error {
	c.invalidated++
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

const testUUID = "3f6c1b2a-9d8e-4f7a-b6c5-d4e3f2a1b0c9"

var acme = &model.Company{ID: "company-1", Name: "Acme", Industry: "Technology"}

func newTestService(poster FeedPoster) (*Service, *mockCompanyRepo, *mockReviewRepo, *mockStanceRepo, *countingStore) {
	companies := &mockCompanyRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.Company, error) {
			if name == "Acme" || name == "acme" {
				return acme, nil
			}
			return nil, nil
		},
	}
	reviews := &mockReviewRepo{}
	stances := &mockStanceRepo{}
	store := &countingStore{data: map[cache.Key][]byte{}}
	svc := NewService(companies, reviews, stances, &mockCategoryRepo{}, poster, store)
	return svc, companies, reviews, stances, store
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != code {
		t.Fatalf("error = %v, want code %s", err, code)
	}
}

func intPtr(v int) *int { return &v }

// TestService_ListCompanies_Cached は企業一覧が2回目以降キャッシュから返ることを検証する。
func TestService_ListCompanies_Cached(t *testing.T) {
	svc, companies, _, _, _ := newTestService(nil)
	calls := 0
	companies.listRatingsFn = func(ctx context.Context) ([]*model.CompanyRating, error) {
		calls++
		avg := 4.5
		return []*model.CompanyRating{{Company: *acme, AvgEthics: &avg, TotalRatings: 2}}, nil
	}

	for i := 0; i < 2; i++ {
		ratings, err := svc.ListCompanies(context.Background())
		if err != nil {
			t.Fatalf("ListCompanies returned error: %v", err)
		}
		if len(ratings) != 1 || ratings[0].Name != "Acme" || *ratings[0].AvgEthics != 4.5 {
			t.Errorf("ratings = %+v", ratings)
		}
	}
	if calls != 1 {
		t.Errorf("ListRatings called %d times, want 1", calls)
	}
}

// TestService_GetCompany_NotFound は存在しない企業でCOMPANY_NOT_FOUNDになることを検証する。
func TestService_GetCompany_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(nil)
	_, err := svc.GetCompany(context.Background(), "Nobody Inc")
	assertCode(t, err, model.ErrCodeCompanyNotFound)
}

// TestService_UpsertReview_PostsToFeed はフィード投稿指定時にレビュー投稿が作成されることを検証する。
func TestService_UpsertReview_PostsToFeed(t *testing.T) {
	poster := &mockPoster{}
	svc, _, reviews, _, store := newTestService(poster)
	var saved *model.Review
	reviews.upsertFn = func(ctx context.Context, r *model.Review) error {
		saved = r
		return nil
	}

	result, err := svc.UpsertReview(context.Background(), "user-1", ReviewInput{
		CompanyName: "  acme ",
		Category:    model.ReviewCategoryOverall,
		Rating:      5,
		ReviewText:  "Fair wages.",
		PostToFeed:  true,
	})
	if err != nil {
		t.Fatalf("UpsertReview returned error: %v", err)
	}
	if saved == nil || saved.CompanyID != "company-1" || saved.Rating != 5 {
		t.Errorf("saved review = %+v", saved)
	}
	if result.Post == nil || len(poster.inputs) != 1 {
		t.Fatalf("expected a feed post, got %+v", result)
	}
	in := poster.inputs[0].Intent
	if in.Kind != postcodec.InteractionReview || in.Review.CompanyName != "Acme" || in.Review.ReviewText != "Fair wages." {
		t.Errorf("intent = %+v", in.Review)
	}
	if store.invalidated != 1 {
		t.Errorf("companies cache invalidated %d times, want 1", store.invalidated)
	}
}

// TestService_UpsertReview_NoPostWhenTextBlank は本文が空の場合にフィード投稿を作成しないことを検証する。
func TestService_UpsertReview_NoPostWhenTextBlank(t *testing.T) {
	poster := &mockPoster{}
	svc, _, _, _, _ := newTestService(poster)

	result, err := svc.UpsertReview(context.Background(), "user-1", ReviewInput{
		CompanyName: "Acme",
		Category:    model.ReviewCategoryEthics,
		Rating:      2,
		ReviewText:  "   ",
		PostToFeed:  true,
	})
	if err != nil {
		t.Fatalf("UpsertReview returned error: %v", err)
	}
	if result.Post != nil || len(poster.inputs) != 0 {
		t.Error("no feed post should be created for blank text")
	}
}

// TestService_UpsertReview_Validation は入力検証エラーを検証する。
func TestService_UpsertReview_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   ReviewInput
		code string
	}{
		{"企業名なし", ReviewInput{Category: model.ReviewCategoryOverall, Rating: 3}, model.ErrCodeValidation},
		{"評価範囲外", ReviewInput{CompanyName: "Acme", Category: model.ReviewCategoryOverall, Rating: 9}, model.ErrCodeValidation},
		{"不明なカテゴリ", ReviewInput{CompanyName: "Acme", Category: "vibes", Rating: 3}, model.ErrCodeValidation},
		{"存在しない企業", ReviewInput{CompanyName: "Nobody", Category: model.ReviewCategoryOverall, Rating: 3}, model.ErrCodeCompanyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, reviews, _, _ := newTestService(nil)
			reviews.upsertFn = func(ctx context.Context, r *model.Review) error {
				t.Fatal("Upsert should not be called")
				return nil
			}
			_, err := svc.UpsertReview(context.Background(), "user-1", tt.in)
			assertCode(t, err, tt.code)
		})
	}
}

// TestService_UpsertStance_PostsToFeed はスタンス投稿が企業の業種をカテゴリとして作成されることを検証する。
func TestService_UpsertStance_PostsToFeed(t *testing.T) {
	poster := &mockPoster{}
	svc, _, _, _, _ := newTestService(poster)

	result, err := svc.UpsertStance(context.Background(), "user-1", StanceInput{
		CompanyName:  "Acme",
		Stance:       model.StanceDiscourage,
		EthicsRating: intPtr(2),
		Notes:        "Union busting.",
		PostToFeed:   true,
	})
	if err != nil {
		t.Fatalf("UpsertStance returned error: %v", err)
	}
	if result.Stance.CompanyID != "company-1" || *result.Stance.EthicsRating != 2 {
		t.Errorf("stance = %+v", result.Stance)
	}
	if len(poster.inputs) != 1 {
		t.Fatalf("poster inputs = %d, want 1", len(poster.inputs))
	}
	st := poster.inputs[0].Intent.Stance
	if st.CompanyCategory != "Technology" || st.Stance != model.StanceDiscourage || st.Notes != "Union busting." {
		t.Errorf("stance intent = %+v", st)
	}
}

// TestService_UpsertStance_Validation はスタンスと評価値の検証を確認する。
func TestService_UpsertStance_Validation(t *testing.T) {
	svc, _, _, _, _ := newTestService(nil)

	_, err := svc.UpsertStance(context.Background(), "user-1", StanceInput{CompanyName: "Acme", Stance: "adore"})
	assertCode(t, err, model.ErrCodeValidation)

	_, err = svc.UpsertStance(context.Background(), "user-1", StanceInput{CompanyName: "Acme", Stance: model.StanceNeutral, OverallRating: intPtr(0)})
	assertCode(t, err, model.ErrCodeValidation)
}

// TestService_UpsertReview_PosterError はフィード投稿の失敗がそのまま返ることを検証する。
func TestService_UpsertReview_PosterError(t *testing.T) {
	posterErr := model.NewValidationError("content", "too long")
	svc, _, _, _, _ := newTestService(&mockPoster{err: posterErr})

	_, err := svc.UpsertReview(context.Background(), "user-1", ReviewInput{
		CompanyName: "Acme", Category: model.ReviewCategoryOverall, Rating: 4, ReviewText: "ok", PostToFeed: true,
	})
	if !errors.Is(err, posterErr) {
		t.Errorf("error = %v, want %v", err, posterErr)
	}
}

// TestService_DeleteReview_OwnerOnly は他人のレビューを削除できないことを検証する。
func TestService_DeleteReview_OwnerOnly(t *testing.T) {
	svc, _, reviews, _, _ := newTestService(nil)
	reviews.findByIDFn = func(ctx context.Context, id string) (*model.Review, error) {
		return &model.Review{ID: id, UserID: "owner"}, nil
	}
	deleted := false
	reviews.deleteFn = func(ctx context.Context, id string) error {
		deleted = true
		return nil
	}

	assertCode(t, svc.DeleteReview(context.Background(), "other", testUUID), model.ErrCodeReviewNotFound)
	assertCode(t, svc.DeleteReview(context.Background(), "owner", "bad-id"), model.ErrCodeReviewNotFound)
	if deleted {
		t.Fatal("review must not be deleted")
	}
	if err := svc.DeleteReview(context.Background(), "owner", testUUID); err != nil {
		t.Fatalf("DeleteReview returned error: %v", err)
	}
	if !deleted {
		t.Error("expected Delete to be called")
	}
}

// TestService_DeleteStance_NotFound は存在しないスタンスでSTANCE_NOT_FOUNDになることを検証する。
func TestService_DeleteStance_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(nil)
	assertCode(t, svc.DeleteStance(context.Background(), "user-1", testUUID), model.ErrCodeStanceNotFound)
}

// TestService_ListCompanyReviews は企業名から企業IDを引いてレビューを取得することを検証する。
func TestService_ListCompanyReviews(t *testing.T) {
	svc, _, _, _, _ := newTestService(nil)
	reviews, err := svc.ListCompanyReviews(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("ListCompanyReviews returned error: %v", err)
	}
	if len(reviews) != 1 || reviews[0].CompanyID != "company-1" {
		t.Errorf("reviews = %+v", reviews)
	}
	if _, err := svc.ListCompanyReviews(context.Background(), "Nobody"); err == nil {
		t.Error("expected error for unknown company")
	}
}

// TestService_ListCategories はカテゴリ一覧を返すことを検証する。
func TestService_ListCategories(t *testing.T) {
	svc, _, _, _, _ := newTestService(nil)
	categories, err := svc.ListCategories(context.Background())
	if err != nil || len(categories) != 1 {
		t.Fatalf("ListCategories = %v, %v", categories, err)
	}
}
