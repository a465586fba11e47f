package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
)

// CompanyServiceInterface は企業ハンドラーが必要とするサービスインターフェース。
// 企業評価、レビュー、スタンス、カテゴリを扱う。
type CompanyServiceInterface interface {
	ListCompanies(ctx context.Context) ([]companyResponse, error)
	GetCompany(ctx context.Context, name string) (*companyResponse, error)
	ListCompanyReviews(ctx context.Context, name string) ([]reviewResponse, error)
	// ListCompanyBoycotts は企業を対象とする進行中のボイコットを返す。
	ListCompanyBoycotts(ctx context.Context, name string) ([]boycottResponse, error)
	UpsertReview(ctx context.Context, userID string, req upsertReviewRequest) (*upsertReviewResponse, error)
	DeleteReview(ctx context.Context, userID, reviewID string) error
	UpsertStance(ctx context.Context, userID string, req upsertStanceRequest) (*upsertStanceResponse, error)
	DeleteStance(ctx context.Context, userID, stanceID string) error
	ListCategories(ctx context.Context) ([]categoryResponse, error)
}

// CompanyHandler は企業関連のHTTPハンドラー。
type CompanyHandler struct {
	service CompanyServiceInterface
}

// NewCompanyHandler はCompanyHandlerを生成する。
func NewCompanyHandler(service CompanyServiceInterface) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// companyResponse は企業評価のAPIレスポンス。平均評価はレビューが無い場合nullとなる。
type companyResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Industry           string   `json:"industry,omitempty"`
	Description        string   `json:"description,omitempty"`
	WebsiteURL         string   `json:"website_url,omitempty"`
	LogoURL            string   `json:"logo_url,omitempty"`
	AvgEthics          *float64 `json:"avg_ethics"`
	AvgEnvironment     *float64 `json:"avg_environment"`
	AvgPolitics        *float64 `json:"avg_politics"`
	AvgOverall         *float64 `json:"avg_overall"`
	RecommendCount     int      `json:"recommend_count"`
	NeutralCount       int      `json:"neutral_count"`
	DiscourageCount    int      `json:"discourage_count"`
	ActiveBoycottCount int      `json:"active_boycott_count"`
	TotalRatings       int      `json:"total_ratings"`
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CompanyName string    `json:"company_name"`
	Category    string    `json:"category"`
	Rating      int       `json:"rating"`
	ReviewText  string    `json:"review_text"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// stanceResponse はスタンスのAPIレスポンス。
type stanceResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CompanyName       string    `json:"company_name"`
	Stance            string    `json:"stance"`
	EthicsRating      *int      `json:"ethics_rating,omitempty"`
	EnvironmentRating *int      `json:"environment_rating,omitempty"`
	PoliticsRating    *int      `json:"politics_rating,omitempty"`
	OverallRating     *int      `json:"overall_rating,omitempty"`
	Notes             string    `json:"notes"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// categoryResponse はボイコットカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// upsertReviewRequest はレビュー登録リクエストのボディ。
type upsertReviewRequest struct {
	CompanyName string `json:"company_name"`
	Category    string `json:"category"`
	Rating      int    `json:"rating"`
	ReviewText  string `json:"review_text"`
	PostToFeed  bool   `json:"post_to_feed"`
}

// upsertStanceRequest はスタンス登録リクエストのボディ。
type upsertStanceRequest struct {
	CompanyName       string `json:"company_name"`
	CompanyCategory   string `json:"company_category,omitempty"`
	Stance            string `json:"stance"`
	EthicsRating      *int   `json:"ethics_rating,omitempty"`
	EnvironmentRating *int   `json:"environment_rating,omitempty"`
	PoliticsRating    *int   `json:"politics_rating,omitempty"`
	OverallRating     *int   `json:"overall_rating,omitempty"`
	Notes             string `json:"notes"`
	PostToFeed        bool   `json:"post_to_feed"`
}

// upsertReviewResponse はレビュー登録のAPIレスポンス。
type upsertReviewResponse struct {
	Review reviewResponse `json:"review"`
	PostID string         `json:"post_id,omitempty"`
}

// upsertStanceResponse はスタンス登録のAPIレスポンス。
type upsertStanceResponse struct {
	Stance stanceResponse `json:"stance"`
	PostID string         `json:"post_id,omitempty"`
}

// companyNameParam はURLパスの企業名を復元する。
func companyNameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// ListCompanies は企業評価一覧を返す。
// GET /api/companies
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// GetCompany は企業評価を返す。
// GET /api/companies/{name}
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.GetCompany(r.Context(), companyNameParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// ListCompanyReviews は企業のレビュー一覧を返す。
// GET /api/companies/{name}/reviews
func (h *CompanyHandler) ListCompanyReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListCompanyReviews(r.Context(), companyNameParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ListCompanyBoycotts は企業を対象とする進行中のボイコット一覧を返す。
// GET /api/companies/{name}/boycotts
func (h *CompanyHandler) ListCompanyBoycotts(w http.ResponseWriter, r *http.Request) {
	boycotts, err := h.service.ListCompanyBoycotts(r.Context(), companyNameParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boycotts)
}

// UpsertReview はレビューを作成または更新する。
// PUT /api/reviews
func (h *CompanyHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req upsertReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.UpsertReview(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteReview はレビューを削除する。
// DELETE /api/reviews/{id}
func (h *CompanyHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertStance はスタンスを作成または更新する。
// PUT /api/stances
func (h *CompanyHandler) UpsertStance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req upsertStanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.UpsertStance(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteStance はスタンスを削除する。
// DELETE /api/stances/{id}
func (h *CompanyHandler) DeleteStance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteStance(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories はボイコットカテゴリ一覧を返す。
// GET /api/categories
func (h *CompanyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
