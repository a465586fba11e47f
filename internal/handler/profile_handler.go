package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*profileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req updateProfileRequest) (*profileResponse, error)
	ListCreators(ctx context.Context) ([]profileResponse, error)
	Stats(ctx context.Context, userID string) (*profileStatsResponse, error)
}

// ActivityListerInterface はユーザーごとの活動一覧を提供するインターフェース。
// 投稿、レビュー、スタンス、主催ボイコットをまとめて扱う。
type ActivityListerInterface interface {
	ListUserPosts(ctx context.Context, viewerID, userID string) ([]postResponse, error)
	ListUserReviews(ctx context.Context, userID string) ([]reviewResponse, error)
	ListUserStances(ctx context.Context, userID string) ([]stanceResponse, error)
	ListUserBoycotts(ctx context.Context, userID string) ([]boycottResponse, error)
}

// ProfileHandler はプロフィールとユーザー別一覧のHTTPハンドラー。
type ProfileHandler struct {
	profiles ProfileServiceInterface
	activity ActivityListerInterface
	follows  FollowServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(profiles ProfileServiceInterface, activity ActivityListerInterface, follows FollowServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		activity: activity,
		follows:  follows,
	}
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	ProfileType string `json:"profile_type"`
}

// updateProfileRequest はプロフィール更新リクエストのボディ。nullまたは省略したフィールドは変更しない。
type updateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Username    *string `json:"username,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	ProfileType *string `json:"profile_type,omitempty"`
}

// profileStatsResponse はプロフィール集計値のAPIレスポンス。
type profileStatsResponse struct {
	Followers       int `json:"followers"`
	Following       int `json:"following"`
	Posts           int `json:"posts"`
	RecommendCount  int `json:"recommend_count"`
	NeutralCount    int `json:"neutral_count"`
	DiscourageCount int `json:"discourage_count"`
}

// GetMe はログインユーザーのプロフィールを返す。
// GET /api/profiles/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateMe はログインユーザーのプロフィールを更新する。
// PATCH /api/profiles/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetProfile は指定ユーザーのプロフィールを返す。
// GET /api/profiles/{userID}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Stats はフォロー数、投稿数、スタンス数を返す。
// GET /api/profiles/{userID}/stats
func (h *ProfileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.profiles.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListCreators はクリエイタープロフィール一覧を返す。
// GET /api/creators
func (h *ProfileHandler) ListCreators(w http.ResponseWriter, r *http.Request) {
	creators, err := h.profiles.ListCreators(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creators)
}

// ListPosts はユーザーの投稿一覧を返す。
// GET /api/profiles/{userID}/posts
func (h *ProfileHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	posts, err := h.activity.ListUserPosts(r.Context(), viewerID, chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// ListReviews はユーザーのレビュー一覧を返す。
// GET /api/profiles/{userID}/reviews
func (h *ProfileHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.activity.ListUserReviews(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ListStances はユーザーのスタンス一覧を返す。
// GET /api/profiles/{userID}/stances
func (h *ProfileHandler) ListStances(w http.ResponseWriter, r *http.Request) {
	stances, err := h.activity.ListUserStances(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stances)
}

// ListBoycotts はユーザーが主催するボイコット一覧を返す。
// GET /api/profiles/{userID}/boycotts
func (h *ProfileHandler) ListBoycotts(w http.ResponseWriter, r *http.Request) {
	boycotts, err := h.activity.ListUserBoycotts(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boycotts)
}

// ListFollowers はフォロワーのプロフィール一覧を返す。
// GET /api/profiles/{userID}/followers
func (h *ProfileHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.follows.Followers(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// ListFollowing はフォロー中のプロフィール一覧を返す。
// GET /api/profiles/{userID}/following
func (h *ProfileHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.follows.Following(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
