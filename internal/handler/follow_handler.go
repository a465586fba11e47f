package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// FollowServiceInterface はフォローハンドラーが必要とするサービスインターフェース。
type FollowServiceInterface interface {
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	Followers(ctx context.Context, userID string) ([]profileResponse, error)
	Following(ctx context.Context, userID string) ([]profileResponse, error)
}

// FollowHandler はフォロー操作のHTTPハンドラー。
type FollowHandler struct {
	service FollowServiceInterface
}

// NewFollowHandler はFollowHandlerを生成する。
func NewFollowHandler(service FollowServiceInterface) *FollowHandler {
	return &FollowHandler{service: service}
}

// Follow は指定ユーザーをフォローする。
// PUT /api/follows/{userID}
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Follow(r.Context(), userID, chi.URLParam(r, "userID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unfollow は指定ユーザーのフォローを解除する。
// DELETE /api/follows/{userID}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unfollow(r.Context(), userID, chi.URLParam(r, "userID")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
