package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ethicheck/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// ListFeed はフィードの1ページ分を返す。
	ListFeed(ctx context.Context, viewerID string, q feedQuery) (*feedPageResponse, error)
	// CreatePost は投稿作成操作を実行する。
	CreatePost(ctx context.Context, userID string, req createPostRequest) (*postResponse, error)
	// DeletePost は自分の投稿を削除する。
	DeletePost(ctx context.Context, userID, postID string) error
	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
}

// PostHandler はフィード投稿のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// feedQuery はフィード取得のクエリパラメータ。
type feedQuery struct {
	Cursor   string
	Limit    int
	Scope    model.FeedScope
	AuthorID string
}

// reviewRequest は投稿作成リクエストのレビュー部分。
type reviewRequest struct {
	CompanyName string `json:"company_name"`
	Category    string `json:"category"`
	Rating      int    `json:"rating"`
	ReviewText  string `json:"review_text"`
}

// stanceRequest は投稿作成リクエストのスタンス部分。
type stanceRequest struct {
	CompanyName     string `json:"company_name"`
	CompanyCategory string `json:"company_category"`
	Stance          string `json:"stance"`
	Notes           string `json:"notes"`
}

// boycottPostRequest は投稿作成リクエストのボイコット告知部分。
type boycottPostRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Subject     string `json:"subject"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// createPostRequest は投稿作成リクエストのボディ。kindに対応するフィールドのみ参照する。
type createPostRequest struct {
	Kind    string              `json:"kind"`
	Text    string              `json:"text,omitempty"`
	Review  *reviewRequest      `json:"review,omitempty"`
	Stance  *stanceRequest      `json:"stance,omitempty"`
	Boycott *boycottPostRequest `json:"boycott,omitempty"`
}

// authorResponse は投稿者の表示情報。
type authorResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsCreator   bool   `json:"is_creator"`
}

// companyBlockResponse は投稿カードの企業ブロック。
type companyBlockResponse struct {
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	Category string `json:"category,omitempty"`
}

// boycottBlockResponse は投稿カードのボイコットブロック。
type boycottBlockResponse struct {
	Title             string `json:"title"`
	Company           string `json:"company"`
	Subject           string `json:"subject"`
	Description       string `json:"description,omitempty"`
	ParticipantsCount int    `json:"participants_count"`
	Category          string `json:"category"`
}

// postResponse はデコード済み投稿のAPIレスポンス。
type postResponse struct {
	ID            string                `json:"id"`
	Kind          string                `json:"kind"`
	Author        *authorResponse       `json:"author,omitempty"`
	Content       string                `json:"content"`
	Company       *companyBlockResponse `json:"company,omitempty"`
	Boycott       *boycottBlockResponse `json:"boycott,omitempty"`
	BoycottID     string                `json:"boycott_id,omitempty"`
	LikesCount    int                   `json:"likes_count"`
	CommentsCount int                   `json:"comments_count"`
	LikedByViewer bool                  `json:"liked_by_viewer"`
	CreatedAt     time.Time             `json:"created_at"`
	TimeLabel     string                `json:"time_label,omitempty"`
}

// feedPageResponse はフィード1ページ分のAPIレスポンス。
type feedPageResponse struct {
	Items      []postResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// ListFeed はフィードを返す。
// GET /api/posts?cursor=&limit=&scope=all|following&author=
func (h *PostHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()
	scope, valid := model.ParseFeedScope(params.Get("scope"))
	if !valid {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("scope", "all または following を指定してください"))
		return
	}

	q := feedQuery{
		Cursor:   params.Get("cursor"),
		Scope:    scope,
		AuthorID: params.Get("author"),
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limit", "1以上の整数を指定してください"))
			return
		}
		q.Limit = limit
	}

	page, err := h.service.ListFeed(r.Context(), userID, q)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreatePost は投稿作成操作を処理する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.service.CreatePost(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// DeletePost は投稿を削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like は投稿にいいねする。
// PUT /api/posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Like(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unlike は投稿のいいねを取り消す。
// DELETE /api/posts/{id}/like
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unlike(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
