package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/ethicheck/internal/model"
)

// --- モック定義 ---

type mockPostService struct {
	listFeedFn   func(ctx context.Context, viewerID string, q feedQuery) (*feedPageResponse, error)
	createPostFn func(ctx context.Context, userID string, req createPostRequest) (*postResponse, error)
	deletePostFn func(ctx context.Context, userID, postID string) error
	likeFn       func(ctx context.Context, userID, postID string) error
	unlikeFn     func(ctx context.Context, userID, postID string) error
}

func (m *mockPostService) ListFeed(ctx context.Context, viewerID string, q feedQuery) (*feedPageResponse, error) {
	if m.listFeedFn != nil {
		return m.listFeedFn(ctx, viewerID, q)
	}
	return &feedPageResponse{Items: []postResponse{}}, nil
}

func (m *mockPostService) CreatePost(ctx context.Context, userID string, req createPostRequest) (*postResponse, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, userID, req)
	}
	return &postResponse{ID: "post-1", Kind: "plain"}, nil
}

func (m *mockPostService) DeletePost(ctx context.Context, userID, postID string) error {
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, userID, postID)
	}
	return nil
}

func (m *mockPostService) Like(ctx context.Context, userID, postID string) error {
	if m.likeFn != nil {
		return m.likeFn(ctx, userID, postID)
	}
	return nil
}

func (m *mockPostService) Unlike(ctx context.Context, userID, postID string) error {
	if m.unlikeFn != nil {
		return m.unlikeFn(ctx, userID, postID)
	}
	return nil
}

// --- GET /api/posts ---

// TestPostHandler_ListFeed はクエリパラメータがサービスに渡されることを検証する。
func TestPostHandler_ListFeed(t *testing.T) {
	var got feedQuery
	svc := &mockPostService{
		listFeedFn: func(ctx context.Context, viewerID string, q feedQuery) (*feedPageResponse, error) {
			if viewerID != "user-1" {
				t.Errorf("viewerID = %q, want user-1", viewerID)
			}
			got = q
			return &feedPageResponse{
				Items:      []postResponse{{ID: "post-1", Kind: "review", Company: &companyBlockResponse{Name: "Acme", Rating: 4}}},
				NextCursor: "2026-05-10T12:00:00Z",
				HasMore:    true,
			}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?scope=following&limit=10&cursor=2026-05-11T00:00:00Z", nil)
	w := httptest.NewRecorder()
	h.ListFeed(w, withUserID(req, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Scope != model.FeedScopeFollowing || got.Limit != 10 || got.Cursor != "2026-05-11T00:00:00Z" {
		t.Errorf("query = %+v", got)
	}

	var page feedPageResponse
	decodeBody(t, w, &page)
	if len(page.Items) != 1 || !page.HasMore || page.Items[0].Company.Name != "Acme" {
		t.Errorf("page = %+v", page)
	}
}

// TestPostHandler_ListFeed_InvalidQuery は不正なクエリを400で拒否することを検証する。
func TestPostHandler_ListFeed_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"未知のscope", "?scope=friends"},
		{"数値でないlimit", "?limit=ten"},
		{"0のlimit", "?limit=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPostHandler(&mockPostService{
				listFeedFn: func(ctx context.Context, viewerID string, q feedQuery) (*feedPageResponse, error) {
					t.Error("ListFeed should not be called")
					return nil, nil
				},
			})

			w := httptest.NewRecorder()
			h.ListFeed(w, withUserID(httptest.NewRequest(http.MethodGet, "/api/posts"+tt.query, nil), "user-1"))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			assertErrorCode(t, w, model.ErrCodeValidation)
		})
	}
}

// --- POST /api/posts ---

// TestPostHandler_CreatePost はリクエストボディがデコードされ201を返すことを検証する。
func TestPostHandler_CreatePost(t *testing.T) {
	var got createPostRequest
	svc := &mockPostService{
		createPostFn: func(ctx context.Context, userID string, req createPostRequest) (*postResponse, error) {
			got = req
			return &postResponse{ID: "post-9", Kind: "review", Content: "Great transparency"}, nil
		},
	}
	h := NewPostHandler(svc)

	body := `{"kind":"review","review":{"company_name":"Acme","category":"ethics","rating":4,"review_text":"Great transparency"}}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(body)), "user-1")
	w := httptest.NewRecorder()
	h.CreatePost(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got.Kind != "review" || got.Review == nil || got.Review.Rating != 4 || got.Review.CompanyName != "Acme" {
		t.Errorf("request = %+v", got)
	}
}

// TestPostHandler_CreatePost_Errors は投稿作成のエラー応答を検証する。
func TestPostHandler_CreatePost_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"不正なJSON", `{"kind":`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"未知のフィールド", `{"kind":"plain","title":"x"}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"未知の投稿種別", `{"kind":"poll"}`, model.NewInvalidInteractionError("poll"), http.StatusBadRequest, model.ErrCodeInvalidInteraction},
		{"検証エラー", `{"kind":"plain","text":""}`, model.NewValidationError("text", "本文を入力してください"), http.StatusBadRequest, model.ErrCodeValidation},
		{"内部エラー", `{"kind":"plain","text":"hi"}`, errors.New("db down"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPostHandler(&mockPostService{
				createPostFn: func(ctx context.Context, userID string, req createPostRequest) (*postResponse, error) {
					return nil, tt.err
				},
			})

			req := withUserID(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(tt.body)), "user-1")
			w := httptest.NewRecorder()
			h.CreatePost(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			assertErrorCode(t, w, tt.wantCode)
		})
	}
}

// TestPostHandler_CreatePost_Unauthorized はユーザーIDが無い場合に401を返すことを検証する。
func TestPostHandler_CreatePost_Unauthorized(t *testing.T) {
	h := NewPostHandler(&mockPostService{})

	w := httptest.NewRecorder()
	h.CreatePost(w, httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"kind":"plain","text":"hi"}`)))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- DELETE /api/posts/{id}, PUT/DELETE /api/posts/{id}/like ---

// TestPostHandler_PostActions は投稿IDを受け取る操作の成功とエラーを検証する。
func TestPostHandler_PostActions(t *testing.T) {
	notFound := model.NewPostNotFoundError("post-x")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		call       func(h *PostHandler) http.HandlerFunc
	}{
		{"削除", nil, http.StatusNoContent, func(h *PostHandler) http.HandlerFunc { return h.DeletePost }},
		{"他人の投稿の削除", notFound, http.StatusNotFound, func(h *PostHandler) http.HandlerFunc { return h.DeletePost }},
		{"いいね", nil, http.StatusNoContent, func(h *PostHandler) http.HandlerFunc { return h.Like }},
		{"存在しない投稿へのいいね", notFound, http.StatusNotFound, func(h *PostHandler) http.HandlerFunc { return h.Like }},
		{"いいね取り消し", nil, http.StatusNoContent, func(h *PostHandler) http.HandlerFunc { return h.Unlike }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := func(ctx context.Context, userID, postID string) error {
				if userID != "user-1" || postID != "post-x" {
					t.Errorf("userID = %q, postID = %q", userID, postID)
				}
				return tt.err
			}
			h := NewPostHandler(&mockPostService{deletePostFn: check, likeFn: check, unlikeFn: check})

			req := httptest.NewRequest(http.MethodPut, "/api/posts/post-x/like", nil)
			req = withUserID(withURLParams(req, "id", "post-x"), "user-1")
			w := httptest.NewRecorder()
			tt.call(h)(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
