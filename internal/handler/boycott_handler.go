package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// BoycottServiceInterface はボイコットハンドラーが必要とするサービスインターフェース。
type BoycottServiceInterface interface {
	ListBoycotts(ctx context.Context, search string) ([]boycottResponse, error)
	CreateBoycott(ctx context.Context, userID string, req createBoycottRequest) (*createBoycottResponse, error)
	GetBoycott(ctx context.Context, boycottID string) (*boycottResponse, error)
	// DeleteBoycott と DeactivateBoycott は主催者のみ実行できる。
	DeleteBoycott(ctx context.Context, userID, boycottID string) error
	DeactivateBoycott(ctx context.Context, userID, boycottID string) (*boycottResponse, error)
	Join(ctx context.Context, userID, boycottID string) error
	Leave(ctx context.Context, userID, boycottID string) error
	// Participation は参加中のボイコットID一覧を返す。
	Participation(ctx context.Context, userID string) ([]string, error)
	Stats(ctx context.Context) (*boycottStatsResponse, error)
}

// BoycottHandler はボイコットのHTTPハンドラー。
type BoycottHandler struct {
	service BoycottServiceInterface
}

// NewBoycottHandler はBoycottHandlerを生成する。
func NewBoycottHandler(service BoycottServiceInterface) *BoycottHandler {
	return &BoycottHandler{service: service}
}

// createBoycottRequest はボイコット作成リクエストのボディ。
// end_dateはRFC3339または YYYY-MM-DD 形式で指定する。
type createBoycottRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     string `json:"company"`
	Subject     string `json:"subject"`
	CategoryID  string `json:"category_id"`
	Impact      string `json:"impact,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Announce    bool   `json:"announce"`
}

// boycottResponse はボイコットのAPIレスポンス。
type boycottResponse struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Company           string     `json:"company"`
	Subject           string     `json:"subject"`
	CategoryID        string     `json:"category_id"`
	CategoryName      string     `json:"category_name,omitempty"`
	Impact            string     `json:"impact"`
	Status            string     `json:"status"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	OrganizerID       string     `json:"organizer_id"`
	ParticipantsCount int        `json:"participants_count"`
	CreatedAt         time.Time  `json:"created_at"`
}

// createBoycottResponse はボイコット作成のAPIレスポンス。
// AnnouncementPostIDは告知投稿を作成した場合のみ設定される。
type createBoycottResponse struct {
	Boycott            boycottResponse `json:"boycott"`
	AnnouncementPostID string          `json:"announcement_post_id,omitempty"`
}

// boycottStatsResponse はボイコット統計のAPIレスポンス。
type boycottStatsResponse struct {
	Active            int `json:"active"`
	TotalParticipants int `json:"total_participants"`
	Successful        int `json:"successful"`
	CompaniesChanged  int `json:"companies_changed"`
}

// ListBoycotts はボイコット一覧を返す。
// GET /api/boycotts?search=
func (h *BoycottHandler) ListBoycotts(w http.ResponseWriter, r *http.Request) {
	boycotts, err := h.service.ListBoycotts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boycotts)
}

// CreateBoycott はボイコットを作成する。
// POST /api/boycotts
func (h *BoycottHandler) CreateBoycott(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createBoycottRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.CreateBoycott(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetBoycott はボイコット詳細を返す。
// GET /api/boycotts/{id}
func (h *BoycottHandler) GetBoycott(w http.ResponseWriter, r *http.Request) {
	boycott, err := h.service.GetBoycott(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boycott)
}

// DeleteBoycott はボイコットを削除する。
// DELETE /api/boycotts/{id}
func (h *BoycottHandler) DeleteBoycott(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBoycott(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeactivateBoycott はボイコットを停止する。
// POST /api/boycotts/{id}/deactivate
func (h *BoycottHandler) DeactivateBoycott(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	boycott, err := h.service.DeactivateBoycott(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boycott)
}

// Join はボイコットに参加する。
// POST /api/boycotts/{id}/participants
func (h *BoycottHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Join(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leave はボイコットから離脱する。
// DELETE /api/boycotts/{id}/participants
func (h *BoycottHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Leave(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Participation はログインユーザーが参加中のボイコットID一覧を返す。
// GET /api/boycotts/participation
func (h *BoycottHandler) Participation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	ids, err := h.service.Participation(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"boycott_ids": ids})
}

// Stats はボイコット全体の統計を返す。
// GET /api/boycotts/stats
func (h *BoycottHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
