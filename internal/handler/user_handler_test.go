package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/ethicheck/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// --- DELETE /api/users/me テスト ---

// TestUserHandler_Withdraw は退会後に204を返し、発行時と同じ属性でセッションCookieを削除することを検証する。
func TestUserHandler_Withdraw(t *testing.T) {
	withdrawCalled := false
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawCalled = true
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return nil
		},
	}
	h := NewUserHandler(svc, AuthHandlerConfig{CookieDomain: "ethicheck.example.com", CookieSecure: true})

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/users/me", nil), "user-123")
	w := httptest.NewRecorder()
	h.Withdraw(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !withdrawCalled {
		t.Error("expected Withdraw to be called")
	}
	c := findCookie(resp, "session_id")
	if c == nil || c.MaxAge != -1 {
		t.Fatalf("session cookie = %+v, want cleared", c)
	}
	if c.Domain != "ethicheck.example.com" || !c.Secure || !c.HttpOnly {
		t.Errorf("cookie attrs = domain %q secure %v httponly %v", c.Domain, c.Secure, c.HttpOnly)
	}
}

// TestUserHandler_Withdraw_Errors はエラー時のステータスコードを検証する。
func TestUserHandler_Withdraw_Errors(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		err        error
		wantStatus int
	}{
		{"未認証", "", nil, http.StatusUnauthorized},
		{"ユーザーが存在しない", "user-123", model.NewUserNotFoundError(), http.StatusNotFound},
		{"内部エラー", "user-123", errors.New("transaction failed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{
				withdrawFn: func(ctx context.Context, userID string) error { return tt.err },
			}, AuthHandlerConfig{})

			req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
			if tt.userID != "" {
				req = withUserID(req, tt.userID)
			}
			w := httptest.NewRecorder()
			h.Withdraw(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if findCookie(w.Result(), "session_id") != nil {
				t.Error("session cookie must not be touched on failure")
			}
		})
	}
}
