package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/ethicheck/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

var testAuthConfig = AuthHandlerConfig{
	BaseURL:       "http://localhost:3000",
	SessionMaxAge: 86400,
}

// --- テスト ---

// TestAuthHandler_Login はstate Cookieを設定してOAuth URLへリダイレクトすることを検証する。
func TestAuthHandler_Login(t *testing.T) {
	var gotState string
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			gotState = state
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); !strings.Contains(loc, "accounts.google.com") {
		t.Errorf("Location = %q, should contain google oauth URL", loc)
	}

	stateCookie := findCookie(resp, oauthStateCookie)
	if stateCookie == nil {
		t.Fatal("expected oauth_state cookie")
	}
	if stateCookie.Value != gotState || len(gotState) != 32 {
		t.Errorf("state cookie = %q, login state = %q", stateCookie.Value, gotState)
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie should be HttpOnly")
	}
}

// TestAuthHandler_Callback_Success はセッションCookieを設定してBaseURLへリダイレクトすることを検証する。
func TestAuthHandler_Callback_Success(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "test-code" {
				t.Errorf("code = %q, want test-code", code)
			}
			return &model.Session{
				ID:        "session-id-abc",
				UserID:    "user-id-123",
				ExpiresAt: time.Now().Add(24 * time.Hour),
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=test-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "test-state"})
	w := httptest.NewRecorder()
	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000" {
		t.Errorf("Location = %q, want http://localhost:3000", loc)
	}

	sessionCookie := findCookie(resp, "session_id")
	if sessionCookie == nil {
		t.Fatal("expected session_id cookie to be set")
	}
	if sessionCookie.Value != "session-id-abc" {
		t.Errorf("session cookie value = %q, want session-id-abc", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly || sessionCookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie HttpOnly=%v SameSite=%v", sessionCookie.HttpOnly, sessionCookie.SameSite)
	}
	if sessionCookie.MaxAge != 86400 {
		t.Errorf("session cookie MaxAge = %d, want 86400", sessionCookie.MaxAge)
	}
}

// TestAuthHandler_Callback_Rejected は不正なコールバックの応答を検証する。
func TestAuthHandler_Callback_Rejected(t *testing.T) {
	failingSvc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			return nil, errors.New("token exchange failed")
		},
	}

	tests := []struct {
		name         string
		query        string
		cookieState  string
		wantStatus   int
		wantLocation string
	}{
		{"stateの不一致", "?code=c&state=wrong", "correct", http.StatusBadRequest, ""},
		{"state Cookieなし", "?code=c&state=s", "", http.StatusBadRequest, ""},
		{"認可コードなし", "?state=s", "s", http.StatusBadRequest, ""},
		{"同意拒否", "?error=access_denied&state=s", "s", http.StatusTemporaryRedirect, "http://localhost:3000?auth_error=denied"},
		{"トークン交換の失敗", "?code=c&state=s", "s", http.StatusTemporaryRedirect, "http://localhost:3000?auth_error=failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(failingSvc, testAuthConfig)

			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback"+tt.query, nil)
			if tt.cookieState != "" {
				req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: tt.cookieState})
			}
			w := httptest.NewRecorder()
			h.Callback(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantLocation != "" && resp.Header.Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", resp.Header.Get("Location"), tt.wantLocation)
			}
			if findCookie(resp, "session_id") != nil {
				t.Error("session cookie must not be set")
			}
		})
	}
}

// TestAuthHandler_Logout はセッションを破棄してCookieを削除することを検証する。
func TestAuthHandler_Logout(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return errors.New("db down")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-to-logout"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if loggedOut != "session-to-logout" {
		t.Errorf("Logout called with %q", loggedOut)
	}
	// 失敗してもCookieはクリアされる
	c := findCookie(resp, "session_id")
	if c == nil || c.MaxAge != -1 {
		t.Fatalf("session cookie = %+v, want cleared", c)
	}
}

// TestAuthHandler_Logout_NoSession はセッションが無くても成功することを検証する。
func TestAuthHandler_Logout_NoSession(t *testing.T) {
	called := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			called = true
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("Logout should not be called without a session cookie")
	}
}

// TestAuthHandler_Me はログインユーザー情報をJSONで返すことを検証する。
func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "valid-session" {
				return nil, model.NewUserNotFoundError()
			}
			return &model.User{ID: "user-id-me", Email: "me@example.com", Name: "Me User"}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got meResponse
	decodeBody(t, w, &got)
	if got.ID != "user-id-me" || got.Email != "me@example.com" {
		t.Errorf("me = %+v", got)
	}
}

// TestAuthHandler_Me_Unauthorized はセッションが無効な場合に401を返すことを検証する。
func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, errors.New("session expired")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"Cookieなし", nil},
		{"期限切れセッション", &http.Cookie{Name: "session_id", Value: "expired"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			h.Me(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			assertErrorCode(t, w, model.ErrCodeUnauthorized)
		})
	}
}
