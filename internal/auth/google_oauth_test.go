package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// TestGoogleOAuthProvider_GetLoginURL は認証URLに必要なパラメータが含まれることを検証する。
func TestGoogleOAuthProvider_GetLoginURL(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	})

	u, err := url.Parse(provider.GetLoginURL("test-state-value"))
	if err != nil {
		t.Fatalf("GetLoginURL() returned invalid URL: %v", err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q, want accounts.google.com", u.Host)
	}

	q := u.Query()
	want := map[string]string{
		"client_id":     "test-client-id",
		"redirect_uri":  "http://localhost:8080/auth/google/callback",
		"state":         "test-state-value",
		"response_type": "code",
		"scope":         "openid email profile",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if q.Has("access_type") {
		t.Error("offline access should not be requested")
	}
}

// TestGoogleOAuthProvider_ExchangeCode はトークン交換とユーザー情報取得の結果が変換されることを検証する。
func TestGoogleOAuthProvider_ExchangeCode(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "test-auth-code" {
			t.Errorf("unexpected token request form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-access-token" {
			t.Errorf("Authorization = %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"sub":     "google-sub-12345",
			"email":   "aiko@example.com",
			"name":    "Aiko Tanaka",
			"picture": "https://lh3.googleusercontent.com/a/photo.jpg",
		})
	}))
	defer userInfoServer.Close()

	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	info, err := provider.ExchangeCode(context.Background(), "test-auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	want := OAuthUserInfo{
		ProviderUserID: "google-sub-12345",
		Email:          "aiko@example.com",
		Name:           "Aiko Tanaka",
		AvatarURL:      "https://lh3.googleusercontent.com/a/photo.jpg",
		Provider:       "google",
	}
	if *info != want {
		t.Errorf("info = %+v, want %+v", *info, want)
	}
}

// TestGoogleOAuthProvider_ExchangeCode_Errors は各エンドポイントの失敗がエラーになることを検証する。
func TestGoogleOAuthProvider_ExchangeCode_Errors(t *testing.T) {
	okToken := func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "token"})
	}
	tests := []struct {
		name     string
		token    http.HandlerFunc
		userInfo http.HandlerFunc
	}{
		{
			name: "トークン交換の拒否",
			token: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
			},
		},
		{
			name: "access_tokenなし",
			token: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"token_type": "Bearer"})
			},
		},
		{
			name:  "ユーザー情報の認可エラー",
			token: okToken,
			userInfo: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name:  "subなし",
			token: okToken,
			userInfo: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"email": "aiko@example.com"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenServer := httptest.NewServer(tt.token)
			defer tokenServer.Close()
			userInfo := tt.userInfo
			if userInfo == nil {
				userInfo = func(w http.ResponseWriter, r *http.Request) {
					t.Error("user info endpoint should not be called")
				}
			}
			userInfoServer := httptest.NewServer(userInfo)
			defer userInfoServer.Close()

			provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
				TokenURL:    tokenServer.URL,
				UserInfoURL: userInfoServer.URL,
			})
			if _, err := provider.ExchangeCode(context.Background(), "code"); err == nil {
				t.Fatal("expected error from ExchangeCode")
			}
		})
	}
}
