package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/ethicheck/internal/model"
)

func testLimiter(t *testing.T, generalBurst, postBurst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		PostCreateRate:  0.1,
		PostCreateBurst: postBurst,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAs(h http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	if userID != "" {
		req = withUser(req, userID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestGeneralMiddleware_Burst はバースト内のリクエストが通り、超過分が429になることを検証する。
func TestGeneralMiddleware_Burst(t *testing.T) {
	rl := testLimiter(t, 3, 1)
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		if w := serveAs(handler, "user-1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := serveAs(handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Code != model.ErrCodeRateLimited {
		t.Errorf("body = %+v, err = %v", body, err)
	}
}

// TestGeneralMiddleware_PerUser はユーザーごとに独立したバケットが使われることを検証する。
func TestGeneralMiddleware_PerUser(t *testing.T) {
	rl := testLimiter(t, 1, 1)
	handler := rl.GeneralMiddleware()(okHandler())

	serveAs(handler, "user-1")
	if w := serveAs(handler, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-1 second request: status = %d, want 429", w.Code)
	}
	if w := serveAs(handler, "user-2"); w.Code != http.StatusOK {
		t.Errorf("user-2 first request: status = %d, want 200", w.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

// TestPostCreateMiddleware_Independent は投稿作成の制限が全般の制限と独立していることを検証する。
func TestPostCreateMiddleware_Independent(t *testing.T) {
	rl := testLimiter(t, 10, 1)
	handler := rl.GeneralMiddleware()(rl.PostCreateMiddleware()(okHandler()))

	if w := serveAs(handler, "user-1"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	w := serveAs(handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After = %q, want 10", got)
	}
	if rl.PostCreateLimiterCount() != 1 {
		t.Errorf("PostCreateLimiterCount = %d, want 1", rl.PostCreateLimiterCount())
	}
}

// TestRateLimiter_NoUserID はユーザーIDが無いリクエストが401になることを検証する。
func TestRateLimiter_NoUserID(t *testing.T) {
	rl := testLimiter(t, 1, 1)
	if w := serveAs(rl.GeneralMiddleware()(okHandler()), ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// TestRateLimiter_Cleanup は最終アクセスから期限を過ぎたエントリが削除されることを検証する。
func TestRateLimiter_Cleanup(t *testing.T) {
	rl := testLimiter(t, 5, 5)
	handler := rl.GeneralMiddleware()(rl.PostCreateMiddleware()(okHandler()))
	serveAs(handler, "user-1")

	rl.cleanup(time.Now())
	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("fresh entry should survive cleanup")
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.GeneralLimiterCount() != 0 || rl.PostCreateLimiterCount() != 0 {
		t.Errorf("counts = %d/%d, want 0/0", rl.GeneralLimiterCount(), rl.PostCreateLimiterCount())
	}
}

// TestPerMinuteConfig は1分あたりの上限値からレートとバーストが算出されることを検証する。
func TestPerMinuteConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.GeneralRate != 2 || cfg.GeneralBurst != 120 {
		t.Errorf("general = %v/%d, want 2/120", cfg.GeneralRate, cfg.GeneralBurst)
	}
	if cfg.PostCreateBurst != 20 {
		t.Errorf("PostCreateBurst = %d, want 20", cfg.PostCreateBurst)
	}
	if got := retryAfterSeconds(PerMinuteConfig(60, 6).PostCreateRate); got != 10 {
		t.Errorf("retryAfterSeconds = %d, want 10", got)
	}
}
