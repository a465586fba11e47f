package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/ethicheck/internal/model"
)

// TestWriteErrorResponse はドメインエラーが統一フォーマットで書き込まれることを検証する。
func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    *model.APIError
	}{
		{"検証エラー", http.StatusBadRequest, model.NewValidationError("title", "タイトルを入力してください")},
		{"未認証", http.StatusUnauthorized, model.NewUnauthorizedError()},
		{"ボイコット未検出", http.StatusNotFound, model.NewBoycottNotFoundError("b-1")},
		{"重複ボイコット", http.StatusConflict, model.NewDuplicateBoycottError("Acme packaging")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.status, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var raw map[string]string
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			want := map[string]string{
				"code":     tt.err.Code,
				"message":  tt.err.Message,
				"category": tt.err.Category,
				"action":   tt.err.Action,
			}
			for k, v := range want {
				if raw[k] != v {
					t.Errorf("%s = %q, want %q", k, raw[k], v)
				}
			}
		})
	}
}

// TestWriteInternalServerError は内部エラーが詳細を含まないsystemカテゴリで返ることを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if w.Code != http.StatusInternalServerError || body.Code != model.ErrCodeInternal || body.Category != "system" || body.Action == "" {
		t.Errorf("status = %d, body = %+v", w.Code, body)
	}
}
