package handler

import (
	"context"
	"net/http"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Withdraw はセッションとユーザーを削除する。関連データはカスケードで消える。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はアカウント操作のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	cookies cookieOptions
}

// NewUserHandler はUserHandlerを生成する。cfgのCookie属性はセッションCookieの削除に使う。
func NewUserHandler(service UserServiceInterface, cfg AuthHandlerConfig) *UserHandler {
	return &UserHandler{service: service, cookies: cookieOptionsFrom(cfg)}
}

// Withdraw は退会する。成功した場合だけセッションCookieを削除して204を返す。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, h.cookies.expiredSession())
	w.WriteHeader(http.StatusNoContent)
}
