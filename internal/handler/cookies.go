package handler

import (
	"net/http"

	"github.com/hitoshi/ethicheck/internal/middleware"
)

// cookieOptions はハンドラーが発行するCookieに共通する属性。
type cookieOptions struct {
	domain string
	secure bool
}

func cookieOptionsFrom(cfg AuthHandlerConfig) cookieOptions {
	return cookieOptions{domain: cfg.CookieDomain, secure: cfg.CookieSecure}
}

// build はHttpOnlyのCookieを生成する。maxAgeが負の場合は削除用になる。
// OAuthのstate Cookieはコールバックを受けるホストだけで使うためDomainを付けない。
func (o cookieOptions) build(name, value string, maxAge int, withDomain bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if withDomain {
		c.Domain = o.domain
	}
	return c
}

func (o cookieOptions) session(id string, maxAge int) *http.Cookie {
	return o.build(middleware.SessionCookieName, id, maxAge, true)
}

// expiredSession はログアウトと退会でセッションCookieを消すためのCookie。
// 発行時と同じDomainでなければブラウザは削除しない。
func (o cookieOptions) expiredSession() *http.Cookie {
	return o.session("", -1)
}
