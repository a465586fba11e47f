package model

import "time"

// ProviderGoogle はGoogleログインで作成されたidentityのprovider値。
const ProviderGoogle = "google"

// User はログインできるアカウント。表示名やユーザー名など公開される情報はProfileが持つ。
type User struct {
	ID    string
	Email string
	// Name はIdPから受け取った氏名で、初回ログイン時の表示名の元になる。
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はUserとIdP側のアカウントを結びつける。
// (Provider, ProviderUserID) の組はデータベースで一意。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はsession_id Cookieで参照されるサーバー側のセッション。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt はt時点でセッションが失効しているかを返す。
func (s *Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
