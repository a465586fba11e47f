package model

import "time"

// PostKind は投稿本文の種別を表す。作成時に一度だけ決定され、posts.kindに保存される。
type PostKind string

const (
	// PostKindPlain は通常のテキスト投稿（スタンス投稿を含む）。
	PostKindPlain PostKind = "plain"
	// PostKindReview は星評価ヘッダ付きの企業レビュー投稿。
	PostKindReview PostKind = "review"
	// PostKindBoycott はボイコット告知投稿。
	PostKindBoycott PostKind = "boycott"
)

// Valid は既知の種別かどうかを返す。
func (k PostKind) Valid() bool {
	switch k {
	case PostKindPlain, PostKindReview, PostKindBoycott:
		return true
	}
	return false
}

// Post はフィードに表示される投稿を表す。
// Contentは整形済みの本文で、企業情報やボイコット情報は構造化カラムにも保持する。
type Post struct {
	ID              string
	UserID          string
	Kind            PostKind // 空文字列はkindカラム導入前のレガシー行
	Content         string
	CompanyName     string
	CompanyCategory string
	CompanyRating   *int
	IsBoycott       bool
	BoycottID       string // ボイコット作成フローから告知された場合のみ設定
	LikesCount      int
	CommentsCount   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PostWithAuthor は投稿と投稿者のプロフィール表示情報を結合した構造体。
type PostWithAuthor struct {
	Post
	AuthorDisplayName string
	AuthorUsername    string
	AuthorAvatarURL   string
	AuthorProfileType ProfileType
	LikedByViewer     bool
}

// FeedScope はフィードの取得範囲を表す。
type FeedScope string

const (
	// FeedScopeAll は全ユーザーの投稿。
	FeedScopeAll FeedScope = "all"
	// FeedScopeFollowing はフォロー中のユーザーと自分の投稿。
	FeedScopeFollowing FeedScope = "following"
)

// ParseFeedScope は文字列をFeedScopeに変換する。空文字列はFeedScopeAllとして扱う。
func ParseFeedScope(s string) (FeedScope, bool) {
	switch s {
	case "", string(FeedScopeAll):
		return FeedScopeAll, true
	case string(FeedScopeFollowing):
		return FeedScopeFollowing, true
	}
	return "", false
}
