// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, boycott, company, social, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidInteraction = "INVALID_INTERACTION"
	ErrCodePostNotFound       = "POST_NOT_FOUND"
	ErrCodeBoycottNotFound    = "BOYCOTT_NOT_FOUND"
	ErrCodeDuplicateBoycott   = "DUPLICATE_BOYCOTT"
	ErrCodeAlreadyJoined      = "ALREADY_JOINED"
	ErrCodeNotJoined          = "NOT_JOINED"
	ErrCodeBoycottNotActive   = "BOYCOTT_NOT_ACTIVE"
	ErrCodeCompanyNotFound    = "COMPANY_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeReviewNotFound     = "REVIEW_NOT_FOUND"
	ErrCodeStanceNotFound     = "STANCE_NOT_FOUND"
	ErrCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeAlreadyFollowing   = "ALREADY_FOLLOWING"
	ErrCodeNotFollowing       = "NOT_FOLLOWING"
	ErrCodeCannotFollowSelf   = "CANNOT_FOLLOW_SELF"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeCSRFFailed         = "CSRF_FAILED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// fieldは問題のあるフィールド名、reasonは理由を表す。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が正しくありません（%s）: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidInteractionError は未知の投稿種別が指定された場合のエラーを生成する。
func NewInvalidInteractionError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInteraction,
		Message:  fmt.Sprintf("無効な投稿種別です: %s", kind),
		Category: "validation",
		Action:   "投稿種別には plain、review、stance、boycott のいずれかを指定してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿IDを確認してください。",
	}
}

// NewBoycottNotFoundError はボイコット未検出エラーを生成する。
func NewBoycottNotFoundError(boycottID string) *APIError {
	return &APIError{
		Code:     ErrCodeBoycottNotFound,
		Message:  fmt.Sprintf("指定されたボイコットが見つかりません: %s", boycottID),
		Category: "boycott",
		Action:   "ボイコットIDを確認してください。",
	}
}

// NewDuplicateBoycottError は同じ主題のボイコットが既に進行中の場合のエラーを生成する。
func NewDuplicateBoycottError(subject string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateBoycott,
		Message:  fmt.Sprintf("同じ主題のボイコットが既に進行中です: %s", subject),
		Category: "boycott",
		Action:   "既存のボイコットに参加するか、別の主題を指定してください。",
	}
}

// NewAlreadyJoinedError は既に参加済みのボイコットへの参加エラーを生成する。
func NewAlreadyJoinedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyJoined,
		Message:  "このボイコットには既に参加しています。",
		Category: "boycott",
		Action:   "参加中のボイコット一覧を確認してください。",
	}
}

// NewNotJoinedError は未参加のボイコットから離脱しようとした場合のエラーを生成する。
func NewNotJoinedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotJoined,
		Message:  "このボイコットには参加していません。",
		Category: "boycott",
		Action:   "参加中のボイコット一覧を確認してください。",
	}
}

// NewBoycottNotActiveError は進行中でないボイコットへの参加エラーを生成する。
func NewBoycottNotActiveError() *APIError {
	return &APIError{
		Code:     ErrCodeBoycottNotActive,
		Message:  "このボイコットは終了しているため参加できません。",
		Category: "boycott",
		Action:   "進行中のボイコットを選択してください。",
	}
}

// NewCompanyNotFoundError は企業未検出エラーを生成する。
func NewCompanyNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeCompanyNotFound,
		Message:  fmt.Sprintf("企業が見つかりません: %s", name),
		Category: "company",
		Action:   "企業名を確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("カテゴリが見つかりません: %s", categoryID),
		Category: "validation",
		Action:   "カテゴリ一覧から選択してください。",
	}
}

// NewReviewNotFoundError はレビュー未検出エラーを生成する。
func NewReviewNotFoundError(reviewID string) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: %s", reviewID),
		Category: "company",
		Action:   "レビューIDを確認してください。",
	}
}

// NewStanceNotFoundError はスタンス未検出エラーを生成する。
func NewStanceNotFoundError(stanceID string) *APIError {
	return &APIError{
		Code:     ErrCodeStanceNotFound,
		Message:  fmt.Sprintf("指定されたスタンスが見つかりません: %s", stanceID),
		Category: "company",
		Action:   "スタンスIDを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("プロフィールが見つかりません: %s", userID),
		Category: "social",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewAlreadyFollowingError は既にフォロー済みの場合のエラーを生成する。
func NewAlreadyFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFollowing,
		Message:  "このユーザーは既にフォローしています。",
		Category: "social",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewNotFollowingError はフォローしていないユーザーのフォロー解除エラーを生成する。
func NewNotFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFollowing,
		Message:  "このユーザーをフォローしていません。",
		Category: "social",
		Action:   "フォロー一覧を確認してください。",
	}
}

// NewCannotFollowSelfError は自分自身をフォローしようとした場合のエラーを生成する。
func NewCannotFollowSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeCannotFollowSelf,
		Message:  "自分自身をフォローすることはできません。",
		Category: "validation",
		Action:   "他のユーザーを選択してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewCSRFFailedError はCSRFトークン検証の失敗エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は原因をクライアントに伝えない内部エラーを生成する。詳細はログにだけ残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
