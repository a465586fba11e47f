// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/ethicheck/internal/model"
)

// ErrDuplicate は一意制約に違反する行を作成しようとした場合に返される。
var ErrDuplicate = errors.New("repository: duplicate row")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザー、identity、初期プロフィールを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 投稿、フォロー、レビュー、スタンス、参加情報、プロフィールはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)
	// FindByUsername はユーザー名でプロフィールを検索する。大文字小文字は区別しない。
	FindByUsername(ctx context.Context, username string) (*model.Profile, error)
	// ListByUserIDs は指定ユーザー群のプロフィールをcreated_at降順で返す。
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*model.Profile, error)
	// ListCreators はクリエイタープロフィールを新しい順に返す。
	ListCreators(ctx context.Context, limit int) ([]*model.Profile, error)
	// Update はプロフィールを更新する。ユーザー名が重複する場合はErrDuplicateを返す。
	Update(ctx context.Context, profile *model.Profile) error
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// Create はフォロー関係を作成する。既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, follow *model.Follow) error
	// Delete はフォロー関係を削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, followerID, followingID string) (bool, error)
	// ListFollowingIDs は指定ユーザーがフォローしているユーザーIDを返す。
	ListFollowingIDs(ctx context.Context, userID string) ([]string, error)
	// ListFollowerIDs は指定ユーザーをフォローしているユーザーIDを返す。
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
	// Counts は指定ユーザーのフォロワー数とフォロー数を返す。
	Counts(ctx context.Context, userID string) (followers, following int, err error)
}

// PostQuery はフィード取得条件を表す。
type PostQuery struct {
	// ViewerID はいいね済みかどうかの判定に使う閲覧ユーザーID。
	ViewerID string
	// AuthorIDs が非nilの場合、投稿者をこのIDに限定する。空スライスの場合は結果も空になる。
	AuthorIDs []string
	// Cursor がゼロ値でない場合、(created_at, id) がこれより前の投稿のみを返す。
	Cursor time.Time
	// CursorID は同一時刻の投稿を分けるための直前ページ末尾の投稿ID。空の場合は時刻のみで比較する。
	CursorID string
	Limit    int
}

// PostRepository は投稿の永続化インターフェース。
type PostRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)
	// List は投稿を投稿者のプロフィール情報付きでcreated_at降順に返す。
	List(ctx context.Context, q PostQuery) ([]model.PostWithAuthor, error)
	// LikedPostIDs は指定投稿のうちユーザーがいいね済みのIDを返す。
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	// CountByUserID はユーザーの投稿数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)
	// Delete は指定IDの投稿を削除する。
	Delete(ctx context.Context, id string) error
	// Like は投稿にいいねを付け、likes_countを同一トランザクションで更新する。既にいいね済みの場合はfalseを返す。
	Like(ctx context.Context, postID, userID string) (bool, error)
	// Unlike は投稿のいいねを取り消す。いいねしていなかった場合はfalseを返す。
	Unlike(ctx context.Context, postID, userID string) (bool, error)
}

// BoycottFilter はボイコット一覧の絞り込み条件を表す。
type BoycottFilter struct {
	// Search はtitle、company、subjectの部分一致検索語。
	Search string
	// Company が指定された場合、企業名の完全一致（大文字小文字無視）で絞り込む。
	Company string
	// OrganizerID が指定された場合、主催者で絞り込む。
	OrganizerID string
	// ActiveOnly がtrueの場合、進行中のボイコットのみを返す。
	ActiveOnly bool
}

// BoycottRepository はボイコットの永続化インターフェース。
type BoycottRepository interface {
	// Create はボイコットを作成する。
	Create(ctx context.Context, boycott *model.Boycott) error
	// FindByID は指定IDのボイコットを参加者数付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Boycott, error)
	// FindActiveBySubject は主題が一致する（大文字小文字無視）進行中のボイコットを返す。見つからない場合はnilを返す。
	FindActiveBySubject(ctx context.Context, subject string) (*model.Boycott, error)
	// List は条件に一致するボイコットを参加者数付きでcreated_at降順に返す。
	List(ctx context.Context, f BoycottFilter) ([]*model.Boycott, error)
	// UpdateStatus はボイコットの状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.BoycottStatus) error
	// EndExpired はend_dateを過ぎた進行中のボイコットをendedに更新し、更新件数を返す。
	EndExpired(ctx context.Context, now time.Time) (int64, error)
	// Delete は指定IDのボイコットを削除する。
	Delete(ctx context.Context, id string) error
	// Stats はボイコット全体の統計値を返す。
	Stats(ctx context.Context) (*model.BoycottStats, error)
}

// BoycottParticipantRepository はボイコット参加情報の永続化インターフェース。
type BoycottParticipantRepository interface {
	// Join は参加を登録する。既に参加済みの場合はfalseを返す。
	Join(ctx context.Context, boycottID, userID string) (bool, error)
	// Leave は参加を取り消す。参加していなかった場合はfalseを返す。
	Leave(ctx context.Context, boycottID, userID string) (bool, error)
	// ListBoycottIDsByUser はユーザーが参加しているボイコットIDを返す。
	ListBoycottIDsByUser(ctx context.Context, userID string) ([]string, error)
	// CountByBoycottIDs は指定ボイコット群の参加者数を返す。参加者のいないIDはマップに含まれない。
	CountByBoycottIDs(ctx context.Context, boycottIDs []string) (map[string]int, error)
}

// CompanyRepository は企業と企業評価ビューの永続化インターフェース。
type CompanyRepository interface {
	// FindByName は企業名（大文字小文字無視）で企業を取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Company, error)
	// ListRatings はcompany_ratings_viewの全行を企業名順に返す。
	ListRatings(ctx context.Context) ([]*model.CompanyRating, error)
	// FindRatingByName は企業名でcompany_ratings_viewの行を取得する。見つからない場合はnilを返す。
	FindRatingByName(ctx context.Context, name string) (*model.CompanyRating, error)
	// ListMissingLogo はWebサイトURLがありロゴが未設定の企業を返す。
	ListMissingLogo(ctx context.Context, limit int) ([]*model.Company, error)
	// UpdateLogo は企業のロゴURLを更新する。
	UpdateLogo(ctx context.Context, companyID, logoURL string) error
}

// CategoryRepository はボイコットカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// List は全カテゴリを名前順に返す。
	List(ctx context.Context) ([]*model.Category, error)
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)
}

// ReviewRepository は企業レビューの永続化インターフェース。
type ReviewRepository interface {
	// Upsert は(user, company, category)ごとに1件のレビューを作成または更新する。
	// review.IDとタイムスタンプは保存後の値で上書きされる。
	Upsert(ctx context.Context, review *model.Review) error
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)
	// ListByUserID はユーザーのレビューを更新日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Review, error)
	// ListByCompanyID は企業のレビューを更新日時降順で返す。
	ListByCompanyID(ctx context.Context, companyID string) ([]*model.Review, error)
	// Delete は指定IDのレビューを削除する。
	Delete(ctx context.Context, id string) error
}

// StanceRepository は企業スタンスの永続化インターフェース。
type StanceRepository interface {
	// Upsert は(user, company)ごとに1件のスタンスを作成または更新する。
	Upsert(ctx context.Context, stance *model.Stance) error
	// FindByID は指定IDのスタンスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Stance, error)
	// ListByUserID はユーザーのスタンスを更新日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Stance, error)
	// CountByStance はユーザーのスタンス数を種別ごとに返す。
	CountByStance(ctx context.Context, userID string) (map[model.StanceType]int, error)
	// Delete は指定IDのスタンスを削除する。
	Delete(ctx context.Context, id string) error
}

// TxBeginner はwithTxがトランザクションを開始するために使う。*sql.DBが満たす。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
