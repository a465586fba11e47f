package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `user_id, display_name, username, bio, avatar_url, profile_type, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var username, bio, avatarURL sql.NullString
	var profileType string
	if err := row.Scan(&p.UserID, &p.DisplayName, &username, &bio, &avatarURL, &profileType, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Username = nullStringValue(username)
	p.Bio = nullStringValue(bio)
	p.AvatarURL = nullStringValue(avatarURL)
	p.ProfileType = model.ProfileType(profileType)
	return p, nil
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return p, nil
}

// FindByUsername はユーザー名でプロフィールを検索する。
func (r *PostgresProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(username) = lower($1)`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー名によるプロフィール検索に失敗しました: %w", err)
	}
	return p, nil
}

// ListByUserIDs は指定ユーザー群のプロフィールを返す。
func (r *PostgresProfileRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]*model.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id::text = ANY($1) ORDER BY created_at DESC`,
		pq.Array(userIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("プロフィール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListCreators はクリエイタープロフィールを新しい順に返す。
func (r *PostgresProfileRepo) ListCreators(ctx context.Context, limit int) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE profile_type = 'creator' ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("クリエイター一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

func collectProfiles(rows *sql.Rows) ([]*model.Profile, error) {
	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("プロフィール行の読み取りに失敗しました: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロフィール一覧の走査に失敗しました: %w", err)
	}
	return profiles, nil
}

// Update はプロフィールを更新する。ユーザー名が重複する場合はErrDuplicateを返す。
func (r *PostgresProfileRepo) Update(ctx context.Context, p *model.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET
		    display_name = $2, username = $3, bio = $4, avatar_url = $5,
		    profile_type = $6, updated_at = $7
		 WHERE user_id = $1`,
		p.UserID, p.DisplayName, nullString(p.Username), nullString(p.Bio),
		nullString(p.AvatarURL), string(p.ProfileType), p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", p.UserID)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
