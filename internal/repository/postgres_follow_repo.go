package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Create はフォロー関係を作成する。既に存在する場合はErrDuplicateを返す。
func (r *PostgresFollowRepo) Create(ctx context.Context, f *model.Follow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (id, follower_id, following_id, created_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.FollowerID, f.FollowingID, f.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("フォローの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete はフォロー関係を削除する。
func (r *PostgresFollowRepo) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	)
	if err != nil {
		return false, fmt.Errorf("フォローの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListFollowingIDs は指定ユーザーがフォローしているユーザーIDを返す。
func (r *PostgresFollowRepo) ListFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT following_id FROM follows WHERE follower_id = $1 ORDER BY created_at DESC`, userID)
}

// ListFollowerIDs は指定ユーザーをフォローしているユーザーIDを返す。
func (r *PostgresFollowRepo) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT follower_id FROM follows WHERE following_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PostgresFollowRepo) listIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("フォロー行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// Counts は指定ユーザーのフォロワー数とフォロー数を返す。
func (r *PostgresFollowRepo) Counts(ctx context.Context, userID string) (int, int, error) {
	var followers, following int
	err := r.db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM follows WHERE following_id = $1),
		    (SELECT COUNT(*) FROM follows WHERE follower_id = $1)`,
		userID,
	).Scan(&followers, &following)
	if err != nil {
		return 0, 0, fmt.Errorf("フォロー数の取得に失敗しました: %w", err)
	}
	return followers, following, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
