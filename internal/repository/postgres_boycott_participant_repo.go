package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresBoycottParticipantRepo はPostgreSQLを使用したボイコット参加リポジトリ。
type PostgresBoycottParticipantRepo struct {
	db *sql.DB
}

// NewPostgresBoycottParticipantRepo はPostgresBoycottParticipantRepoを生成する。
func NewPostgresBoycottParticipantRepo(db *sql.DB) *PostgresBoycottParticipantRepo {
	return &PostgresBoycottParticipantRepo{db: db}
}

// Join は参加を登録する。既に参加済みの場合はfalseを返す。
func (r *PostgresBoycottParticipantRepo) Join(ctx context.Context, boycottID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO boycott_participants (boycott_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		boycottID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("ボイコットへの参加登録に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Leave は参加を取り消す。参加していなかった場合はfalseを返す。
func (r *PostgresBoycottParticipantRepo) Leave(ctx context.Context, boycottID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM boycott_participants WHERE boycott_id = $1 AND user_id = $2`,
		boycottID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("ボイコットからの離脱に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListBoycottIDsByUser はユーザーが参加しているボイコットIDを参加日時の新しい順に返す。
func (r *PostgresBoycottParticipantRepo) ListBoycottIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT boycott_id FROM boycott_participants WHERE user_id = $1 ORDER BY joined_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("参加ボイコット一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("参加行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参加一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// CountByBoycottIDs は指定ボイコット群の参加者数を1クエリで集計する。
func (r *PostgresBoycottParticipantRepo) CountByBoycottIDs(ctx context.Context, boycottIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(boycottIDs))
	if len(boycottIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT boycott_id, COUNT(*) FROM boycott_participants
		 WHERE boycott_id::text = ANY($1)
		 GROUP BY boycott_id`,
		pq.Array(boycottIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("参加者数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("参加者数行の読み取りに失敗しました: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参加者数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// compile-time interface check
var _ BoycottParticipantRepository = (*PostgresBoycottParticipantRepo)(nil)
