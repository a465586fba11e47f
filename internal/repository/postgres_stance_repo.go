package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresStanceRepo はPostgreSQLを使用した企業スタンスリポジトリ。
type PostgresStanceRepo struct {
	db *sql.DB
}

// NewPostgresStanceRepo はPostgresStanceRepoを生成する。
func NewPostgresStanceRepo(db *sql.DB) *PostgresStanceRepo {
	return &PostgresStanceRepo{db: db}
}

const stanceSelect = `
	SELECT s.id, s.user_id, s.company_id, c.name, s.stance,
	       s.ethics_rating, s.environment_rating, s.politics_rating, s.overall_rating,
	       s.notes, s.created_at, s.updated_at
	FROM user_company_stances s
	JOIN companies c ON c.id = s.company_id`

func scanStance(row rowScanner) (*model.Stance, error) {
	st := &model.Stance{}
	var stance string
	var ethics, environment, politics, overall sql.NullInt64
	var notes sql.NullString
	if err := row.Scan(
		&st.ID, &st.UserID, &st.CompanyID, &st.CompanyName, &stance,
		&ethics, &environment, &politics, &overall,
		&notes, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	st.Stance = model.StanceType(stance)
	st.EthicsRating = nullIntValue(ethics)
	st.EnvironmentRating = nullIntValue(environment)
	st.PoliticsRating = nullIntValue(politics)
	st.OverallRating = nullIntValue(overall)
	st.Notes = nullStringValue(notes)
	return st, nil
}

// Upsert は(user, company)ごとに1件のスタンスを作成または更新する。
func (r *PostgresStanceRepo) Upsert(ctx context.Context, st *model.Stance) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_company_stances (id, user_id, company_id, stance,
		        ethics_rating, environment_rating, politics_rating, overall_rating,
		        notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, company_id) DO UPDATE SET
		    stance = EXCLUDED.stance,
		    ethics_rating = EXCLUDED.ethics_rating,
		    environment_rating = EXCLUDED.environment_rating,
		    politics_rating = EXCLUDED.politics_rating,
		    overall_rating = EXCLUDED.overall_rating,
		    notes = EXCLUDED.notes,
		    updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		st.ID, st.UserID, st.CompanyID, string(st.Stance),
		nullInt(st.EthicsRating), nullInt(st.EnvironmentRating),
		nullInt(st.PoliticsRating), nullInt(st.OverallRating),
		nullString(st.Notes), st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("スタンスの保存に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのスタンスを取得する。見つからない場合はnilを返す。
func (r *PostgresStanceRepo) FindByID(ctx context.Context, id string) (*model.Stance, error) {
	st, err := scanStance(r.db.QueryRowContext(ctx, stanceSelect+` WHERE s.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("スタンスの取得に失敗しました: %w", err)
	}
	return st, nil
}

// ListByUserID はユーザーのスタンスを更新日時降順で返す。
func (r *PostgresStanceRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Stance, error) {
	rows, err := r.db.QueryContext(ctx, stanceSelect+` WHERE s.user_id = $1 ORDER BY s.updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("スタンス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	stances := []*model.Stance{}
	for rows.Next() {
		st, err := scanStance(rows)
		if err != nil {
			return nil, fmt.Errorf("スタンス行の読み取りに失敗しました: %w", err)
		}
		stances = append(stances, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スタンス一覧の走査に失敗しました: %w", err)
	}
	return stances, nil
}

// CountByStance はユーザーのスタンス数を種別ごとに返す。
func (r *PostgresStanceRepo) CountByStance(ctx context.Context, userID string) (map[model.StanceType]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT stance, COUNT(*) FROM user_company_stances WHERE user_id = $1 GROUP BY stance`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("スタンス数の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := map[model.StanceType]int{}
	for rows.Next() {
		var stance string
		var n int
		if err := rows.Scan(&stance, &n); err != nil {
			return nil, fmt.Errorf("スタンス数行の読み取りに失敗しました: %w", err)
		}
		counts[model.StanceType(stance)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スタンス数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// Delete は指定IDのスタンスを削除する。
func (r *PostgresStanceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_company_stances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("スタンスの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("stance not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ StanceRepository = (*PostgresStanceRepo)(nil)
