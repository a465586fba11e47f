package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用した企業レビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

const reviewSelect = `
	SELECT r.id, r.user_id, r.company_id, c.name, r.category, r.rating, r.review_text,
	       r.created_at, r.updated_at
	FROM company_reviews r
	JOIN companies c ON c.id = r.company_id`

func scanReview(row rowScanner) (*model.Review, error) {
	rv := &model.Review{}
	var category string
	var text sql.NullString
	if err := row.Scan(&rv.ID, &rv.UserID, &rv.CompanyID, &rv.CompanyName, &category, &rv.Rating, &text, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return nil, err
	}
	rv.Category = model.ReviewCategory(category)
	rv.ReviewText = nullStringValue(text)
	return rv, nil
}

// Upsert は(user, company, category)ごとに1件のレビューを作成または更新する。
func (r *PostgresReviewRepo) Upsert(ctx context.Context, rv *model.Review) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO company_reviews (id, user_id, company_id, category, rating, review_text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, company_id, category) DO UPDATE SET
		    rating = EXCLUDED.rating,
		    review_text = EXCLUDED.review_text,
		    updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at, updated_at`,
		rv.ID, rv.UserID, rv.CompanyID, string(rv.Category), rv.Rating,
		nullString(rv.ReviewText), rv.CreatedAt, rv.UpdatedAt,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("レビューの保存に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+` WHERE r.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("レビューの取得に失敗しました: %w", err)
	}
	return rv, nil
}

// ListByUserID はユーザーのレビューを更新日時降順で返す。
func (r *PostgresReviewRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Review, error) {
	return r.list(ctx, reviewSelect+` WHERE r.user_id = $1 ORDER BY r.updated_at DESC`, userID)
}

// ListByCompanyID は企業のレビューを更新日時降順で返す。
func (r *PostgresReviewRepo) ListByCompanyID(ctx context.Context, companyID string) ([]*model.Review, error) {
	return r.list(ctx, reviewSelect+` WHERE r.company_id = $1 ORDER BY r.updated_at DESC`, companyID)
}

func (r *PostgresReviewRepo) list(ctx context.Context, query, arg string) ([]*model.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	reviews := []*model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("レビュー行の読み取りに失敗しました: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レビュー一覧の走査に失敗しました: %w", err)
	}
	return reviews, nil
}

// Delete は指定IDのレビューを削除する。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM company_reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("レビューの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
