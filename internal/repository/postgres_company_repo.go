package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresCompanyRepo はPostgreSQLを使用した企業リポジトリ。
// 集計値はcompany_ratings_viewから読み取る。
type PostgresCompanyRepo struct {
	db *sql.DB
}

// NewPostgresCompanyRepo はPostgresCompanyRepoを生成する。
func NewPostgresCompanyRepo(db *sql.DB) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: db}
}

const companyColumns = `id, name, industry, description, website_url, logo_url, created_at, updated_at`

func companyScanTargets(c *model.Company) ([]any, func()) {
	var industry, description, websiteURL, logoURL sql.NullString
	targets := []any{&c.ID, &c.Name, &industry, &description, &websiteURL, &logoURL, &c.CreatedAt, &c.UpdatedAt}
	return targets, func() {
		c.Industry = nullStringValue(industry)
		c.Description = nullStringValue(description)
		c.WebsiteURL = nullStringValue(websiteURL)
		c.LogoURL = nullStringValue(logoURL)
	}
}

func scanCompanyRating(row rowScanner) (*model.CompanyRating, error) {
	cr := &model.CompanyRating{}
	var ethics, environment, politics, overall sql.NullFloat64
	targets, apply := companyScanTargets(&cr.Company)
	targets = append(targets,
		&ethics, &environment, &politics, &overall,
		&cr.RecommendCount, &cr.NeutralCount, &cr.DiscourageCount,
		&cr.ActiveBoycottCount, &cr.TotalRatings,
	)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	apply()
	cr.AvgEthics = nullFloatValue(ethics)
	cr.AvgEnvironment = nullFloatValue(environment)
	cr.AvgPolitics = nullFloatValue(politics)
	cr.AvgOverall = nullFloatValue(overall)
	return cr, nil
}

const ratingSelect = `SELECT ` + companyColumns + `,
	avg_ethics, avg_environment, avg_politics, avg_overall,
	recommend_count, neutral_count, discourage_count,
	active_boycotts_count, total_ratings
	FROM company_ratings_view`

// FindByName は企業名（大文字小文字無視）で企業を取得する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindByName(ctx context.Context, name string) (*model.Company, error) {
	c := &model.Company{}
	targets, apply := companyScanTargets(c)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE lower(name) = lower($1)`,
		strings.TrimSpace(name),
	).Scan(targets...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("企業の取得に失敗しました: %w", err)
	}
	apply()
	return c, nil
}

// ListRatings はcompany_ratings_viewの全行を企業名順に返す。
func (r *PostgresCompanyRepo) ListRatings(ctx context.Context) ([]*model.CompanyRating, error) {
	rows, err := r.db.QueryContext(ctx, ratingSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("企業評価一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ratings := []*model.CompanyRating{}
	for rows.Next() {
		cr, err := scanCompanyRating(rows)
		if err != nil {
			return nil, fmt.Errorf("企業評価行の読み取りに失敗しました: %w", err)
		}
		ratings = append(ratings, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("企業評価一覧の走査に失敗しました: %w", err)
	}
	return ratings, nil
}

// FindRatingByName は企業名でcompany_ratings_viewの行を取得する。見つからない場合はnilを返す。
func (r *PostgresCompanyRepo) FindRatingByName(ctx context.Context, name string) (*model.CompanyRating, error) {
	cr, err := scanCompanyRating(r.db.QueryRowContext(ctx,
		ratingSelect+` WHERE lower(name) = lower($1)`, strings.TrimSpace(name)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("企業評価の取得に失敗しました: %w", err)
	}
	return cr, nil
}

// ListMissingLogo はWebサイトURLがありロゴが未設定の企業を返す。
func (r *PostgresCompanyRepo) ListMissingLogo(ctx context.Context, limit int) ([]*model.Company, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies
		 WHERE website_url IS NOT NULL AND website_url <> '' AND (logo_url IS NULL OR logo_url = '')
		 ORDER BY updated_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ロゴ未設定企業の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var companies []*model.Company
	for rows.Next() {
		c := &model.Company{}
		targets, apply := companyScanTargets(c)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("企業行の読み取りに失敗しました: %w", err)
		}
		apply()
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("企業一覧の走査に失敗しました: %w", err)
	}
	return companies, nil
}

// UpdateLogo は企業のロゴURLを更新する。
// 解決に失敗した場合も空文字列で呼び出してupdated_atを進め、次回は後回しにする。
func (r *PostgresCompanyRepo) UpdateLogo(ctx context.Context, companyID, logoURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE companies SET logo_url = $2, updated_at = now() WHERE id = $1`,
		companyID, nullString(logoURL),
	)
	if err != nil {
		return fmt.Errorf("ロゴURLの更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CompanyRepository = (*PostgresCompanyRepo)(nil)
