package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresBoycottRepo はPostgreSQLを使用したボイコットリポジトリ。
type PostgresBoycottRepo struct {
	db *sql.DB
}

// NewPostgresBoycottRepo はPostgresBoycottRepoを生成する。
func NewPostgresBoycottRepo(db *sql.DB) *PostgresBoycottRepo {
	return &PostgresBoycottRepo{db: db}
}

// 参加者数はboycott_participantsから集計する。
const boycottSelect = `
	SELECT b.id, b.title, b.description, b.company, b.subject, b.category_id,
	       COALESCE(c.name, ''), b.impact, b.status, b.start_date, b.end_date,
	       b.organizer_id,
	       (SELECT COUNT(*) FROM boycott_participants bp WHERE bp.boycott_id = b.id),
	       b.created_at, b.updated_at
	FROM boycotts b
	LEFT JOIN categories c ON c.id = b.category_id`

func scanBoycott(row rowScanner) (*model.Boycott, error) {
	b := &model.Boycott{}
	var impact, status string
	var endDate sql.NullTime
	if err := row.Scan(
		&b.ID, &b.Title, &b.Description, &b.Company, &b.Subject, &b.CategoryID,
		&b.CategoryName, &impact, &status, &b.StartDate, &endDate,
		&b.OrganizerID, &b.ParticipantsCount, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Impact = model.BoycottImpact(impact)
	b.Status = model.BoycottStatus(status)
	if endDate.Valid {
		b.EndDate = &endDate.Time
	}
	return b, nil
}

// Create はボイコットを作成する。
func (r *PostgresBoycottRepo) Create(ctx context.Context, b *model.Boycott) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO boycotts (id, title, description, company, subject, category_id, impact,
		                       status, start_date, end_date, organizer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.Title, b.Description, b.Company, b.Subject, b.CategoryID, string(b.Impact),
		string(b.Status), b.StartDate, b.EndDate, b.OrganizerID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ボイコットの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのボイコットを取得する。見つからない場合はnilを返す。
func (r *PostgresBoycottRepo) FindByID(ctx context.Context, id string) (*model.Boycott, error) {
	b, err := scanBoycott(r.db.QueryRowContext(ctx, boycottSelect+` WHERE b.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ボイコットの取得に失敗しました: %w", err)
	}
	return b, nil
}

// FindActiveBySubject は主題が一致する進行中のボイコットを返す。
func (r *PostgresBoycottRepo) FindActiveBySubject(ctx context.Context, subject string) (*model.Boycott, error) {
	b, err := scanBoycott(r.db.QueryRowContext(ctx,
		boycottSelect+` WHERE lower(b.subject) = lower($1) AND b.status = 'active' LIMIT 1`,
		strings.TrimSpace(subject),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("主題によるボイコット検索に失敗しました: %w", err)
	}
	return b, nil
}

// List は条件に一致するボイコットをcreated_at降順に返す。
func (r *PostgresBoycottRepo) List(ctx context.Context, f BoycottFilter) ([]*model.Boycott, error) {
	query := boycottSelect + ` WHERE TRUE`
	var args []any
	argIndex := 1

	if s := strings.TrimSpace(f.Search); s != "" {
		query += fmt.Sprintf(" AND (b.title ILIKE $%d OR b.company ILIKE $%d OR b.subject ILIKE $%d)", argIndex, argIndex, argIndex)
		args = append(args, "%"+escapeLike(s)+"%")
		argIndex++
	}
	if f.Company != "" {
		query += fmt.Sprintf(" AND lower(b.company) = lower($%d)", argIndex)
		args = append(args, f.Company)
		argIndex++
	}
	if f.OrganizerID != "" {
		query += fmt.Sprintf(" AND b.organizer_id::text = $%d", argIndex)
		args = append(args, f.OrganizerID)
		argIndex++
	}
	if f.ActiveOnly {
		query += " AND b.status = 'active'"
	}
	query += " ORDER BY b.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ボイコット一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	boycotts := []*model.Boycott{}
	for rows.Next() {
		b, err := scanBoycott(rows)
		if err != nil {
			return nil, fmt.Errorf("ボイコット行の読み取りに失敗しました: %w", err)
		}
		boycotts = append(boycotts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ボイコット一覧の走査に失敗しました: %w", err)
	}
	return boycotts, nil
}

// escapeLike はILIKEパターン中のワイルドカード文字をエスケープする。
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateStatus はボイコットの状態を更新する。
func (r *PostgresBoycottRepo) UpdateStatus(ctx context.Context, id string, status model.BoycottStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE boycotts SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("ボイコット状態の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("boycott not found: %s", id)
	}
	return nil
}

// EndExpired はend_dateを過ぎた進行中のボイコットをendedに更新する。
func (r *PostgresBoycottRepo) EndExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE boycotts SET status = 'ended', updated_at = $1
		 WHERE status = 'active' AND end_date IS NOT NULL AND end_date < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("期限切れボイコットの終了処理に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Delete は指定IDのボイコットを削除する。参加情報はCASCADE削除され、告知投稿のboycott_idはNULLになる。
func (r *PostgresBoycottRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM boycotts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ボイコットの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("boycott not found: %s", id)
	}
	return nil
}

// Stats はボイコット全体の統計値を返す。
func (r *PostgresBoycottRepo) Stats(ctx context.Context) (*model.BoycottStats, error) {
	s := &model.BoycottStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE status = 'active'),
		    (SELECT COUNT(*) FROM boycott_participants),
		    COUNT(*) FILTER (WHERE status = 'successful'),
		    COUNT(DISTINCT lower(company)) FILTER (WHERE status = 'successful')
		 FROM boycotts`,
	).Scan(&s.Active, &s.TotalParticipants, &s.Successful, &s.CompaniesChanged)
	if err != nil {
		return nil, fmt.Errorf("ボイコット統計の取得に失敗しました: %w", err)
	}
	return s, nil
}

// compile-time interface check
var _ BoycottRepository = (*PostgresBoycottRepo)(nil)
