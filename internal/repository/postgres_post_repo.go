package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postColumns = `p.id, p.user_id, p.kind, p.content, p.company_name, p.company_category,
	p.company_rating, p.is_boycott, p.boycott_id, p.likes_count, p.comments_count,
	p.created_at, p.updated_at`

// postScanTargets はpostColumnsの読み取り先を返す。scanの後にapplyを呼んでNULL許容カラムを反映する。
func postScanTargets(p *model.Post) (targets []any, apply func()) {
	var kind, companyName, companyCategory, boycottID sql.NullString
	var rating sql.NullInt64
	targets = []any{
		&p.ID, &p.UserID, &kind, &p.Content, &companyName, &companyCategory,
		&rating, &p.IsBoycott, &boycottID, &p.LikesCount, &p.CommentsCount,
		&p.CreatedAt, &p.UpdatedAt,
	}
	apply = func() {
		p.Kind = model.PostKind(nullStringValue(kind))
		p.CompanyName = nullStringValue(companyName)
		p.CompanyCategory = nullStringValue(companyCategory)
		p.CompanyRating = nullIntValue(rating)
		p.BoycottID = nullStringValue(boycottID)
	}
	return targets, apply
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, p *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, kind, content, company_name, company_category,
		                    company_rating, is_boycott, boycott_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.UserID, nullString(string(p.Kind)), p.Content,
		nullString(p.CompanyName), nullString(p.CompanyCategory), nullInt(p.CompanyRating),
		p.IsBoycott, nullString(p.BoycottID), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	p := &model.Post{}
	targets, apply := postScanTargets(p)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id,
	).Scan(targets...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	apply()
	return p, nil
}

// List は投稿を投稿者のプロフィール情報付きで(created_at, id)の降順に返す。
func (r *PostgresPostRepo) List(ctx context.Context, q PostQuery) ([]model.PostWithAuthor, error) {
	if q.AuthorIDs != nil && len(q.AuthorIDs) == 0 {
		return []model.PostWithAuthor{}, nil
	}

	query := `
		SELECT ` + postColumns + `,
		       COALESCE(pr.display_name, ''), pr.username, pr.avatar_url,
		       COALESCE(pr.profile_type, 'user'),
		       EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id::text = $1)
		FROM posts p
		LEFT JOIN profiles pr ON pr.user_id = p.user_id
		WHERE TRUE`

	args := []any{q.ViewerID}
	argIndex := 2

	if q.AuthorIDs != nil {
		query += fmt.Sprintf(" AND p.user_id::text = ANY($%d)", argIndex)
		args = append(args, pq.Array(q.AuthorIDs))
		argIndex++
	}

	// カーソルベースページネーション
	switch {
	case !q.Cursor.IsZero() && q.CursorID != "":
		query += fmt.Sprintf(" AND (p.created_at, p.id) < ($%d, $%d::uuid)", argIndex, argIndex+1)
		args = append(args, q.Cursor, q.CursorID)
		argIndex += 2
	case !q.Cursor.IsZero():
		query += fmt.Sprintf(" AND p.created_at < $%d", argIndex)
		args = append(args, q.Cursor)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d", argIndex)
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	posts := []model.PostWithAuthor{}
	for rows.Next() {
		var pwa model.PostWithAuthor
		var username, avatarURL sql.NullString
		var profileType string
		targets, apply := postScanTargets(&pwa.Post)
		targets = append(targets, &pwa.AuthorDisplayName, &username, &avatarURL, &profileType, &pwa.LikedByViewer)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		apply()
		pwa.AuthorUsername = nullStringValue(username)
		pwa.AuthorAvatarURL = nullStringValue(avatarURL)
		pwa.AuthorProfileType = model.ProfileType(profileType)
		posts = append(posts, pwa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}
	return posts, nil
}

// LikedPostIDs は指定投稿のうちユーザーがいいね済みのIDを返す。
func (r *PostgresPostRepo) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id FROM post_likes WHERE user_id::text = $1 AND post_id::text = ANY($2)`,
		userID, pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("いいね済み投稿の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("いいね行の読み取りに失敗しました: %w", err)
		}
		liked[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("いいね一覧の走査に失敗しました: %w", err)
	}
	return liked, nil
}

// CountByUserID はユーザーの投稿数を返す。
func (r *PostgresPostRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Delete は指定IDの投稿を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found: %s", id)
	}
	return nil
}

// Like は投稿にいいねを付ける。
func (r *PostgresPostRepo) Like(ctx context.Context, postID, userID string) (bool, error) {
	return r.toggleLike(ctx, postID, userID,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		`UPDATE posts SET likes_count = likes_count + 1 WHERE id = $1`,
	)
}

// Unlike は投稿のいいねを取り消す。
func (r *PostgresPostRepo) Unlike(ctx context.Context, postID, userID string) (bool, error) {
	return r.toggleLike(ctx, postID, userID,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		`UPDATE posts SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`,
	)
}

// toggleLike はpost_likesの変更とlikes_countの更新を同一トランザクションで行う。
// post_likesが変化しなかった場合はlikes_countを更新せずfalseを返す。
func (r *PostgresPostRepo) toggleLike(ctx context.Context, postID, userID, likeStmt, countStmt string) (bool, error) {
	changed := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, likeStmt, postID, userID)
		if err != nil {
			return fmt.Errorf("いいねの更新に失敗しました: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, countStmt, postID); err != nil {
			return fmt.Errorf("いいね数の更新に失敗しました: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
