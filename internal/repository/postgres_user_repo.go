package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresUserRepo はusersテーブルと、初回登録時に同時に作られるidentities・profilesを扱う。
type PostgresUserRepo struct {
	db *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを返す。存在しない場合はnil, nil。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`

	var u model.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return &u, nil
}

// CreateWithIdentity は初回ログインのユーザー、identity、初期プロフィールをまとめて作成する。
// どれか一つでも失敗した場合は何も残らない。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity, profile *model.Profile) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			user.ID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
		); err != nil {
			return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
			identity.ID, user.ID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("identityの作成に失敗しました: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, display_name, avatar_url, profile_type, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID, profile.DisplayName, nullString(profile.AvatarURL), string(profile.ProfileType),
			profile.CreatedAt, profile.UpdatedAt,
		); err != nil {
			return fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
		}
		return nil
	})
}

// DeleteByID はユーザーを削除する。関連する行はON DELETE CASCADEで消える。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("削除対象のユーザーが存在しません: %s", id)
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepo)(nil)
