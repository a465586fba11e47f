package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/ethicheck/internal/model"
)

// PostgresIdentityRepo はidentitiesテーブルを扱う。行の作成はPostgresUserRepo.CreateWithIdentityが行う。
type PostgresIdentityRepo struct {
	db *sql.DB
}

func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はIdP側のアカウントに紐づくidentityを返す。未登録ならnil, nil。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	const q = `SELECT id, user_id, provider, provider_user_id, created_at
		FROM identities WHERE provider = $1 AND provider_user_id = $2`

	var id model.Identity
	err := r.db.QueryRowContext(ctx, q, provider, providerUserID).
		Scan(&id.ID, &id.UserID, &id.Provider, &id.ProviderUserID, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identityの取得に失敗しました (provider=%s): %w", provider, err)
	}
	return &id, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
