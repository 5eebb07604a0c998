package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PostgresContentRepo はPostgreSQLを使用した物件コンテンツリポジトリ。
type PostgresContentRepo struct {
	db *sql.DB
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db *sql.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

// FindByPropertyID は物件IDでコンテンツを取得する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByPropertyID(ctx context.Context, propertyID string) (*model.PropertyContent, error) {
	content := &model.PropertyContent{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, property_id, headline, description, social_post, email_copy,
		        created_at, updated_at
		 FROM property_contents WHERE property_id = $1`,
		propertyID,
	).Scan(
		&content.ID, &content.PropertyID, &content.Headline, &content.Description,
		&content.SocialPost, &content.EmailCopy, &content.CreatedAt, &content.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find property content: %w", err)
	}

	return content, nil
}

// Upsert は物件IDをキーにコンテンツをUPSERTする。
func (r *PostgresContentRepo) Upsert(ctx context.Context, content *model.PropertyContent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO property_contents (
		    id, property_id, headline, description, social_post, email_copy,
		    created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (property_id) DO UPDATE SET
		    headline = EXCLUDED.headline,
		    description = EXCLUDED.description,
		    social_post = EXCLUDED.social_post,
		    email_copy = EXCLUDED.email_copy,
		    updated_at = now()`,
		content.ID, content.PropertyID, content.Headline, content.Description,
		content.SocialPost, content.EmailCopy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert property content: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ContentRepository = (*PostgresContentRepo)(nil)
