package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PostgresImageRepo はPostgreSQLを使用した物件画像リポジトリ。
type PostgresImageRepo struct {
	db *sql.DB
}

// NewPostgresImageRepo はPostgresImageRepoを生成する。
func NewPostgresImageRepo(db *sql.DB) *PostgresImageRepo {
	return &PostgresImageRepo{db: db}
}

// CreateBatch は複数の画像レコードを同一トランザクションで作成する。
// 空スライスの場合は何もしない。
func (r *PostgresImageRepo) CreateBatch(ctx context.Context, images []*model.PropertyImage) error {
	if len(images) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, img := range images {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO property_images (id, property_id, source_url, styled_url, style, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			img.ID, img.PropertyID, img.SourceURL, img.StyledURL, img.Style, img.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert property image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByPropertyID は物件の画像一覧を返す。
func (r *PostgresImageRepo) ListByPropertyID(ctx context.Context, propertyID string) ([]*model.PropertyImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, property_id, source_url, styled_url, style, created_at
		 FROM property_images WHERE property_id = $1 ORDER BY created_at`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list property images: %w", err)
	}
	defer rows.Close()

	var images []*model.PropertyImage
	for rows.Next() {
		img := &model.PropertyImage{}
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.SourceURL, &img.StyledURL, &img.Style, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan property image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property images: %w", err)
	}

	return images, nil
}

// compile-time interface check
var _ ImageRepository = (*PostgresImageRepo)(nil)
