package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PostgresPropertyRepo はPostgreSQLを使用した物件リポジトリ。
type PostgresPropertyRepo struct {
	db *sql.DB
}

// NewPostgresPropertyRepo はPostgresPropertyRepoを生成する。
func NewPostgresPropertyRepo(db *sql.DB) *PostgresPropertyRepo {
	return &PostgresPropertyRepo{db: db}
}

const propertyColumns = `id, agent_id, listing_url, platform, address, price,
	bedrooms, bathrooms, square_feet, description, image_urls,
	preview_title, preview_image_url, created_at, updated_at`

// scanProperty は1行分の物件レコードをスキャンする。
func scanProperty(row interface{ Scan(...any) error }) (*model.Property, error) {
	p := &model.Property{}
	err := row.Scan(
		&p.ID, &p.AgentID, &p.ListingURL, &p.Platform, &p.Address, &p.Price,
		&p.Bedrooms, &p.Bathrooms, &p.SquareFeet, &p.Description,
		pq.Array(&p.ImageURLs), &p.PreviewTitle, &p.PreviewImageURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの物件を取得する。見つからない場合はnilを返す。
func (r *PostgresPropertyRepo) FindByID(ctx context.Context, id string) (*model.Property, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`,
		id,
	)

	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find property by ID: %w", err)
	}

	return p, nil
}

// Create は物件を作成する。
func (r *PostgresPropertyRepo) Create(ctx context.Context, property *model.Property) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO properties (
		    id, agent_id, listing_url, platform, address, price,
		    bedrooms, bathrooms, square_feet, description, image_urls,
		    preview_title, preview_image_url, created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		property.ID, property.AgentID, property.ListingURL, property.Platform,
		property.Address, property.Price, property.Bedrooms, property.Bathrooms,
		property.SquareFeet, property.Description, pq.Array(property.ImageURLs),
		property.PreviewTitle, property.PreviewImageURL,
		property.CreatedAt, property.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}

	return nil
}

// ListByAgentID はエージェントの物件一覧を作成日時降順で返す。
func (r *PostgresPropertyRepo) ListByAgentID(ctx context.Context, agentID string) ([]*model.Property, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties
		 WHERE agent_id = $1 ORDER BY created_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}

	return properties, nil
}

// UpdateScrapeResult はスクレイプ完了コールバックで得た詳細フィールドを書き込む。
func (r *PostgresPropertyRepo) UpdateScrapeResult(ctx context.Context, property *model.Property) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE properties SET
		    address = $2, price = $3, bedrooms = $4, bathrooms = $5,
		    square_feet = $6, description = $7, image_urls = $8,
		    updated_at = now()
		 WHERE id = $1`,
		property.ID, property.Address, property.Price, property.Bedrooms,
		property.Bathrooms, property.SquareFeet, property.Description,
		pq.Array(property.ImageURLs),
	)
	if err != nil {
		return fmt.Errorf("failed to update scrape result: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("property not found: %s", property.ID)
	}

	return nil
}

// UpdatePreview はディスパッチ前に取得した軽量プレビューを書き込む。
func (r *PostgresPropertyRepo) UpdatePreview(ctx context.Context, propertyID, title, imageURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE properties SET preview_title = $2, preview_image_url = $3, updated_at = now()
		 WHERE id = $1`,
		propertyID, title, imageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update preview: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PropertyRepository = (*PostgresPropertyRepo)(nil)
