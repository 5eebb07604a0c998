package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PostgresAgentRepo はPostgreSQLを使用したエージェントリポジトリ。
type PostgresAgentRepo struct {
	db *sql.DB
}

// NewPostgresAgentRepo はPostgresAgentRepoを生成する。
func NewPostgresAgentRepo(db *sql.DB) *PostgresAgentRepo {
	return &PostgresAgentRepo{db: db}
}

// FindByID は指定IDのエージェントを取得する。見つからない場合はnilを返す。
func (r *PostgresAgentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	agent := &model.Agent{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM agents WHERE id = $1`,
		id,
	).Scan(&agent.ID, &agent.Email, &agent.Name, &agent.CreatedAt, &agent.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agent by ID: %w", err)
	}

	return agent, nil
}

// FindByEmail はメールアドレスでエージェントを検索する。見つからない場合はnilを返す。
func (r *PostgresAgentRepo) FindByEmail(ctx context.Context, email string) (*model.Agent, error) {
	agent := &model.Agent{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM agents WHERE email = $1`,
		email,
	).Scan(&agent.ID, &agent.Email, &agent.Name, &agent.CreatedAt, &agent.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find agent by email: %w", err)
	}

	return agent, nil
}

// Create はエージェントを作成する。
func (r *PostgresAgentRepo) Create(ctx context.Context, agent *model.Agent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agents (id, email, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		agent.ID, agent.Email, agent.Name, agent.CreatedAt, agent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}

	return nil
}

// compile-time interface check
var _ AgentRepository = (*PostgresAgentRepo)(nil)
