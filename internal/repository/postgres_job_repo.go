package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用したワークレコードリポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// Create はワークレコードを作成する。
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, agent_id, property_id, kind, execution_id, status, error_message, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.AgentID, job.PropertyID, job.Kind, job.ExecutionID,
		job.Status, job.ErrorMessage, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// FindByExecutionID はエンジン発行の相関トークンでワークレコードを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresJobRepo) FindByExecutionID(ctx context.Context, executionID string) (*model.Job, error) {
	job := &model.Job{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, agent_id, property_id, kind, execution_id, status, error_message, started_at, completed_at
		 FROM jobs WHERE execution_id = $1`,
		executionID,
	).Scan(
		&job.ID, &job.AgentID, &job.PropertyID, &job.Kind, &job.ExecutionID,
		&job.Status, &job.ErrorMessage, &job.StartedAt, &job.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job by execution ID: %w", err)
	}

	return job, nil
}

// ListByPropertyID は物件に紐づくワークレコード一覧を開始日時降順で返す。
func (r *PostgresJobRepo) ListByPropertyID(ctx context.Context, propertyID string) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, agent_id, property_id, kind, execution_id, status, error_message, started_at, completed_at
		 FROM jobs WHERE property_id = $1 ORDER BY started_at DESC`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job := &model.Job{}
		if err := rows.Scan(
			&job.ID, &job.AgentID, &job.PropertyID, &job.Kind, &job.ExecutionID,
			&job.Status, &job.ErrorMessage, &job.StartedAt, &job.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// ListStaleProcessing は指定時刻より前に開始され、まだprocessingのままの
// ワークレコードを開始日時昇順で返す。
func (r *PostgresJobRepo) ListStaleProcessing(ctx context.Context, olderThan time.Time) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, agent_id, property_id, kind, execution_id, status, error_message, started_at, completed_at
		 FROM jobs WHERE status = 'processing' AND started_at < $1 ORDER BY started_at ASC`,
		olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job := &model.Job{}
		if err := rows.Scan(
			&job.ID, &job.AgentID, &job.PropertyID, &job.Kind, &job.ExecutionID,
			&job.Status, &job.ErrorMessage, &job.StartedAt, &job.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// MarkTerminal はprocessing状態のワークレコードを終端状態へ遷移させる。
// status='processing'を条件とする単一の条件付きUPDATEで排他を実現しており、
// 同一execution_idへのコールバックが重複配送されても
// 終端状態が二度書き換わることはない。
// 遷移が行われた場合はtrueを、対象行がprocessingでなかった場合はfalseを返す。
func (r *PostgresJobRepo) MarkTerminal(ctx context.Context, executionID string, status model.JobStatus, errorMessage string, completedAt time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("status %q is not terminal", status)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, error_message = $3, completed_at = $4
		 WHERE execution_id = $1 AND status = 'processing'`,
		executionID, status, errorMessage, completedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark job terminal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
