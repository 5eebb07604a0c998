// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// AgentRepository はエージェント（テナント）データの永続化インターフェース。
type AgentRepository interface {
	// FindByID は指定IDのエージェントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Agent, error)

	// FindByEmail はメールアドレスでエージェントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Agent, error)

	// Create はエージェントを作成する。
	Create(ctx context.Context, agent *model.Agent) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByAgentID は指定エージェントの全セッションを削除する。
	DeleteByAgentID(ctx context.Context, agentID string) error
}

// BrandRepository はブランド設定の永続化インターフェース。
type BrandRepository interface {
	// FindByAgentID はエージェントIDでブランド設定を取得する。
	// レコードが存在しない場合はnilを返す（呼び出し元がデフォルトへフォールバックする）。
	FindByAgentID(ctx context.Context, agentID string) (*model.BrandConfig, error)

	// Upsert はエージェントIDをキーにブランド設定をUPSERTする。
	Upsert(ctx context.Context, config *model.BrandConfig) error
}

// PropertyRepository は物件データの永続化インターフェース。
type PropertyRepository interface {
	// FindByID は指定IDの物件を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Property, error)

	// Create は物件を作成する。
	Create(ctx context.Context, property *model.Property) error

	// ListByAgentID はエージェントの物件一覧を作成日時降順で返す。
	ListByAgentID(ctx context.Context, agentID string) ([]*model.Property, error)

	// UpdateScrapeResult はスクレイプ完了コールバックで得た詳細フィールドを書き込む。
	UpdateScrapeResult(ctx context.Context, property *model.Property) error

	// UpdatePreview はディスパッチ前に取得した軽量プレビューを書き込む。
	UpdatePreview(ctx context.Context, propertyID, title, imageURL string) error
}

// ContentRepository は物件マーケティングコンテンツの永続化インターフェース。
type ContentRepository interface {
	// FindByPropertyID は物件IDでコンテンツを取得する。見つからない場合はnilを返す。
	FindByPropertyID(ctx context.Context, propertyID string) (*model.PropertyContent, error)

	// Upsert は物件IDをキーにコンテンツをUPSERTする。
	Upsert(ctx context.Context, content *model.PropertyContent) error
}

// ImageRepository は物件画像の永続化インターフェース。
type ImageRepository interface {
	// CreateBatch は複数の画像レコードを同一トランザクションで作成する。
	CreateBatch(ctx context.Context, images []*model.PropertyImage) error

	// ListByPropertyID は物件の画像一覧を返す。
	ListByPropertyID(ctx context.Context, propertyID string) ([]*model.PropertyImage, error)
}

// JobRepository はワークレコードの永続化インターフェース。
type JobRepository interface {
	// Create はワークレコードを作成する。
	Create(ctx context.Context, job *model.Job) error

	// FindByExecutionID はエンジン発行の相関トークンでワークレコードを検索する。
	// 見つからない場合はnilを返す。
	FindByExecutionID(ctx context.Context, executionID string) (*model.Job, error)

	// ListByPropertyID は物件に紐づくワークレコード一覧を開始日時降順で返す。
	ListByPropertyID(ctx context.Context, propertyID string) ([]*model.Job, error)

	// ListStaleProcessing は指定時刻より前に開始され、まだprocessingのままの
	// ワークレコードを返す。リーパーがコールバック未達のジョブを強制終端化
	// するために使用する。
	ListStaleProcessing(ctx context.Context, olderThan time.Time) ([]*model.Job, error)

	// MarkTerminal はprocessing状態のワークレコードを終端状態へ遷移させる。
	// WHERE句でstatus='processing'を条件とする単一の条件付きUPDATEであり、
	// 遷移が行われた場合はtrueを返す。既に終端状態の場合はfalseを返す。
	MarkTerminal(ctx context.Context, executionID string, status model.JobStatus, errorMessage string, completedAt time.Time) (bool, error)
}
