// Package model はドメインモデルを定義する。
package model

import "time"

// JobKind は外部ワークフローエンジンに委譲する非同期ジョブの種別を表す。
type JobKind string

const (
	// JobKindScrape は物件スクレイプジョブ。
	JobKindScrape JobKind = "scrape"
	// JobKindContent はマーケティングコンテンツ生成ジョブ。
	JobKindContent JobKind = "content"
	// JobKindImage は画像スタイル変換ジョブ。
	JobKindImage JobKind = "image"
)

// JobStatus はジョブの状態を表す。
// 有効な遷移は processing → completed と processing → error のみ。
// 終端状態から抜ける遷移は存在しない。
type JobStatus string

const (
	// JobStatusNotStarted はジョブが未開始であることを示す。
	JobStatusNotStarted JobStatus = "not_started"
	// JobStatusProcessing はエンジンへのディスパッチ済みで完了待ちの状態。
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted は正常完了の終端状態。
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError は失敗の終端状態。
	JobStatusError JobStatus = "error"
)

// IsTerminal はステータスが終端状態かどうかを返す。
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Job は非同期ジョブのライフサイクルを追跡するワークレコードを表す。
// ExecutionIDはエンジンが発行する相関トークンで、
// コールバックとの突き合わせはこのトークンでのみ行う。
type Job struct {
	ID           string
	AgentID      string
	PropertyID   string
	Kind         JobKind
	ExecutionID  string
	Status       JobStatus
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  *time.Time
}
