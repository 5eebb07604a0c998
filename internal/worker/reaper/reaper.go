// Package reaper はコールバック未達のまま滞留したジョブの強制終端化を提供する。
// エンジンのワークフローが失敗してもコールバックが届かないケースがあるため、
// processingのまま一定時間を超過したワークレコードを定期的にerrorへ遷移させる。
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/dayrade/nester-frontend-sub002/internal/metrics"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
	"github.com/dayrade/nester-frontend-sub002/internal/repository"
)

// staleJobErrorMessage は強制終端化されたジョブに記録するエラーメッセージ。
const staleJobErrorMessage = "engine callback never arrived"

// Reaper は滞留ジョブの強制終端化ジョブ。
type Reaper struct {
	jobRepo   repository.JobRepository
	collector metrics.MetricsCollector
	logger    *slog.Logger
	// StaleAfter はprocessingのまま滞留とみなすまでの時間（デフォルト: 30分）。
	StaleAfter time.Duration
}

// NewReaper は新しいReaperを生成する。collectorはnil可。
func NewReaper(jobRepo repository.JobRepository, collector metrics.MetricsCollector, logger *slog.Logger) *Reaper {
	return &Reaper{
		jobRepo:    jobRepo,
		collector:  collector,
		logger:     logger,
		StaleAfter: 30 * time.Minute,
	}
}

// Start は指定間隔のティッカーでリーパーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Reaper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("ジョブリーパーを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("stale_after", r.StaleAfter),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ジョブリーパーを停止しました")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("リープサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は滞留ジョブを1回検出し、errorへ強制遷移させる。
// 条件付きUPDATEによる遷移のため、検出と遷移の間にコールバックが
// 届いた場合はそのジョブをスキップする。冪等。
func (r *Reaper) RunOnce(ctx context.Context) error {
	start := time.Now()
	cutoff := start.Add(-r.StaleAfter)

	stale, err := r.jobRepo.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}

	reaped := 0
	for _, job := range stale {
		transitioned, err := r.jobRepo.MarkTerminal(ctx, job.ExecutionID, model.JobStatusError, staleJobErrorMessage, time.Now())
		if err != nil {
			r.logger.Error("滞留ジョブの終端化に失敗しました",
				slog.String("job_id", job.ID),
				slog.String("execution_id", job.ExecutionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !transitioned {
			// 検出後にコールバックが届いて終端化済み
			continue
		}

		reaped++
		if r.collector != nil {
			r.collector.RecordJobReaped(string(job.Kind))
		}
		r.logger.Warn("滞留ジョブを強制終端化しました",
			slog.String("job_id", job.ID),
			slog.String("execution_id", job.ExecutionID),
			slog.String("kind", string(job.Kind)),
			slog.Time("started_at", job.StartedAt),
		)
	}

	duration := time.Since(start)
	r.logger.Info("リープサイクルが完了しました",
		slog.Int("stale_count", len(stale)),
		slog.Int("reaped_count", reaped),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
