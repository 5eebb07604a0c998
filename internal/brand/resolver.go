package brand

import (
	"context"
	"log/slog"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
	"github.com/dayrade/nester-frontend-sub002/internal/repository"
)

// Resolver はブランド設定の解決とマージ更新を提供する。
// 解決はデフォルトへのフォールバックを内包し、エラーを呼び出し元へ伝播しない。
type Resolver struct {
	repo     repository.BrandRepository
	defaults Defaults
}

// NewResolver はResolverを生成する。
func NewResolver(repo repository.BrandRepository, defaults Defaults) *Resolver {
	return &Resolver{
		repo:     repo,
		defaults: defaults,
	}
}

// Resolve はエージェントのブランド設定を解決する。
// アイデンティティなし（agentIDが空）の場合はストアへ問い合わせずデフォルトを返す。
// レコード未存在・取得エラーのいずれもデフォルトへフォールバックする
// （エラーはログのみに記録し、呼び出し元へは伝播しない）。
// 同一エージェントに対する連続した解決は、間に更新がなければ
// フィールド単位で同一の結果を返す。
func (r *Resolver) Resolve(ctx context.Context, agentID string) *model.BrandConfig {
	if agentID == "" {
		return r.defaults.config("")
	}

	config, err := r.repo.FindByAgentID(ctx, agentID)
	if err != nil {
		slog.Error("brand config lookup failed, falling back to defaults",
			slog.String("agent_id", agentID),
			slog.String("error", err.Error()),
		)
		return r.defaults.config(agentID)
	}
	if config == nil {
		return r.defaults.config(agentID)
	}

	return config
}

// Update は部分更新をマージしてUPSERTし、マージ後の設定を返す。
// 既存レコードがない場合はデフォルト値をベースにマージする。
// 更新後の設定は楽観的に返す（再読込は行わない）。
func (r *Resolver) Update(ctx context.Context, agentID string, update *model.BrandUpdate) (*model.BrandConfig, error) {
	if agentID == "" {
		return nil, model.NewUnauthorizedError()
	}

	current := r.Resolve(ctx, agentID)
	merged := mergeUpdate(current, update)
	merged.AgentID = agentID

	if err := r.repo.Upsert(ctx, merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// mergeUpdate は部分更新を既存設定にマージした新しい設定を返す。
// nilフィールドは既存の値を維持する。
// custom_brandingフラグの変更に応じてmodeを導出し直す。
func mergeUpdate(current *model.BrandConfig, update *model.BrandUpdate) *model.BrandConfig {
	merged := *current

	if update.CompanyName != nil {
		merged.CompanyName = *update.CompanyName
	}
	if update.LogoURL != nil {
		merged.LogoURL = *update.LogoURL
	}
	if update.PrimaryColor != nil {
		merged.PrimaryColor = *update.PrimaryColor
	}
	if update.SecondaryColor != nil {
		merged.SecondaryColor = *update.SecondaryColor
	}
	if update.FontFamily != nil {
		merged.FontFamily = *update.FontFamily
	}
	if update.Persona != nil {
		merged.Persona = *update.Persona
	}
	if update.CustomBranding != nil {
		merged.CustomBranding = *update.CustomBranding
	}

	if merged.CustomBranding {
		merged.Mode = model.BrandModeWhiteLabel
	} else {
		merged.Mode = model.BrandModeNesterDefault
	}

	return &merged
}
