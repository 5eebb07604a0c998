package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PostgresBrandRepo はPostgreSQLを使用したブランド設定リポジトリ。
type PostgresBrandRepo struct {
	db *sql.DB
}

// NewPostgresBrandRepo はPostgresBrandRepoを生成する。
func NewPostgresBrandRepo(db *sql.DB) *PostgresBrandRepo {
	return &PostgresBrandRepo{db: db}
}

// FindByAgentID はエージェントIDでブランド設定を取得する。
// レコードが存在しない場合はnilを返す。
// Mode列は保持せず、custom_brandingフラグから導出する。
func (r *PostgresBrandRepo) FindByAgentID(ctx context.Context, agentID string) (*model.BrandConfig, error) {
	config := &model.BrandConfig{}
	err := r.db.QueryRowContext(ctx,
		`SELECT agent_id, company_name, logo_url, primary_color, secondary_color,
		        font_family, persona_tone, persona_style,
		        persona_key_phrases, persona_avoid_phrases,
		        custom_branding, updated_at
		 FROM brand_configs WHERE agent_id = $1`,
		agentID,
	).Scan(
		&config.AgentID, &config.CompanyName, &config.LogoURL,
		&config.PrimaryColor, &config.SecondaryColor, &config.FontFamily,
		&config.Persona.Tone, &config.Persona.Style,
		pq.Array(&config.Persona.KeyPhrases), pq.Array(&config.Persona.AvoidPhrases),
		&config.CustomBranding, &config.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find brand config: %w", err)
	}

	if config.CustomBranding {
		config.Mode = model.BrandModeWhiteLabel
	} else {
		config.Mode = model.BrandModeNesterDefault
	}

	return config, nil
}

// Upsert はエージェントIDをキーにブランド設定をUPSERTする。
func (r *PostgresBrandRepo) Upsert(ctx context.Context, config *model.BrandConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO brand_configs (
		    agent_id, company_name, logo_url, primary_color, secondary_color,
		    font_family, persona_tone, persona_style,
		    persona_key_phrases, persona_avoid_phrases,
		    custom_branding, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		 ON CONFLICT (agent_id) DO UPDATE SET
		    company_name = EXCLUDED.company_name,
		    logo_url = EXCLUDED.logo_url,
		    primary_color = EXCLUDED.primary_color,
		    secondary_color = EXCLUDED.secondary_color,
		    font_family = EXCLUDED.font_family,
		    persona_tone = EXCLUDED.persona_tone,
		    persona_style = EXCLUDED.persona_style,
		    persona_key_phrases = EXCLUDED.persona_key_phrases,
		    persona_avoid_phrases = EXCLUDED.persona_avoid_phrases,
		    custom_branding = EXCLUDED.custom_branding,
		    updated_at = now()`,
		config.AgentID, config.CompanyName, config.LogoURL,
		config.PrimaryColor, config.SecondaryColor, config.FontFamily,
		config.Persona.Tone, config.Persona.Style,
		pq.Array(config.Persona.KeyPhrases), pq.Array(config.Persona.AvoidPhrases),
		config.CustomBranding,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert brand config: %w", err)
	}

	return nil
}

// compile-time interface check
var _ BrandRepository = (*PostgresBrandRepo)(nil)
