// Package brand はテナントごとのブランド設定の解決と更新を提供する。
package brand

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// Defaults はプラットフォーム標準のブランド設定値。
// ブランドレコードが存在しないテナントに一律適用される。
type Defaults struct {
	CompanyName    string        `yaml:"company_name"`
	LogoURL        string        `yaml:"logo_url"`
	PrimaryColor   string        `yaml:"primary_color"`
	SecondaryColor string        `yaml:"secondary_color"`
	FontFamily     string        `yaml:"font_family"`
	Persona        model.Persona `yaml:"persona"`
}

// builtinDefaults はデフォルト定義ファイルがない場合のコンパイル時フォールバック。
var builtinDefaults = Defaults{
	CompanyName:    "Nester",
	LogoURL:        "/assets/nester-logo.svg",
	PrimaryColor:   "#1A3C5E",
	SecondaryColor: "#E8A87C",
	FontFamily:     "Inter",
	Persona: model.Persona{
		Tone:  "warm and professional",
		Style: "concise, benefit-led listing copy",
		KeyPhrases: []string{
			"move-in ready",
			"schedule a private tour",
		},
		AvoidPhrases: []string{
			"cozy",
			"charming fixer-upper",
		},
	},
}

// LoadDefaults はYAMLファイルからプラットフォームデフォルトを読み込む。
// pathが空の場合はコンパイル時フォールバックを返す。
// ファイルの読み込み・パースに失敗した場合はエラーを返す（起動時に検出する）。
func LoadDefaults(path string) (Defaults, error) {
	if path == "" {
		return builtinDefaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("failed to read brand defaults file: %w", err)
	}

	d := builtinDefaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("failed to parse brand defaults file: %w", err)
	}

	return d, nil
}

// config はデフォルト値から匿名（アイデンティティなし）向けのBrandConfigを構築する。
func (d Defaults) config(agentID string) *model.BrandConfig {
	return &model.BrandConfig{
		AgentID:        agentID,
		Mode:           model.BrandModeNesterDefault,
		CompanyName:    d.CompanyName,
		LogoURL:        d.LogoURL,
		PrimaryColor:   d.PrimaryColor,
		SecondaryColor: d.SecondaryColor,
		FontFamily:     d.FontFamily,
		Persona:        d.Persona,
		CustomBranding: false,
	}
}
