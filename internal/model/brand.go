// Package model はドメインモデルを定義する。
package model

import "time"

// BrandMode はブランド設定の動作モードを表す。
type BrandMode string

const (
	// BrandModeNesterDefault はプラットフォーム標準ブランドを使用するモード。
	BrandModeNesterDefault BrandMode = "nester_default"
	// BrandModeWhiteLabel はエージェント独自ブランドを使用するモード。
	// brand_configsレコードのcustom_brandingフラグが立っている場合のみ有効。
	BrandModeWhiteLabel BrandMode = "white_label"
)

// Persona はAIコンテンツ生成に使用する文体設定を表す。
type Persona struct {
	Tone         string   `yaml:"tone" json:"tone"`
	Style        string   `yaml:"style" json:"style"`
	KeyPhrases   []string `yaml:"key_phrases" json:"key_phrases"`
	AvoidPhrases []string `yaml:"avoid_phrases" json:"avoid_phrases"`
}

// BrandConfig はエージェントごとの表示ブランド設定を表す。
// エージェントごとに高々1件。レコードが存在しない場合は
// プラットフォームデフォルトへフォールバックする。
type BrandConfig struct {
	AgentID        string    `json:"agent_id"`
	Mode           BrandMode `json:"mode"`
	CompanyName    string    `json:"company_name"`
	LogoURL        string    `json:"logo_url"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	FontFamily     string    `json:"font_family"`
	Persona        Persona   `json:"persona"`
	CustomBranding bool      `json:"custom_branding"`
	UpdatedAt      time.Time `json:"-"`
}

// BrandUpdate はブランド設定のマージ更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type BrandUpdate struct {
	CompanyName    *string
	LogoURL        *string
	PrimaryColor   *string
	SecondaryColor *string
	FontFamily     *string
	Persona        *Persona
	CustomBranding *bool
}
