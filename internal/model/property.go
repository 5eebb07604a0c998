// Package model はドメインモデルを定義する。
package model

import "time"

// Platform は物件掲載元のプラットフォームを表す。
// ホスト名の部分一致により5種類のいずれかに判定される。
type Platform string

const (
	// PlatformZillow はZillowの物件ページ。
	PlatformZillow Platform = "zillow"
	// PlatformRealtor はRealtor.comの物件ページ。
	PlatformRealtor Platform = "realtor"
	// PlatformRedfin はRedfinの物件ページ。
	PlatformRedfin Platform = "redfin"
	// PlatformTrulia はTruliaの物件ページ。
	PlatformTrulia Platform = "trulia"
	// PlatformHomes はHomes.comの物件ページ。
	PlatformHomes Platform = "homes"
)

// Property はスクレイプ対象または取得済みの物件を表す。
// スクレイプジョブ完了時にコールバックから詳細フィールドが書き込まれる。
type Property struct {
	ID          string
	AgentID     string
	ListingURL  string
	Platform    Platform
	Address     string
	Price       string
	Bedrooms    int
	Bathrooms   float64
	SquareFeet  int
	Description string
	ImageURLs   []string
	// PreviewTitle / PreviewImageURL はディスパッチ前に
	// 掲載ページのogメタタグから取得する軽量プレビュー。
	PreviewTitle    string
	PreviewImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PropertyContent は物件のAI生成マーケティングコンテンツを表す。
type PropertyContent struct {
	ID          string
	PropertyID  string
	Headline    string
	Description string
	SocialPost  string
	EmailCopy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PropertyImage は物件のAIスタイル変換済み画像を表す。
type PropertyImage struct {
	ID         string
	PropertyID string
	SourceURL  string
	StyledURL  string
	Style      string
	CreatedAt  time.Time
}
