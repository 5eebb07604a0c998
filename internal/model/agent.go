// Package model はドメインモデルを定義する。
package model

import "time"

// Agent はサービスを利用するエージェント（テナント）を表す。
// 物件・ブランド設定・ジョブの所有者となる。
type Agent struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IDプロバイダーが保持する認証済みアイデンティティの
// キャッシュ参照を表す。所有権はプロバイダー側にあり、
// サインアウト時にキャッシュのみ破棄される。
type Identity struct {
	ID    string
	Email string
}

// Session はエージェントのログインセッションを表す。
// AccessTokenはプロバイダー発行のトークンで、サインアウト時の失効要求に使用する。
type Session struct {
	ID          string
	AgentID     string
	AccessToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
