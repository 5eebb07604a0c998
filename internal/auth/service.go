// Package auth はセッションストアを提供する。
// 外部IDプロバイダーでの認証と、ローカルセッションの発行・破棄を担う。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/dayrade/nester-frontend-sub002/internal/identity"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
	"github.com/dayrade/nester-frontend-sub002/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はセッションストアのビジネスロジックを提供する。
// アイデンティティの所有権は外部プロバイダーにあり、
// ここではキャッシュ参照（agentsレコードとセッション）のみを管理する。
type Service struct {
	provider    identity.Provider
	agentRepo   repository.AgentRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	provider identity.Provider,
	agentRepo repository.AgentRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		provider:    provider,
		agentRepo:   agentRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// SignIn はプロバイダーで認証し、セッションを発行する。
// agentsレコードが未作成の場合（プロバイダー側で先に登録済み等）は自動作成する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	result, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAgent(ctx, &result.Identity); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("agent signed in", slog.String("agent_id", result.Identity.ID))
	return session, nil
}

// SignUp はプロバイダーに新規登録し、セッションを発行する。
func (s *Service) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	result, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAgent(ctx, &result.Identity); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("agent signed up", slog.String("agent_id", result.Identity.ID))
	return session, nil
}

// SignOut はセッションを破棄する。
// プロバイダー側のトークン失効はベストエフォートで行い、
// 失敗してもローカルセッションの削除は続行する（キャッシュ破棄が主目的）。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err == nil && session != nil && session.AccessToken != "" {
		if err := s.provider.SignOut(ctx, session.AccessToken); err != nil {
			slog.Warn("provider token revocation failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("agent signed out", slog.String("session_id", sessionID))
	return nil
}

// ResetPassword はパスワードリセットメールの送信をプロバイダーへ要求する。
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return model.NewMissingFieldsError("email is required")
	}
	return s.provider.ResetPassword(ctx, email)
}

// CurrentAgent はセッションIDから現在のエージェントを取得する。
// セッション不在・期限切れ・エージェント未検出はすべて
// 「アイデンティティなし」としてnilを返す（エラーは返さない）。
// プロバイダーやストアの障害のみエラーとして返す。
func (s *Service) CurrentAgent(ctx context.Context, sessionID string) (*model.Agent, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	agent, err := s.agentRepo.FindByID(ctx, session.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find agent: %w", err)
	}

	return agent, nil
}

// ensureAgent は検証済みアイデンティティに対応するagentsレコードを保証する。
// IDはプロバイダー発行のアイデンティティIDをそのまま使用する。
func (s *Service) ensureAgent(ctx context.Context, ident *model.Identity) error {
	agent, err := s.agentRepo.FindByID(ctx, ident.ID)
	if err != nil {
		return fmt.Errorf("failed to find agent: %w", err)
	}
	if agent != nil {
		return nil
	}

	now := time.Now()
	newAgent := &model.Agent{
		ID:        ident.ID,
		Email:     ident.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.agentRepo.Create(ctx, newAgent); err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	slog.Info("new agent created",
		slog.String("agent_id", ident.ID),
		slog.String("email", ident.Email),
	)
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, result *identity.Result) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:          sessionID,
		AgentID:     result.Identity.ID,
		AccessToken: result.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:   time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
