package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dayrade/nester-frontend-sub002/internal/identity"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// --- モック定義 ---

// mockProvider はidentity.Providerのモック実装。
type mockProvider struct {
	signInFn        func(ctx context.Context, email, password string) (*identity.Result, error)
	signUpFn        func(ctx context.Context, email, password string) (*identity.Result, error)
	signOutFn       func(ctx context.Context, accessToken string) error
	resetPasswordFn func(ctx context.Context, email string) error
}

func (m *mockProvider) SignIn(ctx context.Context, email, password string) (*identity.Result, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockProvider) SignUp(ctx context.Context, email, password string) (*identity.Result, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

func (m *mockProvider) ResetPassword(ctx context.Context, email string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(ctx, email)
	}
	return nil
}

// mockAgentRepo はrepository.AgentRepositoryのモック実装。
type mockAgentRepo struct {
	agents  map[string]*model.Agent
	created []*model.Agent
}

func newMockAgentRepo() *mockAgentRepo {
	return &mockAgentRepo{agents: make(map[string]*model.Agent)}
}

func (m *mockAgentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	return m.agents[id], nil
}

func (m *mockAgentRepo) FindByEmail(ctx context.Context, email string) (*model.Agent, error) {
	for _, a := range m.agents {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAgentRepo) Create(ctx context.Context, agent *model.Agent) error {
	m.agents[agent.ID] = agent
	m.created = append(m.created, agent)
	return nil
}

// mockSessionRepo はrepository.SessionRepositoryのモック実装。
type mockSessionRepo struct {
	sessions map[string]*model.Session
	deleted  []string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSessionRepo) DeleteByAgentID(ctx context.Context, agentID string) error {
	for id, s := range m.sessions {
		if s.AgentID == agentID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// --- テスト ---

func TestService_SignIn_CreatesAgentAndSession(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*identity.Result, error) {
			return &identity.Result{
				Identity:    model.Identity{ID: "agent-123", Email: email},
				AccessToken: "token-abc",
			}, nil
		},
	}
	agentRepo := newMockAgentRepo()
	sessionRepo := newMockSessionRepo()

	svc := NewService(provider, agentRepo, sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	session, err := svc.SignIn(context.Background(), "agent@example.com", "password")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if session.AgentID != "agent-123" {
		t.Errorf("session.AgentID = %q, want %q", session.AgentID, "agent-123")
	}
	if session.AccessToken != "token-abc" {
		t.Errorf("session.AccessToken = %q, want %q", session.AccessToken, "token-abc")
	}
	if len(agentRepo.created) != 1 {
		t.Fatalf("created agents = %d, want 1", len(agentRepo.created))
	}
	if agentRepo.created[0].Email != "agent@example.com" {
		t.Errorf("agent email = %q", agentRepo.created[0].Email)
	}
}

func TestService_SignIn_ExistingAgentNotDuplicated(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*identity.Result, error) {
			return &identity.Result{Identity: model.Identity{ID: "agent-123", Email: email}}, nil
		},
	}
	agentRepo := newMockAgentRepo()
	agentRepo.agents["agent-123"] = &model.Agent{ID: "agent-123", Email: "agent@example.com"}
	sessionRepo := newMockSessionRepo()

	svc := NewService(provider, agentRepo, sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	if _, err := svc.SignIn(context.Background(), "agent@example.com", "password"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if len(agentRepo.created) != 0 {
		t.Errorf("created agents = %d, want 0 for existing agent", len(agentRepo.created))
	}
}

func TestService_SignIn_ProviderErrorPropagates(t *testing.T) {
	provider := &mockProvider{
		signInFn: func(ctx context.Context, email, password string) (*identity.Result, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}

	svc := NewService(provider, newMockAgentRepo(), newMockSessionRepo(), ServiceConfig{SessionMaxAge: 3600})

	_, err := svc.SignIn(context.Background(), "agent@example.com", "wrong")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Fatalf("error = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestService_SignOut_RevokesProviderTokenAndDeletesSession(t *testing.T) {
	var revoked string
	provider := &mockProvider{
		signOutFn: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}
	sessionRepo := newMockSessionRepo()
	sessionRepo.sessions["sess-1"] = &model.Session{
		ID: "sess-1", AgentID: "agent-123", AccessToken: "token-abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	svc := NewService(provider, newMockAgentRepo(), sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	if err := svc.SignOut(context.Background(), "sess-1"); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if revoked != "token-abc" {
		t.Errorf("revoked token = %q, want %q", revoked, "token-abc")
	}
	if _, ok := sessionRepo.sessions["sess-1"]; ok {
		t.Error("session still exists after SignOut")
	}
}

func TestService_SignOut_ProviderFailureStillDeletesSession(t *testing.T) {
	provider := &mockProvider{
		signOutFn: func(ctx context.Context, accessToken string) error {
			return errors.New("provider unavailable")
		},
	}
	sessionRepo := newMockSessionRepo()
	sessionRepo.sessions["sess-1"] = &model.Session{
		ID: "sess-1", AgentID: "agent-123", AccessToken: "token-abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	svc := NewService(provider, newMockAgentRepo(), sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	if err := svc.SignOut(context.Background(), "sess-1"); err != nil {
		t.Fatalf("SignOut() error = %v, want nil (revocation is best-effort)", err)
	}
	if _, ok := sessionRepo.sessions["sess-1"]; ok {
		t.Error("session still exists after SignOut")
	}
}

func TestService_CurrentAgent_NoSessionReturnsNil(t *testing.T) {
	svc := NewService(&mockProvider{}, newMockAgentRepo(), newMockSessionRepo(), ServiceConfig{SessionMaxAge: 3600})

	agent, err := svc.CurrentAgent(context.Background(), "unknown-session")
	if err != nil {
		t.Fatalf("CurrentAgent() error = %v, want nil (absence is the only failure signal)", err)
	}
	if agent != nil {
		t.Errorf("agent = %+v, want nil", agent)
	}
}

func TestService_CurrentAgent_ExpiredSessionReturnsNil(t *testing.T) {
	sessionRepo := newMockSessionRepo()
	sessionRepo.sessions["sess-1"] = &model.Session{
		ID: "sess-1", AgentID: "agent-123",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	svc := NewService(&mockProvider{}, newMockAgentRepo(), sessionRepo, ServiceConfig{SessionMaxAge: 3600})

	agent, err := svc.CurrentAgent(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("CurrentAgent() error = %v", err)
	}
	if agent != nil {
		t.Errorf("agent = %+v, want nil for expired session", agent)
	}
}

func TestService_ResetPassword_EmptyEmailRejected(t *testing.T) {
	svc := NewService(&mockProvider{}, newMockAgentRepo(), newMockSessionRepo(), ServiceConfig{SessionMaxAge: 3600})

	err := svc.ResetPassword(context.Background(), "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingFields {
		t.Fatalf("error = %v, want MISSING_FIELDS", err)
	}
}
