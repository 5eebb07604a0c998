// Package identity は外部IDプロバイダーとの連携を提供する。
// サインイン・サインアップ・サインアウト・パスワードリセットの各操作と、
// プロバイダーが発行するアクセストークンの検証を含む。
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// Result は認証成功時にプロバイダーから得た情報を表す。
// AccessTokenはサインアウト時の失効要求のために保持する。
type Result struct {
	Identity    model.Identity
	AccessToken string
}

// Provider は外部IDプロバイダーのインターフェース。
// アイデンティティの所有権はプロバイダー側にあり、
// 本システムは検証済みの参照のみを保持する。
type Provider interface {
	// SignIn はメールアドレスとパスワードで認証し、検証済みアイデンティティを返す。
	// 認証情報が不正な場合はAPIError（INVALID_CREDENTIALS）を返す。
	SignIn(ctx context.Context, email, password string) (*Result, error)

	// SignUp は新規アイデンティティを登録する。
	// メールアドレスが登録済みの場合はAPIError（EMAIL_TAKEN）を返す。
	SignUp(ctx context.Context, email, password string) (*Result, error)

	// SignOut はプロバイダー側のトークンを失効させる。
	// ローカルセッションの破棄は呼び出し元が行う。
	SignOut(ctx context.Context, accessToken string) error

	// ResetPassword はパスワードリセットメールの送信を要求する。
	// 存在しないメールアドレスでもエラーにしない（列挙攻撃対策）。
	ResetPassword(ctx context.Context, email string) error
}

// ProviderConfig はHTTPProviderの設定。
type ProviderConfig struct {
	BaseURL   string // プロバイダーのベースURL
	JWTSecret string // アクセストークン検証用のHS256共有鍵
}

// HTTPProvider はREST APIベースの外部IDプロバイダー実装。
// GoTrue互換のエンドポイント（/token, /signup, /logout, /recover）を想定する。
type HTTPProvider struct {
	httpClient *http.Client
	config     ProviderConfig
}

// NewHTTPProvider はHTTPProviderを生成する。
// httpClientがnilの場合はタイムアウト10秒のデフォルトクライアントを使用する。
func NewHTTPProvider(httpClient *http.Client, config ProviderConfig) *HTTPProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{
		httpClient: httpClient,
		config:     config,
	}
}

// tokenResponse はプロバイダーのトークン発行レスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn はパスワードグラントで認証し、検証済みアイデンティティを返す。
func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*Result, error) {
	body, status, err := p.post(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		// fall through
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, model.NewInvalidCredentialsError()
	default:
		return nil, fmt.Errorf("identity provider returned status %d", status)
	}

	return p.resultFromTokenResponse(body)
}

// SignUp は新規アイデンティティを登録する。
func (p *HTTPProvider) SignUp(ctx context.Context, email, password string) (*Result, error) {
	body, status, err := p.post(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		// fall through
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return nil, model.NewEmailTakenError(email)
	default:
		return nil, fmt.Errorf("identity provider returned status %d", status)
	}

	return p.resultFromTokenResponse(body)
}

// SignOut はプロバイダー側のトークンを失効させる。
func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	_, status, err := p.post(ctx, "/logout", nil, accessToken)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("identity provider returned status %d", status)
	}
	return nil
}

// ResetPassword はパスワードリセットメールの送信を要求する。
func (p *HTTPProvider) ResetPassword(ctx context.Context, email string) error {
	_, status, err := p.post(ctx, "/recover", map[string]string{
		"email": email,
	}, "")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("identity provider returned status %d", status)
	}
	return nil
}

// post はプロバイダーへJSONボディをPOSTし、レスポンスボディとステータスを返す。
func (p *HTTPProvider) post(ctx context.Context, path string, payload any, bearer string) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// resultFromTokenResponse はトークンレスポンスを検証し、認証結果を抽出する。
// アクセストークンが含まれる場合はJWT署名を検証し、クレームを信頼の源とする。
func (p *HTTPProvider) resultFromTokenResponse(body []byte) (*Result, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tr.AccessToken != "" {
		ident, err := p.VerifyAccessToken(tr.AccessToken)
		if err != nil {
			return nil, err
		}
		return &Result{Identity: *ident, AccessToken: tr.AccessToken}, nil
	}

	if tr.User.ID == "" {
		return nil, fmt.Errorf("token response contains no identity")
	}

	return &Result{Identity: model.Identity{ID: tr.User.ID, Email: tr.User.Email}}, nil
}

// accessClaims はプロバイダーのアクセストークンのクレーム。
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyAccessToken はプロバイダー発行のHS256アクセストークンを検証し、
// クレームからアイデンティティを復元する。
// 署名不正・期限切れ・sub欠落はすべてエラーを返す。
func (p *HTTPProvider) VerifyAccessToken(tokenStr string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(p.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("access token has no subject claim")
	}

	return &model.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

// compile-time interface check
var _ Provider = (*HTTPProvider)(nil)
