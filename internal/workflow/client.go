// Package workflow はワークフローエンジン連携機能を提供する。
// スクレイプ・コンテンツ生成・画像生成の長時間ジョブをエンジンへ
// ディスパッチし、結果は別経路のコールバックで受け取る。
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// エンジン側のワークフローエンドポイントパス。
const (
	pathPropertyScrape  = "/webhook/property-scrape"
	pathContentGenerate = "/webhook/content-generate"
	pathImageGenerate   = "/webhook/image-generate"
)

// DispatchRequest はエンジンへのジョブ投入リクエスト。
// Targetはジョブ種別ごとの対象フィールド、Optionsは任意の実行オプション。
// CallbackURLはエンジンが完了時にPOSTする自APIのコールバックURL。
type DispatchRequest struct {
	Kind        model.JobKind
	Target      map[string]any
	Options     map[string]any
	CallbackURL string
}

// dispatchPayload はエンジンへ送信するJSONボディ。
type dispatchPayload struct {
	Target      map[string]any `json:"target"`
	Options     map[string]any `json:"options,omitempty"`
	CallbackURL string         `json:"callback_url"`
}

// dispatchResponse はエンジンの成功応答。
// execution_idとjob_idのどちらのキーで相関トークンが返るかは
// ワークフロー定義に依存するため、両方を受け付ける。
type dispatchResponse struct {
	ExecutionID string `json:"execution_id"`
	JobID       string `json:"job_id"`
}

// Dispatcher はジョブ投入機能のインターフェース。
type Dispatcher interface {
	// Dispatch はジョブをエンジンへ投入し、相関トークン（execution ID）を返す。
	Dispatch(ctx context.Context, req DispatchRequest) (string, error)
}

// Client はワークフローエンジンのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

var _ Dispatcher = (*Client)(nil)

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Dispatch はジョブをエンジンの該当ワークフローエンドポイントへ投入する。
// Bearerトークンで認証し、成功応答から相関トークンを取り出して返す。
// エンジンの失敗（接続不可・非2xx・相関トークン欠落）はすべてエラーとして返し、
// 呼び出し元は何も永続化しない。
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest) (string, error) {
	path, err := workflowPath(req.Kind)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(dispatchPayload{
		Target:      req.Target,
		Options:     req.Options,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode dispatch payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("workflow engine dispatch failed",
			slog.String("kind", string(req.Kind)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("workflow engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read engine response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("workflow engine returned error status",
			slog.String("kind", string(req.Kind)),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("workflow engine returned status %d", resp.StatusCode)
	}

	var parsed dispatchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse engine response: %w", err)
	}

	executionID := parsed.ExecutionID
	if executionID == "" {
		executionID = parsed.JobID
	}
	if executionID == "" {
		return "", fmt.Errorf("engine response missing execution_id")
	}

	c.logger.Info("job dispatched to workflow engine",
		slog.String("kind", string(req.Kind)),
		slog.String("execution_id", executionID),
	)
	return executionID, nil
}

// workflowPath はジョブ種別に対応するエンジンのエンドポイントパスを返す。
func workflowPath(kind model.JobKind) (string, error) {
	switch kind {
	case model.JobKindScrape:
		return pathPropertyScrape, nil
	case model.JobKindContent:
		return pathContentGenerate, nil
	case model.JobKindImage:
		return pathImageGenerate, nil
	default:
		return "", fmt.Errorf("unknown job kind: %s", kind)
	}
}
