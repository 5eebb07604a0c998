package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dayrade/nester-frontend-sub002/internal/job"
	"github.com/dayrade/nester-frontend-sub002/internal/middleware"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// ContentServiceInterface はコンテンツハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	InitiateContent(ctx context.Context, sessionAgentID, propertyID string) (*model.Job, error)
	ReconcileContent(ctx context.Context, executionID string, outcome job.ContentOutcome) error
}

// ContentHandler はマーケティングコンテンツ生成のHTTPハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// contentGenerateRequest はコンテンツ生成投入リクエストのボディ。
type contentGenerateRequest struct {
	PropertyID string `json:"property_id"`
}

// contentCallbackRequest はエンジンのコンテンツ生成完了コールバックのボディ。
type contentCallbackRequest struct {
	callbackEnvelope
	Data contentCallbackData `json:"data"`
}

// contentCallbackData は生成されたマーケティングコンテンツのフィールド群。
type contentCallbackData struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	SocialPost  string `json:"social_post"`
	EmailCopy   string `json:"email_copy"`
}

// Initiate はコンテンツ生成ジョブ投入を処理する。
// POST /api/content/generate
func (h *ContentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	sessionAgentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req contentGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	if req.PropertyID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("property_id is required"))
		return
	}

	initiated, err := h.service.InitiateContent(r.Context(), sessionAgentID, req.PropertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJobInitiatedResponse(w, initiated)
}

// Capabilities は生成されるコンテンツ種別の一覧を返す。
// GET /api/content/generate
func (h *ContentHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"assets": []map[string]string{
			{"kind": "headline", "description": "Listing headline"},
			{"kind": "description", "description": "Marketing description"},
			{"kind": "social_post", "description": "Social media post"},
			{"kind": "email_copy", "description": "Email campaign copy"},
		},
	})
}

// Callback はエンジンのコンテンツ生成完了コールバックを処理する。
// POST /api/content/generate/callback
func (h *ContentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req contentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	executionID := req.correlationID()
	if executionID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("execution_id is required"))
		return
	}

	success, known := req.outcome()
	if !known {
		slog.Warn("callback with unrecognized status ignored",
			slog.String("execution_id", executionID),
			slog.String("status", req.Status),
		)
		writeCallbackRejected(w)
		return
	}

	err := h.service.ReconcileContent(r.Context(), executionID, job.ContentOutcome{
		Success:      success,
		ErrorMessage: req.Error,
		Headline:     req.Data.Headline,
		Description:  req.Data.Description,
		SocialPost:   req.Data.SocialPost,
		EmailCopy:    req.Data.EmailCopy,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCallbackAcknowledged(w)
}
