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

// ImageServiceInterface は画像ハンドラーが必要とするサービスインターフェース。
type ImageServiceInterface interface {
	InitiateImages(ctx context.Context, sessionAgentID, propertyID, style string) (*model.Job, error)
	ReconcileImages(ctx context.Context, executionID string, outcome job.ImageOutcome) error
}

// ImageHandler は物件画像スタイル変換のHTTPハンドラー。
type ImageHandler struct {
	service ImageServiceInterface
}

// NewImageHandler はImageHandlerを生成する。
func NewImageHandler(service ImageServiceInterface) *ImageHandler {
	return &ImageHandler{service: service}
}

// imageGenerateRequest は画像スタイル変換投入リクエストのボディ。
type imageGenerateRequest struct {
	PropertyID string `json:"property_id"`
	Style      string `json:"style"`
}

// imageCallbackRequest はエンジンの画像変換完了コールバックのボディ。
type imageCallbackRequest struct {
	callbackEnvelope
	Data imageCallbackData `json:"data"`
}

// imageCallbackData は変換済み画像のフィールド群。
type imageCallbackData struct {
	Style  string              `json:"style"`
	Images []imageCallbackItem `json:"images"`
}

// imageCallbackItem は変換済み画像の1件。
type imageCallbackItem struct {
	SourceURL string `json:"source_url"`
	StyledURL string `json:"styled_url"`
}

// Initiate は画像スタイル変換ジョブ投入を処理する。
// POST /api/images/generate
func (h *ImageHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	sessionAgentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	if req.PropertyID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("property_id is required"))
		return
	}

	initiated, err := h.service.InitiateImages(r.Context(), sessionAgentID, req.PropertyID, req.Style)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJobInitiatedResponse(w, initiated)
}

// Capabilities は対応する画像スタイルの一覧を返す。
// GET /api/images/generate
func (h *ImageHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"styles": []map[string]string{
			{"style": "enhanced", "description": "Color and lighting enhancement"},
			{"style": "twilight", "description": "Dusk sky replacement"},
			{"style": "decluttered", "description": "Virtual decluttering"},
			{"style": "staged_modern", "description": "Virtual staging, modern furniture"},
			{"style": "staged_scandinavian", "description": "Virtual staging, scandinavian furniture"},
		},
	})
}

// Callback はエンジンの画像変換完了コールバックを処理する。
// POST /api/images/generate/callback
func (h *ImageHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req imageCallbackRequest
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

	images := make([]job.StyledImage, 0, len(req.Data.Images))
	for _, img := range req.Data.Images {
		images = append(images, job.StyledImage{
			SourceURL: img.SourceURL,
			StyledURL: img.StyledURL,
		})
	}

	err := h.service.ReconcileImages(r.Context(), executionID, job.ImageOutcome{
		Success:      success,
		ErrorMessage: req.Error,
		Style:        req.Data.Style,
		Images:       images,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCallbackAcknowledged(w)
}
