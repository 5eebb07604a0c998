package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dayrade/nester-frontend-sub002/internal/job"
	"github.com/dayrade/nester-frontend-sub002/internal/listing"
	"github.com/dayrade/nester-frontend-sub002/internal/middleware"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PropertyServiceInterface は物件ハンドラーが必要とするサービスインターフェース。
type PropertyServiceInterface interface {
	// InitiateScrape は物件スクレイプジョブを投入する。
	InitiateScrape(ctx context.Context, sessionAgentID, bodyAgentID, listingURL string) (*job.ScrapeInitiation, error)
	// ReconcileScrape はスクレイプコールバックをワークレコードへ照合する。
	ReconcileScrape(ctx context.Context, executionID string, outcome job.ScrapeOutcome) error
	// ListProperties はエージェントの物件一覧を返す。
	ListProperties(ctx context.Context, sessionAgentID string) ([]*model.Property, error)
	// GetPropertyDetail は物件の詳細を生成済みアセット込みで返す。
	GetPropertyDetail(ctx context.Context, sessionAgentID, propertyID string) (*job.PropertyDetail, error)
	// PropertyStatus は物件に紐づくワークレコード一覧を返す。
	PropertyStatus(ctx context.Context, sessionAgentID, propertyID string) ([]*model.Job, error)
}

// PropertyHandler は物件スクレイプと物件参照のHTTPハンドラー。
type PropertyHandler struct {
	service PropertyServiceInterface
}

// NewPropertyHandler はPropertyHandlerを生成する。
func NewPropertyHandler(service PropertyServiceInterface) *PropertyHandler {
	return &PropertyHandler{service: service}
}

// scrapeRequest はスクレイプ投入リクエストのボディ。
type scrapeRequest struct {
	URL     string `json:"url"`
	AgentID string `json:"agent_id"`
}

// scrapeCallbackRequest はエンジンのスクレイプ完了コールバックのボディ。
type scrapeCallbackRequest struct {
	callbackEnvelope
	Data scrapeCallbackData `json:"data"`
}

// scrapeCallbackData はスクレイプ結果のフィールド群。
type scrapeCallbackData struct {
	Address     string   `json:"address"`
	Price       string   `json:"price"`
	Bedrooms    int      `json:"bedrooms"`
	Bathrooms   float64  `json:"bathrooms"`
	SquareFeet  int      `json:"square_feet"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`
}

// propertyResponse は物件情報のAPIレスポンス。
type propertyResponse struct {
	ID              string   `json:"id"`
	ListingURL      string   `json:"listing_url"`
	Platform        string   `json:"platform"`
	Address         string   `json:"address,omitempty"`
	Price           string   `json:"price,omitempty"`
	Bedrooms        int      `json:"bedrooms,omitempty"`
	Bathrooms       float64  `json:"bathrooms,omitempty"`
	SquareFeet      int      `json:"square_feet,omitempty"`
	Description     string   `json:"description,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	PreviewTitle    string   `json:"preview_title,omitempty"`
	PreviewImageURL string   `json:"preview_image_url,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// InitiateScrape はスクレイプジョブ投入を処理する。
// POST /api/property/scrape
func (h *PropertyHandler) InitiateScrape(w http.ResponseWriter, r *http.Request) {
	sessionAgentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	if req.URL == "" || req.AgentID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("URL and agent_id are required"))
		return
	}

	initiated, err := h.service.InitiateScrape(r.Context(), sessionAgentID, req.AgentID, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"job_id":      initiated.Job.ID,
		"property_id": initiated.Property.ID,
		"status":      string(initiated.Job.Status),
		"property":    toPropertyResponse(initiated.Property),
	})
}

// Capabilities は対応プラットフォームの一覧を返す。
// GET /api/property/scrape
func (h *PropertyHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"platforms": listing.SupportedPlatforms(),
	})
}

// ScrapeCallback はエンジンのスクレイプ完了コールバックを処理する。
// POST /api/property/scrape/callback
// 配送の受理は200 {success: true}で応答する（ジョブ自体の成否とは無関係）。
func (h *PropertyHandler) ScrapeCallback(w http.ResponseWriter, r *http.Request) {
	var req scrapeCallbackRequest
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

	err := h.service.ReconcileScrape(r.Context(), executionID, job.ScrapeOutcome{
		Success:      success,
		ErrorMessage: req.Error,
		Address:      req.Data.Address,
		Price:        req.Data.Price,
		Bedrooms:     req.Data.Bedrooms,
		Bathrooms:    req.Data.Bathrooms,
		SquareFeet:   req.Data.SquareFeet,
		Description:  req.Data.Description,
		ImageURLs:    req.Data.ImageURLs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCallbackAcknowledged(w)
}

// ListProperties はエージェントの物件一覧を返す。
// GET /api/properties
func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	sessionAgentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	properties, err := h.service.ListProperties(r.Context(), sessionAgentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]propertyResponse, 0, len(properties))
	for _, p := range properties {
		responses = append(responses, toPropertyResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"properties": responses})
}

// GetProperty は物件詳細（生成済みコンテンツ・画像込み）を返す。
// GET /api/properties/{id}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	sessionAgentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	propertyID := chi.URLParam(r, "id")

	detail, err := h.service.GetPropertyDetail(r.Context(), sessionAgentID, propertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := map[string]any{
		"property": toPropertyResponse(detail.Property),
	}
	if detail.Content != nil {
		resp["content"] = map[string]any{
			"headline":    detail.Content.Headline,
			"description": detail.Content.Description,
			"social_post": detail.Content.SocialPost,
			"email_copy":  detail.Content.EmailCopy,
		}
	}
	if len(detail.Images) > 0 {
		images := make([]map[string]any, 0, len(detail.Images))
		for _, img := range detail.Images {
			images = append(images, map[string]any{
				"source_url": img.SourceURL,
				"styled_url": img.StyledURL,
				"style":      img.Style,
			})
		}
		resp["images"] = images
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// PropertyStatus は物件に紐づくジョブの進捗一覧を返す。
// GET /api/properties/{id}/status
func (h *PropertyHandler) PropertyStatus(w http.ResponseWriter, r *http.Request) {
	sessionAgentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	propertyID := chi.URLParam(r, "id")

	jobs, err := h.service.PropertyStatus(r.Context(), sessionAgentID, propertyID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		entry := map[string]any{
			"job_id":     j.ID,
			"kind":       string(j.Kind),
			"status":     string(j.Status),
			"started_at": j.StartedAt.Format(time.RFC3339),
		}
		if j.ErrorMessage != "" {
			entry["error"] = j.ErrorMessage
		}
		if j.CompletedAt != nil {
			entry["completed_at"] = j.CompletedAt.Format(time.RFC3339)
		}
		responses = append(responses, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"jobs": responses})
}

// --- 共有ヘルパー ---

// callbackEnvelope は全コールバックに共通する相関・結果フィールド。
// エンジンのワークフロー定義によりexecution_id/job_id、success/statusの
// どちらのキーで届くかが異なるため、両方を受け付ける。
type callbackEnvelope struct {
	ExecutionID string `json:"execution_id"`
	JobID       string `json:"job_id"`
	PropertyID  string `json:"property_id"`
	Success     *bool  `json:"success"`
	Status      string `json:"status"`
	Error       string `json:"error"`
}

// correlationID はexecution_id優先で相関トークンを返す。
func (e callbackEnvelope) correlationID() string {
	if e.ExecutionID != "" {
		return e.ExecutionID
	}
	return e.JobID
}

// outcome はコールバックの成否を判定する。
// successフラグがあればそれを優先し、なければstatus文字列を解釈する。
// どちらからも判定できない場合はknown=falseを返す。
func (e callbackEnvelope) outcome() (success bool, known bool) {
	if e.Success != nil {
		return *e.Success, true
	}
	switch strings.ToLower(e.Status) {
	case "completed", "success":
		return true, true
	case "error", "failed":
		return false, true
	default:
		return false, false
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// toPropertyResponse はmodel.PropertyからAPIレスポンスに変換する。
func toPropertyResponse(p *model.Property) propertyResponse {
	return propertyResponse{
		ID:              p.ID,
		ListingURL:      p.ListingURL,
		Platform:        string(p.Platform),
		Address:         p.Address,
		Price:           p.Price,
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		SquareFeet:      p.SquareFeet,
		Description:     p.Description,
		ImageURLs:       p.ImageURLs,
		PreviewTitle:    p.PreviewTitle,
		PreviewImageURL: p.PreviewImageURL,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}

// writeJobInitiatedResponse はジョブ投入成功のレスポンスを書き込む。
func writeJobInitiatedResponse(w http.ResponseWriter, j *model.Job) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"job_id":  j.ID,
		"status":  string(j.Status),
	})
}

// writeCallbackAcknowledged はコールバック受理のレスポンスを書き込む。
// ジョブ自体の成否にかかわらず配送の受理を意味する。
func writeCallbackAcknowledged(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// writeCallbackRejected は解釈不能なコールバックへの応答を書き込む。
// 再配送を誘発しないよう200で応答しつつ、処理しなかったことを示す。
func writeCallbackRejected(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": false})
}

// invalidRequestBodyError はJSONボディ解析失敗のエラーを生成する。
func invalidRequestBodyError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "failed to parse request body",
		Category: "validation",
		Action:   "Send a valid JSON request body.",
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "an internal error occurred",
		Category: "system",
		Action:   "Wait a moment and retry.",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingFields, model.ErrCodeInvalidURL, model.ErrCodeUnsupportedPlatform:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodePropertyNotFound, model.ErrCodeJobNotFound, model.ErrCodeAgentNotFound:
		return http.StatusNotFound
	case model.ErrCodeJobConflict, model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeEngineDispatch:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
