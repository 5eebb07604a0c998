package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dayrade/nester-frontend-sub002/internal/middleware"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// BrandResolverInterface はブランドハンドラーが必要とするリゾルバーインターフェース。
type BrandResolverInterface interface {
	Resolve(ctx context.Context, agentID string) *model.BrandConfig
	Update(ctx context.Context, agentID string, update *model.BrandUpdate) (*model.BrandConfig, error)
}

// BrandHandler はブランド設定のHTTPハンドラー。
type BrandHandler struct {
	resolver BrandResolverInterface
}

// NewBrandHandler はBrandHandlerを生成する。
func NewBrandHandler(resolver BrandResolverInterface) *BrandHandler {
	return &BrandHandler{resolver: resolver}
}

// brandUpdateRequest はブランド設定更新リクエストのボディ。
// 省略されたフィールドは既存の値を維持する。
type brandUpdateRequest struct {
	CompanyName    *string        `json:"company_name"`
	LogoURL        *string        `json:"logo_url"`
	PrimaryColor   *string        `json:"primary_color"`
	SecondaryColor *string        `json:"secondary_color"`
	FontFamily     *string        `json:"font_family"`
	Persona        *model.Persona `json:"persona"`
	CustomBranding *bool          `json:"custom_branding"`
}

// Get は現在の表示ブランド設定を返す。
// GET /api/brand
// レコードが存在しない・取得に失敗した場合もプラットフォーム
// デフォルトへフォールバックするため、常に200を返す。
func (h *BrandHandler) Get(w http.ResponseWriter, r *http.Request) {
	agentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	config := h.resolver.Resolve(r.Context(), agentID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

// Update はブランド設定をマージ更新し、更新後の表示設定を返す。
// PUT /api/brand
func (h *BrandHandler) Update(w http.ResponseWriter, r *http.Request) {
	agentID, err := middleware.AgentIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req brandUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidRequestBodyError())
		return
	}

	config, err := h.resolver.Update(r.Context(), agentID, &model.BrandUpdate{
		CompanyName:    req.CompanyName,
		LogoURL:        req.LogoURL,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		FontFamily:     req.FontFamily,
		Persona:        req.Persona,
		CustomBranding: req.CustomBranding,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}
