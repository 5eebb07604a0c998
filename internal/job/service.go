// Package job は非同期ジョブの投入と照合のドメインロジックを提供する。
// 投入（initiate）はエンジンへのディスパッチとワークレコードの永続化、
// 照合（reconcile）はコールバックによる終端状態への遷移を担う。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dayrade/nester-frontend-sub002/internal/brand"
	"github.com/dayrade/nester-frontend-sub002/internal/listing"
	"github.com/dayrade/nester-frontend-sub002/internal/metrics"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
	"github.com/dayrade/nester-frontend-sub002/internal/repository"
	"github.com/dayrade/nester-frontend-sub002/internal/security"
	"github.com/dayrade/nester-frontend-sub002/internal/workflow"
)

// コールバックURLのパス。publicBaseURLと連結してエンジンへ渡す。
const (
	scrapeCallbackPath  = "/api/property/scrape/callback"
	contentCallbackPath = "/api/content/generate/callback"
	imageCallbackPath   = "/api/images/generate/callback"
)

// URLValidator はリスティングURLの事前検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// PreviewService は掲載ページの軽量プレビュー取得インターフェース。
type PreviewService interface {
	Fetch(ctx context.Context, listingURL string) (listing.Preview, error)
}

// Service はジョブの投入と照合のサービス層。
type Service struct {
	propertyRepo  repository.PropertyRepository
	contentRepo   repository.ContentRepository
	imageRepo     repository.ImageRepository
	jobRepo       repository.JobRepository
	dispatcher    workflow.Dispatcher
	urlValidator  URLValidator
	preview       PreviewService
	sanitizer     security.ContentSanitizerService
	brandResolver *brand.Resolver
	collector     metrics.MetricsCollector
	publicBaseURL string
}

// NewService はServiceを生成する。
// previewとcollectorはnil許容（プレビュー取得・メトリクス記録をスキップ）。
func NewService(
	propertyRepo repository.PropertyRepository,
	contentRepo repository.ContentRepository,
	imageRepo repository.ImageRepository,
	jobRepo repository.JobRepository,
	dispatcher workflow.Dispatcher,
	urlValidator URLValidator,
	preview PreviewService,
	sanitizer security.ContentSanitizerService,
	brandResolver *brand.Resolver,
	collector metrics.MetricsCollector,
	publicBaseURL string,
) *Service {
	return &Service{
		propertyRepo:  propertyRepo,
		contentRepo:   contentRepo,
		imageRepo:     imageRepo,
		jobRepo:       jobRepo,
		dispatcher:    dispatcher,
		urlValidator:  urlValidator,
		preview:       preview,
		sanitizer:     sanitizer,
		brandResolver: brandResolver,
		collector:     collector,
		publicBaseURL: publicBaseURL,
	}
}

// ScrapeInitiation はスクレイプ投入の結果。作成された物件とワークレコードを持つ。
type ScrapeInitiation struct {
	Job      *model.Job
	Property *model.Property
}

// InitiateScrape は物件スクレイプジョブを投入する。
// 検証順序: URL形式 → SSRF → プラットフォーム対応 → 認可。
// すべての検証を通過するまで外部呼び出しは発生しない。
// エンジン投入成功後に物件レコードとワークレコードを永続化する。
// エンジン投入失敗時は何も永続化しない。
func (s *Service) InitiateScrape(ctx context.Context, sessionAgentID, bodyAgentID, listingURL string) (*ScrapeInitiation, error) {
	// URL形式検証
	parsed, err := url.Parse(listingURL)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, model.NewInvalidURLError("must start with http:// or https://")
	}

	// SSRF検証
	if s.urlValidator != nil {
		if err := s.urlValidator.ValidateURL(listingURL); err != nil {
			return nil, model.NewSSRFBlockedError()
		}
	}

	// プラットフォーム判定
	platform, err := listing.DetectPlatform(listingURL)
	if err != nil {
		return nil, err
	}

	// 認可: セッションのエージェントがリクエストボディのagent_idと一致すること
	if sessionAgentID == "" || sessionAgentID != bodyAgentID {
		return nil, model.NewUnauthorizedError()
	}

	now := time.Now()
	property := &model.Property{
		ID:         uuid.New().String(),
		AgentID:    sessionAgentID,
		ListingURL: listingURL,
		Platform:   platform,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// 軽量プレビュー取得（ベストエフォート。失敗してもジョブ投入は続行する）
	if s.preview != nil {
		preview, err := s.preview.Fetch(ctx, listingURL)
		if err != nil {
			slog.Warn("listing preview fetch failed",
				slog.String("listing_url", listingURL),
				slog.String("error", err.Error()),
			)
		} else {
			property.PreviewTitle = preview.Title
			property.PreviewImageURL = preview.ImageURL
		}
	}

	job, err := s.dispatchAndRecord(ctx, sessionAgentID, property.ID, model.JobKindScrape,
		map[string]any{
			"property_id": property.ID,
			"url":         listingURL,
			"platform":    string(platform),
		}, nil, scrapeCallbackPath)
	if err != nil {
		return nil, err
	}

	if err := s.propertyRepo.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	slog.Info("scrape job initiated",
		slog.String("job_id", job.ID),
		slog.String("property_id", property.ID),
		slog.String("platform", string(platform)),
	)
	return &ScrapeInitiation{Job: job, Property: property}, nil
}

// InitiateContent はマーケティングコンテンツ生成ジョブを投入する。
// 物件の所有確認後、ブランドペルソナをオプションとして添えてディスパッチする。
func (s *Service) InitiateContent(ctx context.Context, sessionAgentID, propertyID string) (*model.Job, error) {
	property, err := s.authorizeProperty(ctx, sessionAgentID, propertyID)
	if err != nil {
		return nil, err
	}

	job, err := s.dispatchAndRecord(ctx, sessionAgentID, property.ID, model.JobKindContent,
		contentTarget(property), s.contentOptions(ctx, sessionAgentID), contentCallbackPath)
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	slog.Info("content job initiated",
		slog.String("job_id", job.ID),
		slog.String("property_id", property.ID),
	)
	return job, nil
}

// InitiateImages は画像スタイル変換ジョブを投入する。
func (s *Service) InitiateImages(ctx context.Context, sessionAgentID, propertyID, style string) (*model.Job, error) {
	property, err := s.authorizeProperty(ctx, sessionAgentID, propertyID)
	if err != nil {
		return nil, err
	}

	job, err := s.dispatchAndRecord(ctx, sessionAgentID, property.ID, model.JobKindImage,
		map[string]any{
			"property_id": property.ID,
			"image_urls":  property.ImageURLs,
		},
		map[string]any{"style": style},
		imageCallbackPath)
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	slog.Info("image job initiated",
		slog.String("job_id", job.ID),
		slog.String("property_id", property.ID),
		slog.String("style", style),
	)
	return job, nil
}

// authorizeProperty は物件の存在と所有を検証する。
// 不在・非所有のいずれもPROPERTY_NOT_FOUNDを返す（存在を漏らさない）。
func (s *Service) authorizeProperty(ctx context.Context, sessionAgentID, propertyID string) (*model.Property, error) {
	if sessionAgentID == "" {
		return nil, model.NewUnauthorizedError()
	}

	property, err := s.propertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	if property == nil || property.AgentID != sessionAgentID {
		return nil, model.NewPropertyNotFoundError(propertyID)
	}

	return property, nil
}

// dispatchAndRecord はエンジンへディスパッチし、ワークレコードを構築して返す。
// 永続化は呼び出し元が行う（ディスパッチ失敗時に何も残さないため）。
func (s *Service) dispatchAndRecord(
	ctx context.Context,
	agentID, propertyID string,
	kind model.JobKind,
	target, options map[string]any,
	callbackPath string,
) (*model.Job, error) {
	start := time.Now()
	executionID, err := s.dispatcher.Dispatch(ctx, workflow.DispatchRequest{
		Kind:        kind,
		Target:      target,
		Options:     options,
		CallbackURL: s.publicBaseURL + callbackPath,
	})
	if s.collector != nil {
		s.collector.RecordEngineLatency(time.Since(start))
	}
	if err != nil {
		slog.Error("workflow engine dispatch failed",
			slog.String("kind", string(kind)),
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewEngineDispatchError()
	}

	if s.collector != nil {
		s.collector.RecordJobDispatched(string(kind))
	}

	return &model.Job{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		PropertyID:  propertyID,
		Kind:        kind,
		ExecutionID: executionID,
		Status:      model.JobStatusProcessing,
		StartedAt:   time.Now(),
	}, nil
}

// contentTarget はコンテンツ生成ジョブのターゲットフィールドを構築する。
func contentTarget(property *model.Property) map[string]any {
	return map[string]any{
		"property_id": property.ID,
		"address":     property.Address,
		"price":       property.Price,
		"bedrooms":    property.Bedrooms,
		"bathrooms":   property.Bathrooms,
		"square_feet": property.SquareFeet,
		"description": property.Description,
	}
}

// contentOptions はブランドペルソナをコンテンツ生成オプションとして構築する。
func (s *Service) contentOptions(ctx context.Context, agentID string) map[string]any {
	if s.brandResolver == nil {
		return nil
	}

	config := s.brandResolver.Resolve(ctx, agentID)
	return map[string]any{
		"company_name":  config.CompanyName,
		"tone":          config.Persona.Tone,
		"style":         config.Persona.Style,
		"key_phrases":   config.Persona.KeyPhrases,
		"avoid_phrases": config.Persona.AvoidPhrases,
	}
}

// --- 照合（コールバック） ---

// ScrapeOutcome はスクレイプ完了コールバックの結果。
type ScrapeOutcome struct {
	Success      bool
	ErrorMessage string
	Address      string
	Price        string
	Bedrooms     int
	Bathrooms    float64
	SquareFeet   int
	Description  string // エンジン由来のHTML。保存前にサニタイズされる。
	ImageURLs    []string
}

// ContentOutcome はコンテンツ生成完了コールバックの結果。
type ContentOutcome struct {
	Success      bool
	ErrorMessage string
	Headline     string
	Description  string // HTML許容
	SocialPost   string
	EmailCopy    string
}

// StyledImage はスタイル変換済み画像の1件。
type StyledImage struct {
	SourceURL string
	StyledURL string
}

// ImageOutcome は画像スタイル変換完了コールバックの結果。
type ImageOutcome struct {
	Success      bool
	ErrorMessage string
	Style        string
	Images       []StyledImage
}

// ReconcileScrape はスクレイプコールバックをワークレコードへ照合する。
// 成功時は物件詳細フィールドを書き込み（説明文はサニタイズ）、
// completed遷移後にコンテンツ生成ジョブを連鎖投入する。
func (s *Service) ReconcileScrape(ctx context.Context, executionID string, outcome ScrapeOutcome) error {
	job, err := s.reconcile(ctx, model.JobKindScrape, executionID, outcome.Success, outcome.ErrorMessage,
		func(ctx context.Context, job *model.Job) error {
			property, err := s.propertyRepo.FindByID(ctx, job.PropertyID)
			if err != nil {
				return fmt.Errorf("failed to find property: %w", err)
			}
			if property == nil {
				return model.NewPropertyNotFoundError(job.PropertyID)
			}

			property.Address = outcome.Address
			property.Price = outcome.Price
			property.Bedrooms = outcome.Bedrooms
			property.Bathrooms = outcome.Bathrooms
			property.SquareFeet = outcome.SquareFeet
			property.Description = s.sanitizeHTML(outcome.Description)
			property.ImageURLs = outcome.ImageURLs
			property.UpdatedAt = time.Now()

			if err := s.propertyRepo.UpdateScrapeResult(ctx, property); err != nil {
				return fmt.Errorf("failed to update property: %w", err)
			}
			return nil
		})
	if err != nil {
		return err
	}

	// スクレイプ完了はコンテンツ生成を連鎖する。
	// 連鎖の失敗はコールバック自体の成否には影響させない（ログのみ）。
	if job != nil && outcome.Success {
		s.chainContentGeneration(ctx, job)
	}
	return nil
}

// ReconcileContent はコンテンツ生成コールバックをワークレコードへ照合する。
func (s *Service) ReconcileContent(ctx context.Context, executionID string, outcome ContentOutcome) error {
	_, err := s.reconcile(ctx, model.JobKindContent, executionID, outcome.Success, outcome.ErrorMessage,
		func(ctx context.Context, job *model.Job) error {
			now := time.Now()
			content := &model.PropertyContent{
				ID:          uuid.New().String(),
				PropertyID:  job.PropertyID,
				Headline:    s.sanitizeText(outcome.Headline),
				Description: s.sanitizeHTML(outcome.Description),
				SocialPost:  s.sanitizeText(outcome.SocialPost),
				EmailCopy:   s.sanitizeText(outcome.EmailCopy),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.contentRepo.Upsert(ctx, content); err != nil {
				return fmt.Errorf("failed to save content: %w", err)
			}
			return nil
		})
	return err
}

// ReconcileImages は画像スタイル変換コールバックをワークレコードへ照合する。
func (s *Service) ReconcileImages(ctx context.Context, executionID string, outcome ImageOutcome) error {
	_, err := s.reconcile(ctx, model.JobKindImage, executionID, outcome.Success, outcome.ErrorMessage,
		func(ctx context.Context, job *model.Job) error {
			if len(outcome.Images) == 0 {
				return nil
			}
			now := time.Now()
			images := make([]*model.PropertyImage, 0, len(outcome.Images))
			for _, img := range outcome.Images {
				images = append(images, &model.PropertyImage{
					ID:         uuid.New().String(),
					PropertyID: job.PropertyID,
					SourceURL:  img.SourceURL,
					StyledURL:  img.StyledURL,
					Style:      outcome.Style,
					CreatedAt:  now,
				})
			}
			if err := s.imageRepo.CreateBatch(ctx, images); err != nil {
				return fmt.Errorf("failed to save images: %w", err)
			}
			return nil
		})
	return err
}

// reconcile はコールバック照合の共通フロー。
// execution_idでワークレコードを検索し、終端状態への条件付き遷移を行う。
// 既に同一の終端状態にある場合は重複配送として冪等に成功を返す。
// 異なる終端状態への遷移要求はJOB_CONFLICTを返す。
// 遷移が成立した場合は対象ワークレコードを返す（連鎖投入用）。
func (s *Service) reconcile(
	ctx context.Context,
	kind model.JobKind,
	executionID string,
	success bool,
	errorMessage string,
	applyResult func(context.Context, *model.Job) error,
) (*model.Job, error) {
	if executionID == "" {
		return nil, model.NewMissingFieldsError("execution_id is required")
	}

	job, err := s.jobRepo.FindByExecutionID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	if job == nil || job.Kind != kind {
		return nil, model.NewJobNotFoundError(executionID)
	}

	target := model.JobStatusCompleted
	if !success {
		target = model.JobStatusError
	}

	if job.Status.IsTerminal() {
		if job.Status == target {
			slog.Info("duplicate callback delivery ignored",
				slog.String("execution_id", executionID),
				slog.String("status", string(target)),
			)
			return nil, nil
		}
		return nil, model.NewJobConflictError(executionID)
	}

	if success && applyResult != nil {
		if err := applyResult(ctx, job); err != nil {
			return nil, err
		}
	}

	transitioned, err := s.jobRepo.MarkTerminal(ctx, executionID, target, errorMessage, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark job terminal: %w", err)
	}
	if !transitioned {
		// 検索とUPDATEの間に別の配送が先着した場合
		refreshed, err := s.jobRepo.FindByExecutionID(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-check job: %w", err)
		}
		if refreshed != nil && refreshed.Status == target {
			return nil, nil
		}
		return nil, model.NewJobConflictError(executionID)
	}

	if s.collector != nil {
		if success {
			s.collector.RecordJobCompleted(string(kind))
		} else {
			s.collector.RecordJobFailed(string(kind))
		}
	}

	slog.Info("job reconciled",
		slog.String("execution_id", executionID),
		slog.String("kind", string(kind)),
		slog.String("status", string(target)),
	)

	job.Status = target
	job.ErrorMessage = errorMessage
	return job, nil
}

// chainContentGeneration はスクレイプ完了後にコンテンツ生成ジョブを連鎖投入する。
func (s *Service) chainContentGeneration(ctx context.Context, scrapeJob *model.Job) {
	property, err := s.propertyRepo.FindByID(ctx, scrapeJob.PropertyID)
	if err != nil || property == nil {
		slog.Error("content chain skipped: property unavailable",
			slog.String("property_id", scrapeJob.PropertyID),
		)
		return
	}

	job, err := s.dispatchAndRecord(ctx, scrapeJob.AgentID, property.ID, model.JobKindContent,
		contentTarget(property), s.contentOptions(ctx, scrapeJob.AgentID), contentCallbackPath)
	if err != nil {
		slog.Error("content chain dispatch failed",
			slog.String("property_id", property.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		slog.Error("content chain job save failed",
			slog.String("property_id", property.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	slog.Info("content job chained from scrape completion",
		slog.String("job_id", job.ID),
		slog.String("property_id", property.ID),
	)
}

// sanitizeHTML はエンジン由来のHTMLをサニタイズする。
func (s *Service) sanitizeHTML(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(raw))
}

// sanitizeText はエンジン由来のプレーンテキストフィールドをサニタイズする。
func (s *Service) sanitizeText(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return strings.TrimSpace(s.sanitizer.SanitizeText(raw))
}

// --- ポーリング用の参照系 ---

// PropertyDetail は物件の詳細（生成済みコンテンツ・画像を含む）。
type PropertyDetail struct {
	Property *model.Property
	Content  *model.PropertyContent
	Images   []*model.PropertyImage
}

// ListProperties はエージェントの物件一覧を返す。
func (s *Service) ListProperties(ctx context.Context, sessionAgentID string) ([]*model.Property, error) {
	if sessionAgentID == "" {
		return nil, model.NewUnauthorizedError()
	}
	return s.propertyRepo.ListByAgentID(ctx, sessionAgentID)
}

// GetPropertyDetail は物件の詳細を生成済みコンテンツ・画像込みで返す。
func (s *Service) GetPropertyDetail(ctx context.Context, sessionAgentID, propertyID string) (*PropertyDetail, error) {
	property, err := s.authorizeProperty(ctx, sessionAgentID, propertyID)
	if err != nil {
		return nil, err
	}

	content, err := s.contentRepo.FindByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find content: %w", err)
	}
	images, err := s.imageRepo.ListByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return &PropertyDetail{
		Property: property,
		Content:  content,
		Images:   images,
	}, nil
}

// PropertyStatus は物件に紐づくワークレコード一覧を返す。
// クライアントのポーリングでジョブ進捗の表示に使う。
func (s *Service) PropertyStatus(ctx context.Context, sessionAgentID, propertyID string) ([]*model.Job, error) {
	if _, err := s.authorizeProperty(ctx, sessionAgentID, propertyID); err != nil {
		return nil, err
	}
	return s.jobRepo.ListByPropertyID(ctx, propertyID)
}
