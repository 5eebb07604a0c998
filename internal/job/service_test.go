package job

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dayrade/nester-frontend-sub002/internal/listing"
	"github.com/dayrade/nester-frontend-sub002/internal/model"
	"github.com/dayrade/nester-frontend-sub002/internal/security"
	"github.com/dayrade/nester-frontend-sub002/internal/workflow"
)

// --- モック定義 ---

// mockPropertyRepo はrepository.PropertyRepositoryのモック実装。
type mockPropertyRepo struct {
	properties map[string]*model.Property
	updated    []*model.Property
}

func newMockPropertyRepo() *mockPropertyRepo {
	return &mockPropertyRepo{properties: make(map[string]*model.Property)}
}

func (m *mockPropertyRepo) FindByID(ctx context.Context, id string) (*model.Property, error) {
	return m.properties[id], nil
}

func (m *mockPropertyRepo) Create(ctx context.Context, property *model.Property) error {
	m.properties[property.ID] = property
	return nil
}

func (m *mockPropertyRepo) ListByAgentID(ctx context.Context, agentID string) ([]*model.Property, error) {
	var out []*model.Property
	for _, p := range m.properties {
		if p.AgentID == agentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPropertyRepo) UpdateScrapeResult(ctx context.Context, property *model.Property) error {
	m.properties[property.ID] = property
	m.updated = append(m.updated, property)
	return nil
}

func (m *mockPropertyRepo) UpdatePreview(ctx context.Context, propertyID, title, imageURL string) error {
	if p, ok := m.properties[propertyID]; ok {
		p.PreviewTitle = title
		p.PreviewImageURL = imageURL
	}
	return nil
}

// mockContentRepo はrepository.ContentRepositoryのモック実装。
type mockContentRepo struct {
	contents map[string]*model.PropertyContent
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{contents: make(map[string]*model.PropertyContent)}
}

func (m *mockContentRepo) FindByPropertyID(ctx context.Context, propertyID string) (*model.PropertyContent, error) {
	return m.contents[propertyID], nil
}

func (m *mockContentRepo) Upsert(ctx context.Context, content *model.PropertyContent) error {
	m.contents[content.PropertyID] = content
	return nil
}

// mockImageRepo はrepository.ImageRepositoryのモック実装。
type mockImageRepo struct {
	images []*model.PropertyImage
}

func (m *mockImageRepo) CreateBatch(ctx context.Context, images []*model.PropertyImage) error {
	m.images = append(m.images, images...)
	return nil
}

func (m *mockImageRepo) ListByPropertyID(ctx context.Context, propertyID string) ([]*model.PropertyImage, error) {
	var out []*model.PropertyImage
	for _, img := range m.images {
		if img.PropertyID == propertyID {
			out = append(out, img)
		}
	}
	return out, nil
}

// mockJobRepo はrepository.JobRepositoryのモック実装。
// MarkTerminalは本物と同じ条件付き遷移セマンティクスを再現する。
type mockJobRepo struct {
	jobs map[string]*model.Job // execution_idをキーとする
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *mockJobRepo) Create(ctx context.Context, job *model.Job) error {
	m.jobs[job.ExecutionID] = job
	return nil
}

func (m *mockJobRepo) FindByExecutionID(ctx context.Context, executionID string) (*model.Job, error) {
	j, ok := m.jobs[executionID]
	if !ok {
		return nil, nil
	}
	copied := *j
	return &copied, nil
}

func (m *mockJobRepo) ListByPropertyID(ctx context.Context, propertyID string) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range m.jobs {
		if j.PropertyID == propertyID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockJobRepo) ListStaleProcessing(ctx context.Context, olderThan time.Time) ([]*model.Job, error) {
	var out []*model.Job
	for _, j := range m.jobs {
		if j.Status == model.JobStatusProcessing && j.StartedAt.Before(olderThan) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *mockJobRepo) MarkTerminal(ctx context.Context, executionID string, status model.JobStatus, errorMessage string, completedAt time.Time) (bool, error) {
	j, ok := m.jobs[executionID]
	if !ok || j.Status != model.JobStatusProcessing {
		return false, nil
	}
	j.Status = status
	j.ErrorMessage = errorMessage
	j.CompletedAt = &completedAt
	return true, nil
}

// mockDispatcher はworkflow.Dispatcherのモック実装。
type mockDispatcher struct {
	dispatchFn func(ctx context.Context, req workflow.DispatchRequest) (string, error)
	requests   []workflow.DispatchRequest
}

func (m *mockDispatcher) Dispatch(ctx context.Context, req workflow.DispatchRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.dispatchFn != nil {
		return m.dispatchFn(ctx, req)
	}
	return "exec-1", nil
}

// mockValidator はURLValidatorのモック実装。
type mockValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockValidator) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

// mockPreview はPreviewServiceのモック実装。
type mockPreview struct {
	fetchFn func(ctx context.Context, listingURL string) (listing.Preview, error)
}

func (m *mockPreview) Fetch(ctx context.Context, listingURL string) (listing.Preview, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, listingURL)
	}
	return listing.Preview{}, nil
}

// fixture は依存一式をまとめたテスト用ハーネス。
type fixture struct {
	propertyRepo *mockPropertyRepo
	contentRepo  *mockContentRepo
	imageRepo    *mockImageRepo
	jobRepo      *mockJobRepo
	dispatcher   *mockDispatcher
	validator    *mockValidator
	preview      *mockPreview
	service      *Service
}

func newFixture() *fixture {
	f := &fixture{
		propertyRepo: newMockPropertyRepo(),
		contentRepo:  newMockContentRepo(),
		imageRepo:    &mockImageRepo{},
		jobRepo:      newMockJobRepo(),
		dispatcher:   &mockDispatcher{},
		validator:    &mockValidator{},
		preview:      &mockPreview{},
	}
	f.service = NewService(
		f.propertyRepo,
		f.contentRepo,
		f.imageRepo,
		f.jobRepo,
		f.dispatcher,
		f.validator,
		f.preview,
		security.NewContentSanitizer(),
		nil,
		nil,
		"http://localhost:3000",
	)
	return f
}

const zillowURL = "https://www.zillow.com/homedetails/123-Main-St/12345_zpid/"

func assertAPIError(t *testing.T, err error, wantCode string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != wantCode {
		t.Fatalf("error = %v, want code %s", err, wantCode)
	}
	return apiErr
}

// --- 投入のテスト ---

// TestInitiateScrape_Success は正常系のスクレイプ投入をテストする。
func TestInitiateScrape_Success(t *testing.T) {
	f := newFixture()
	f.preview.fetchFn = func(ctx context.Context, listingURL string) (listing.Preview, error) {
		return listing.Preview{Title: "123 Main St", ImageURL: "https://img.example.com/1.jpg"}, nil
	}

	initiated, err := f.service.InitiateScrape(context.Background(), "agent-1", "agent-1", zillowURL)
	if err != nil {
		t.Fatalf("InitiateScrape() error = %v", err)
	}

	job := initiated.Job
	if job.Status != model.JobStatusProcessing {
		t.Errorf("job.Status = %q, want processing", job.Status)
	}
	if job.ExecutionID != "exec-1" {
		t.Errorf("job.ExecutionID = %q", job.ExecutionID)
	}
	if job.Kind != model.JobKindScrape {
		t.Errorf("job.Kind = %q", job.Kind)
	}

	// 投入結果には作成された物件も含まれる
	if initiated.Property == nil || initiated.Property.ID != job.PropertyID {
		t.Fatal("initiation result does not carry the created property")
	}

	// 物件レコードがプレビュー付きで永続化されている
	property := f.propertyRepo.properties[job.PropertyID]
	if property == nil {
		t.Fatal("property was not persisted")
	}
	if property.Platform != model.PlatformZillow {
		t.Errorf("property.Platform = %q, want zillow", property.Platform)
	}
	if property.PreviewTitle != "123 Main St" {
		t.Errorf("property.PreviewTitle = %q", property.PreviewTitle)
	}

	// ディスパッチペイロードの検証
	if len(f.dispatcher.requests) != 1 {
		t.Fatalf("dispatch count = %d, want 1", len(f.dispatcher.requests))
	}
	req := f.dispatcher.requests[0]
	if req.Kind != model.JobKindScrape {
		t.Errorf("dispatch kind = %q", req.Kind)
	}
	if req.CallbackURL != "http://localhost:3000/api/property/scrape/callback" {
		t.Errorf("callback URL = %q", req.CallbackURL)
	}
	if req.Target["url"] != zillowURL {
		t.Errorf("target url = %v", req.Target["url"])
	}
}

// TestInitiateScrape_ValidationOrder は検証順序が
// URL形式 → SSRF → プラットフォーム → 認可 であることをテストする。
func TestInitiateScrape_ValidationOrder(t *testing.T) {
	t.Run("invalid URL first", func(t *testing.T) {
		f := newFixture()
		// URLが不正なら認可不一致より先にINVALID_URLが返る
		_, err := f.service.InitiateScrape(context.Background(), "agent-1", "other-agent", "not-a-url")
		assertAPIError(t, err, model.ErrCodeInvalidURL)
	})

	t.Run("SSRF before platform", func(t *testing.T) {
		f := newFixture()
		f.validator.validateFn = func(rawURL string) error {
			return errors.New("blocked IP address")
		}
		_, err := f.service.InitiateScrape(context.Background(), "agent-1", "agent-1", "http://169.254.169.254/latest/")
		assertAPIError(t, err, model.ErrCodeSSRFBlocked)
	})

	t.Run("platform before authorization", func(t *testing.T) {
		f := newFixture()
		// 非対応プラットフォーム + 認可不一致の場合、プラットフォームエラーが先
		_, err := f.service.InitiateScrape(context.Background(), "agent-1", "other-agent", "https://example.com/listing/1")
		apiErr := assertAPIError(t, err, model.ErrCodeUnsupportedPlatform)
		if apiErr.Message != "unsupported platform" {
			t.Errorf("message = %q, want %q", apiErr.Message, "unsupported platform")
		}
	})

	t.Run("authorization mismatch", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.InitiateScrape(context.Background(), "agent-1", "other-agent", zillowURL)
		assertAPIError(t, err, model.ErrCodeUnauthorized)
	})

	t.Run("no session", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.InitiateScrape(context.Background(), "", "agent-1", zillowURL)
		assertAPIError(t, err, model.ErrCodeUnauthorized)
	})
}

// TestInitiateScrape_NoDispatchOnValidationFailure は検証失敗時に
// 外部呼び出しが発生しないことをテストする。
func TestInitiateScrape_NoDispatchOnValidationFailure(t *testing.T) {
	f := newFixture()

	f.service.InitiateScrape(context.Background(), "agent-1", "other-agent", zillowURL)

	if len(f.dispatcher.requests) != 0 {
		t.Errorf("dispatch count = %d, want 0 after validation failure", len(f.dispatcher.requests))
	}
	if len(f.propertyRepo.properties) != 0 {
		t.Errorf("properties persisted = %d, want 0", len(f.propertyRepo.properties))
	}
}

// TestInitiateScrape_EngineFailureNothingPersisted はエンジン投入失敗時に
// 何も永続化されないことをテストする。
func TestInitiateScrape_EngineFailureNothingPersisted(t *testing.T) {
	f := newFixture()
	f.dispatcher.dispatchFn = func(ctx context.Context, req workflow.DispatchRequest) (string, error) {
		return "", errors.New("engine unreachable")
	}

	_, err := f.service.InitiateScrape(context.Background(), "agent-1", "agent-1", zillowURL)
	assertAPIError(t, err, model.ErrCodeEngineDispatch)

	if len(f.propertyRepo.properties) != 0 {
		t.Errorf("properties persisted = %d, want 0", len(f.propertyRepo.properties))
	}
	if len(f.jobRepo.jobs) != 0 {
		t.Errorf("jobs persisted = %d, want 0", len(f.jobRepo.jobs))
	}
}

// TestInitiateScrape_PreviewFailureIsNonFatal はプレビュー取得失敗でも
// ジョブ投入が続行されることをテストする。
func TestInitiateScrape_PreviewFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.preview.fetchFn = func(ctx context.Context, listingURL string) (listing.Preview, error) {
		return listing.Preview{}, errors.New("preview fetch timeout")
	}

	initiated, err := f.service.InitiateScrape(context.Background(), "agent-1", "agent-1", zillowURL)
	if err != nil {
		t.Fatalf("InitiateScrape() error = %v, want nil (preview is best-effort)", err)
	}
	if initiated.Job.Status != model.JobStatusProcessing {
		t.Errorf("job.Status = %q", initiated.Job.Status)
	}
}

// TestInitiateContent_PropertyNotFound は物件不在・非所有の404をテストする。
func TestInitiateContent_PropertyNotFound(t *testing.T) {
	f := newFixture()
	f.propertyRepo.properties["prop-1"] = &model.Property{ID: "prop-1", AgentID: "other-agent"}

	t.Run("missing property", func(t *testing.T) {
		_, err := f.service.InitiateContent(context.Background(), "agent-1", "no-such-property")
		assertAPIError(t, err, model.ErrCodePropertyNotFound)
	})

	t.Run("not owned", func(t *testing.T) {
		// 非所有も存在を漏らさず404を返す
		_, err := f.service.InitiateContent(context.Background(), "agent-1", "prop-1")
		assertAPIError(t, err, model.ErrCodePropertyNotFound)
	})

	t.Run("no session", func(t *testing.T) {
		_, err := f.service.InitiateContent(context.Background(), "", "prop-1")
		assertAPIError(t, err, model.ErrCodeUnauthorized)
	})
}

// TestInitiateImages_Success は画像ジョブ投入でスタイルがオプションに載ることをテストする。
func TestInitiateImages_Success(t *testing.T) {
	f := newFixture()
	f.propertyRepo.properties["prop-1"] = &model.Property{
		ID: "prop-1", AgentID: "agent-1",
		ImageURLs: []string{"https://photos.example.com/1.jpg"},
	}

	job, err := f.service.InitiateImages(context.Background(), "agent-1", "prop-1", "modern-staging")
	if err != nil {
		t.Fatalf("InitiateImages() error = %v", err)
	}
	if job.Kind != model.JobKindImage {
		t.Errorf("job.Kind = %q", job.Kind)
	}

	req := f.dispatcher.requests[0]
	if req.Options["style"] != "modern-staging" {
		t.Errorf("options style = %v", req.Options["style"])
	}
	if req.CallbackURL != "http://localhost:3000/api/images/generate/callback" {
		t.Errorf("callback URL = %q", req.CallbackURL)
	}
}

// --- 照合のテスト ---

func seedProcessingJob(f *fixture, kind model.JobKind, executionID string) *model.Job {
	property := &model.Property{ID: "prop-1", AgentID: "agent-1", ListingURL: zillowURL, Platform: model.PlatformZillow}
	f.propertyRepo.properties["prop-1"] = property
	job := &model.Job{
		ID: "job-1", AgentID: "agent-1", PropertyID: "prop-1",
		Kind: kind, ExecutionID: executionID,
		Status: model.JobStatusProcessing, StartedAt: time.Now(),
	}
	f.jobRepo.jobs[executionID] = job
	return job
}

// TestReconcileScrape_Success はスクレイプ成功コールバックの照合をテストする。
// 物件フィールドの書き込み、説明文のサニタイズ、コンテンツ生成の連鎖を検証する。
func TestReconcileScrape_Success(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindScrape, "exec-scrape-1")

	err := f.service.ReconcileScrape(context.Background(), "exec-scrape-1", ScrapeOutcome{
		Success:     true,
		Address:     "123 Main St, Springfield",
		Price:       "$450,000",
		Bedrooms:    3,
		Bathrooms:   2.5,
		SquareFeet:  1850,
		Description: `<p>Beautiful home</p><script>alert("xss")</script>`,
		ImageURLs:   []string{"https://photos.example.com/1.jpg"},
	})
	if err != nil {
		t.Fatalf("ReconcileScrape() error = %v", err)
	}

	job := f.jobRepo.jobs["exec-scrape-1"]
	if job.Status != model.JobStatusCompleted {
		t.Errorf("job.Status = %q, want completed", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("job.CompletedAt is nil")
	}

	property := f.propertyRepo.properties["prop-1"]
	if property.Address != "123 Main St, Springfield" {
		t.Errorf("property.Address = %q", property.Address)
	}
	if strings.Contains(property.Description, "<script") {
		t.Errorf("description was not sanitized: %q", property.Description)
	}
	if !strings.Contains(property.Description, "Beautiful home") {
		t.Errorf("sanitizer removed legitimate content: %q", property.Description)
	}

	// スクレイプ完了はコンテンツ生成を連鎖投入する
	if len(f.dispatcher.requests) != 1 {
		t.Fatalf("dispatch count = %d, want 1 (chained content job)", len(f.dispatcher.requests))
	}
	if f.dispatcher.requests[0].Kind != model.JobKindContent {
		t.Errorf("chained kind = %q, want content", f.dispatcher.requests[0].Kind)
	}
}

// TestReconcileScrape_Failure は失敗コールバックの照合をテストする。
// ステータスがerrorへ遷移し、エラー詳細が保存され、連鎖は行われない。
func TestReconcileScrape_Failure(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindScrape, "exec-scrape-1")

	err := f.service.ReconcileScrape(context.Background(), "exec-scrape-1", ScrapeOutcome{
		Success:      false,
		ErrorMessage: "timeout",
	})
	if err != nil {
		t.Fatalf("ReconcileScrape() error = %v", err)
	}

	job := f.jobRepo.jobs["exec-scrape-1"]
	if job.Status != model.JobStatusError {
		t.Errorf("job.Status = %q, want error", job.Status)
	}
	if job.ErrorMessage != "timeout" {
		t.Errorf("job.ErrorMessage = %q, want %q", job.ErrorMessage, "timeout")
	}

	if len(f.dispatcher.requests) != 0 {
		t.Errorf("dispatch count = %d, want 0 (no chain on failure)", len(f.dispatcher.requests))
	}
	if len(f.propertyRepo.updated) != 0 {
		t.Errorf("property updates = %d, want 0 on failure", len(f.propertyRepo.updated))
	}
}

// TestReconcile_DuplicateIdenticalDelivery は同一終端状態の重複配送が
// 冪等に受理されることをテストする。
func TestReconcile_DuplicateIdenticalDelivery(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindScrape, "exec-1")

	outcome := ScrapeOutcome{Success: false, ErrorMessage: "timeout"}
	if err := f.service.ReconcileScrape(context.Background(), "exec-1", outcome); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}
	if err := f.service.ReconcileScrape(context.Background(), "exec-1", outcome); err != nil {
		t.Fatalf("duplicate delivery error = %v, want nil (idempotent)", err)
	}

	if f.jobRepo.jobs["exec-1"].Status != model.JobStatusError {
		t.Errorf("status = %q after duplicate", f.jobRepo.jobs["exec-1"].Status)
	}
}

// TestReconcile_ConflictingDelivery は異なる終端状態を報告する配送が
// JOB_CONFLICTで拒否されることをテストする。
func TestReconcile_ConflictingDelivery(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindScrape, "exec-1")

	if err := f.service.ReconcileScrape(context.Background(), "exec-1", ScrapeOutcome{Success: false, ErrorMessage: "timeout"}); err != nil {
		t.Fatalf("first delivery error = %v", err)
	}

	err := f.service.ReconcileScrape(context.Background(), "exec-1", ScrapeOutcome{Success: true, Address: "123 Main St"})
	assertAPIError(t, err, model.ErrCodeJobConflict)

	// 先着の終端状態は維持される
	if f.jobRepo.jobs["exec-1"].Status != model.JobStatusError {
		t.Errorf("status = %q, terminal state must not change", f.jobRepo.jobs["exec-1"].Status)
	}
}

// TestReconcile_UnknownExecutionID は未知の相関トークンの404をテストする。
func TestReconcile_UnknownExecutionID(t *testing.T) {
	f := newFixture()

	err := f.service.ReconcileScrape(context.Background(), "no-such-exec", ScrapeOutcome{Success: true})
	assertAPIError(t, err, model.ErrCodeJobNotFound)
}

// TestReconcile_KindMismatch は別種別のワークレコードに一致する相関トークンが
// 404として扱われることをテストする。
func TestReconcile_KindMismatch(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindImage, "exec-1")

	err := f.service.ReconcileScrape(context.Background(), "exec-1", ScrapeOutcome{Success: true})
	assertAPIError(t, err, model.ErrCodeJobNotFound)
}

// TestReconcile_MissingExecutionID は相関トークン欠落の400をテストする。
func TestReconcile_MissingExecutionID(t *testing.T) {
	f := newFixture()

	err := f.service.ReconcileContent(context.Background(), "", ContentOutcome{Success: true})
	assertAPIError(t, err, model.ErrCodeMissingFields)
}

// TestReconcileContent_Success はコンテンツ生成コールバックの照合をテストする。
func TestReconcileContent_Success(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindContent, "exec-content-1")

	err := f.service.ReconcileContent(context.Background(), "exec-content-1", ContentOutcome{
		Success:     true,
		Headline:    "Just Listed: <b>123 Main St</b>",
		Description: "<p>Move-in ready.</p>",
		SocialPost:  "Check out this home!",
		EmailCopy:   "Dear client,",
	})
	if err != nil {
		t.Fatalf("ReconcileContent() error = %v", err)
	}

	content := f.contentRepo.contents["prop-1"]
	if content == nil {
		t.Fatal("content was not persisted")
	}
	// 見出しはプレーンテキスト化される
	if strings.ContainsAny(content.Headline, "<>") {
		t.Errorf("headline contains markup: %q", content.Headline)
	}
	if !strings.Contains(content.Description, "<p>Move-in ready.</p>") {
		t.Errorf("description = %q", content.Description)
	}
}

// TestReconcileImages_Success は画像コールバックの照合をテストする。
func TestReconcileImages_Success(t *testing.T) {
	f := newFixture()
	seedProcessingJob(f, model.JobKindImage, "exec-image-1")

	err := f.service.ReconcileImages(context.Background(), "exec-image-1", ImageOutcome{
		Success: true,
		Style:   "modern-staging",
		Images: []StyledImage{
			{SourceURL: "https://photos.example.com/1.jpg", StyledURL: "https://cdn.example.com/styled/1.jpg"},
			{SourceURL: "https://photos.example.com/2.jpg", StyledURL: "https://cdn.example.com/styled/2.jpg"},
		},
	})
	if err != nil {
		t.Fatalf("ReconcileImages() error = %v", err)
	}

	if len(f.imageRepo.images) != 2 {
		t.Fatalf("persisted images = %d, want 2", len(f.imageRepo.images))
	}
	if f.imageRepo.images[0].Style != "modern-staging" {
		t.Errorf("style = %q", f.imageRepo.images[0].Style)
	}
	if f.jobRepo.jobs["exec-image-1"].Status != model.JobStatusCompleted {
		t.Errorf("job status = %q", f.jobRepo.jobs["exec-image-1"].Status)
	}
}

// --- 参照系のテスト ---

// TestGetPropertyDetail_IncludesGeneratedAssets は詳細取得が
// コンテンツ・画像を含むことをテストする。
func TestGetPropertyDetail_IncludesGeneratedAssets(t *testing.T) {
	f := newFixture()
	f.propertyRepo.properties["prop-1"] = &model.Property{ID: "prop-1", AgentID: "agent-1"}
	f.contentRepo.contents["prop-1"] = &model.PropertyContent{ID: "c-1", PropertyID: "prop-1", Headline: "Just Listed"}
	f.imageRepo.images = []*model.PropertyImage{{ID: "i-1", PropertyID: "prop-1"}}

	detail, err := f.service.GetPropertyDetail(context.Background(), "agent-1", "prop-1")
	if err != nil {
		t.Fatalf("GetPropertyDetail() error = %v", err)
	}
	if detail.Content == nil || detail.Content.Headline != "Just Listed" {
		t.Errorf("detail.Content = %+v", detail.Content)
	}
	if len(detail.Images) != 1 {
		t.Errorf("detail.Images = %d, want 1", len(detail.Images))
	}
}

// TestPropertyStatus_NotOwned は非所有物件のステータス照会が404となることをテストする。
func TestPropertyStatus_NotOwned(t *testing.T) {
	f := newFixture()
	f.propertyRepo.properties["prop-1"] = &model.Property{ID: "prop-1", AgentID: "other-agent"}

	_, err := f.service.PropertyStatus(context.Background(), "agent-1", "prop-1")
	assertAPIError(t, err, model.ErrCodePropertyNotFound)
}
