// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, job, brand, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingFields       = "MISSING_FIELDS"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	ErrCodeSSRFBlocked         = "SSRF_BLOCKED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodePropertyNotFound    = "PROPERTY_NOT_FOUND"
	ErrCodeJobNotFound         = "JOB_NOT_FOUND"
	ErrCodeJobConflict         = "JOB_CONFLICT"
	ErrCodeEngineDispatch      = "ENGINE_DISPATCH_FAILED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeAgentNotFound       = "AGENT_NOT_FOUND"
)

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
// メッセージはエンドポイントごとに固定文言を使用する。
func NewMissingFieldsError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  message,
		Category: "validation",
		Action:   "Provide all required fields and retry.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a full listing URL starting with http:// or https://.",
	}
}

// NewUnsupportedPlatformError は非対応プラットフォームエラーを生成する。
// ホスト名が既知の5プラットフォームのいずれにも一致しない場合に返す。
func NewUnsupportedPlatformError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedPlatform,
		Message:  "unsupported platform",
		Category: "validation",
		Action:   "Use a listing URL from Zillow, Realtor.com, Redfin, Trulia, or Homes.com.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "the requested URL is not allowed",
		Category: "validation",
		Action:   "Use a public listing URL. Private network addresses are rejected.",
	}
}

// NewUnauthorizedError は認可エラーを生成する。
// セッション不在、またはセッションのエージェントが対象の所有者と
// 一致しない場合に返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "unauthorized",
		Category: "auth",
		Action:   "Sign in with the account that owns this resource.",
	}
}

// NewPropertyNotFoundError は物件未検出エラーを生成する。
func NewPropertyNotFoundError(propertyID string) *APIError {
	return &APIError{
		Code:     ErrCodePropertyNotFound,
		Message:  fmt.Sprintf("property not found: %s", propertyID),
		Category: "job",
		Action:   "Check the property ID.",
	}
}

// NewJobNotFoundError はワークレコード未検出エラーを生成する。
// コールバックのexecution_idに一致するジョブが存在しない場合に返す。
func NewJobNotFoundError(executionID string) *APIError {
	return &APIError{
		Code:     ErrCodeJobNotFound,
		Message:  fmt.Sprintf("no job matches execution_id: %s", executionID),
		Category: "job",
		Action:   "Verify the execution_id in the callback payload.",
	}
}

// NewJobConflictError は終端状態の競合エラーを生成する。
// 既に異なる終端状態へ遷移済みのジョブに対し、別の終端状態を
// 報告するコールバックが届いた場合に返す。
func NewJobConflictError(executionID string) *APIError {
	return &APIError{
		Code:     ErrCodeJobConflict,
		Message:  fmt.Sprintf("job already finished with a different outcome: %s", executionID),
		Category: "job",
		Action:   "This callback conflicts with an earlier delivery and was rejected.",
	}
}

// NewEngineDispatchError はワークフローエンジン呼び出し失敗エラーを生成する。
// 下流の詳細はログのみに記録し、呼び出し元には一般的な文言を返す。
func NewEngineDispatchError() *APIError {
	return &APIError{
		Code:     ErrCodeEngineDispatch,
		Message:  "failed to start the job",
		Category: "system",
		Action:   "Wait a moment and retry.",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "invalid email or password",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  fmt.Sprintf("email is already registered: %s", email),
		Category: "auth",
		Action:   "Sign in instead, or use the password reset flow.",
	}
}

// NewAgentNotFoundError はエージェント未検出エラーを生成する。
func NewAgentNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAgentNotFound,
		Message:  "agent not found",
		Category: "auth",
		Action:   "Sign in again.",
	}
}
