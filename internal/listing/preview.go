package listing

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Preview は掲載ページのogメタタグから取得した軽量プレビュー。
// スクレイプジョブのディスパッチ前に物件レコードへ保存し、
// 完了コールバックが届くまでのUI表示に使う。
type Preview struct {
	Title    string
	ImageURL string
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// PreviewFetcher は掲載ページのプレビュー取得機能を提供する。
type PreviewFetcher struct {
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
}

// NewPreviewFetcher はPreviewFetcherの新しいインスタンスを生成する。
func NewPreviewFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxBodySize int64) *PreviewFetcher {
	return &PreviewFetcher{
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch は掲載ページを取得し、og:title / og:imageを抽出して返す。
// プレビューはベストエフォートであり、取得失敗・非HTML応答・
// メタタグ不在のいずれも空のPreviewとエラーを返す。
// 呼び出し元はエラーをログに記録するだけでジョブ投入は続行する。
func (f *PreviewFetcher) Fetch(ctx context.Context, listingURL string) (Preview, error) {
	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return Preview{}, err
	}
	req.Header.Set("User-Agent", "Nester/1.0 Listing Preview")
	req.Header.Set("Accept", "text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return Preview{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return Preview{}, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return Preview{}, nil
	}

	return parseOGMeta(body, listingURL), nil
}

// parseOGMeta はHTMLのheadタグからog:title / og:imageメタタグを抽出する。
// og:imageの相対URLはbaseURLを基準に絶対URLに解決される。
// bodyに入った時点で解析を打ち切る（ogメタはhead内にのみ現れる）。
func parseOGMeta(htmlBody []byte, baseURL string) Preview {
	var preview Preview

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return preview
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return preview

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "body" {
				return preview
			}
			if tagName != "meta" || !hasAttr {
				continue
			}

			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "property", "name":
					property = strings.ToLower(string(val))
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}

			switch property {
			case "og:title":
				if preview.Title == "" {
					preview.Title = strings.TrimSpace(content)
				}
			case "og:image":
				if preview.ImageURL == "" {
					preview.ImageURL = resolveURL(baseU, strings.TrimSpace(content))
				}
			}

			if preview.Title != "" && preview.ImageURL != "" {
				return preview
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return preview
			}
		}
	}
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base *url.URL, rawRef string) string {
	if rawRef == "" {
		return ""
	}
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// getHTTPClient はHTTPクライアントを取得する。
// SSRFGuardが設定されている場合はSSRF防止付きクライアントを返す。
func (f *PreviewFetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	}
	return &http.Client{Timeout: f.timeout}
}
