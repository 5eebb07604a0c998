package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// permissiveGuard はテスト用のSSRF検証スタブ。
// httptestサーバー（ループバック）へのリクエストを通すため、
// 検証なしの素のHTTPクライアントを返す。
type permissiveGuard struct{}

func (permissiveGuard) ValidateURL(rawURL string) error { return nil }

func (permissiveGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newTestFetcher() *PreviewFetcher {
	return NewPreviewFetcher(permissiveGuard{}, 5*time.Second, 2*1024*1024)
}

// TestFetch_ExtractsOGMeta はog:title / og:imageの抽出をテストする。
func TestFetch_ExtractsOGMeta(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="123 Main St, Springfield - $450,000">
<meta property="og:image" content="https://photos.example.com/123-main.jpg">
</head>
<body><p>listing body</p></body>
</html>`))
	}))
	defer ts.Close()

	preview, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if preview.Title != "123 Main St, Springfield - $450,000" {
		t.Errorf("Title = %q", preview.Title)
	}
	if preview.ImageURL != "https://photos.example.com/123-main.jpg" {
		t.Errorf("ImageURL = %q", preview.ImageURL)
	}
}

// TestFetch_ResolvesRelativeImageURL はog:imageの相対URL解決をテストする。
func TestFetch_ResolvesRelativeImageURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta property="og:image" content="/photos/1.jpg"></head><body></body></html>`))
	}))
	defer ts.Close()

	preview, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := ts.URL + "/photos/1.jpg"
	if preview.ImageURL != want {
		t.Errorf("ImageURL = %q, want %q", preview.ImageURL, want)
	}
}

// TestFetch_NonHTMLResponse は非HTML応答で空プレビューを返すことをテストする。
func TestFetch_NonHTMLResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"listing": true}`))
	}))
	defer ts.Close()

	preview, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if preview.Title != "" || preview.ImageURL != "" {
		t.Errorf("preview = %+v, want empty for non-HTML response", preview)
	}
}

// TestFetch_MissingMetaTags はogメタタグ不在で空プレビューを返すことをテストする。
func TestFetch_MissingMetaTags(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>plain page</title></head><body></body></html>`))
	}))
	defer ts.Close()

	preview, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if preview.Title != "" || preview.ImageURL != "" {
		t.Errorf("preview = %+v, want empty", preview)
	}
}

// TestFetch_ServerUnreachable は接続失敗でエラーを返すことをテストする。
func TestFetch_ServerUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // 即座に停止して接続失敗を誘発

	_, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("Fetch() error = nil, want connection error")
	}
}

// TestParseOGMeta_IgnoresBodyMeta はbody内のmetaタグを無視することをテストする。
func TestParseOGMeta_IgnoresBodyMeta(t *testing.T) {
	body := []byte(`<html><head></head><body><meta property="og:title" content="should not be picked up"></body></html>`)

	preview := parseOGMeta(body, "https://www.zillow.com/homedetails/1_zpid/")
	if preview.Title != "" {
		t.Errorf("Title = %q, want empty (meta in body must be ignored)", preview.Title)
	}
}

// TestParseOGMeta_FirstTagWins は同名メタタグの重複時に先勝ちとなることをテストする。
func TestParseOGMeta_FirstTagWins(t *testing.T) {
	body := []byte(`<html><head>
<meta property="og:title" content="first">
<meta property="og:title" content="second">
<meta property="og:image" content="https://img.example.com/a.jpg">
</head><body></body></html>`)

	preview := parseOGMeta(body, "https://www.zillow.com/")
	if preview.Title != "first" {
		t.Errorf("Title = %q, want %q", preview.Title, "first")
	}
}
