// Package listing は物件掲載URLのドメインロジックを提供する。
// プラットフォーム判定と、ディスパッチ前の軽量プレビュー取得を担う。
package listing

import (
	"net/url"
	"strings"

	"github.com/dayrade/nester-frontend-sub002/internal/model"
)

// PlatformInfo は対応プラットフォームの表示用メタデータ。
// capability応答（GET /api/property/scrape）で返す。
type PlatformInfo struct {
	Platform    model.Platform `json:"platform"`
	DisplayName string         `json:"display_name"`
	ExampleURL  string         `json:"example_url"`
}

// supportedPlatforms は対応プラットフォームの定義。
// 判定はホスト名の部分一致で行う（パスやクエリは見ない）。
// 順序はcapability応答の表示順を兼ねる。
var supportedPlatforms = []struct {
	hostFragment string
	info         PlatformInfo
}{
	{"zillow", PlatformInfo{model.PlatformZillow, "Zillow", "https://www.zillow.com/homedetails/..."}},
	{"realtor", PlatformInfo{model.PlatformRealtor, "Realtor.com", "https://www.realtor.com/realestateandhomes-detail/..."}},
	{"redfin", PlatformInfo{model.PlatformRedfin, "Redfin", "https://www.redfin.com/..."}},
	{"trulia", PlatformInfo{model.PlatformTrulia, "Trulia", "https://www.trulia.com/home/..."}},
	{"homes", PlatformInfo{model.PlatformHomes, "Homes.com", "https://www.homes.com/property/..."}},
}

// SupportedPlatforms は対応プラットフォームの一覧を返す。
func SupportedPlatforms() []PlatformInfo {
	infos := make([]PlatformInfo, 0, len(supportedPlatforms))
	for _, p := range supportedPlatforms {
		infos = append(infos, p.info)
	}
	return infos
}

// DetectPlatform は掲載URLのホスト名からプラットフォームを判定する。
// URLとして解釈できない場合はINVALID_URL、
// 既知の5プラットフォームのいずれにも一致しない場合は
// UNSUPPORTED_PLATFORMを返す。
func DetectPlatform(rawURL string) (model.Platform, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", model.NewInvalidURLError(err.Error())
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", model.NewInvalidURLError("missing host")
	}

	for _, p := range supportedPlatforms {
		if strings.Contains(host, p.hostFragment) {
			return p.info.Platform, nil
		}
	}

	return "", model.NewUnsupportedPlatformError()
}
